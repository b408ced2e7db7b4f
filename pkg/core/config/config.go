package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	General    GeneralConfig    `toml:"general" yaml:"general"`
	Backend    BackendConfig    `toml:"backend" yaml:"backend"`
	Poll       PollConfig       `toml:"poll" yaml:"poll"`
	Connection ConnectionConfig `toml:"connection" yaml:"connection"`
	Speech     SpeechConfig     `toml:"speech" yaml:"speech"`
	Settings   SettingsConfig   `toml:"settings" yaml:"settings"`
	Server     ServerConfig     `toml:"server" yaml:"server"`
	Health     HealthConfig     `toml:"health" yaml:"health"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name      string `toml:"name" yaml:"name"`
	DataDir   string `toml:"data_dir" yaml:"data_dir"`
	LogLevel  string `toml:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" yaml:"log_format"`
	LogFile   string `toml:"log_file" yaml:"log_file"`
}

// BackendConfig describes the sensor-inference service
type BackendConfig struct {
	Scheme        string `toml:"scheme" yaml:"scheme"`
	Port          int    `toml:"port" yaml:"port"`
	InferencePath string `toml:"inference_path" yaml:"inference_path"`
	SpeakPath     string `toml:"speak_path" yaml:"speak_path"`
}

// PollConfig holds the poll loop timing
type PollConfig struct {
	Interval Duration `toml:"interval" yaml:"interval"`
	Timeout  Duration `toml:"timeout" yaml:"timeout"`
}

// ConnectionConfig holds the connection state machine parameters
type ConnectionConfig struct {
	FailureThreshold int `toml:"failure_threshold" yaml:"failure_threshold"`
}

// SpeechConfig holds speech dispatcher settings
type SpeechConfig struct {
	RemoteTimeout Duration `toml:"remote_timeout" yaml:"remote_timeout"`
	LocalEngine   string   `toml:"local_engine" yaml:"local_engine"` // auto, say, espeak, none
	Rate          int      `toml:"rate" yaml:"rate"`
	Player        string   `toml:"player" yaml:"player"` // auto, exec, portaudio
	CacheEntries  int      `toml:"cache_entries" yaml:"cache_entries"` // negative disables
	CacheTTL      Duration `toml:"cache_ttl" yaml:"cache_ttl"`
}

// SettingsConfig selects the durable settings backend and its defaults
type SettingsConfig struct {
	Backend   string `toml:"backend" yaml:"backend"` // sqlite, badger, memory
	Path      string `toml:"path" yaml:"path"`
	Address   string `toml:"address" yaml:"address"`
	Language  string `toml:"language" yaml:"language"`
	AutoSpeak *bool  `toml:"auto_speak" yaml:"auto_speak"`
	UseGemini *bool  `toml:"use_gemini" yaml:"use_gemini"`
}

// ServerConfig holds the presentation API listener
type ServerConfig struct {
	Enabled      bool     `toml:"enabled" yaml:"enabled"`
	Host         string   `toml:"host" yaml:"host"`
	Port         int      `toml:"port" yaml:"port"`
	ReadTimeout  Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout" yaml:"write_timeout"`
}

// HealthConfig holds the gRPC health listener
type HealthConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Host    string `toml:"host" yaml:"host"`
	Port    int    `toml:"port" yaml:"port"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	return d.UnmarshalText([]byte(value.Value))
}

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{Enabled: true},
		Health: HealthConfig{Enabled: true},
	}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Config{
		Server: ServerConfig{Enabled: true},
		Health: HealthConfig{Enabled: true},
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Apply defaults
	cfg.applyDefaults()

	cfg.expandEnvVars()

	return &cfg, nil
}

// LoadFromEnv loads configuration from the SIGNSPEAK_CONFIG environment variable
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("SIGNSPEAK_CONFIG")
	if path == "" {
		// Try default locations
		defaultPaths := []string{
			"./configs/signspeak.toml",
			"./signspeak.toml",
			"./signspeak.yaml",
			filepath.Join(os.Getenv("HOME"), ".config/signspeak/config.toml"),
		}
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("no config file found, set SIGNSPEAK_CONFIG or create configs/signspeak.toml")
	}

	return Load(path)
}

// LoadOrDefault loads path if given, otherwise searches the default
// locations and falls back to Default when nothing is found.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := LoadFromEnv()
	if err != nil {
		if os.Getenv("SIGNSPEAK_CONFIG") != "" {
			return nil, err
		}
		return Default(), nil
	}
	return cfg, nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "signspeak"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = filepath.Join(os.Getenv("HOME"), ".config", "signspeak")
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "text"
	}

	// Backend
	if c.Backend.Scheme == "" {
		c.Backend.Scheme = "http"
	}
	if c.Backend.Port == 0 {
		c.Backend.Port = 8000
	}
	if c.Backend.InferencePath == "" {
		c.Backend.InferencePath = "/imu"
	}
	if c.Backend.SpeakPath == "" {
		c.Backend.SpeakPath = "/audio/speak"
	}

	// Poll
	if c.Poll.Interval.Duration == 0 {
		c.Poll.Interval.Duration = 100 * time.Millisecond
	}
	if c.Poll.Timeout.Duration == 0 {
		c.Poll.Timeout.Duration = 2 * time.Second
	}

	// Connection
	if c.Connection.FailureThreshold <= 0 {
		c.Connection.FailureThreshold = 3
	}

	// Speech
	if c.Speech.RemoteTimeout.Duration == 0 {
		c.Speech.RemoteTimeout.Duration = 10 * time.Second
	}
	if c.Speech.LocalEngine == "" {
		c.Speech.LocalEngine = "auto"
	}
	if c.Speech.Rate == 0 {
		c.Speech.Rate = 175
	}
	if c.Speech.Player == "" {
		c.Speech.Player = "auto"
	}
	if c.Speech.CacheEntries == 0 {
		c.Speech.CacheEntries = 32
	}
	if c.Speech.CacheTTL.Duration == 0 {
		c.Speech.CacheTTL.Duration = 30 * time.Minute
	}

	// Settings
	if c.Settings.Backend == "" {
		c.Settings.Backend = "sqlite"
	}
	if c.Settings.Path == "" {
		c.Settings.Path = c.defaultSettingsPath()
	}
	if c.Settings.Address == "" {
		c.Settings.Address = "localhost"
	}
	if c.Settings.Language == "" {
		c.Settings.Language = "en"
	}
	if c.Settings.AutoSpeak == nil {
		v := true
		c.Settings.AutoSpeak = &v
	}
	if c.Settings.UseGemini == nil {
		v := true
		c.Settings.UseGemini = &v
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 10 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 10 * time.Second
	}

	// Health
	if c.Health.Host == "" {
		c.Health.Host = "127.0.0.1"
	}
	if c.Health.Port == 0 {
		c.Health.Port = 9190
	}
}

func (c *Config) defaultSettingsPath() string {
	switch c.Settings.Backend {
	case "badger":
		return filepath.Join(c.General.DataDir, "settings.badger")
	case "memory":
		return ""
	default:
		return filepath.Join(c.General.DataDir, "settings.db")
	}
}

// UseSettingsBackend switches the settings backend and resets its path
// to the default location for that backend.
func (c *Config) UseSettingsBackend(backend string) {
	c.Settings.Backend = backend
	c.Settings.Path = c.defaultSettingsPath()
}

// expandEnvVars expands environment variables in configuration values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.General.LogFile = os.ExpandEnv(c.General.LogFile)
	c.Settings.Path = os.ExpandEnv(c.Settings.Path)
	c.Settings.Address = os.ExpandEnv(c.Settings.Address)
}

// GetServiceAddress returns the listen address for "server" or "health"
func (c *Config) GetServiceAddress(service string) string {
	switch service {
	case "server":
		return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
	case "health":
		return fmt.Sprintf("%s:%d", c.Health.Host, c.Health.Port)
	default:
		return ""
	}
}
