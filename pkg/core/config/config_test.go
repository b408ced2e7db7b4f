package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "30s", 30 * time.Second, false},
		{"minutes", "5m", 5 * time.Minute, false},
		{"milliseconds", "150ms", 150 * time.Millisecond, false},
		{"complex", "1h30m", 90 * time.Minute, false},
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && d.Duration != tt.expected {
				t.Errorf("UnmarshalText() = %v, want %v", d.Duration, tt.expected)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		expected string
	}{
		{"milliseconds", 100 * time.Millisecond, "100ms"},
		{"seconds", 2 * time.Second, "2s"},
		{"minutes", 5 * time.Minute, "5m0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Duration{tt.duration}
			result, err := d.MarshalText()

			if err != nil {
				t.Errorf("MarshalText() error = %v", err)
				return
			}

			if string(result) != tt.expected {
				t.Errorf("MarshalText() = %v, want %v", string(result), tt.expected)
			}
		})
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.General.Name != "signspeak" {
		t.Errorf("General.Name = %v, want signspeak", cfg.General.Name)
	}
	if cfg.Backend.Port != 8000 {
		t.Errorf("Backend.Port = %v, want 8000", cfg.Backend.Port)
	}
	if cfg.Backend.InferencePath != "/imu" {
		t.Errorf("Backend.InferencePath = %v, want /imu", cfg.Backend.InferencePath)
	}
	if cfg.Poll.Interval.Duration != 100*time.Millisecond {
		t.Errorf("Poll.Interval = %v, want 100ms", cfg.Poll.Interval.Duration)
	}
	if cfg.Poll.Timeout.Duration != 2*time.Second {
		t.Errorf("Poll.Timeout = %v, want 2s", cfg.Poll.Timeout.Duration)
	}
	if cfg.Connection.FailureThreshold != 3 {
		t.Errorf("Connection.FailureThreshold = %v, want 3", cfg.Connection.FailureThreshold)
	}
	if cfg.Settings.Backend != "sqlite" {
		t.Errorf("Settings.Backend = %v, want sqlite", cfg.Settings.Backend)
	}
	if cfg.Settings.Address != "localhost" {
		t.Errorf("Settings.Address = %v, want localhost", cfg.Settings.Address)
	}
	if cfg.Settings.AutoSpeak == nil || !*cfg.Settings.AutoSpeak {
		t.Error("Settings.AutoSpeak should default to true")
	}
	if cfg.Settings.UseGemini == nil || !*cfg.Settings.UseGemini {
		t.Error("Settings.UseGemini should default to true")
	}
	if filepath.Base(cfg.Settings.Path) != "settings.db" {
		t.Errorf("Settings.Path = %v, want .../settings.db", cfg.Settings.Path)
	}
}

func TestConfig_applyDefaults_BadgerPath(t *testing.T) {
	cfg := &Config{Settings: SettingsConfig{Backend: "badger"}}
	cfg.applyDefaults()

	if filepath.Base(cfg.Settings.Path) != "settings.badger" {
		t.Errorf("Settings.Path = %v, want .../settings.badger", cfg.Settings.Path)
	}
}

func TestConfig_UseSettingsBackend(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"badger", "settings.badger"},
		{"sqlite", "settings.db"},
		{"memory", ""},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := Default()
			cfg.UseSettingsBackend(tt.backend)

			if cfg.Settings.Backend != tt.backend {
				t.Errorf("Settings.Backend = %v, want %v", cfg.Settings.Backend, tt.backend)
			}
			got := cfg.Settings.Path
			if got != "" {
				got = filepath.Base(got)
			}
			if got != tt.want {
				t.Errorf("Settings.Path = %v, want %v", cfg.Settings.Path, tt.want)
			}
		})
	}
}

func TestConfig_GetServiceAddress(t *testing.T) {
	cfg := Default()

	tests := []struct {
		service  string
		expected string
	}{
		{"server", "127.0.0.1:8090"},
		{"health", "127.0.0.1:9190"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			result := cfg.GetServiceAddress(tt.service)
			if result != tt.expected {
				t.Errorf("GetServiceAddress(%q) = %v, want %v", tt.service, result, tt.expected)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("Load() expected error for non-existent file")
	}
}

func TestLoad_TOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "signspeak.toml")

	configContent := `
[general]
log_level = "debug"

[poll]
interval = "150ms"

[connection]
failure_threshold = 1

[settings]
backend = "memory"
address = "192.168.1.20"
auto_speak = false
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.LogLevel != "debug" {
		t.Errorf("General.LogLevel = %v, want debug", cfg.General.LogLevel)
	}
	if cfg.Poll.Interval.Duration != 150*time.Millisecond {
		t.Errorf("Poll.Interval = %v, want 150ms", cfg.Poll.Interval.Duration)
	}
	if cfg.Connection.FailureThreshold != 1 {
		t.Errorf("FailureThreshold = %v, want 1", cfg.Connection.FailureThreshold)
	}
	if cfg.Settings.Address != "192.168.1.20" {
		t.Errorf("Settings.Address = %v, want 192.168.1.20", cfg.Settings.Address)
	}
	if *cfg.Settings.AutoSpeak {
		t.Error("Settings.AutoSpeak should be false")
	}

	// Defaults still applied
	if cfg.Poll.Timeout.Duration != 2*time.Second {
		t.Errorf("Poll.Timeout = %v, want 2s (default)", cfg.Poll.Timeout.Duration)
	}
	if !cfg.Server.Enabled {
		t.Error("Server.Enabled should default to true")
	}
}

func TestLoad_YAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "signspeak.yaml")

	configContent := `
poll:
  interval: 200ms
  timeout: 1s
speech:
  local_engine: espeak
server:
  enabled: false
  port: 9000
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Poll.Interval.Duration != 200*time.Millisecond {
		t.Errorf("Poll.Interval = %v, want 200ms", cfg.Poll.Interval.Duration)
	}
	if cfg.Poll.Timeout.Duration != time.Second {
		t.Errorf("Poll.Timeout = %v, want 1s", cfg.Poll.Timeout.Duration)
	}
	if cfg.Speech.LocalEngine != "espeak" {
		t.Errorf("Speech.LocalEngine = %v, want espeak", cfg.Speech.LocalEngine)
	}
	if cfg.Server.Enabled {
		t.Error("Server.Enabled should be false")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %v, want 9000", cfg.Server.Port)
	}
}

func TestLoad_InvalidContent(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[poll\ninterval ="), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected parse error")
	}
}

func TestConfig_expandEnvVars(t *testing.T) {
	t.Setenv("SIGNSPEAK_TEST_HOST", "10.0.0.7")

	cfg := &Config{Settings: SettingsConfig{Address: "$SIGNSPEAK_TEST_HOST"}}
	cfg.expandEnvVars()

	if cfg.Settings.Address != "10.0.0.7" {
		t.Errorf("Address = %v, want 10.0.0.7", cfg.Settings.Address)
	}
}

func TestLoadOrDefault_NoConfigFound(t *testing.T) {
	t.Setenv("SIGNSPEAK_CONFIG", "")
	t.Setenv("HOME", t.TempDir())

	originalWd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	defer os.Chdir(originalWd)

	if _, err := LoadFromEnv(); err == nil {
		t.Error("LoadFromEnv() expected error when no config exists")
	}

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Backend.Port != 8000 {
		t.Errorf("Backend.Port = %v, want 8000", cfg.Backend.Port)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("HOME", "/home/signspeak")

	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "signspeak.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.DataDir != "/home/signspeak/.config/signspeak" {
		t.Errorf("General.DataDir = %v", cfg.General.DataDir)
	}
	if cfg.Settings.Path != "/home/signspeak/.config/signspeak/settings.db" {
		t.Errorf("Settings.Path = %v", cfg.Settings.Path)
	}
	if cfg.Speech.CacheTTL.Duration != 30*time.Minute {
		t.Errorf("Speech.CacheTTL = %v, want 30m", cfg.Speech.CacheTTL.Duration)
	}
	if cfg.GetServiceAddress("health") != "127.0.0.1:9190" {
		t.Errorf("health address = %v", cfg.GetServiceAddress("health"))
	}
}
