package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/internal/companion/backend"
	"github.com/msto63/signspeak/internal/companion/settings"
	"github.com/msto63/signspeak/internal/companion/speech"
	"github.com/msto63/signspeak/pkg/core/config"
	"github.com/msto63/signspeak/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "signspeak",
	Short: "SignSpeak - Gesture-to-Speech Companion",
	Long: `SignSpeak polls a sensor-inference service for recognized gestures,
stabilizes the stream and speaks the resulting sentences.

Commands:
  run       - Start the engine with its presentation API
  monitor   - Live terminal view of a running engine
  probe     - Check a backend address once
  speak     - Speak a sentence through the backend or local voices
  settings  - Show or change persisted settings
  status    - Query the health listener of a running engine`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./configs/signspeak.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}

// loadConfig loads the configuration and sets up logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.General.LogLevel = "debug"
	}

	logCfg := logging.DefaultLoggerConfig(cfg.General.Name)
	logCfg.Level = cfg.General.LogLevel
	logCfg.Format = cfg.General.LogFormat
	logCfg.File = cfg.General.LogFile
	if err := logging.Configure(logCfg); err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	return cfg, nil
}

func backendClient(cfg *config.Config) *backend.Client {
	return backend.NewClient(backend.Config{
		Scheme:        cfg.Backend.Scheme,
		Port:          cfg.Backend.Port,
		InferencePath: cfg.Backend.InferencePath,
		SpeakPath:     cfg.Backend.SpeakPath,
	})
}

func speechConfig(cfg *config.Config) speech.Config {
	return speech.Config{
		RemoteTimeout: cfg.Speech.RemoteTimeout.Duration,
		CacheEntries:  cfg.Speech.CacheEntries,
		CacheTTL:      cfg.Speech.CacheTTL.Duration,
	}
}

func settingsDefaults(cfg *config.Config) settings.Settings {
	return settings.Settings{
		BackendAddress: cfg.Settings.Address,
		Language:       cfg.Settings.Language,
		AutoSpeak:      *cfg.Settings.AutoSpeak,
		UseGemini:      *cfg.Settings.UseGemini,
	}
}

// openStore opens the configured settings backend
func openStore(cfg *config.Config) (*settings.Store, error) {
	if cfg.Settings.Backend != "memory" {
		if err := os.MkdirAll(cfg.General.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	kv, err := settings.OpenKV(cfg.Settings.Backend, cfg.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	return settings.Open(kv, settingsDefaults(cfg)), nil
}
