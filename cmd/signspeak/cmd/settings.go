package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/internal/companion/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persisted settings",
	Long: `Shows the persisted session settings.

Use "settings set" to change them while no engine is running; a running
engine only reads the store on startup.`,
	RunE: runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key=value>...",
	Short: "Change persisted settings",
	Long: `Changes persisted settings.

Keys:
  address     - Backend address (host, host:port or URL)
  language    - Output language code
  auto_speak  - Speak accepted gestures (true/false)
  use_gemini  - Let the backend generate sentences (true/false)

Example:
  signspeak settings set address=192.168.1.20 language=hi`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSettingsSet,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Settings (%s)\n", cfg.Settings.Backend)
	printSettings(store.Get())
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	patch, err := parsePatch(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	s, changes, err := store.Set(patch)
	if err != nil {
		return err
	}
	if changes == 0 {
		fmt.Println("No changes.")
	}
	printSettings(s)
	return nil
}

func printSettings(s settings.Settings) {
	fmt.Printf("  %-12s %s\n", settings.KeyAddress, s.BackendAddress)
	fmt.Printf("  %-12s %s\n", settings.KeyLanguage, s.Language)
	fmt.Printf("  %-12s %t\n", settings.KeyAutoSpeak, s.AutoSpeak)
	fmt.Printf("  %-12s %t\n", settings.KeyUseGemini, s.UseGemini)
}

// parsePatch turns key=value arguments into a settings patch
func parsePatch(args []string) (settings.Patch, error) {
	var p settings.Patch
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return p, fmt.Errorf("expected key=value, got %q", arg)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case settings.KeyAddress, "backend_address":
			p.BackendAddress = &value
		case settings.KeyLanguage:
			p.Language = &value
		case settings.KeyAutoSpeak, settings.KeyUseGemini:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return p, fmt.Errorf("invalid value for %s: %q", key, value)
			}
			if key == settings.KeyAutoSpeak {
				p.AutoSpeak = &b
			} else {
				p.UseGemini = &b
			}
		default:
			return p, fmt.Errorf("unknown setting: %s", key)
		}
	}
	return p, nil
}
