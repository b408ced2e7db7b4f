package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/internal/companion/activity"
	"github.com/msto63/signspeak/internal/companion/audio"
	"github.com/msto63/signspeak/internal/companion/speech"
)

var (
	speakLanguage string
	speakAddress  string
	speakLocal    bool
)

var speakCmd = &cobra.Command{
	Use:   "speak <text>",
	Short: "Speak a sentence",
	Long: `Speaks text through the backend speech endpoint and falls back to
a local voice for the language when that fails.

Examples:
  signspeak speak "Hello there"
  signspeak speak --language hi "Namaste"
  signspeak speak --local "Offline test"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSpeak,
}

func init() {
	rootCmd.AddCommand(speakCmd)

	speakCmd.Flags().StringVarP(&speakLanguage, "language", "l", "", "Language code (default: stored language)")
	speakCmd.Flags().StringVarP(&speakAddress, "address", "a", "", "Backend address (default: stored address)")
	speakCmd.Flags().BoolVar(&speakLocal, "local", false, "Skip the backend and use a local voice")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if !speech.Speakable(text) {
		return fmt.Errorf("nothing to speak")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	current := store.Get()
	store.Close()

	req := speech.Request{
		Text:     text,
		Language: current.Language,
		Address:  current.BackendAddress,
	}
	if speakLanguage != "" {
		req.Language = speakLanguage
	}
	if speakAddress != "" {
		req.Address = speakAddress
	}

	var remote speech.Remote
	var player audio.Player
	if !speakLocal {
		remote = backendClient(cfg)
		if player, err = audio.New(cfg.Speech.Player); err != nil {
			printError("audio player unavailable", err)
			player = nil
		}
	}

	var failed bool
	notify := func(kind activity.Kind, message string) {
		if kind == activity.KindError {
			failed = true
		}
		fmt.Println(" ", message)
	}

	d := speech.NewDispatcher(remote, speech.NewLocal(cfg.Speech.LocalEngine, cfg.Speech.Rate), player, notify,
		speechConfig(cfg))
	d.Speak(req)
	d.Wait()
	d.Close()

	if failed {
		return fmt.Errorf("speech failed")
	}
	return nil
}
