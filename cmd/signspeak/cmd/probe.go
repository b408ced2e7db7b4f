package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/internal/companion/backend"
	"github.com/msto63/signspeak/internal/companion/stabilizer"
)

var (
	probeTimeout time.Duration
	probeInfer   bool
)

var probeCmd = &cobra.Command{
	Use:   "probe [address]",
	Short: "Check a backend address",
	Long: `Checks whether the inference service answers at address.

Without an address the stored backend address is used. With --infer one
inference request is made and the reported gesture is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)

	probeCmd.Flags().DurationVar(&probeTimeout, "timeout", 2*time.Second, "Request timeout")
	probeCmd.Flags().BoolVar(&probeInfer, "infer", false, "Also request one inference")
}

func runProbe(cmd *cobra.Command, args []string) error {
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

	address := current.BackendAddress
	if len(args) == 1 {
		address = args[0]
	}

	client := backendClient(cfg)
	base, err := client.BaseURL(address)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx, address); err != nil {
		fmt.Printf("  [-] %s - offline (%v)\n", base, err)
		return fmt.Errorf("backend not reachable")
	}
	fmt.Printf("  [+] %s - online (%dms)\n", base, time.Since(start).Milliseconds())

	if !probeInfer {
		return nil
	}

	ctx, cancel = context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	reading, err := client.Infer(ctx, backend.Params{
		Address:   address,
		Language:  current.Language,
		UseGemini: current.UseGemini,
	})
	if err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}

	info := stabilizer.Describe(reading.Gesture)
	fmt.Printf("  Gesture:  %s %s (%s)\n", info.Icon, reading.Gesture, info.Text)
	if reading.Sentence != "" {
		fmt.Printf("  Sentence: %s\n", reading.Sentence)
	}
	fmt.Printf("  Sensors:  ax=%.2f ay=%.2f az=%.2f gx=%.2f gy=%.2f gz=%.2f\n",
		reading.AX, reading.AY, reading.AZ, reading.GX, reading.GY, reading.GZ)
	return nil
}
