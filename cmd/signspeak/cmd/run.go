// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     cmd
// Description: run command - engine with presentation API and health listener
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/internal/companion"
	"github.com/msto63/signspeak/internal/companion/audio"
	"github.com/msto63/signspeak/internal/companion/connection"
	"github.com/msto63/signspeak/internal/companion/server"
	"github.com/msto63/signspeak/internal/companion/speech"
	"github.com/msto63/signspeak/pkg/core/config"
	coregrpc "github.com/msto63/signspeak/pkg/core/grpc"
	"github.com/msto63/signspeak/pkg/core/logging"
	"github.com/msto63/signspeak/pkg/core/version"
)

// HealthService is the gRPC health service name tracking the backend link
const HealthService = "signspeak.Backend"

var (
	runAddress   string
	runLanguage  string
	runConnect   bool
	runDemo      bool
	runStore     string
	runHTTPPort  int
	runGRPCPort  int
	runNoServer  bool
	runNoHealth  bool
	runAutoSpeak bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the engine",
	Long: `Starts the SignSpeak engine.

The engine polls the backend, stabilizes gestures and speaks them.
A presentation API (REST + WebSocket) and a gRPC health listener are
started alongside unless disabled.

Examples:
  signspeak run --connect                  # poll the stored address
  signspeak run --address 192.168.1.20     # connect to a specific backend
  signspeak run --demo                     # demo mode, no backend required`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runAddress, "address", "a", "", "Backend address (implies --connect)")
	runCmd.Flags().StringVarP(&runLanguage, "language", "l", "", "Output language code")
	runCmd.Flags().BoolVar(&runConnect, "connect", false, "Start polling immediately")
	runCmd.Flags().BoolVar(&runDemo, "demo", false, "Start in demo mode")
	runCmd.Flags().StringVar(&runStore, "store", "", "Settings backend (sqlite, badger, memory)")
	runCmd.Flags().IntVar(&runHTTPPort, "http-port", 0, "Presentation API port")
	runCmd.Flags().IntVar(&runGRPCPort, "grpc-port", 0, "gRPC health port")
	runCmd.Flags().BoolVar(&runNoServer, "no-server", false, "Disable the presentation API")
	runCmd.Flags().BoolVar(&runNoHealth, "no-health", false, "Disable the gRPC health listener")
	runCmd.Flags().BoolVar(&runAutoSpeak, "auto-speak", true, "Speak accepted gestures")
}

// applyRunFlags overrides configuration with explicitly set flags
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.UseSettingsBackend(runStore)
	}
	if flags.Changed("http-port") {
		cfg.Server.Port = runHTTPPort
	}
	if flags.Changed("grpc-port") {
		cfg.Health.Port = runGRPCPort
	}
	if runNoServer {
		cfg.Server.Enabled = false
	}
	if runNoHealth {
		cfg.Health.Enabled = false
	}
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.Close()
	applyRunFlags(cmd, cfg)

	logger := logging.New("signspeak")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	player, err := audio.New(cfg.Speech.Player)
	if err != nil {
		logger.Warn("Audio player unavailable, remote speech disabled", "error", err)
		player = nil
	}

	opts := companion.DefaultOptions()
	opts.PollInterval = cfg.Poll.Interval.Duration
	opts.PollTimeout = cfg.Poll.Timeout.Duration
	opts.FailureThreshold = cfg.Connection.FailureThreshold
	opts.Speech = speechConfig(cfg)

	engine := companion.New(opts, companion.Deps{
		Backend: backendClient(cfg),
		Store:   store,
		Local:   speech.NewLocal(cfg.Speech.LocalEngine, cfg.Speech.Rate),
		Player:  player,
	})

	fmt.Println("SignSpeak")
	fmt.Println("=========")

	var healthServer *coregrpc.Server
	if cfg.Health.Enabled {
		gcfg := coregrpc.DefaultServerConfig()
		gcfg.Host = cfg.Health.Host
		gcfg.Port = cfg.Health.Port
		healthServer = coregrpc.NewServer(gcfg)
		healthServer.SetServing(HealthService, false)
		engine.AddConnectionListener(func(_, newState connection.State) {
			healthServer.SetServing(HealthService, newState == connection.Connected)
		})
		if err := healthServer.StartAsync(); err != nil {
			return fmt.Errorf("failed to start health listener: %w", err)
		}
		defer healthServer.Stop()
		fmt.Printf("  [+] gRPC health on %s\n", healthServer.Address())
	}

	var apiServer *server.Server
	if cfg.Server.Enabled {
		scfg := server.DefaultConfig()
		scfg.Host = cfg.Server.Host
		scfg.Port = cfg.Server.Port
		scfg.ReadTimeout = cfg.Server.ReadTimeout.Duration
		scfg.WriteTimeout = cfg.Server.WriteTimeout.Duration
		scfg.Version = version.Platform
		apiServer = server.New(scfg, engine)
		if err := apiServer.StartAsync(); err != nil {
			return fmt.Errorf("failed to start presentation API: %w", err)
		}
		fmt.Printf("  [+] Presentation API on http://%s/api/v1\n", apiServer.Address())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(ctx) }()

	if err := startSession(cmd, engine); err != nil {
		printError("failed to start session", err)
	}

	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	select {
	case <-sigCh:
		fmt.Println("\nStopping...")
		cancel()
		err = <-errCh
	case err = <-errCh:
	}

	if apiServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := apiServer.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("Presentation API shutdown failed", "error", serr)
		}
		shutdownCancel()
	}

	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// startSession applies the session flags to a running engine
func startSession(cmd *cobra.Command, engine *companion.Engine) error {
	flags := cmd.Flags()
	if flags.Changed("language") {
		if err := engine.SetLanguage(runLanguage); err != nil {
			return err
		}
	}
	if flags.Changed("auto-speak") {
		if err := engine.SetAutoSpeak(runAutoSpeak); err != nil {
			return err
		}
	}

	switch {
	case runDemo:
		return engine.EnterDemoMode()
	case runAddress != "" || runConnect:
		return engine.Connect(runAddress)
	}
	return nil
}
