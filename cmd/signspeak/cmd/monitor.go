// ============================================================================
// SignSpeak - Gesture-to-Speech Companion
// ============================================================================
//
// Package:     cmd
// Description: CLI command for the monitor TUI
// Author:      Mike Stoffels
// Created:     2025-12-07
// License:     MIT
// ============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/internal/tui/monitor"
	"github.com/msto63/signspeak/pkg/core/version"
)

var monitorAddr string

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Aliases: []string{"tui", "watch"},
	Short:   "Live view of a running engine",
	Long: `Starts the interactive SignSpeak monitor.

The monitor connects to the presentation API of a running engine and
shows the current gesture, sentence, sensor readings and activity log.

Shortcuts:
  s           Speak the current sentence
  a           Toggle auto-speak
  g           Toggle sentence generation
  c           Connect to the stored backend
  t           Test the backend connection
  d           Demo mode
  PgUp/PgDn   Scroll the log
  q / Ctrl+C  Quit`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVar(&monitorAddr, "server", "", "Presentation API address (default: from config)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	mcfg := monitor.DefaultConfig()
	mcfg.ServerAddr = cfg.GetServiceAddress("server")
	if monitorAddr != "" {
		mcfg.ServerAddr = monitorAddr
	}
	mcfg.Version = version.Monitor

	return monitor.Run(mcfg)
}
