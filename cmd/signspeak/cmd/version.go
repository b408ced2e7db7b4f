package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/msto63/signspeak/pkg/core/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SignSpeak v%s\n", version.Platform)
		fmt.Printf("  Engine:     %s\n", version.Engine)
		fmt.Printf("  Server:     %s\n", version.Server)
		fmt.Printf("  Monitor:    %s\n", version.Monitor)
		if version.GitCommit != "" {
			fmt.Printf("  Git Commit: %s\n", version.GitCommit)
		}
		if version.BuildTime != "" {
			fmt.Printf("  Build Date: %s\n", version.BuildTime)
		}
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
