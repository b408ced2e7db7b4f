package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	coregrpc "github.com/msto63/signspeak/pkg/core/grpc"
	"github.com/msto63/signspeak/pkg/core/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running engine",
	Long: `Queries the gRPC health listener and the presentation API of a
running engine and reports whether the backend is connected.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("SignSpeak Status")
	fmt.Println("================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	allHealthy := true

	healthAddr := cfg.GetServiceAddress("health")
	gcfg := coregrpc.DefaultClientConfig(healthAddr)
	engineStatus, err := coregrpc.CheckHealth(ctx, gcfg, "")
	if err != nil {
		fmt.Printf("  [-] %-22s %s - stopped\n", "Engine (gRPC)", healthAddr)
		allHealthy = false
	} else {
		fmt.Printf("  [+] %-22s %s - %s\n", "Engine (gRPC)", healthAddr, engineStatus)

		backendStatus, err := coregrpc.CheckHealth(ctx, gcfg, HealthService)
		if err != nil || backendStatus != healthpb.HealthCheckResponse_SERVING {
			fmt.Printf("  [-] %-22s disconnected\n", "Backend")
			allHealthy = false
		} else {
			fmt.Printf("  [+] %-22s connected\n", "Backend")
		}
	}

	apiAddr := cfg.GetServiceAddress("server")
	report, err := fetchHealthReport(ctx, apiAddr)
	if err != nil {
		fmt.Printf("  [-] %-22s %s - stopped\n", "Presentation API", apiAddr)
		allHealthy = false
	} else {
		fmt.Printf("  [+] %-22s %s - %s\n", "Presentation API", apiAddr, report.Status)
		for _, c := range report.Checks {
			icon := "[+]"
			if c.Status != health.StatusHealthy {
				icon = "[-]"
			}
			fmt.Printf("      %s %s: %s\n", icon, c.Name, c.Message)
		}
	}

	fmt.Println()
	if !allHealthy {
		fmt.Println("The engine is not fully up.")
		fmt.Println("Start with: signspeak run --connect")
	}
	return nil
}

func fetchHealthReport(ctx context.Context, addr string) (*health.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var report health.Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("invalid health response: %w", err)
	}
	return &report, nil
}
