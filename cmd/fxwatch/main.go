// Command fxwatch is the exchange-rate deviation dashboard backend.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seenimoa/fxwatch/api"
	"github.com/seenimoa/fxwatch/internal/config"
	"github.com/seenimoa/fxwatch/internal/datasource"
	"github.com/seenimoa/fxwatch/internal/logging"
	"github.com/seenimoa/fxwatch/pkg/models"
	"github.com/seenimoa/fxwatch/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fxwatch",
	Short: "fxwatch — exchange-rate deviation dashboard backend",
	Long: `fxwatch tracks USD, CNY, SGD, JPY and AUD daily rates.
It computes window statistics, chart series and deviation alerts for any
currency pair from a historical dataset, keeps that dataset up to date
from public rate APIs, and serves the results over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		api.Version = version
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(seriesCmd)
	rootCmd.AddCommand(cardsCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fxwatch %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  fxwatch — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time:          %s\n", utils.FormatDisplayTime(time.Now()))
		fmt.Println()

		// Dataset summary
		fmt.Println("  Dataset:")
		fmt.Printf("    Location:      %s\n", cfg.DatasetLocation())
		ds, err := loadDataset(cmd.Context())
		if err != nil {
			fmt.Printf("    Status:        %s\n", levelColor(models.LevelAlert).Sprintf("unavailable (%v)", err))
		} else {
			fmt.Printf("    Records:       %d (%s → %s)\n", ds.Len(), ds.Metadata.StartDate, ds.Metadata.EndDate)
			if ts, err := utils.ParseTimestamp(ds.Metadata.LastUpdated); err == nil {
				fmt.Printf("    Last Updated:  %s\n", utils.FormatDisplayTime(ts))
			}
		}
		fmt.Println()

		// Config summary
		pair := cfg.DefaultPair()
		fmt.Println("  Configuration:")
		fmt.Printf("    Default Pair:  %s (window %d)\n", pair.Name(), cfg.Dashboard.Window)
		fmt.Printf("    Thresholds:    alert %.1fσ, warning %.1fσ over %d days\n",
			cfg.Alerts.AlertSigma, cfg.Alerts.WarningSigma, cfg.Alerts.Days)
		fmt.Printf("    Latest Source: %s\n", cfg.Fetch.LatestSource)
		refresh := cfg.Refresh.Schedule
		if refresh == "" {
			refresh = "disabled"
		}
		fmt.Printf("    Refresh:       %s\n", refresh)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		// ExchangeRate-API key
		key := config.ExchangeRateKey(cfg)
		fmt.Println("  ExchangeRate-API:")
		fmt.Printf("    Plan:          %s (%s)\n", key.Plan, key.Endpoint)
		if key.Key != "" {
			fmt.Printf("    Key:           %s (from %s)\n", key.Key, key.Origin)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// loadDataset reads the configured dataset once.
func loadDataset(ctx context.Context) (*models.Dataset, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	loader := datasource.NewLoader(cfg.DatasetLocation())
	ds, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", loader.Source(), err)
	}
	return ds, nil
}
