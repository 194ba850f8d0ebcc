// Command cropctl runs farmer and catalog chores against the market API
// without going through the storefront's HTTP surface.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/TeninChristopher/SAM/internal/adapter/marketapi"
	"github.com/TeninChristopher/SAM/internal/app/config"
	"github.com/TeninChristopher/SAM/internal/platform/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration

	cfg *config.Config
	log logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cropctl",
	Short: "Farmer inventory and market catalog tooling",
	Long: `cropctl talks to the market API directly.

It reads the storefront configuration (CONFIG_PATH_STOREFRONT or --config,
then the environment) and needs no user token.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		level := cfg.Logger.Level
		if verbose {
			level = "debug"
		}
		log, err = logger.NewZapLogger(logger.ZapLoggerConfig{
			Level:      level,
			Encoding:   "console",
			TimeFormat: cfg.Logger.TimeFormat,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	defaultConfig := os.Getenv("CONFIG_PATH_STOREFRONT")
	if defaultConfig == "" {
		defaultConfig = "config.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "Path to the storefront config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall command timeout")

	rootCmd.AddCommand(importCmd, marketCmd, pricesCmd)
}

// marketClient builds the market API client from the loaded config.
func marketClient() (*marketapi.Client, error) {
	return marketapi.NewClient(marketapi.Config{
		BaseURL:         cfg.MarketAPI.BaseURL,
		Timeout:         cfg.MarketAPI.Timeout,
		BreakerFailures: cfg.MarketAPI.BreakerFailures,
		BreakerCooldown: cfg.MarketAPI.BreakerCooldown,
	}, log, nil)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
