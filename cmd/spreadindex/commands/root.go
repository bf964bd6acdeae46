package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/spreadindex/internal/strategyconfig"
	"github.com/wonny/spreadindex/pkg/config"
	"github.com/wonny/spreadindex/pkg/logger"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spreadindex",
	Short: "Synthetic SPX/TLT spread index calculator",
	Long: `Spread Index CLI

Computes a leveraged, volatility-targeted spread index over two
underlyings from stored daily closes, reports its performance and
publishes it over HTTP.

Usage:
  go run ./cmd/spreadindex [command]

Examples:
  go run ./cmd/spreadindex run --to 2024-12-31
  go run ./cmd/spreadindex run --xlsx perf.xlsx --period 2023 --period YTD
  go run ./cmd/spreadindex signal TargetLeverage
  go run ./cmd/spreadindex serve
  go run ./cmd/spreadindex import --from 2013-01-01
  go run ./cmd/spreadindex test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default is STRATEGY_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// app is what every command needs before it does real work
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	strategy *strategyconfig.Config
	yaml     []byte
}

// bootstrap loads process config, the logger and the strategy file
func bootstrap() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if strategyFile != "" {
		cfg.StrategyFile = strategyFile
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	strategy, yamlData, err := strategyconfig.Load(cfg.StrategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy %s: %w", cfg.StrategyFile, err)
	}

	log.WithFields(map[string]interface{}{
		"strategy":    strategy.Meta.StrategyID,
		"base_date":   strategy.BaseDate,
		"data_source": cfg.DataSource,
	}).Debug("Configuration loaded")

	return &app{cfg: cfg, log: log, strategy: strategy, yaml: yamlData}, nil
}
