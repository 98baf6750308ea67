package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/config"
	"github.com/rustyeddy/strategylab/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "strategylab",
	Short: "A backtesting workbench for bar-based trading strategies",
	Long: `Strategylab backtests trading strategies bar by bar over OHLCV data.

It provides tools for:
  - Running a single strategy on one asset
  - Grid and random-search parameter optimization
  - Config-driven batch runs over many strategies and assets
  - An optimized-parameter cache keyed by (strategy, asset)
  - A run journal and a read-only results API
  - Downloading and converting market data

Complete documentation is available at https://github.com/rustyeddy/strategylab`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
// An interrupt cancels the running command's context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console or json); overrides the config")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	logger.InitWriter(cmd.ErrOrStderr(), c.Logging.Level, c.Logging.Format)
	cfg = c
	return nil
}
