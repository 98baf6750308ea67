package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/config"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run one strategy on one asset",
	Long: `Backtest runs a strategy over the full series of one asset and persists
the results (summary, equity curve, trades, org report) and the run journal.

Parameters come from --param, else from the optimized-params cache, else
from the strategy defaults.

Example:
  strategylab backtest -s SmaCross -a GOOG -p n1=10 -p n2=30`,
	RunE: runBacktest,
}

var (
	btStrategy string
	btAsset    string
	btParams   []string
	btData     string
	btNoCache  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btStrategy, "strategy", "s", "", "strategy name (required)")
	backtestCmd.Flags().StringVarP(&btAsset, "asset", "a", "", "asset name (required)")
	backtestCmd.Flags().StringArrayVarP(&btParams, "param", "p", nil, "parameter override name=value (repeatable)")
	backtestCmd.Flags().StringVar(&btData, "data", "", "data file or directory; overrides backtest_settings.data_source")
	backtestCmd.Flags().BoolVar(&btNoCache, "no-cache", false, "ignore cached optimized parameters")

	backtestCmd.MarkFlagRequired("strategy")
	backtestCmd.MarkFlagRequired("asset")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	params, err := parseParams(btParams)
	if err != nil {
		return err
	}
	if btData != "" {
		cfg.Backtest.DataSource = btData
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	series, err := a.runner.Series(btAsset)
	if err != nil {
		return fmt.Errorf("load %s: %w", btAsset, err)
	}

	sc := config.StrategyConfig{Name: btStrategy, Params: params}
	run := a.runner.RunOne
	if btNoCache || len(params) > 0 {
		run = a.runner.RunParams
	}
	out, err := run(cmd.Context(), sc, series)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	printOutcome(cmd.OutOrStdout(), out)
	return nil
}
