package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/config"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a strategy's parameters on one asset",
	Long: `Optimize searches the parameter domain on the first optimize_split of
the series, caches the best parameters for (strategy, asset), then runs the
winner over the full series.

Ranges are name=min:max[:step] or name=v1,v2,... When no range is given
every declared parameter is searched over its default range.

Example:
  strategylab optimize -s SmaCross -a GOOG -r n1=5:30:5 -r n2=20,40,60 --metric sortino`,
	RunE: runOptimize,
}

var (
	optStrategy string
	optAsset    string
	optRanges   []string
	optMetric   string
	optMaxTries int64
	optSeed     int64
	optData     string
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optStrategy, "strategy", "s", "", "strategy name (required)")
	optimizeCmd.Flags().StringVarP(&optAsset, "asset", "a", "", "asset name (required)")
	optimizeCmd.Flags().StringArrayVarP(&optRanges, "range", "r", nil, "parameter range (repeatable)")
	optimizeCmd.Flags().StringVarP(&optMetric, "metric", "m", "", "objective; overrides optimizer.metric")
	optimizeCmd.Flags().Int64Var(&optMaxTries, "max-tries", 0, "random-search budget; overrides optimizer.max_tries")
	optimizeCmd.Flags().Int64Var(&optSeed, "seed", 0, "random-search seed; overrides optimizer.seed")
	optimizeCmd.Flags().StringVar(&optData, "data", "", "data file or directory; overrides backtest_settings.data_source")

	optimizeCmd.MarkFlagRequired("strategy")
	optimizeCmd.MarkFlagRequired("asset")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ranges, err := parseRanges(optRanges)
	if err != nil {
		return err
	}
	if optData != "" {
		cfg.Backtest.DataSource = optData
	}
	if optMetric != "" {
		cfg.Optimizer.Metric = optMetric
	}
	if optMaxTries > 0 {
		cfg.Optimizer.MaxTries = optMaxTries
	}
	if cmd.Flags().Changed("seed") {
		cfg.Optimizer.Seed = optSeed
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	series, err := a.runner.Series(optAsset)
	if err != nil {
		return fmt.Errorf("load %s: %w", optAsset, err)
	}

	out, err := a.runner.RunOne(cmd.Context(), config.StrategyConfig{
		Name:        optStrategy,
		Optimize:    true,
		ParamRanges: ranges,
	}, series)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Best parameters by %s cached for (%s, %s)\n\n", cfg.Optimizer.Metric, out.Strategy, out.Asset)
	printOutcome(w, out)
	return nil
}
