package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every configured strategy on every configured asset",
	Long: `Batch loads the data source, adds features to each asset and processes
each strategy listed in the config: optimize on the prefix (optimize: true)
or reuse cached parameters, run on the full series and persist the results.

Failures on one (strategy, asset) pair are reported and the batch continues.

Example:
  strategylab batch -c strategylab.yaml`,
	RunE: runBatch,
}

var (
	batchData   string
	batchAssets []string
	batchStrict bool
)

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchData, "data", "", "data file or directory; overrides backtest_settings.data_source")
	batchCmd.Flags().StringSliceVar(&batchAssets, "assets", nil, "assets to run; overrides assets_to_run")
	batchCmd.Flags().BoolVar(&batchStrict, "strict", false, "exit non-zero when any pair failed")
}

func runBatch(cmd *cobra.Command, args []string) error {
	if batchData != "" {
		cfg.Backtest.DataSource = batchData
	}
	if len(batchAssets) > 0 {
		cfg.Assets = batchAssets
	}

	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.runner.Run(cmd.Context())
	if rep != nil {
		if perr := printReport(cmd.OutOrStdout(), rep); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if batchStrict && len(rep.Errors) > 0 {
		return fmt.Errorf("batch: %d pair(s) failed", len(rep.Errors))
	}
	return nil
}
