package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/market/data"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Download and convert market data",
	Long: `Manage OHLCV bar files used as backtest input.

Subcommands:
  fetch   - Download bars from the Alpaca market-data API
  convert - Convert between CSV and parquet

Examples:
  strategylab data fetch -s GOOG --start 2020-01-01 --end 2024-01-01
  strategylab data convert -i data/GOOG.csv -o data/GOOG.parquet`,
}

var dataFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download historical bars from Alpaca",
	Long: `Fetch downloads split- and dividend-adjusted bars for one symbol and
writes them as CSV or parquet, chosen by the output extension.

Credentials come from alpaca.api_key / alpaca.api_secret in the config or
the ALPACA_API_KEY / ALPACA_API_SECRET (APCA_API_KEY_ID / APCA_API_SECRET_KEY)
environment variables.`,
	RunE: runDataFetch,
}

var dataConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a bar file between CSV and parquet",
	RunE:  runDataConvert,
}

var (
	fetchSymbol    string
	fetchStart     string
	fetchEnd       string
	fetchTimeFrame string
	fetchOutput    string

	convertInput  string
	convertOutput string
)

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataFetchCmd)
	dataCmd.AddCommand(dataConvertCmd)

	dataFetchCmd.Flags().StringVarP(&fetchSymbol, "symbol", "s", "", "symbol to download (required)")
	dataFetchCmd.Flags().StringVar(&fetchStart, "start", "", "first day, YYYY-MM-DD (required)")
	dataFetchCmd.Flags().StringVar(&fetchEnd, "end", "", "day after the last bar, YYYY-MM-DD (default today)")
	dataFetchCmd.Flags().StringVarP(&fetchTimeFrame, "timeframe", "t", "1Day", "bar timeframe (1Min, 5Min, 15Min, 1Hour, 1Day, 1Week, 1Month)")
	dataFetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output file (default <data_source>/<SYMBOL>.csv)")
	dataFetchCmd.MarkFlagRequired("symbol")
	dataFetchCmd.MarkFlagRequired("start")

	dataConvertCmd.Flags().StringVarP(&convertInput, "input", "i", "", "input .csv or .parquet file (required)")
	dataConvertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output .csv or .parquet file (required)")
	dataConvertCmd.MarkFlagRequired("input")
	dataConvertCmd.MarkFlagRequired("output")
}

func runDataFetch(cmd *cobra.Command, args []string) error {
	start, err := time.Parse("2006-01-02", fetchStart)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end := time.Now().UTC().Truncate(24 * time.Hour)
	if fetchEnd != "" {
		if end, err = time.Parse("2006-01-02", fetchEnd); err != nil {
			return fmt.Errorf("end: %w", err)
		}
	}
	if !end.After(start) {
		return fmt.Errorf("end %s must be after start %s", end.Format("2006-01-02"), fetchStart)
	}
	tf, err := data.ParseTimeFrame(fetchTimeFrame)
	if err != nil {
		return err
	}

	out := fetchOutput
	if out == "" {
		out = filepath.Join(cfg.Backtest.DataSource, strings.ToUpper(fetchSymbol)+".csv")
	}

	fetcher := data.NewAlpacaFetcher(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, cfg.Alpaca.Feed)
	series, err := fetcher.Fetch(cmd.Context(), fetchSymbol, start, end, tf)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := data.SaveFile(out, series); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d bars (%s .. %s) to %s\n", series.Len(),
		series.Start().Format("2006-01-02"), series.End().Format("2006-01-02"), out)
	return nil
}

func runDataConvert(cmd *cobra.Command, args []string) error {
	series, err := data.LoadFile(convertInput)
	if err != nil {
		return err
	}
	if err := data.SaveFile(convertOutput, series); err != nil {
		return fmt.Errorf("write %s: %w", convertOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Converted %d bars: %s -> %s\n", series.Len(), convertInput, convertOutput)
	return nil
}
