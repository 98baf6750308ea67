package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/paramstore"
	"github.com/rustyeddy/strategylab/strategies"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Inspect and edit the optimized-parameters cache",
	Long: `Manage the parameters cached per (strategy, asset) by optimization runs.

Subcommands:
  list    - List every cached entry
  get     - Show the entry for one strategy and asset
  set     - Store parameters for one strategy and asset
  delete  - Remove an entry

Examples:
  strategylab params list
  strategylab params set SmaCross GOOG n1=10 n2=40`,
}

var paramsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached parameters",
	Args:  cobra.NoArgs,
	RunE:  runParamsList,
}

var paramsGetCmd = &cobra.Command{
	Use:   "get <strategy> <asset>",
	Short: "Show cached parameters for a strategy and asset",
	Args:  cobra.ExactArgs(2),
	RunE:  runParamsGet,
}

var paramsSetCmd = &cobra.Command{
	Use:   "set <strategy> <asset> name=value...",
	Short: "Store parameters for a strategy and asset",
	Args:  cobra.MinimumNArgs(3),
	RunE:  runParamsSet,
}

var paramsDeleteCmd = &cobra.Command{
	Use:   "delete <strategy> <asset>",
	Short: "Remove cached parameters for a strategy and asset",
	Args:  cobra.ExactArgs(2),
	RunE:  runParamsDelete,
}

func init() {
	rootCmd.AddCommand(paramsCmd)
	paramsCmd.AddCommand(paramsListCmd)
	paramsCmd.AddCommand(paramsGetCmd)
	paramsCmd.AddCommand(paramsSetCmd)
	paramsCmd.AddCommand(paramsDeleteCmd)
}

func openStore() (paramstore.Store, error) {
	return paramstore.Open(paramstore.Options{
		Type: cfg.ParamsStore.Type,
		Path: cfg.ParamsStore.Path,
		DSN:  cfg.ParamsStore.DSN,
	}, cfg.Backtest.ResultsDir)
}

func runParamsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Snapshot()
	if err != nil {
		return err
	}
	entries := snap.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No cached parameters.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tASSET\tPARAMS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Strategy, e.Asset, e.Params)
	}
	return tw.Flush()
}

func runParamsGet(cmd *cobra.Command, args []string) error {
	spec, err := strategies.Default().Lookup(args[0])
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ps, err := store.Get(spec.Name, args[1])
	if errors.Is(err, paramstore.ErrNotFound) {
		return fmt.Errorf("no cached parameters for %s on %s", spec.Name, args[1])
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), ps)
	return nil
}

func runParamsSet(cmd *cobra.Command, args []string) error {
	spec, err := strategies.Default().Lookup(args[0])
	if err != nil {
		return err
	}
	ps, err := parseParams(args[2:])
	if err != nil {
		return err
	}
	resolved, err := backtest.Resolve(spec.Params, ps)
	if err != nil {
		return err
	}
	if spec.Constraint != nil && !spec.Constraint(resolved) {
		return fmt.Errorf("%w: %s: parameters violate the strategy constraint: %s", backtest.ErrConfig, spec.Name, resolved)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Set(spec.Name, args[1], ps); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cached %s for %s on %s\n", ps, spec.Name, args[1])
	return nil
}

func runParamsDelete(cmd *cobra.Command, args []string) error {
	spec, err := strategies.Default().Lookup(args[0])
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(spec.Name, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed cached parameters for %s on %s\n", spec.Name, args[1])
	return nil
}
