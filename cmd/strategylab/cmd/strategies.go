package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/strategylab/strategies"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies [name]",
	Short: "List the built-in strategies and their parameters",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStrategies,
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}

func runStrategies(cmd *cobra.Command, args []string) error {
	reg := strategies.Default()
	specs := reg.List()
	if len(args) == 1 {
		spec, err := reg.Lookup(args[0])
		if err != nil {
			return err
		}
		specs = specs[:0]
		specs = append(specs, spec)
	}

	w := cmd.OutOrStdout()
	for i, spec := range specs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s - %s\n", spec.Name, spec.Description)
		if len(spec.Params) == 0 {
			fmt.Fprintln(w, "  (no parameters)")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  PARAM\tKIND\tDEFAULT\tSEARCH RANGE")
		for _, p := range spec.Params {
			r := p.Range()
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s..%s step %s\n", p.Name, p.Kind,
				num(p.Default), num(r.Min), num(r.Max), num(r.Step))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
