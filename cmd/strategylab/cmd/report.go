package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rustyeddy/strategylab/batch"
)

func printOutcome(w io.Writer, out batch.Outcome) {
	st := out.Stats
	source := "configured"
	switch {
	case out.Optimized:
		source = "optimized"
	case out.Cached:
		source = "cached"
	}

	fmt.Fprintf(w, "%s on %s  (run %s)\n", out.Strategy, out.Asset, out.RunID)
	fmt.Fprintf(w, "  Params (%s): %s\n", source, out.Params)
	fmt.Fprintf(w, "  Period: %s .. %s\n", st.Start.Format("2006-01-02"), st.End.Format("2006-01-02"))
	fmt.Fprintf(w, "  Equity: $%.2f (peak $%.2f)\n", st.EquityFinal, st.EquityPeak)
	fmt.Fprintf(w, "  Return: %.2f%%  Buy&Hold: %.2f%%  Annualized: %.2f%%\n", st.ReturnPct, st.BuyHoldReturnPct, st.ReturnAnnPct)
	fmt.Fprintf(w, "  Sharpe: %.3f  Sortino: %.3f  Calmar: %.3f\n", st.Sharpe, st.Sortino, st.Calmar)
	fmt.Fprintf(w, "  Max DD: %.2f%%  Trades: %d  Win rate: %.1f%%  Profit factor: %.2f\n",
		st.MaxDrawdownPct, st.Trades, st.WinRatePct, st.ProfitFactor)
	if out.Dir != "" {
		fmt.Fprintf(w, "  Results: %s\n", out.Dir)
	}
}

func printReport(w io.Writer, rep *batch.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tASSET\tPARAMS\tRETURN%\tSHARPE\tMAXDD%\tTRADES\tSOURCE")
	for _, o := range rep.Outcomes {
		if o.Error != "" {
			continue
		}
		source := "config"
		switch {
		case o.Optimized:
			source = "optimized"
		case o.Cached:
			source = "cached"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.3f\t%.2f\t%d\t%s\n",
			o.Strategy, o.Asset, o.Params, o.Stats.ReturnPct, o.Stats.Sharpe, o.Stats.MaxDrawdownPct, o.Stats.Trades, source)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(rep.Errors) > 0 {
		fmt.Fprintf(w, "\n%d error(s):\n", len(rep.Errors))
		for _, e := range rep.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
	return nil
}
