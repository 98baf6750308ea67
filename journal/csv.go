package journal

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/optimize"
)

var tradesHeader = []string{
	"entry_time", "exit_time", "entry_index", "exit_index", "side", "size",
	"entry_price", "exit_price", "pnl", "pnl_pct", "commission", "exit_reason",
}

// WriteTradesCSV writes the trade ledger with a header row.
func WriteTradesCSV(w io.Writer, trades []backtest.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return err
	}
	for _, t := range trades {
		err := cw.Write([]string{
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			strconv.Itoa(t.EntryIndex),
			strconv.Itoa(t.ExitIndex),
			t.Side.String(),
			f(t.Size),
			f(t.EntryPrice),
			f(t.ExitPrice),
			f(t.PnL),
			f(t.PnLPct),
			f(t.Commission),
			t.ExitReason,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteHeatmapCSV writes the score surface: one column per parameter in
// name order, then the score and a few headline stats.
func WriteHeatmapCSV(w io.Writer, surface []optimize.Evaluation) error {
	var names []string
	if len(surface) > 0 {
		names = surface[0].Params.Names()
	}

	cw := csv.NewWriter(w)
	header := append(append([]string{}, names...), "score", "return_pct", "sharpe_ratio", "max_drawdown_pct", "trades")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, ev := range surface {
		row := make([]string, 0, len(header))
		for _, n := range names {
			row = append(row, strconv.FormatFloat(ev.Params[n], 'g', -1, 64))
		}
		row = append(row,
			f(ev.Score),
			f(ev.Stats.ReturnPct),
			f(ev.Stats.Sharpe),
			f(ev.Stats.MaxDrawdownPct),
			strconv.Itoa(ev.Stats.Trades),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// HeatmapPoint is one cell of a two-parameter projection of the surface.
type HeatmapPoint struct {
	X, Y  float64
	Score float64
}

// Heatmap projects the surface onto parameters x and y keeping the best
// score per cell, ordered by x then y.
func Heatmap(surface []optimize.Evaluation, x, y string) []HeatmapPoint {
	type cell struct{ x, y float64 }
	best := make(map[cell]float64)
	for _, ev := range surface {
		xv, okx := ev.Params[x]
		yv, oky := ev.Params[y]
		if !okx || !oky {
			continue
		}
		c := cell{xv, yv}
		if s, ok := best[c]; !ok || ev.Score > s {
			best[c] = ev.Score
		}
	}

	out := make([]HeatmapPoint, 0, len(best))
	for c, s := range best {
		out = append(out, HeatmapPoint{X: c.x, Y: c.y, Score: s})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
