package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/optimize"
)

// Document names inside <results>/<strategy>/<asset>/.
const (
	EquityFile  = "equity_curve.json"
	SummaryFile = "summary_stats.json"
	TradesFile  = "trades.csv"
	HeatmapFile = "heatmap.csv"
	ReportFile  = "report.org"
)

// ErrNoResults is returned when a (strategy, asset) has no persisted run.
var ErrNoResults = errors.New("no results")

// Summary is the summary_stats.json document.
type Summary struct {
	RunID     string             `json:"run_id"`
	Strategy  string             `json:"strategy"`
	Asset     string             `json:"asset"`
	Params    backtest.ParamSet  `json:"params"`
	Settings  backtest.Settings  `json:"settings"`
	Optimized bool               `json:"optimized"`
	Objective string             `json:"objective,omitempty"`
	Score     float64            `json:"score,omitempty"`
	Stats     backtest.Stats     `json:"stats"`
	Open      *backtest.Position `json:"open_position,omitempty"`
}

// ResultKey names one persisted result directory.
type ResultKey struct {
	Strategy string `json:"strategy"`
	Asset    string `json:"asset"`
}

// ResultsWriter persists dashboard documents under Dir.
type ResultsWriter struct {
	Dir string
}

func NewResultsWriter(dir string) *ResultsWriter {
	return &ResultsWriter{Dir: dir}
}

// AssetDir is the directory holding the documents for (strategy, asset).
func (w *ResultsWriter) AssetDir(strategy, asset string) string {
	return filepath.Join(w.Dir, safeName(strategy), safeName(asset))
}

// safeName keeps a name to a single path element.
func safeName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// Write stores the final run and, when opt is not nil, the score surface.
// It returns the directory written.
func (w *ResultsWriter) Write(run BacktestRun, res *backtest.Result, opt *optimize.Result) (string, error) {
	dir := w.AssetDir(res.Strategy, res.Asset)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("journal: %w", err)
	}

	sum := Summary{
		RunID:    run.RunID,
		Strategy: res.Strategy,
		Asset:    res.Asset,
		Params:   res.Params,
		Settings: res.Settings,
		Stats:    res.Stats,
		Open:     res.Open,
	}
	if opt != nil {
		sum.Optimized = true
		sum.Objective = opt.Objective
		sum.Score = opt.Best.Score
	}

	if err := writeJSON(filepath.Join(dir, EquityFile), res.Equity); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, SummaryFile), sum); err != nil {
		return "", err
	}
	if err := writeWith(filepath.Join(dir, TradesFile), func(f *os.File) error {
		return WriteTradesCSV(f, res.Trades)
	}); err != nil {
		return "", err
	}
	if opt != nil {
		if err := writeWith(filepath.Join(dir, HeatmapFile), func(f *os.File) error {
			return WriteHeatmapCSV(f, opt.Surface)
		}); err != nil {
			return "", err
		}
	}
	if err := run.WriteOrgFile(filepath.Join(dir, ReportFile)); err != nil {
		return "", fmt.Errorf("journal: report: %w", err)
	}

	log.Debug().Str("dir", dir).Str("run_id", run.RunID).Msg("results written")
	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("journal: encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

func writeWith(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("journal: write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// List returns every (strategy, asset) with a summary document, sorted.
func (w *ResultsWriter) List() ([]ResultKey, error) {
	matches, err := filepath.Glob(filepath.Join(w.Dir, "*", "*", SummaryFile))
	if err != nil {
		return nil, err
	}
	out := make([]ResultKey, 0, len(matches))
	for _, m := range matches {
		assetDir := filepath.Dir(m)
		out = append(out, ResultKey{
			Strategy: filepath.Base(filepath.Dir(assetDir)),
			Asset:    filepath.Base(assetDir),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strategy != out[j].Strategy {
			return out[i].Strategy < out[j].Strategy
		}
		return out[i].Asset < out[j].Asset
	})
	return out, nil
}

// ReadSummary loads summary_stats.json for (strategy, asset).
func (w *ResultsWriter) ReadSummary(strategy, asset string) (Summary, error) {
	var s Summary
	err := w.readJSON(strategy, asset, SummaryFile, &s)
	return s, err
}

// ReadEquity loads equity_curve.json for (strategy, asset).
func (w *ResultsWriter) ReadEquity(strategy, asset string) ([]backtest.EquityPoint, error) {
	var eq []backtest.EquityPoint
	err := w.readJSON(strategy, asset, EquityFile, &eq)
	return eq, err
}

// Path returns the path of a document for (strategy, asset), or
// ErrNoResults when it does not exist.
func (w *ResultsWriter) Path(strategy, asset, name string) (string, error) {
	path := filepath.Join(w.AssetDir(strategy, asset), name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s/%s", ErrNoResults, strategy, asset)
		}
		return "", err
	}
	return path, nil
}

func (w *ResultsWriter) readJSON(strategy, asset, name string, v any) error {
	path, err := w.Path(strategy, asset, name)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("journal: decode %s: %w", path, err)
	}
	return nil
}
