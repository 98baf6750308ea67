package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/batch"
	"github.com/rustyeddy/strategylab/config"
	"github.com/rustyeddy/strategylab/journal"
	"github.com/rustyeddy/strategylab/strategies"
)

// app bundles the collaborators built from the loaded config.
type app struct {
	runner  *batch.Runner
	journal *journal.SQLiteJournal // nil when disabled
}

func openApp(withJournal bool) (*app, error) {
	store, err := openStore()
	if err != nil {
		return nil, fmt.Errorf("open params store: %w", err)
	}

	a := &app{
		runner: &batch.Runner{
			Config:   cfg,
			Registry: strategies.Default(),
			Store:    store,
			Results:  journal.NewResultsWriter(cfg.Backtest.ResultsDir),
		},
	}

	if withJournal && cfg.Journal.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.DBPath), 0o755); err != nil {
			store.Close()
			return nil, err
		}
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.journal = j
		a.runner.Journal = j
	}
	return a, nil
}

func (a *app) Close() error {
	err := a.runner.Store.Close()
	if a.journal != nil {
		if jerr := a.journal.Close(); err == nil {
			err = jerr
		}
	}
	return err
}

// parseParams reads name=value pairs.
func parseParams(pairs []string) (backtest.ParamSet, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(backtest.ParamSet, len(pairs))
	for _, kv := range pairs {
		name, val, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("bad param %q (want name=value)", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("bad param %q: %w", kv, err)
		}
		out[name] = v
	}
	return out, nil
}

// parseRanges reads name=min:max[:step] or name=v1,v2,... ranges.
func parseRanges(specs []string) (map[string]config.ParamRange, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]config.ParamRange, len(specs))
	for _, s := range specs {
		name, val, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || val == "" {
			return nil, fmt.Errorf("bad range %q (want name=min:max[:step] or name=v1,v2)", s)
		}

		if strings.Contains(val, ":") {
			parts := strings.Split(val, ":")
			if len(parts) < 2 || len(parts) > 3 {
				return nil, fmt.Errorf("bad range %q", s)
			}
			nums, err := parseFloats(parts)
			if err != nil {
				return nil, fmt.Errorf("bad range %q: %w", s, err)
			}
			r := config.ParamRange{Min: nums[0], Max: nums[1]}
			if len(nums) == 3 {
				r.Step = nums[2]
			}
			out[name] = r
			continue
		}

		nums, err := parseFloats(strings.Split(val, ","))
		if err != nil {
			return nil, fmt.Errorf("bad range %q: %w", s, err)
		}
		out[name] = config.ParamRange{Values: nums}
	}
	return out, nil
}

func parseFloats(parts []string) ([]float64, error) {
	out := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
