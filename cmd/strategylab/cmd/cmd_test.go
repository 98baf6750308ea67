package cmd

import (
	"bytes"
	"io"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/strategylab/backtest"
	"github.com/rustyeddy/strategylab/config"
	"github.com/rustyeddy/strategylab/market"
	"github.com/rustyeddy/strategylab/market/data"
)

func TestParseParams(t *testing.T) {
	t.Parallel()

	ps, err := parseParams([]string{"n1=10", " n2 = 40.5 "})
	require.NoError(t, err)
	assert.Equal(t, backtest.ParamSet{"n1": 10, "n2": 40.5}, ps)

	ps, err = parseParams(nil)
	require.NoError(t, err)
	assert.Nil(t, ps)

	for _, bad := range []string{"n1", "=3", "n1=x"} {
		_, err := parseParams([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseRanges(t *testing.T) {
	t.Parallel()

	got, err := parseRanges([]string{"n1=5:30:5", "n2=20,40,60", "x=0:1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]config.ParamRange{
		"n1": {Min: 5, Max: 30, Step: 5},
		"n2": {Values: []float64{20, 40, 60}},
		"x":  {Min: 0, Max: 1},
	}, got)

	for _, bad := range []string{"n1", "n1=", "n1=1:2:3:4", "n1=a,b", "n1=1:b"} {
		_, err := parseRanges([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestDayBounds(t *testing.T) {
	t.Parallel()

	start, end, err := dayBounds(time.UTC, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))

	_, _, err = dayBounds(time.UTC, "15/01/2024")
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeBars(t *testing.T, path string, n int) {
	t.Helper()
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, n)
	for i := range bars {
		c := 80 + 6*math.Sin(float64(i)/5) + float64(i)/20
		bars[i] = market.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	s, err := market.NewSeries("GOOG", bars)
	require.NoError(t, err)
	require.NoError(t, data.SaveFile(path, s))
}

// The commands share package-level flag state, so they run in sequence.
func TestCommands(t *testing.T) {
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	writeBars(t, filepath.Join(dataDir, "GOOG.csv"), 160)

	c := config.Default()
	c.Backtest.DataSource = dataDir
	c.Backtest.ResultsDir = filepath.Join(dir, "results")
	c.Journal.DBPath = filepath.Join(dir, "results", "journal.db")
	c.Optimizer.Workers = 2
	cfgPath := filepath.Join(dir, "strategylab.yaml")
	require.NoError(t, c.SaveToFile(cfgPath))

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "strategylab version "+version)

	out, err = execute(t, "config", "validate", "-f", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")

	out, err = execute(t, "strategies", "sma-cross")
	require.NoError(t, err)
	assert.Contains(t, out, "SmaCross")
	assert.Contains(t, out, "n2")

	out, err = execute(t, "-c", cfgPath, "backtest", "-s", "SmaCross", "-a", "GOOG", "-p", "n1=5", "-p", "n2=15")
	require.NoError(t, err)
	assert.Contains(t, out, "SmaCross on GOOG")
	assert.Contains(t, out, "n1=5 n2=15")

	_, err = execute(t, "-c", cfgPath, "params", "set", "SmaCross", "GOOG", "n1=30", "n2=20")
	assert.ErrorIs(t, err, backtest.ErrConfig)

	out, err = execute(t, "-c", cfgPath, "params", "set", "SmaCross", "GOOG", "n1=4", "n2=12")
	require.NoError(t, err)
	assert.Contains(t, out, "Cached")

	out, err = execute(t, "-c", cfgPath, "params", "get", "sma_cross", "GOOG")
	require.NoError(t, err)
	assert.Contains(t, out, "n1=4 n2=12")

	out, err = execute(t, "-c", cfgPath, "params", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "GOOG")

	out, err = execute(t, "-c", cfgPath, "journal", "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "SmaCross")

	out, err = execute(t, "-c", cfgPath, "batch", "--strict")
	require.NoError(t, err)
	assert.Contains(t, out, "BuyAndHold")
	assert.Contains(t, out, "optimized")

	out, err = execute(t, "-c", cfgPath, "params", "delete", "RsiMomentum", "GOOG")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	parquet := filepath.Join(dir, "GOOG.parquet")
	out, err = execute(t, "-c", cfgPath, "data", "convert", "-i", filepath.Join(dataDir, "GOOG.csv"), "-o", parquet)
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 160 bars")
}
