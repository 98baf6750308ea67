package paramstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/strategylab/backtest"
)

func exercise(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Get("SmaCross", "GOOG")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("SmaCross", "GOOG", backtest.ParamSet{"n1": 10, "n2": 30}))
	got, err := s.Get("SmaCross", "GOOG")
	require.NoError(t, err)
	assert.Equal(t, backtest.ParamSet{"n1": 10, "n2": 30}, got)

	// last write wins
	require.NoError(t, s.Set("SmaCross", "GOOG", backtest.ParamSet{"n1": 5, "n2": 20}))
	got, err = s.Get("SmaCross", "GOOG")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got["n1"])

	// returned sets are copies
	got["n1"] = 99
	again, err := s.Get("SmaCross", "GOOG")
	require.NoError(t, err)
	assert.Equal(t, 5.0, again["n1"])

	require.NoError(t, s.Set("RsiMomentum", "AAPL", backtest.ParamSet{"upper": 70}))
	snap, err := s.Snapshot()
	require.NoError(t, err)
	entries := snap.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "RsiMomentum", entries[0].Strategy)
	assert.Equal(t, "SmaCross", entries[1].Strategy)

	require.NoError(t, s.Delete("RsiMomentum", "AAPL"))
	_, err = s.Get("RsiMomentum", "AAPL")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, s.Delete("RsiMomentum", "AAPL"))

	assert.Error(t, s.Set("", "GOOG", backtest.ParamSet{}))
}

func TestMemoryStore(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	s, err := NewFile(path)
	require.NoError(t, err)
	exercise(t, s)

	// Every Set is on disk before it returns.
	reopened, err := NewFile(path)
	require.NoError(t, err)
	got, err := reopened.Get("SmaCross", "GOOG")
	require.NoError(t, err)
	assert.Equal(t, backtest.ParamSet{"n1": 5, "n2": 20}, got)

	_, err = reopened.Get("RsiMomentum", "AAPL")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreFailedWriteKeepsState(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.NoError(t, s.Set("SmaCross", "GOOG", backtest.ParamSet{"n1": 5}))

	// a regular file where the directory should be makes every write fail
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	s.path = filepath.Join(blocker, FileName)

	assert.Error(t, s.Set("SmaCross", "GOOG", backtest.ParamSet{"n1": 9}))
	assert.Error(t, s.Set("SmaCross", "MSFT", backtest.ParamSet{"n1": 7}))
	assert.Error(t, s.Delete("SmaCross", "GOOG"))

	got, err := s.Get("SmaCross", "GOOG")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got["n1"])
	_, err = s.Get("SmaCross", "MSFT")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFile(path)
	assert.Error(t, err)
}

func TestFileStoreEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	s, err := NewFile(path)
	require.NoError(t, err)
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.db")
	s, err := NewSQL("sqlite3", path)
	require.NoError(t, err)
	require.NoError(t, s.Load())
	exercise(t, s)
	require.NoError(t, s.Close())

	reopened, err := NewSQL("sqlite3", path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get("SmaCross", "GOOG")
	require.NoError(t, err)
	assert.Equal(t, 20.0, got["n2"])
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{driver: "postgres"}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))

	lite := &SQLStore{driver: "sqlite3"}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Options{}, dir)
	require.NoError(t, err)
	fs, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, FileName), fs.Path())

	s, err = Open(Options{Type: "memory"}, dir)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open(Options{Type: "postgres"}, dir)
	assert.Error(t, err)

	_, err = Open(Options{Type: "redis"}, dir)
	assert.Error(t, err)

	_, err = NewSQL("mysql", "")
	assert.Error(t, err)
}
