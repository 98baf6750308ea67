// Package data loads OHLCV series from CSV or parquet files and downloads
// them from Alpaca.
package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/strategylab/market"
)

// Load reads source, a single file or a directory of files, into series
// keyed by asset name. The asset name is the file name without extension.
func Load(source string) (map[string]*market.Series, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrData, err)
	}

	if !info.IsDir() {
		s, err := LoadFile(source)
		if err != nil {
			return nil, err
		}
		return map[string]*market.Series{s.Name: s}, nil
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrData, err)
	}
	out := make(map[string]*market.Series)
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		s, err := LoadFile(filepath.Join(source, e.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := out[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate asset %q in %s", market.ErrData, s.Name, source)
		}
		out[s.Name] = s
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no data files in %s", market.ErrData, source)
	}
	return out, nil
}

// LoadAsset reads the file for one asset from a directory source, or the
// single file when source is a file.
func LoadAsset(source, asset string) (*market.Series, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", market.ErrData, err)
	}
	if !info.IsDir() {
		return LoadFile(source)
	}
	for _, ext := range []string{".csv", ".parquet"} {
		path := filepath.Join(source, asset+ext)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, fmt.Errorf("%w: no data file for %s in %s", market.ErrData, asset, source)
}

// LoadFile reads one CSV or parquet file.
func LoadFile(path string) (*market.Series, error) {
	name := AssetName(path)

	var (
		s   *market.Series
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		s, err = ReadCSVFile(name, path)
	case ".parquet":
		s, err = ReadParquet(name, path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %s", market.ErrData, path)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Str("asset", name).Str("path", path).Int("bars", s.Len()).Msg("loaded series")
	return s, nil
}

// SaveFile writes s as CSV or parquet, chosen by the extension of path.
func SaveFile(path string, s *market.Series) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return WriteCSVFile(path, s)
	case ".parquet":
		return WriteParquet(path, s)
	}
	return fmt.Errorf("%w: unsupported file type %s", market.ErrData, path)
}

// Supported reports whether LoadFile can read the file.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".parquet":
		return true
	}
	return false
}

// AssetName is the file name without directory or extension.
func AssetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Names returns the map keys in sorted order.
func Names(series map[string]*market.Series) []string {
	names := make([]string, 0, len(series))
	for n := range series {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
