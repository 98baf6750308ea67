package paramstore

import (
	"fmt"
	"path/filepath"
)

// Options selects and configures a Store implementation.
type Options struct {
	Type string // json | sqlite | postgres | memory
	Path string // json file or sqlite database
	DSN  string // postgres connection string
}

// Open builds the store named by opts.Type. An empty type means a JSON
// file named FileName inside resultsDir when Path is empty.
func Open(opts Options, resultsDir string) (Store, error) {
	switch opts.Type {
	case "", "json", "file":
		path := opts.Path
		if path == "" {
			path = filepath.Join(resultsDir, FileName)
		}
		return NewFile(path)
	case "sqlite", "sqlite3":
		path := opts.Path
		if path == "" {
			path = filepath.Join(resultsDir, "optimized_params.db")
		}
		return NewSQL("sqlite3", path)
	case "postgres", "postgresql":
		if opts.DSN == "" {
			return nil, fmt.Errorf("paramstore: postgres requires a dsn")
		}
		return NewSQL("postgres", opts.DSN)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("paramstore: unknown store type %q", opts.Type)
	}
}
