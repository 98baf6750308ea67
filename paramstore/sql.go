package paramstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/strategylab/backtest"
)

const schema = `
CREATE TABLE IF NOT EXISTS optimized_params (
	strategy TEXT NOT NULL,
	asset TEXT NOT NULL,
	params TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (strategy, asset)
);
`

// SQLStore keeps parameters in a SQL table. Every Set is a single upsert,
// so there is nothing to flush.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQL opens a store on driver "sqlite3" or "postgres".
func NewSQL(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("paramstore: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("paramstore: schema: %w", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != "postgres" {
		return q
	}
	var sb strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *SQLStore) Load() error {
	return s.db.Ping()
}

func (s *SQLStore) Get(strategy, asset string) (backtest.ParamSet, error) {
	var raw string
	err := s.db.QueryRow(s.rebind(`
		SELECT params FROM optimized_params
		WHERE strategy = ? AND asset = ?`), strategy, asset).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, strategy, asset)
	}
	if err != nil {
		return nil, err
	}
	var ps backtest.ParamSet
	if err := json.Unmarshal([]byte(raw), &ps); err != nil {
		return nil, fmt.Errorf("paramstore: decode %s/%s: %w", strategy, asset, err)
	}
	return ps, nil
}

func (s *SQLStore) Set(strategy, asset string, ps backtest.ParamSet) error {
	if err := checkKey(strategy, asset); err != nil {
		return err
	}
	raw, err := json.Marshal(ps)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.rebind(`
		INSERT INTO optimized_params (strategy, asset, params, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (strategy, asset)
		DO UPDATE SET params = excluded.params, updated_at = excluded.updated_at`),
		strategy, asset, string(raw), time.Now().UTC(),
	)
	return err
}

func (s *SQLStore) Delete(strategy, asset string) error {
	_, err := s.db.Exec(s.rebind(`
		DELETE FROM optimized_params WHERE strategy = ? AND asset = ?`), strategy, asset)
	return err
}

func (s *SQLStore) Snapshot() (Snapshot, error) {
	rows, err := s.db.Query(`SELECT strategy, asset, params FROM optimized_params`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(Snapshot)
	for rows.Next() {
		var strat, asset, raw string
		if err := rows.Scan(&strat, &asset, &raw); err != nil {
			return nil, err
		}
		var ps backtest.ParamSet
		if err := json.Unmarshal([]byte(raw), &ps); err != nil {
			return nil, fmt.Errorf("paramstore: decode %s/%s: %w", strat, asset, err)
		}
		if out[strat] == nil {
			out[strat] = make(map[string]backtest.ParamSet)
		}
		out[strat][asset] = ps
	}
	return out, rows.Err()
}

func (s *SQLStore) Persist() error { return nil }

func (s *SQLStore) Close() error {
	return s.db.Close()
}
