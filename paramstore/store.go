// Package paramstore caches optimized parameter sets keyed by
// (strategy, asset). The last write wins.
package paramstore

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/strategylab/backtest"
)

// ErrNotFound is returned by Get when no parameters are stored for the key.
var ErrNotFound = errors.New("params not found")

// Store is the optimized-parameter cache.
type Store interface {
	// Load reads persisted state, replacing what is in memory.
	Load() error
	// Get returns a copy of the stored set or ErrNotFound.
	Get(strategy, asset string) (backtest.ParamSet, error)
	// Set overwrites the entry and persists it before returning.
	Set(strategy, asset string, ps backtest.ParamSet) error
	// Delete removes an entry; deleting a missing entry is not an error.
	Delete(strategy, asset string) error
	// Snapshot returns strategy -> asset -> params.
	Snapshot() (Snapshot, error)
	// Persist flushes everything held in memory.
	Persist() error
	Close() error
}

// Snapshot is the persisted shape: strategy -> asset -> flat param set.
type Snapshot map[string]map[string]backtest.ParamSet

// Entry is one flattened snapshot row.
type Entry struct {
	Strategy string            `json:"strategy"`
	Asset    string            `json:"asset"`
	Params   backtest.ParamSet `json:"params"`
}

// Entries flattens the snapshot sorted by strategy then asset.
func (s Snapshot) Entries() []Entry {
	var out []Entry
	for strat, assets := range s {
		for asset, ps := range assets {
			out = append(out, Entry{Strategy: strat, Asset: asset, Params: ps})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Strategy != out[j].Strategy {
			return out[i].Strategy < out[j].Strategy
		}
		return out[i].Asset < out[j].Asset
	})
	return out
}

func (s Snapshot) clone() Snapshot {
	out := make(Snapshot, len(s))
	for strat, assets := range s {
		inner := make(map[string]backtest.ParamSet, len(assets))
		for asset, ps := range assets {
			inner[asset] = ps.Clone()
		}
		out[strat] = inner
	}
	return out
}

func checkKey(strategy, asset string) error {
	if strategy == "" || asset == "" {
		return fmt.Errorf("paramstore: strategy and asset are required")
	}
	return nil
}

// MemoryStore holds parameters in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	params Snapshot
}

func NewMemory() *MemoryStore {
	return &MemoryStore{params: make(Snapshot)}
}

func (m *MemoryStore) Load() error { return nil }

func (m *MemoryStore) Get(strategy, asset string) (backtest.ParamSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ps, ok := m.params[strategy][asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, strategy, asset)
	}
	return ps.Clone(), nil
}

func (m *MemoryStore) Set(strategy, asset string, ps backtest.ParamSet) error {
	if err := checkKey(strategy, asset); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.set(strategy, asset, ps)
	return nil
}

func (s Snapshot) set(strategy, asset string, ps backtest.ParamSet) {
	if s[strategy] == nil {
		s[strategy] = make(map[string]backtest.ParamSet)
	}
	s[strategy][asset] = ps.Clone()
}

func (m *MemoryStore) Delete(strategy, asset string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params.delete(strategy, asset)
	return nil
}

func (s Snapshot) delete(strategy, asset string) {
	if assets, ok := s[strategy]; ok {
		delete(assets, asset)
		if len(assets) == 0 {
			delete(s, strategy)
		}
	}
}

func (m *MemoryStore) Snapshot() (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.params.clone(), nil
}

func (m *MemoryStore) Persist() error { return nil }

func (m *MemoryStore) Close() error { return nil }
