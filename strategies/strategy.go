// Package strategies holds the strategy registry and the built-in
// strategies.
package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/strategylab/backtest"
)

// Registry maps strategy names to specs. Lookups ignore case, '-' and '_'
// so "SmaCross", "sma-cross" and "sma_cross" resolve to the same strategy.
type Registry struct {
	specs map[string]backtest.Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]backtest.Spec)}
}

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(name)
}

// Register adds a spec. Names must be unique after normalization.
func (r *Registry) Register(spec backtest.Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("strategies: spec has no name")
	}
	if spec.New == nil {
		return fmt.Errorf("strategies: %s: spec has no constructor", spec.Name)
	}
	key := normalize(spec.Name)
	if _, ok := r.specs[key]; ok {
		return fmt.Errorf("strategies: %s already registered", spec.Name)
	}
	r.specs[key] = spec
	return nil
}

// MustRegister is Register that panics on error.
func (r *Registry) MustRegister(spec backtest.Spec) {
	if err := r.Register(spec); err != nil {
		panic(err)
	}
}

// Get looks up a spec by name.
func (r *Registry) Get(name string) (backtest.Spec, bool) {
	spec, ok := r.specs[normalize(name)]
	return spec, ok
}

// Lookup is Get with an error listing the known names.
func (r *Registry) Lookup(name string) (backtest.Spec, error) {
	if spec, ok := r.Get(name); ok {
		return spec, nil
	}
	return backtest.Spec{}, fmt.Errorf("%w: unknown strategy %q (supported: %s)",
		backtest.ErrConfig, name, strings.Join(r.Names(), ", "))
}

// List returns all specs sorted by name.
func (r *Registry) List() []backtest.Spec {
	out := make([]backtest.Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	specs := r.List()
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

// Default returns a registry holding every built-in strategy.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(SmaCrossSpec())
	r.MustRegister(EmaCrossSpec())
	r.MustRegister(EmaCrossAdxSpec())
	r.MustRegister(RsiMomentumSpec())
	r.MustRegister(BuyAndHoldSpec())
	r.MustRegister(PriceLevelSpec())
	r.MustRegister(IchimokuSpec())
	r.MustRegister(FVGSpec())
	r.MustRegister(NoopSpec())
	return r
}

func positive(name string, v int) error {
	if v < 1 {
		return fmt.Errorf("%w: %s must be >= 1, got %d", backtest.ErrConfig, name, v)
	}
	return nil
}
