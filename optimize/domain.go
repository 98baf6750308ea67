// Package optimize searches a strategy's parameter space by re-running the
// backtest engine once per candidate and maximizing an objective.
package optimize

import (
	"fmt"
	"math"
	"sort"

	"github.com/rustyeddy/strategylab/backtest"
)

// Dimension is one parameter and its candidate values, in order.
type Dimension struct {
	Name   string    `json:"name" yaml:"name"`
	Values []float64 `json:"values" yaml:"values"`
}

// Domain is an ordered list of dimensions. Grid index 0 is the first value
// of every dimension; the last dimension varies fastest.
type Domain []Dimension

// DomainFor builds a domain over the strategy's declared parameters. ranges
// overrides the candidate list for the named parameters; the remaining
// parameters use their declared or heuristic range. Only parameters named
// in only are included when only is non-empty.
func DomainFor(spec backtest.Spec, ranges map[string][]float64, only []string) (Domain, error) {
	for name := range ranges {
		if _, ok := spec.Param(name); !ok {
			return nil, fmt.Errorf("%w: %s: unknown parameter %q in ranges", backtest.ErrConfig, spec.Name, name)
		}
	}
	include := make(map[string]bool, len(only))
	for _, name := range only {
		if _, ok := spec.Param(name); !ok {
			return nil, fmt.Errorf("%w: %s: unknown parameter %q", backtest.ErrConfig, spec.Name, name)
		}
		include[name] = true
	}

	var d Domain
	for _, p := range spec.Params {
		if len(include) > 0 && !include[p.Name] && ranges[p.Name] == nil {
			continue
		}
		values, ok := ranges[p.Name]
		if !ok {
			values = p.Range().Values(p.Kind)
		}
		for _, v := range values {
			if err := p.Check(v); err != nil {
				return nil, fmt.Errorf("%s: %w", spec.Name, err)
			}
		}
		d = append(d, Dimension{Name: p.Name, Values: append([]float64(nil), values...)})
	}
	if err := d.Check(); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	return d, nil
}

// Size is the number of grid points, saturating at math.MaxInt64.
func (d Domain) Size() int64 {
	n, _ := d.size()
	return n
}

func (d Domain) size() (n int64, overflow bool) {
	if len(d) == 0 {
		return 0, false
	}
	n = 1
	for _, dim := range d {
		k := int64(len(dim.Values))
		if k == 0 {
			return 0, false
		}
		if n > math.MaxInt64/k {
			overflow = true
			n = math.MaxInt64
			continue
		}
		if !overflow {
			n *= k
		}
	}
	return n, overflow
}

// Check rejects a grid whose size does not fit in an int64; its indices
// could not address every point.
func (d Domain) Check() error {
	if _, overflow := d.size(); overflow {
		names := make([]string, len(d))
		for i, dim := range d {
			names[i] = dim.Name
		}
		return fmt.Errorf("%w: grid over %v overflows int64", backtest.ErrConfig, names)
	}
	return nil
}

// At decodes a grid index into a parameter set.
func (d Domain) At(idx int64) backtest.ParamSet {
	ps := make(backtest.ParamSet, len(d))
	for i := len(d) - 1; i >= 0; i-- {
		k := int64(len(d[i].Values))
		ps[d[i].Name] = d[i].Values[idx%k]
		idx /= k
	}
	return ps
}

// sample picks k distinct indices in [0, n) with Floyd's algorithm and
// returns them in ascending order.
func sample(n, k int64, seed int64) []int64 {
	if k >= n {
		out := make([]int64, n)
		for i := range out {
			out[i] = int64(i)
		}
		return out
	}

	rng := newRand(seed)
	chosen := make(map[int64]struct{}, k)
	for j := n - k; j < n; j++ {
		t := rng.Int63n(j + 1)
		if _, dup := chosen[t]; dup {
			chosen[j] = struct{}{}
		} else {
			chosen[t] = struct{}{}
		}
	}

	out := make([]int64, 0, k)
	for idx := range chosen {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
