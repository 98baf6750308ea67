package backtest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrConfig marks an invalid strategy configuration: an unknown parameter,
// a value outside its declared bounds, a non-integral integer parameter or
// an unusable lookback.
var ErrConfig = errors.New("strategy config error")

// Kind is the value domain of a parameter.
type Kind int

const (
	Int Kind = iota
	Real
)

func (k Kind) String() string {
	if k == Int {
		return "int"
	}
	return "real"
}

// Bounds is an inclusive value range. Step 0 picks the default step for the
// parameter kind.
type Bounds struct {
	Min  float64 `json:"min" yaml:"min"`
	Max  float64 `json:"max" yaml:"max"`
	Step float64 `json:"step,omitempty" yaml:"step,omitempty"`
}

// Param declares one tunable strategy parameter.
type Param struct {
	Name    string
	Default float64
	Kind    Kind
	Bounds  *Bounds
}

// Range returns the search range of the parameter. Declared bounds win;
// otherwise the range is [1x, 10x] of the default with step 1 for integers
// and default/10 for reals.
func (p Param) Range() Bounds {
	if p.Bounds != nil {
		b := *p.Bounds
		if b.Step <= 0 {
			if p.Kind == Int {
				b.Step = 1
			} else {
				b.Step = (b.Max - b.Min) / 10
			}
		}
		return b
	}

	d := math.Abs(p.Default)
	if d == 0 {
		if p.Kind == Int {
			return Bounds{Min: 0, Max: 10, Step: 1}
		}
		return Bounds{Min: 0, Max: 1, Step: 0.1}
	}
	if p.Kind == Int {
		return Bounds{Min: d, Max: 10 * d, Step: 1}
	}
	return Bounds{Min: d, Max: 10 * d, Step: d / 10}
}

// Values expands a range into its candidate list, in ascending order.
func (b Bounds) Values(kind Kind) []float64 {
	if b.Max < b.Min || math.IsNaN(b.Min) || math.IsNaN(b.Max) {
		return nil
	}
	step := b.Step
	if step <= 0 {
		if kind == Int {
			step = 1
		} else {
			return []float64{b.Min}
		}
	}

	n := int(math.Floor((b.Max-b.Min)/step+1e-9)) + 1
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		v := b.Min + float64(i)*step
		if kind == Int {
			v = math.Round(v)
			if len(out) > 0 && out[len(out)-1] == v {
				continue
			}
		} else {
			// trim float drift, e.g. 0.30000000000000004
			v = roundTo(v, 12)
		}
		out = append(out, v)
	}
	return out
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// ParamSet maps parameter names to values.
type ParamSet map[string]float64

// Int returns the named value as an int.
func (ps ParamSet) Int(name string) int {
	return int(math.Round(ps[name]))
}

// Float returns the named value.
func (ps ParamSet) Float(name string) float64 {
	return ps[name]
}

// Clone returns a copy of the set.
func (ps ParamSet) Clone() ParamSet {
	out := make(ParamSet, len(ps))
	for k, v := range ps {
		out[k] = v
	}
	return out
}

// Names returns the parameter names in sorted order.
func (ps ParamSet) Names() []string {
	names := make([]string, 0, len(ps))
	for k := range ps {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// String renders the set as "a=1 b=2.5" in name order.
func (ps ParamSet) String() string {
	var sb strings.Builder
	for i, k := range ps.Names() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(ps[k], 'g', -1, 64))
	}
	return sb.String()
}

// Resolve merges overrides onto the declared defaults and validates the
// result.
func Resolve(decls []Param, overrides ParamSet) (ParamSet, error) {
	byName := make(map[string]Param, len(decls))
	out := make(ParamSet, len(decls))
	for _, d := range decls {
		byName[d.Name] = d
		out[d.Name] = d.Default
	}

	for _, name := range overrides.Names() {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("%w: unknown parameter %q", ErrConfig, name)
		}
		out[name] = overrides[name]
	}

	for _, d := range decls {
		if err := d.Check(out[d.Name]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Check validates a single value against the declaration.
func (p Param) Check(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s: value %v is not finite", ErrConfig, p.Name, v)
	}
	if p.Kind == Int && v != math.Trunc(v) {
		return fmt.Errorf("%w: %s: value %v is not an integer", ErrConfig, p.Name, v)
	}
	if p.Bounds != nil && (v < p.Bounds.Min || v > p.Bounds.Max) {
		return fmt.Errorf("%w: %s: value %v outside [%v, %v]", ErrConfig, p.Name, v, p.Bounds.Min, p.Bounds.Max)
	}
	return nil
}
