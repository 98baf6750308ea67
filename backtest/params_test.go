package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		param Param
		want  Bounds
	}{
		{"int heuristic", Param{Name: "n", Default: 10, Kind: Int}, Bounds{Min: 10, Max: 100, Step: 1}},
		{"real heuristic", Param{Name: "k", Default: 2, Kind: Real}, Bounds{Min: 2, Max: 20, Step: 0.2}},
		{"int zero default", Param{Name: "z", Kind: Int}, Bounds{Min: 0, Max: 10, Step: 1}},
		{"real zero default", Param{Name: "z", Kind: Real}, Bounds{Min: 0, Max: 1, Step: 0.1}},
		{"declared", Param{Name: "d", Default: 5, Kind: Int, Bounds: &Bounds{Min: 2, Max: 8}}, Bounds{Min: 2, Max: 8, Step: 1}},
		{"declared real", Param{Name: "d", Default: 0.5, Kind: Real, Bounds: &Bounds{Min: 0, Max: 1}}, Bounds{Min: 0, Max: 1, Step: 0.1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.param.Range())
		})
	}
}

func TestBoundsValues(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{1, 2, 3}, Bounds{Min: 1, Max: 3, Step: 1}.Values(Int))
	assert.Equal(t, []float64{0, 0.1, 0.2, 0.3}, Bounds{Min: 0, Max: 0.3, Step: 0.1}.Values(Real))
	assert.Equal(t, []float64{5, 10}, Bounds{Min: 5, Max: 12, Step: 5}.Values(Int))
	assert.Nil(t, Bounds{Min: 3, Max: 1, Step: 1}.Values(Int))
	assert.Len(t, Param{Default: 10, Kind: Int}.Range().Values(Int), 91)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	decls := []Param{
		{Name: "n1", Default: 10, Kind: Int},
		{Name: "k", Default: 1.5, Kind: Real, Bounds: &Bounds{Min: 1, Max: 3}},
	}

	got, err := Resolve(decls, nil)
	require.NoError(t, err)
	assert.Equal(t, ParamSet{"n1": 10, "k": 1.5}, got)

	got, err = Resolve(decls, ParamSet{"n1": 25})
	require.NoError(t, err)
	assert.Equal(t, 25, got.Int("n1"))
	assert.Equal(t, "k=1.5 n1=25", got.String())

	bad := []ParamSet{
		{"zz": 1},
		{"n1": 2.5},
		{"k": 3.5},
		{"k": 0.5},
	}
	for _, ps := range bad {
		_, err := Resolve(decls, ps)
		assert.ErrorIs(t, err, ErrConfig, ps.String())
	}
}

func TestParamSetClone(t *testing.T) {
	t.Parallel()

	a := ParamSet{"x": 1}
	b := a.Clone()
	b["x"] = 2
	assert.Equal(t, 1.0, a["x"])
}
