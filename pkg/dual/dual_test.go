package dual_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gopf/pkg/dual"
)

func TestSeedGivesUnitPartial(t *testing.T) {
	d := dual.New(3, 2)
	d.Seed(1)
	require.Equal(t, 0.0, d.Partial(0))
	require.Equal(t, 1.0, d.Partial(1))
}

func TestMulProductRule(t *testing.T) {
	x := dual.New(2, 1)
	x.Seed(0)
	y := dual.New(5, 1)
	y.Seed(0)

	got := x.Mul(y)
	require.Equal(t, 10.0, got.Val)
	// d/dx (x*y) at x=2,y=5 with both tangents seeded to 1 is y+x = 7
	require.Equal(t, 7.0, got.Partial(0))
}

func TestSinCosComplementary(t *testing.T) {
	x := dual.New(0.7, 1)
	x.Seed(0)

	s := x.Sin()
	c := x.Cos()
	require.InDelta(t, math.Sin(0.7), s.Val, 1e-12)
	require.InDelta(t, math.Cos(0.7), c.Val, 1e-12)
	require.InDelta(t, math.Cos(0.7), s.Partial(0), 1e-12)
	require.InDelta(t, -math.Sin(0.7), c.Partial(0), 1e-12)
}

func TestDivQuotientRule(t *testing.T) {
	x := dual.New(6, 1)
	x.Seed(0)
	y := dual.NewFrom(3, []float64{0})

	got := x.Div(y)
	require.InDelta(t, 2.0, got.Val, 1e-12)
	require.InDelta(t, 1.0/3.0, got.Partial(0), 1e-12)
}

func TestNewFromZeroesBuffer(t *testing.T) {
	buf := []float64{9, 9, 9}
	d := dual.NewFrom(1.5, buf)
	for i := range d.Partials {
		require.Equal(t, 0.0, d.Partials[i])
	}
	require.Equal(t, 1.5, d.Val)
}
