package spmat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gopf/pkg/spmat"
)

// a 3x3 tridiagonal pattern: (0,0)(0,1)(1,0)(1,1)(1,2)(2,1)(2,2)
func tridiagPattern() *spmat.Pattern {
	rows := []int{0, 0, 1, 1, 1, 2, 2}
	cols := []int{0, 1, 0, 1, 2, 1, 2}
	return spmat.NewPattern(3, 3, rows, cols)
}

func TestNewPatternDedupsAndSorts(t *testing.T) {
	rows := []int{0, 0, 0, 1}
	cols := []int{0, 0, 1, 0}
	p := spmat.NewPattern(2, 2, rows, cols)
	require.Equal(t, 3, p.NumNonzeros())
	// column-major: col 0 first (rows 0,1), then col 1 (row 0)
	require.Equal(t, []int{0, 1, 0}, p.RowOf)
	require.Equal(t, []int{0, 0, 1}, p.ColOf)
}

func TestCSCMatVecMatchesDense(t *testing.T) {
	p := tridiagPattern()
	m := spmat.NewCSC[float64](p)
	vals := map[[2]int]float64{
		{0, 0}: 2, {0, 1}: -1,
		{1, 0}: -1, {1, 1}: 2, {1, 2}: -1,
		{2, 1}: -1, {2, 2}: 2,
	}
	for c := 0; c < 3; c++ {
		m.Col(c, func(row, idx int) { m.Data[idx] = vals[[2]int{row, c}] })
	}

	x := []float64{1, 2, 3}
	y := make([]float64, 3)
	m.MatVec(x, y)
	require.InDeltaSlice(t, []float64{0, 0, 4}, y, 1e-12)
}

func TestCSRMatchesCSC(t *testing.T) {
	p := tridiagPattern()
	csc := spmat.NewCSC[float64](p)
	csr := spmat.NewCSR[float64](p)
	i := 0.0
	for c := 0; c < 3; c++ {
		csc.Col(c, func(row, idx int) {
			i++
			csc.Data[idx] = i
		})
	}
	csc.ForEach(func(row, col int, v float64) {
		csr.Row(row, func(c2, idx int) {
			if c2 == col {
				csr.Data[idx] = v
			}
		})
	})

	x := []float64{1, 1, 1}
	y1, y2 := make([]float64, 3), make([]float64, 3)
	csc.MatVec(x, y1)
	csr.MatVec(x, y2)
	require.InDeltaSlice(t, y1, y2, 1e-12)
}

func TestForEachVisitsEveryNonzero(t *testing.T) {
	p := tridiagPattern()
	m := spmat.NewCSC[float64](p)
	n := 0
	m.Col(0, func(row, idx int) { m.Data[idx] = 1 })
	m.Col(1, func(row, idx int) { m.Data[idx] = 1 })
	m.Col(2, func(row, idx int) { m.Data[idx] = 1 })
	m.ForEach(func(row, col int, v float64) { n++ })
	require.Equal(t, p.NumNonzeros(), n)
}
