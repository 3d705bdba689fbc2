package spmat

// Numeric is the element-type constraint shared by every sparse kernel in
// this package: the residual/Jacobian pipeline instantiates it with
// float64, the Ybus assembly in pkg/network with complex128.
type Numeric interface {
	~float64 | ~complex128
}

// CSC is a compressed-sparse-column matrix: the layout used on the Host
// device backend. ColPtr has length Cols+1; RowIdx/Data have length NNZ.
type CSC[T Numeric] struct {
	Pattern *Pattern
	ColPtr  []int
	RowIdx  []int
	Data    []T
}

// NewCSC builds an (initially zero-valued) CSC matrix over pattern.
func NewCSC[T Numeric](pattern *Pattern) *CSC[T] {
	m := &CSC[T]{Pattern: pattern, Data: make([]T, pattern.NumNonzeros())}
	m.ColPtr = make([]int, pattern.Cols+1)
	m.RowIdx = make([]int, pattern.NumNonzeros())
	copy(m.RowIdx, pattern.RowOf)
	for _, c := range pattern.ColOf {
		m.ColPtr[c+1]++
	}
	for c := 0; c < pattern.Cols; c++ {
		m.ColPtr[c+1] += m.ColPtr[c]
	}
	return m
}

// Dims returns (rows, cols).
func (m *CSC[T]) Dims() (int, int) { return m.Pattern.Rows, m.Pattern.Cols }

// Zero resets all stored values to zero, keeping the pattern.
func (m *CSC[T]) Zero() {
	var zero T
	for i := range m.Data {
		m.Data[i] = zero
	}
}

// Col iterates the nonzeros of column c, calling fn(row, index-into-Data).
func (m *CSC[T]) Col(c int, fn func(row, idx int)) {
	for k := m.ColPtr[c]; k < m.ColPtr[c+1]; k++ {
		fn(m.RowIdx[k], k)
	}
}

// ForEach visits every stored nonzero as (row, col, value).
func (m *CSC[T]) ForEach(fn func(row, col int, v T)) {
	_, cols := m.Dims()
	for c := 0; c < cols; c++ {
		m.Col(c, func(row, idx int) { fn(row, c, m.Data[idx]) })
	}
}

// MatVec computes y = A*x. len(x) must equal Cols, len(y) must equal Rows.
func (m *CSC[T]) MatVec(x, y []T) {
	var zero T
	for i := range y {
		y[i] = zero
	}
	rows, cols := m.Dims()
	_ = rows
	for c := 0; c < cols; c++ {
		xc := x[c]
		for k := m.ColPtr[c]; k < m.ColPtr[c+1]; k++ {
			y[m.RowIdx[k]] += m.Data[k] * xc
		}
	}
}
