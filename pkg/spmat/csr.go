package spmat

// CSR is a compressed-sparse-row matrix: the layout used on the SIMT device
// backend (pkg/device), where row-parallel launches are the natural unit of
// work. Semantically identical to CSC; only the iteration order differs.
type CSR[T Numeric] struct {
	Pattern *Pattern
	RowPtr  []int
	ColIdx  []int
	Data    []T
}

// NewCSR builds an (initially zero-valued) CSR matrix over pattern.
func NewCSR[T Numeric](pattern *Pattern) *CSR[T] {
	m := &CSR[T]{Pattern: pattern, Data: make([]T, pattern.NumNonzeros())}
	m.RowPtr = make([]int, pattern.Rows+1)
	for _, r := range pattern.RowOf {
		m.RowPtr[r+1]++
	}
	for r := 0; r < pattern.Rows; r++ {
		m.RowPtr[r+1] += m.RowPtr[r]
	}
	m.ColIdx = make([]int, pattern.NumNonzeros())
	cursor := make([]int, pattern.Rows)
	copy(cursor, m.RowPtr[:pattern.Rows])
	// pattern is column-major; scatter into row-major slots.
	for k := range pattern.RowOf {
		r := pattern.RowOf[k]
		dst := cursor[r]
		m.ColIdx[dst] = pattern.ColOf[k]
		cursor[r]++
	}
	return m
}

// Dims returns (rows, cols).
func (m *CSR[T]) Dims() (int, int) { return m.Pattern.Rows, m.Pattern.Cols }

// Zero resets all stored values to zero, keeping the pattern.
func (m *CSR[T]) Zero() {
	var zero T
	for i := range m.Data {
		m.Data[i] = zero
	}
}

// Row iterates the nonzeros of row r, calling fn(col, index-into-Data).
func (m *CSR[T]) Row(r int, fn func(col, idx int)) {
	for k := m.RowPtr[r]; k < m.RowPtr[r+1]; k++ {
		fn(m.ColIdx[k], k)
	}
}

// ForEach visits every stored nonzero as (row, col, value).
func (m *CSR[T]) ForEach(fn func(row, col int, v T)) {
	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		m.Row(r, func(col, idx int) { fn(r, col, m.Data[idx]) })
	}
}

// MatVec computes y = A*x, independent over rows (the SIMT-style parallel
// region of spec.md's iterative-solver matvec).
func (m *CSR[T]) MatVec(x, y []T) {
	rows, _ := m.Dims()
	for r := 0; r < rows; r++ {
		var acc T
		for k := m.RowPtr[r]; k < m.RowPtr[r+1]; k++ {
			acc += m.Data[k] * x[m.ColIdx[k]]
		}
		y[r] = acc
	}
}
