// Package spmat is the uniform sparse-matrix abstraction shared by the
// residual/Jacobian/preconditioner/solver layers. It exposes two orthogonal
// compressed storage layouts, CSC and CSR, over the same Pattern, so that a
// host path (CSC) and a device path (CSR, see pkg/device) can share every
// algorithm above this package without a type switch.
package spmat

// Pattern is a fixed sparsity structure: nnz (row, col) pairs, grouped by
// column. It is derived once (pkg/jacobian) and never mutated afterward;
// CSC and CSR views are both built from it so uncompression only ever
// scatters values, never indices.
type Pattern struct {
	Rows, Cols int
	// RowOf[k], ColOf[k] are the row/col of nonzero k, in column-major order.
	RowOf []int
	ColOf []int
}

// NumNonzeros returns the number of structural nonzeros in the pattern.
func (p *Pattern) NumNonzeros() int { return len(p.RowOf) }

// NewPattern builds a Pattern from an explicit (row, col) nonzero list.
// Entries need not be sorted; NewPattern canonicalizes to column-major order
// and drops exact duplicates (keeping the first occurrence).
func NewPattern(rows, cols int, rowIdx, colIdx []int) *Pattern {
	type pair struct{ r, c int }
	seen := make(map[pair]bool, len(rowIdx))
	order := make([]pair, 0, len(rowIdx))
	for i := range rowIdx {
		p := pair{rowIdx[i], colIdx[i]}
		if seen[p] {
			continue
		}
		seen[p] = true
		order = append(order, p)
	}
	// stable sort by (col, row) without pulling in sort.Slice's reflection cost
	// for what is usually a few thousand entries computed once per Network.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && less(order[j], order[j-1]); j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	p := &Pattern{Rows: rows, Cols: cols, RowOf: make([]int, len(order)), ColOf: make([]int, len(order))}
	for i, pr := range order {
		p.RowOf[i] = pr.r
		p.ColOf[i] = pr.c
	}
	return p
}

func less(a, b struct{ r, c int }) bool {
	if a.c != b.c {
		return a.c < b.c
	}
	return a.r < b.r
}

// ColumnRows returns, for each column, the sorted row indices with a
// nonzero in that column. Used by the coloring algorithm to build the
// column-intersection graph.
func (p *Pattern) ColumnRows() [][]int {
	out := make([][]int, p.Cols)
	for k := range p.RowOf {
		c := p.ColOf[k]
		out[c] = append(out[c], p.RowOf[k])
	}
	return out
}

// RowColumns returns, for each row, the sorted column indices with a
// nonzero in that row.
func (p *Pattern) RowColumns() [][]int {
	out := make([][]int, p.Rows)
	for k := range p.RowOf {
		r := p.RowOf[k]
		out[r] = append(out[r], p.ColOf[k])
	}
	return out
}
