package jacobian

import (
	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/spmat"
)

// Flavor bundles a Jacobian parameterization: Map[m] is the position, in
// the packed 2N primal vector (0..N-1 = Vm, N..2N-1 = Va), that reduced
// column m seeds; Pattern is the fixed sparsity of J for that
// parameterization, derived once (spec.md §4.2) from the symbolic structure
// of ∂Sbus/∂V, never from a numeric probe.
type Flavor struct {
	Map     []int
	Pattern *spmat.Pattern
}

// StateMap returns the 2N-space positions of spec.md's "state" flavor:
// θ at PV+PQ, then Vm at PQ. Its Pattern is square (|F| x |F|).
func StateMap(net *network.Network) []int {
	n := net.N
	npv, npq := len(net.PV), len(net.PQ)
	m := make([]int, npv+2*npq)
	for i, bus := range net.PV {
		m[i] = n + bus // Va[bus]
	}
	for i, bus := range net.PQ {
		m[npv+i] = n + bus // Va[bus]
	}
	for i, bus := range net.PQ {
		m[npv+npq+i] = bus // Vm[bus]
	}
	return m
}

// DesignMap returns the 2N-space positions of the "design" flavor resolved
// per SPEC_FULL.md §10: θ at ref, Vm at pv, Vm at pq (the [ref; pv; pq]
// grouping), standing in for the source's injection-parameter sensitivity
// (see DESIGN.md for why: Pinj is not a coordinate of the packed primal
// vector the AD pipeline differentiates). Its Pattern is rectangular,
// |F| x N.
func DesignMap(net *network.Network) []int {
	n := net.N
	m := make([]int, 0, len(net.Ref)+len(net.PV)+len(net.PQ))
	for _, bus := range net.Ref {
		m = append(m, n+bus) // Va[bus]
	}
	for _, bus := range net.PV {
		m = append(m, bus) // Vm[bus]
	}
	for _, bus := range net.PQ {
		m = append(m, bus) // Vm[bus]
	}
	return m
}

// busAt recovers the bus index a 2N-space position refers to.
func busAt(pos, n int) int {
	if pos >= n {
		return pos - n
	}
	return pos
}

// DerivePattern builds J's fixed sparsity from the symbolic fact that
// residual row i (evaluated at bus fr) depends on a column m iff the
// column's bus is fr itself or a row-neighbor of fr in Ybus — exactly the
// set of buses that actually appear in spec.md §4.1's sum over j. This is
// the "symbolic analysis of ∂Sbus/∂V" spec.md §4.2 requires in place of a
// one-shot finite-difference probe.
func DerivePattern(net *network.Network, colMap []int) *spmat.Pattern {
	rows := residualRows(net)
	neighbors := net.Neighbors()
	adjacent := make([]map[int]bool, net.N)
	for fr := 0; fr < net.N; fr++ {
		set := map[int]bool{fr: true}
		neighbors(fr, func(j int, _, _ float64) { set[j] = true })
		adjacent[fr] = set
	}

	var rowIdx, colIdx []int
	for i, fr := range rows {
		for m, pos := range colMap {
			bus := busAt(pos, net.N)
			if adjacent[fr][bus] {
				rowIdx = append(rowIdx, i)
				colIdx = append(colIdx, m)
			}
		}
	}
	return spmat.NewPattern(len(rows), len(colMap), rowIdx, colIdx)
}

// residualRows returns, for each residual row i, the bus fr it was
// evaluated at: PV buses first (real mismatch), then PQ buses (real
// mismatch), then PQ buses again (reactive mismatch) — matching
// pkg/residual.Eval's row layout.
func residualRows(net *network.Network) []int {
	npv, npq := len(net.PV), len(net.PQ)
	rows := make([]int, npv+2*npq)
	copy(rows, net.PV)
	copy(rows[npv:], net.PQ)
	copy(rows[npv+npq:], net.PQ)
	return rows
}
