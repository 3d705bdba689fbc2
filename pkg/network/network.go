// Package network builds the immutable problem description consumed by
// pkg/newton: Ybus, bus classification (ref/pv/pq), and initial voltage.
// This is the "problem assembly" component of SPEC_FULL.md §5; parsing a
// MATPOWER/.raw file into the inputs below is explicitly out of scope
// (spec.md §1) and lives in a caller, not here.
package network

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/spmat"
)

// Network is an immutable description of an AC power system. It is built
// once by New and never mutated; it may be shared across concurrent solves
// because nothing in it changes after construction (SPEC_FULL.md §6).
type Network struct {
	N       int
	Backend device.Backend

	YbusCSC *spmat.CSC[complex128]
	YbusCSR *spmat.CSR[complex128]

	YreCSC *spmat.CSC[float64]
	YimCSC *spmat.CSC[float64]
	YreCSR *spmat.CSR[float64]
	YimCSR *spmat.CSR[float64]

	Ref, PV, PQ []int // disjoint 0-based bus index sets, ref ∪ pv ∪ pq = [0,N)
	Pinj, Qinj  []float64
	Sbus        []complex128
	V0          []complex128
}

// New validates the inbound data of SPEC_FULL.md §7/spec.md §6 and builds a
// Network. It never mutates its inputs.
func New(n int, pattern *spmat.Pattern, ybus []complex128, ref, pv, pq []int, sbus, v0 []complex128, backend device.Backend) (*Network, error) {
	if pattern.Rows != n || pattern.Cols != n {
		return nil, fmt.Errorf("invalid_network: Ybus pattern is %dx%d, want %dx%d", pattern.Rows, pattern.Cols, n, n)
	}
	if len(ybus) != pattern.NumNonzeros() {
		return nil, fmt.Errorf("invalid_network: Ybus has %d values, pattern has %d nonzeros", len(ybus), pattern.NumNonzeros())
	}
	if len(sbus) != n || len(v0) != n {
		return nil, fmt.Errorf("invalid_network: Sbus/V0 must have length %d", n)
	}
	if err := checkPartition(n, ref, pv, pq); err != nil {
		return nil, err
	}
	if err := checkSymmetricPattern(pattern); err != nil {
		return nil, err
	}
	for i, s := range sbus {
		if cmplx.IsNaN(s) || cmplx.IsInf(s) {
			return nil, fmt.Errorf("invalid_network: Sbus[%d] is not finite", i)
		}
	}
	for i, v := range v0 {
		if cmplx.IsNaN(v) || cmplx.IsInf(v) || v == 0 {
			return nil, fmt.Errorf("invalid_network: V0[%d] is not finite/nonzero", i)
		}
	}

	net := &Network{
		N: n, Backend: backend,
		Ref: append([]int(nil), ref...), PV: append([]int(nil), pv...), PQ: append([]int(nil), pq...),
		Sbus: append([]complex128(nil), sbus...), V0: append([]complex128(nil), v0...),
		Pinj: make([]float64, n), Qinj: make([]float64, n),
	}
	for i, s := range net.Sbus {
		net.Pinj[i], net.Qinj[i] = real(s), imag(s)
	}

	net.YbusCSC = spmat.NewCSC[complex128](pattern)
	copy(net.YbusCSC.Data, ybus)
	net.YreCSC, net.YimCSC = splitCSC(net.YbusCSC)

	if backend == device.SIMT {
		net.YbusCSR = spmat.NewCSR[complex128](pattern)
		scatterCSRFromCSC(net.YbusCSC, net.YbusCSR)
		net.YreCSR, net.YimCSR = splitCSR(net.YbusCSR)
	}

	return net, nil
}

func checkPartition(n int, ref, pv, pq []int) error {
	if len(ref) < 1 {
		return fmt.Errorf("invalid_network: at least one ref bus is required")
	}
	seen := make([]bool, n)
	mark := func(set []int, label string) error {
		for _, i := range set {
			if i < 0 || i >= n {
				return fmt.Errorf("invalid_network: %s index %d out of range [0,%d)", label, i, n)
			}
			if seen[i] {
				return fmt.Errorf("invalid_network: bus %d appears in more than one of ref/pv/pq", i)
			}
			seen[i] = true
		}
		return nil
	}
	if err := mark(ref, "ref"); err != nil {
		return err
	}
	if err := mark(pv, "pv"); err != nil {
		return err
	}
	if err := mark(pq, "pq"); err != nil {
		return err
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("invalid_network: bus %d is not classified as ref, pv, or pq", i)
		}
	}
	return nil
}

func checkSymmetricPattern(p *spmat.Pattern) error {
	present := make(map[[2]int]bool, p.NumNonzeros())
	for k := range p.RowOf {
		present[[2]int{p.RowOf[k], p.ColOf[k]}] = true
	}
	for k := range p.RowOf {
		r, c := p.RowOf[k], p.ColOf[k]
		if !present[[2]int{c, r}] {
			return fmt.Errorf("invalid_network: Ybus pattern is not symmetric at (%d,%d)", r, c)
		}
	}
	if p.NumNonzeros() == 0 {
		return fmt.Errorf("invalid_network: Ybus pattern is empty")
	}
	return nil
}

func splitCSC(y *spmat.CSC[complex128]) (*spmat.CSC[float64], *spmat.CSC[float64]) {
	re := spmat.NewCSC[float64](y.Pattern)
	im := spmat.NewCSC[float64](y.Pattern)
	for k, v := range y.Data {
		re.Data[k] = real(v)
		im.Data[k] = imag(v)
	}
	return re, im
}

func splitCSR(y *spmat.CSR[complex128]) (*spmat.CSR[float64], *spmat.CSR[float64]) {
	re := spmat.NewCSR[float64](y.Pattern)
	im := spmat.NewCSR[float64](y.Pattern)
	for k, v := range y.Data {
		re.Data[k] = real(v)
		im.Data[k] = imag(v)
	}
	return re, im
}

// scatterCSRFromCSC copies values from a CSC matrix into a CSR matrix that
// shares the same Pattern, mapping each pattern nonzero to its slot in both
// layouts. Both NewCSC and NewCSR preserve pattern order internally only
// for CSC (CSR reorders into row-major), so the mapping goes through (r,c).
func scatterCSRFromCSC[T spmat.Numeric](src *spmat.CSC[T], dst *spmat.CSR[T]) {
	for c := 0; c < src.Pattern.Cols; c++ {
		src.Col(c, func(r, idx int) {
			dst.Row(r, func(col, dstIdx int) {
				if col == c {
					dst.Data[dstIdx] = src.Data[idx]
				}
			})
		})
	}
}

// NeighborFunc visits, for bus i, every j sharing a line (g = Re(Y[i,j]),
// b = Im(Y[i,j])), confined to the nonzeros of row i — the iteration
// spec.md §4.1 requires for the residual kernel.
type NeighborFunc func(i int, fn func(j int, g, b float64))

// Neighbors returns the row-nonzero iterator appropriate to net.Backend:
// CSR.Row on SIMT (a literal row scan), or CSC.Col on Host (valid because
// transmission-line admittance is reciprocal, so Ybus is symmetric in value
// as well as in pattern — see DESIGN.md).
func (net *Network) Neighbors() NeighborFunc {
	if net.Backend == device.SIMT {
		return func(i int, fn func(j int, g, b float64)) {
			net.YreCSR.Row(i, func(j, idx int) { fn(j, net.YreCSR.Data[idx], net.YimCSR.Data[idx]) })
		}
	}
	return func(i int, fn func(j int, g, b float64)) {
		net.YreCSC.Col(i, func(j, idx int) { fn(j, net.YreCSC.Data[idx], net.YimCSC.Data[idx]) })
	}
}

// PolarFromRect recomputes (Vm, Va) from a complex voltage vector, the
// renormalization step of spec.md §4.5 step 5.
func PolarFromRect(v []complex128, vm, va []float64) {
	for i, vi := range v {
		vm[i] = cmplx.Abs(vi)
		va[i] = cmplx.Phase(vi)
	}
}

// RectFromPolar reconstitutes V = Vm*exp(j*Va).
func RectFromPolar(vm, va []float64, v []complex128) {
	for i := range v {
		v[i] = complex(vm[i]*math.Cos(va[i]), vm[i]*math.Sin(va[i]))
	}
}
