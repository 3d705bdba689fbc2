// Package newton orchestrates the outer Newton-Raphson loop of spec.md
// §4.5: evaluate F, evaluate J via AD, solve J*dx = F, update voltages,
// check convergence. It is the "driver" layer analogous to the source
// material's pkg/analysis.OperatingPoint.doNRiter, generalized from gmin/
// source-stepping SPICE continuation to the AC power-flow state update.
package newton

import (
	"math"

	"github.com/edp1096/gopf/internal/consts"
	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/jacobian"
	"github.com/edp1096/gopf/pkg/linsolve"
	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/precond"
	"github.com/edp1096/gopf/pkg/residual"
)

// Reason enumerates the failure kinds of spec.md §7.
type Reason string

const (
	ReasonNone                  Reason = ""
	ReasonInvalidNetwork        Reason = "invalid_network"
	ReasonDiverged              Reason = "diverged"
	ReasonLinearSolverBreakdown Reason = "linear_solver_breakdown"
	ReasonSingularBlock         Reason = "singular_block"
	ReasonNonfiniteState        Reason = "nonfinite_state"
)

// Result is spec.md §6's outer return shape.
type Result struct {
	V                  []complex128
	Converged          bool
	ResidualNorm       float64
	FirstLinsolveIters int
	TotalLinsolveIters int
	Reason             Reason
}

// Observer is called once per outer iteration, for callers that want to log
// or plot Newton progress (the source material's pkg/analysis convergence
// struct plays the same role for SPICE's iteration count/residual history).
type Observer func(iter int, residualNorm float64, linIters int)

// Options configures Solve beyond spec.md §6's five positional arguments,
// kept a struct (rather than growing Solve's signature further) the way
// the source's analysis options are grouped.
type Options struct {
	Tol         float64
	MaxIters    int
	NPartitions int
	SolverKind  string // "default", "bicgstab", "bicgstab_ref", "gmres"
	Observer    Observer
}

// DefaultOptions mirrors internal/consts' defaults.
func DefaultOptions() Options {
	return Options{Tol: consts.DefaultTol, MaxIters: consts.DefaultMaxIters, NPartitions: 1, SolverKind: "default"}
}

// Solve is spec.md §6's public operation:
// solve(network, tol, max_iters, npartitions, solver_kind) -> Result.
func Solve(net *network.Network, opts Options) Result {
	if opts.Tol <= 0 {
		opts.Tol = consts.DefaultTol
	}
	if opts.MaxIters <= 0 {
		opts.MaxIters = consts.DefaultMaxIters
	}
	switch opts.SolverKind {
	case "", "default", "bicgstab", "bicgstab_ref", "gmres":
	default:
		return Result{V: append([]complex128(nil), net.V0...), Reason: ReasonInvalidNetwork}
	}

	n := net.N
	vm := make([]float64, n)
	va := make([]float64, n)
	network.PolarFromRect(net.V0, vm, va)

	ad := jacobian.NewState(net)
	flen := residual.Len(net)
	f := make([]float64, flen)

	var bj *precond.BlockJacobi
	total := 0
	first := -1

	for iter := 1; iter <= opts.MaxIters; iter++ {
		residual.Eval(residual.RealOps, net, vm, va, f)
		fNorm := normInf(f)
		if fNorm < opts.Tol {
			if opts.Observer != nil {
				opts.Observer(iter, fNorm, 0)
			}
			return Result{V: currentV(net, vm, va), Converged: true, ResidualNorm: fNorm, FirstLinsolveIters: max0(first), TotalLinsolveIters: total}
		}

		ad.Evaluate(net, vm, va)

		dx := make([]float64, flen)
		linTol := math.Max(consts.MinLinTol, consts.LinTolFactor*opts.Tol)

		var linIters int
		var err error
		switch opts.SolverKind {
		case "", "default":
			rows, cols, vals := denseTriplets(ad)
			var res linsolve.Result
			res, err = linsolve.Direct(flen, rows, cols, vals, f, dx)
			linIters = res.Iters
		default:
			op := adOp(ad)
			if bj == nil || iter == 1 {
				bj, err = buildPrecond(ad, flen, opts.NPartitions, net.Backend)
				if err != nil {
					return Result{V: currentV(net, vm, va), Reason: ReasonSingularBlock}
				}
			} else {
				if err = bj.Update(csrOrCscForEach(ad), flen); err != nil {
					return Result{V: currentV(net, vm, va), Reason: ReasonSingularBlock}
				}
			}
			var res linsolve.Result
			switch opts.SolverKind {
			case "bicgstab":
				res, err = linsolve.BiCGSTAB(op, bj, f, dx, linTol, 10*flen+50)
			case "bicgstab_ref":
				res, err = linsolve.BiCGSTABRef(op, bj, f, dx, linTol, 10*flen+50)
			case "gmres":
				res, err = linsolve.GMRES(op, bj, f, dx, linTol, 10*flen+50)
			}
			linIters = res.Iters
		}
		if first < 0 {
			first = linIters
		}
		total += linIters
		if opts.Observer != nil {
			opts.Observer(iter, fNorm, linIters)
		}
		if err != nil {
			return Result{V: currentV(net, vm, va), ResidualNorm: normInf(f), FirstLinsolveIters: max0(first), TotalLinsolveIters: total, Reason: ReasonLinearSolverBreakdown}
		}

		applyStep(net, vm, va, dx)
		renormalize(vm, va)
		if !finiteState(vm, va) {
			return Result{V: currentV(net, vm, va), Reason: ReasonNonfiniteState, FirstLinsolveIters: max0(first), TotalLinsolveIters: total}
		}
	}

	v := currentV(net, vm, va)
	residual.Eval(residual.RealOps, net, vm, va, f)
	return Result{V: v, Converged: false, ResidualNorm: normInf(f), FirstLinsolveIters: max0(first), TotalLinsolveIters: total, Reason: ReasonDiverged}
}

// applyStep updates (Vm, Va) at PV/PQ buses from J*dx = F (negated, per
// spec.md §4.4's ordering note: the driver negates internally).
func applyStep(net *network.Network, vm, va []float64, dx []float64) {
	npv, npq := len(net.PV), len(net.PQ)
	for i, bus := range net.PV {
		va[bus] -= dx[i]
	}
	for i, bus := range net.PQ {
		va[bus] -= dx[npv+i]
		vm[bus] -= dx[npv+npq+i]
	}
}

// renormalize reconstitutes V = Vm*exp(j*Va) and recomputes Vm, Va from V,
// spec.md §4.5 step 5's round-off-stabilizing polar round-trip.
func renormalize(vm, va []float64) {
	v := make([]complex128, len(vm))
	network.RectFromPolar(vm, va, v)
	network.PolarFromRect(v, vm, va)
}

func restoreRefVoltage(net *network.Network, v []complex128) {
	for _, bus := range net.Ref {
		v[bus] = net.V0[bus]
	}
}

// currentV reconstitutes V from the working polar state and restores the
// ref-bus entries verbatim from net.V0: renormalize's polar round-trip
// perturbs every bus including ref buses, which the driver never steps, so
// every return path (converged or not) must re-pin them bitwise.
func currentV(net *network.Network, vm, va []float64) []complex128 {
	v := make([]complex128, len(vm))
	network.RectFromPolar(vm, va, v)
	restoreRefVoltage(net, v)
	return v
}

func finiteState(vm, va []float64) bool {
	for i := range vm {
		if math.IsNaN(vm[i]) || math.IsInf(vm[i], 0) || math.IsNaN(va[i]) || math.IsInf(va[i], 0) {
			return false
		}
	}
	return true
}

func normInf(f []float64) float64 {
	var m float64
	for _, v := range f {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func max0(i int) int {
	if i < 0 {
		return 0
	}
	return i
}

// adOp adapts the AD engine's stored Jacobian into a linsolve.Op.
func adOp(ad *jacobian.AD) linsolve.Op {
	return linsolve.OpFunc(func(x, y []float64) {
		if ad.JCSC != nil {
			ad.JCSC.MatVec(x, y)
		} else {
			ad.JCSR.MatVec(x, y)
		}
	})
}

func csrOrCscForEach(ad *jacobian.AD) interface {
	ForEach(func(row, col int, v float64))
} {
	if ad.JCSC != nil {
		return ad.JCSC
	}
	return ad.JCSR
}

func buildPrecond(ad *jacobian.AD, n, npartitions int, backend device.Backend) (*precond.BlockJacobi, error) {
	return precond.Build(csrOrCscForEach(ad), n, npartitions, backend)
}

// denseTriplets flattens J's stored nonzeros into (row, col, value)
// triplets for linsolve.Direct, which stamps them the way the source
// material's CircuitMatrix.AddElement stamped MNA entries.
func denseTriplets(ad *jacobian.AD) ([]int, []int, []float64) {
	var rows, cols []int
	var vals []float64
	csrOrCscForEach(ad).ForEach(func(row, col int, v float64) {
		rows = append(rows, row)
		cols = append(cols, col)
		vals = append(vals, v)
	})
	return rows, cols, vals
}
