// Package residual evaluates the polar-form power-mismatch vector F(Vm, Va)
// of spec.md §4.1. It is written generically over the scalar type of Vm/Va
// so the AD engine (pkg/jacobian) can drive it with a dual.Number without any
// structural change, exactly as spec.md §4.1 requires ("Operations are
// element-wise on the iteration variable type").
package residual

import (
	"math"

	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/dual"
	"github.com/edp1096/gopf/pkg/network"
)

// Ops supplies the arithmetic the kernel needs over scalar type T. Passing
// it as a value (rather than requiring T to implement an operator
// interface) lets float64 and dual.Number share one Eval without either
// reflection or a wrapper type around float64.
type Ops[T any] struct {
	Const func(v float64) T
	Scale func(t T, s float64) T // t * s, s a plain float64 constant (G or B)
	Add   func(a, b T) T
	Sub   func(a, b T) T
	Mul   func(a, b T) T
	Sin   func(T) T
	Cos   func(T) T
}

// RealOps is Ops[float64], used for the Newton driver's direct F evaluation.
var RealOps = Ops[float64]{
	Const: func(v float64) float64 { return v },
	Scale: func(t float64, s float64) float64 { return t * s },
	Add:   func(a, b float64) float64 { return a + b },
	Sub:   func(a, b float64) float64 { return a - b },
	Mul:   func(a, b float64) float64 { return a * b },
	Sin:   math.Sin,
	Cos:   math.Cos,
}

// DualOps is Ops[dual.Number] over a fixed tangent width c, used by
// pkg/jacobian to evaluate F with seeded derivatives.
func DualOps(c int) Ops[dual.Number] {
	return Ops[dual.Number]{
		Const: func(v float64) dual.Number { return dual.New(v, c) },
		Scale: func(t dual.Number, s float64) dual.Number { return t.MulScalar(s) },
		Add:   dual.Number.Add,
		Sub:   dual.Number.Sub,
		Mul:   dual.Number.Mul,
		Sin:   dual.Number.Sin,
		Cos:   dual.Number.Cos,
	}
}

// Len returns |pv| + 2|pq|, the length of F.
func Len(net *network.Network) int {
	return len(net.PV) + 2*len(net.PQ)
}

// Eval writes F = mismatch(Vm, Va) into dst (len(dst) must equal Len(net)).
// Vm, Va have length net.N. The |pv|+|pq| real-mismatch rows are
// data-parallel (spec.md §5) and are dispatched through net.Backend.
func Eval[T any](ops Ops[T], net *network.Network, Vm, Va []T, dst []T) {
	npv, npq := len(net.PV), len(net.PQ)
	neighbors := net.Neighbors()

	frOf := func(i int) int {
		if i < npv {
			return net.PV[i]
		}
		return net.PQ[i-npv]
	}

	net.Backend.Launch(npv+npq, func(i int) {
		fr := frOf(i)
		p := ops.Const(0)
		q := ops.Const(0)
		neighbors(fr, func(j int, g, b float64) {
			cosA := ops.Cos(ops.Sub(Va[fr], Va[j]))
			sinA := ops.Sin(ops.Sub(Va[fr], Va[j]))
			vmvm := ops.Mul(Vm[fr], Vm[j])
			p = ops.Add(p, ops.Mul(vmvm, ops.Add(ops.Scale(cosA, g), ops.Scale(sinA, b))))
			q = ops.Add(q, ops.Mul(vmvm, ops.Sub(ops.Scale(sinA, g), ops.Scale(cosA, b))))
		})
		dst[i] = ops.Sub(p, ops.Const(net.Pinj[fr]))
		if i >= npv {
			dst[npq+i] = ops.Sub(q, ops.Const(net.Qinj[fr]))
		}
	})
}
