package linsolve

import "math"

// BiCGSTABRef is the "bicgstab_ref" solver_kind of spec.md §6: the same
// van der Vorst recurrence as BiCGSTAB, but recomputing r = b - A*x
// explicitly from scratch after every full step instead of carrying it
// forward via s/az updates, so it can cross-check BiCGSTAB's bookkeeping
// on the scenarios in spec.md §8 without sharing its accumulated
// floating-point error.
func BiCGSTABRef(a Op, m Precon, b, x []float64, tol float64, maxIters int) (Result, error) {
	n := len(b)
	r := make([]float64, n)
	recomputeResidual(a, b, x, r)
	rTilde := append([]float64(nil), r...)

	bNorm := norm2(b)
	if bNorm == 0 {
		bNorm = 1
	}
	if norm2(r)/bNorm < tol {
		return Result{Iters: 0, ResidualNorm: norm2(r) / bNorm}, nil
	}

	rho, alpha, omega := 1.0, 1.0, 1.0
	p := make([]float64, n)
	v := make([]float64, n)
	y := make([]float64, n)
	s := make([]float64, n)
	z := make([]float64, n)
	az := make([]float64, n)

	for iter := 1; iter <= maxIters; iter++ {
		rhoNew := dot(rTilde, r)
		if math.Abs(rhoNew) < breakdownEps(r, rTilde) {
			return Result{Iters: iter, ResidualNorm: norm2(r) / bNorm}, &BreakdownError{Reason: "loss of biorthogonality", Iter: iter}
		}

		if iter == 1 {
			copy(p, r)
		} else {
			beta := (rhoNew / rho) * (alpha / omega)
			for i := range p {
				p[i] = r[i] + beta*(p[i]-omega*v[i])
			}
		}
		rho = rhoNew

		m.Apply(p, y)
		a.MatVec(y, v)

		denom := dot(v, rTilde)
		if denom == 0 {
			return Result{Iters: iter, ResidualNorm: norm2(r) / bNorm}, &BreakdownError{Reason: "(A*y, r0) underflow", Iter: iter}
		}
		alpha = rho / denom

		xHalf := append([]float64(nil), x...)
		axpy(alpha, y, xHalf)
		recomputeResidual(a, b, xHalf, s)
		if norm2(s)/bNorm < tol {
			copy(x, xHalf)
			return Result{Iters: iter, ResidualNorm: norm2(s) / bNorm}, nil
		}

		m.Apply(s, z)
		a.MatVec(z, az)

		azNorm2 := dot(az, az)
		if azNorm2 == 0 {
			return Result{Iters: iter, ResidualNorm: norm2(s) / bNorm}, &BreakdownError{Reason: "(A*z, A*z) underflow", Iter: iter}
		}
		omega = dot(az, s) / azNorm2

		copy(x, xHalf)
		axpy(omega, z, x)
		recomputeResidual(a, b, x, r)

		resNorm := norm2(r) / bNorm
		if resNorm < tol {
			return Result{Iters: iter, ResidualNorm: resNorm}, nil
		}
		if omega == 0 {
			return Result{Iters: iter, ResidualNorm: resNorm}, &BreakdownError{Reason: "omega underflow", Iter: iter}
		}
	}
	return Result{Iters: maxIters, ResidualNorm: norm2(r) / bNorm}, &BreakdownError{Reason: "iteration budget exhausted", Iter: maxIters}
}

func recomputeResidual(a Op, b, x, r []float64) {
	a.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
}
