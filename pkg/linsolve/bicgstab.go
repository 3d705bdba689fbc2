package linsolve

import (
	"math"

	"github.com/edp1096/gopf/internal/consts"
)

// BiCGSTAB solves A*x = b via van der Vorst's BiCGSTAB with right
// preconditioning, spec.md §4.4's exact recurrence: at each iteration
// ŷ = P⁻¹·p; α = (r,r̃₀)/(A·ŷ,r̃₀); s = r − α·A·ŷ; ẑ = P⁻¹·s;
// ω = (A·ẑ,s)/(A·ẑ,A·ẑ); x ← x + α·ŷ + ω·ẑ; r ← s − ω·A·ẑ.
// x is both the initial guess (on entry) and the solution (on return).
func BiCGSTAB(a Op, m Precon, b, x []float64, tol float64, maxIters int) (Result, error) {
	n := len(b)
	r := make([]float64, n)
	a.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
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
	av := make([]float64, n)
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

		for i := range s {
			s[i] = r[i] - alpha*v[i]
		}
		if norm2(s)/bNorm < tol {
			axpy(alpha, y, x)
			return Result{Iters: iter, ResidualNorm: norm2(s) / bNorm}, nil
		}

		m.Apply(s, z)
		a.MatVec(z, az)

		azNorm2 := dot(az, az)
		if azNorm2 == 0 {
			return Result{Iters: iter, ResidualNorm: norm2(s) / bNorm}, &BreakdownError{Reason: "(A*z, A*z) underflow", Iter: iter}
		}
		omega = dot(az, s) / azNorm2

		axpy(alpha, y, x)
		axpy(omega, z, x)
		for i := range r {
			r[i] = s[i] - omega*az[i]
		}

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

func breakdownEps(r, rTilde []float64) float64 {
	return consts.BreakdownEps * (1 + norm2(r)*norm2(rTilde))
}
