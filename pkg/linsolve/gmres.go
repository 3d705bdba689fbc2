package linsolve

import "math"

// restartM is the default Krylov subspace size between restarts, chosen
// the same way BiCGSTAB's tolerances are (internal/consts-scale constants
// kept local since GMRES has no other caller of this particular knob).
const restartM = 30

// GMRES solves A*x = b with restarted GMRES(m), right-preconditioned,
// using modified Gram-Schmidt for the Arnoldi basis and the same
// ‖r‖₂/‖b‖₂ < tol stopping criterion as BiCGSTAB (spec.md §4.4).
func GMRES(a Op, m Precon, b, x []float64, tol float64, maxIters int) (Result, error) {
	n := len(b)
	bNorm := norm2(b)
	if bNorm == 0 {
		bNorm = 1
	}

	restart := restartM
	if restart > n {
		restart = n
	}
	if restart < 1 {
		restart = 1
	}

	r := make([]float64, n)
	totalIters := 0
	for totalIters < maxIters {
		a.MatVec(x, r)
		for i := range r {
			r[i] = b[i] - r[i]
		}
		beta := norm2(r)
		if beta/bNorm < tol {
			return Result{Iters: totalIters, ResidualNorm: beta / bNorm}, nil
		}

		v := make([][]float64, restart+1)
		v[0] = make([]float64, n)
		for i := range v[0] {
			v[0][i] = r[i] / beta
		}

		h := make([][]float64, restart+1)
		for i := range h {
			h[i] = make([]float64, restart)
		}

		cs := make([]float64, restart)
		sn := make([]float64, restart)
		g := make([]float64, restart+1)
		g[0] = beta

		k := 0
		for ; k < restart && totalIters < maxIters; k++ {
			totalIters++

			zk := make([]float64, n)
			m.Apply(v[k], zk)
			w := make([]float64, n)
			a.MatVec(zk, w)

			for j := 0; j <= k; j++ {
				h[j][k] = dot(w, v[j])
				for i := range w {
					w[i] -= h[j][k] * v[j][i]
				}
			}
			hNext := norm2(w)
			h[k+1][k] = hNext

			for j := 0; j < k; j++ {
				applyGivens(h, k, j, cs[j], sn[j])
			}
			cs[k], sn[k] = givens(h[k][k], h[k+1][k])
			h[k][k] = cs[k]*h[k][k] + sn[k]*h[k+1][k]
			h[k+1][k] = 0

			g[k+1] = -sn[k] * g[k]
			g[k] = cs[k] * g[k]

			resNorm := math.Abs(g[k+1]) / bNorm
			if hNext == 0 && resNorm >= tol {
				return Result{Iters: totalIters, ResidualNorm: resNorm}, &BreakdownError{Reason: "Arnoldi breakdown", Iter: totalIters}
			}
			if resNorm < tol {
				k++
				break
			}

			next := make([]float64, n)
			for i := range next {
				next[i] = w[i] / hNext
			}
			v[k+1] = next
		}

		y := solveUpperTriangular(h, g, k)
		dx := make([]float64, n)
		for j := 0; j < k; j++ {
			zj := make([]float64, n)
			m.Apply(v[j], zj)
			axpy(y[j], zj, dx)
		}
		for i := range x {
			x[i] += dx[i]
		}

		a.MatVec(x, r)
		for i := range r {
			r[i] = b[i] - r[i]
		}
		resNorm := norm2(r) / bNorm
		if resNorm < tol {
			return Result{Iters: totalIters, ResidualNorm: resNorm}, nil
		}
	}
	a.MatVec(x, r)
	for i := range r {
		r[i] = b[i] - r[i]
	}
	return Result{Iters: totalIters, ResidualNorm: norm2(r) / bNorm}, &BreakdownError{Reason: "iteration budget exhausted", Iter: totalIters}
}

func givens(a, b float64) (c, s float64) {
	if b == 0 {
		return 1, 0
	}
	if math.Abs(b) > math.Abs(a) {
		t := a / b
		s = 1 / math.Sqrt(1+t*t)
		c = s * t
		return c, s
	}
	t := b / a
	c = 1 / math.Sqrt(1+t*t)
	s = c * t
	return c, s
}

func applyGivens(h [][]float64, k, j int, c, s float64) {
	tmp := c*h[j][k] + s*h[j+1][k]
	h[j+1][k] = -s*h[j][k] + c*h[j+1][k]
	h[j][k] = tmp
}

// solveUpperTriangular back-substitutes the k x k upper-triangular system
// formed by the Givens-rotated Hessenberg matrix.
func solveUpperTriangular(h [][]float64, g []float64, k int) []float64 {
	y := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		s := g[i]
		for j := i + 1; j < k; j++ {
			s -= h[i][j] * y[j]
		}
		y[i] = s / h[i][i]
	}
	return y
}
