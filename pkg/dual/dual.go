// Package dual implements a forward-mode dual-number scalar carrying C
// simultaneous directional derivatives ("tangents"), used by pkg/jacobian to
// evaluate many Jacobian columns with a single pass of pkg/residual.
package dual

import "math"

// Number is a value paired with C tangent partials. Partials is sized by the
// caller (it equals the coloring's color count) and reused across residual
// evaluations to avoid per-element allocation.
type Number struct {
	Val      float64
	Partials []float64
}

// New returns a constant (zero-tangent) dual of width c.
func New(val float64, c int) Number {
	return Number{Val: val, Partials: make([]float64, c)}
}

// NewFrom returns a constant dual reusing a preallocated, zeroed buffer.
func NewFrom(val float64, buf []float64) Number {
	for i := range buf {
		buf[i] = 0
	}
	return Number{Val: val, Partials: buf}
}

// Seed sets Partials[k] = 1 and zeroes the rest, marking this value as the
// variable whose derivative is being propagated in color slot k.
func (d *Number) Seed(k int) {
	for i := range d.Partials {
		d.Partials[i] = 0
	}
	d.Partials[k] = 1
}

func (d Number) clone() Number {
	p := make([]float64, len(d.Partials))
	copy(p, d.Partials)
	return Number{Val: d.Val, Partials: p}
}

// Add returns d + e.
func (d Number) Add(e Number) Number {
	r := d.clone()
	r.Val += e.Val
	for i := range r.Partials {
		r.Partials[i] += e.Partials[i]
	}
	return r
}

// Sub returns d - e.
func (d Number) Sub(e Number) Number {
	r := d.clone()
	r.Val -= e.Val
	for i := range r.Partials {
		r.Partials[i] -= e.Partials[i]
	}
	return r
}

// Neg returns -d.
func (d Number) Neg() Number {
	r := d.clone()
	r.Val = -r.Val
	for i := range r.Partials {
		r.Partials[i] = -r.Partials[i]
	}
	return r
}

// Mul returns d * e (product rule).
func (d Number) Mul(e Number) Number {
	r := New(d.Val*e.Val, len(d.Partials))
	for i := range r.Partials {
		r.Partials[i] = d.Partials[i]*e.Val + d.Val*e.Partials[i]
	}
	return r
}

// MulScalar returns d * s.
func (d Number) MulScalar(s float64) Number {
	r := d.clone()
	r.Val *= s
	for i := range r.Partials {
		r.Partials[i] *= s
	}
	return r
}

// Div returns d / e (quotient rule).
func (d Number) Div(e Number) Number {
	inv := 1.0 / e.Val
	r := New(d.Val*inv, len(d.Partials))
	for i := range r.Partials {
		r.Partials[i] = (d.Partials[i] - r.Val*e.Partials[i]) * inv
	}
	return r
}

// Sin returns sin(d).
func (d Number) Sin() Number {
	s, c := math.Sin(d.Val), math.Cos(d.Val)
	r := New(s, len(d.Partials))
	for i := range r.Partials {
		r.Partials[i] = c * d.Partials[i]
	}
	return r
}

// Cos returns cos(d).
func (d Number) Cos() Number {
	s, c := math.Sin(d.Val), math.Cos(d.Val)
	r := New(c, len(d.Partials))
	for i := range r.Partials {
		r.Partials[i] = -s * d.Partials[i]
	}
	return r
}

// Exp returns exp(d).
func (d Number) Exp() Number {
	v := math.Exp(d.Val)
	r := New(v, len(d.Partials))
	for i := range r.Partials {
		r.Partials[i] = v * d.Partials[i]
	}
	return r
}

// Sqrt returns sqrt(d).
func (d Number) Sqrt() Number {
	v := math.Sqrt(d.Val)
	r := New(v, len(d.Partials))
	for i := range r.Partials {
		r.Partials[i] = d.Partials[i] / (2 * v)
	}
	return r
}

// Partial returns the k-th tangent, the value of ∂(this quantity)/∂(seed k).
func (d Number) Partial(k int) float64 {
	return d.Partials[k]
}
