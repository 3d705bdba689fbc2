// Package jacobian implements the AD engine of spec.md §4.2: forward-mode
// dual numbers over pkg/residual, seeded by a greedy distance-1 coloring, to
// produce the sparse Jacobian J = ∂F/∂u without ever forming it densely.
package jacobian

import (
	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/dual"
	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/residual"
	"github.com/edp1096/gopf/pkg/spmat"
)

// AD holds everything computed once per Network (coloring, pattern) plus
// the buffers mutated every Newton iteration (Jc, J's numeric values).
type AD struct {
	Flavor   Flavor
	Coloring Coloring

	Jc *mat.Dense // C x |F|, compressed Jacobian (spec.md §3)

	JCSC *spmat.CSC[float64] // present on device.Host
	JCSR *spmat.CSR[float64] // present on device.SIMT

	backend device.Backend
	xt      []dual.Number // packed 2N dual primal, reused every Evaluate
	ft      []dual.Number // dual F, reused every Evaluate
}

// NewState builds the AD engine for the state Jacobian ∂F/∂x.
func NewState(net *network.Network) *AD { return newAD(net, StateMap(net)) }

// NewDesign builds the AD engine for the design Jacobian ∂F/∂u (sensitivity
// flavor, SPEC_FULL.md §9/§10).
func NewDesign(net *network.Network) *AD { return newAD(net, DesignMap(net)) }

func newAD(net *network.Network, colMap []int) *AD {
	pattern := DerivePattern(net, colMap)
	coloring := Color(pattern)

	ad := &AD{
		Flavor:   Flavor{Map: colMap, Pattern: pattern},
		Coloring: coloring,
		Jc:       mat.NewDense(coloring.NumColors, pattern.Rows, nil),
		backend:  net.Backend,
	}
	if net.Backend == device.SIMT {
		ad.JCSR = spmat.NewCSR[float64](pattern)
	} else {
		ad.JCSC = spmat.NewCSC[float64](pattern)
	}

	ad.xt = make([]dual.Number, 2*net.N)
	for i := range ad.xt {
		ad.xt[i] = dual.New(0, coloring.NumColors)
	}
	ad.ft = make([]dual.Number, pattern.Rows)
	for i := range ad.ft {
		ad.ft[i] = dual.New(0, coloring.NumColors)
	}
	return ad
}

// Evaluate computes J at the current (Vm, Va) and overwrites ad.JCSC/JCSR's
// stored values in place (spec.md §4.2 steps 1-6). Sparsity never changes.
func (ad *AD) Evaluate(net *network.Network, Vm, Va []float64) {
	n := net.N
	for i := 0; i < n; i++ {
		ad.xt[i] = dual.NewFrom(Vm[i], ad.xt[i].Partials)
		ad.xt[n+i] = dual.NewFrom(Va[i], ad.xt[n+i].Partials)
	}
	for m, pos := range ad.Flavor.Map {
		ad.xt[pos].Seed(ad.Coloring.Of[m])
	}

	vmT, vaT := ad.xt[:n], ad.xt[n:]
	residual.Eval(residual.DualOps(ad.Coloring.NumColors), net, vmT, vaT, ad.ft)

	for i, f := range ad.ft {
		for k := 0; k < ad.Coloring.NumColors; k++ {
			ad.Jc.Set(k, i, f.Partial(k))
		}
	}

	if ad.backend == device.SIMT {
		uncompressCSR(ad.JCSR, ad.Coloring, ad.Jc)
	} else {
		uncompressCSC(ad.JCSC, ad.Coloring, ad.Jc)
	}
}

// uncompressCSC scatters Jc into J by iterating columns, spec.md §4.2's
// "In CSC, iterate columns" rule.
func uncompressCSC(j *spmat.CSC[float64], c Coloring, jc *mat.Dense) {
	for col := 0; col < j.Pattern.Cols; col++ {
		color := c.Of[col]
		j.Col(col, func(row, idx int) {
			j.Data[idx] = jc.At(color, row)
		})
	}
}

// uncompressCSR scatters Jc into J by iterating rows, spec.md §4.2's
// "In CSR, iterate rows" rule.
func uncompressCSR(j *spmat.CSR[float64], c Coloring, jc *mat.Dense) {
	for row := 0; row < j.Pattern.Rows; row++ {
		j.Row(row, func(col, idx int) {
			j.Data[idx] = jc.At(c.Of[col], row)
		})
	}
}

// Dims returns J's (rows, cols).
func (ad *AD) Dims() (int, int) {
	if ad.backend == device.SIMT {
		return ad.JCSR.Dims()
	}
	return ad.JCSC.Dims()
}
