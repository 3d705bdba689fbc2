package jacobian

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/residual"
)

// FiniteDifference cross-checks the AD Jacobian against a central-difference
// approximation (spec.md §8's "finite_difference_jacobian(F, u) matches
// AD.Jacobian(F, u)" property), reusing gonum's fd.Jacobian the way the
// gonum-gonum example pack's fd-jacobian.go builds one.
func FiniteDifference(net *network.Network, flavor Flavor, vm, va []float64) *mat.Dense {
	u0 := make([]float64, len(flavor.Map))
	for m, pos := range flavor.Map {
		u0[m] = primalAt(pos, net.N, vm, va)
	}

	dst := mat.NewDense(flavor.Pattern.Rows, len(flavor.Map), nil)
	fd.Jacobian(dst, func(y, u []float64) {
		vm2, va2 := applyU(flavor, net.N, vm, va, u)
		f := make([]float64, residual.Len(net))
		residual.Eval(residual.RealOps, net, vm2, va2, f)
		copy(y, f)
	}, u0, &fd.JacobianSettings{Formula: fd.Central})
	return dst
}

func primalAt(pos, n int, vm, va []float64) float64 {
	if pos >= n {
		return va[pos-n]
	}
	return vm[pos]
}

func applyU(flavor Flavor, n int, vm, va []float64, u []float64) ([]float64, []float64) {
	vm2 := append([]float64(nil), vm...)
	va2 := append([]float64(nil), va...)
	for m, pos := range flavor.Map {
		if pos >= n {
			va2[pos-n] = u[m]
		} else {
			vm2[pos] = u[m]
		}
	}
	return vm2, va2
}
