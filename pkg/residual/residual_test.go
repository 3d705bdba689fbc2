package residual_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/residual"
	"github.com/edp1096/gopf/pkg/spmat"
)

// decoupledThreeBus has no line coupling at all (diagonal Ybus only), so
// each bus's mismatch reduces to a one-line hand-checkable formula:
// P = Vm^2*G - Pinj, Q = -Vm^2*B - Qinj.
func decoupledThreeBus(t *testing.T) *network.Network {
	t.Helper()
	p := spmat.NewPattern(3, 3, []int{0, 1, 2}, []int{0, 1, 2})
	ybus := []complex128{
		complex(1, 0),      // bus0 (ref), unused in F
		complex(2, 0),      // bus1 (pv): G=2, B=0
		complex(0, -5),     // bus2 (pq): G=0, B=-5
	}
	sbus := []complex128{0, complex(1.0, 0), complex(0.5, 2.0)}
	v0 := []complex128{1, 1, 1}
	net, err := network.New(3, p, ybus, []int{0}, []int{1}, []int{2}, sbus, v0, device.Host)
	require.NoError(t, err)
	return net
}

func TestEvalDecoupledMismatch(t *testing.T) {
	net := decoupledThreeBus(t)
	vm := []float64{1, 1, 1}
	va := []float64{0, 0, 0}
	f := make([]float64, residual.Len(net))
	residual.Eval(residual.RealOps, net, vm, va, f)

	// rows: [P@pv(bus1), P@pq(bus2), Q@pq(bus2)]
	require.InDelta(t, 2.0*1.0-1.0, f[0], 1e-12)    // P mismatch at bus1: Vm^2*G - Pinj = 2-1=1
	require.InDelta(t, 0.0*1.0-0.5, f[1], 1e-12)     // P mismatch at bus2: 0 - 0.5 = -0.5
	require.InDelta(t, -(-5.0)*1.0-2.0, f[2], 1e-12) // Q mismatch at bus2: -Vm^2*B - Qinj = 5-2=3
}

func TestEvalLenMatchesPVPQShape(t *testing.T) {
	net := decoupledThreeBus(t)
	require.Equal(t, len(net.PV)+2*len(net.PQ), residual.Len(net))
}
