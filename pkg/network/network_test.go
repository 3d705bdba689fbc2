package network_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/spmat"
)

// threeBusMesh builds a fully-connected 3-bus Ybus (bus0=ref, bus1=pv,
// bus2=pq) with equal line susceptance between every pair.
func threeBusMesh(backend device.Backend) (*network.Network, error) {
	rows := []int{0, 0, 0, 1, 1, 1, 2, 2, 2}
	cols := []int{0, 1, 2, 0, 1, 2, 0, 1, 2}
	p := spmat.NewPattern(3, 3, rows, cols)

	b := 10.0
	ybus := []complex128{
		complex(0, 2*b), complex(0, -b), complex(0, -b),
		complex(0, -b), complex(0, 2*b), complex(0, -b),
		complex(0, -b), complex(0, -b), complex(0, 2*b),
	}
	sbus := []complex128{0, complex(0.2, 0), complex(0.1, 0.05)}
	v0 := []complex128{1, 1, 1}
	return network.New(3, p, ybus, []int{0}, []int{1}, []int{2}, sbus, v0, backend)
}

func TestNewRejectsOverlappingPartition(t *testing.T) {
	p := spmat.NewPattern(2, 2, []int{0, 1}, []int{0, 1})
	ybus := []complex128{1, 1}
	_, err := network.New(2, p, ybus, []int{0}, []int{0}, nil, []complex128{0, 0}, []complex128{1, 1}, device.Host)
	require.Error(t, err)
}

func TestNewRejectsAsymmetricPattern(t *testing.T) {
	p := spmat.NewPattern(2, 2, []int{0, 1}, []int{1, 1})
	ybus := []complex128{1, 1}
	_, err := network.New(2, p, ybus, []int{0}, nil, []int{1}, []complex128{0, 0}, []complex128{1, 1}, device.Host)
	require.Error(t, err)
}

func TestNewRejectsZeroV0(t *testing.T) {
	p := spmat.NewPattern(1, 1, []int{0}, []int{0})
	_, err := network.New(1, p, []complex128{1}, []int{0}, nil, nil, []complex128{0}, []complex128{0}, device.Host)
	require.Error(t, err)
}

func TestNeighborsParityHostVsSIMT(t *testing.T) {
	host, err := threeBusMesh(device.Host)
	require.NoError(t, err)
	simt, err := threeBusMesh(device.SIMT)
	require.NoError(t, err)

	hostN := host.Neighbors()
	simtN := simt.Neighbors()
	for i := 0; i < 3; i++ {
		got := map[int][2]float64{}
		want := map[int][2]float64{}
		hostN(i, func(j int, g, b float64) { got[j] = [2]float64{g, b} })
		simtN(i, func(j int, g, b float64) { want[j] = [2]float64{g, b} })
		require.Equal(t, want, got)
	}
}

func TestPolarRectRoundTrip(t *testing.T) {
	v := []complex128{complex(1.02, 0.03), complex(0.98, -0.01)}
	vm, va := make([]float64, 2), make([]float64, 2)
	network.PolarFromRect(v, vm, va)
	v2 := make([]complex128, 2)
	network.RectFromPolar(vm, va, v2)
	for i := range v {
		require.InDelta(t, real(v[i]), real(v2[i]), 1e-12)
		require.InDelta(t, imag(v[i]), imag(v2[i]), 1e-12)
	}
}
