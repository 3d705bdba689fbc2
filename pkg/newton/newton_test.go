package newton_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/edp1096/gopf/pkg/device"
	"github.com/edp1096/gopf/pkg/network"
	"github.com/edp1096/gopf/pkg/newton"
	"github.com/edp1096/gopf/pkg/spmat"
)

// flatSolutionNetwork has zero injection at every pv/pq bus and a
// diagonal-only Ybus, so the flat-start voltage (Vm=1, Va=0 everywhere) is
// already an exact solution: F(V0) = 0 and Solve should report convergence
// at the very first residual evaluation, with zero linear solves needed.
func flatSolutionNetwork(t *testing.T, backend device.Backend) *network.Network {
	t.Helper()
	p := spmat.NewPattern(3, 3, []int{0, 1, 2}, []int{0, 1, 2})
	ybus := []complex128{0, 0, 0}
	sbus := []complex128{0, 0, 0}
	v0 := []complex128{1, 1, 1}
	net, err := network.New(3, p, ybus, []int{0}, []int{1}, []int{2}, sbus, v0, backend)
	require.NoError(t, err)
	return net
}

func TestSolveConvergesImmediatelyWhenFlatIsExact(t *testing.T) {
	net := flatSolutionNetwork(t, device.Host)
	res := newton.Solve(net, newton.DefaultOptions())
	require.True(t, res.Converged)
	require.Equal(t, newton.ReasonNone, res.Reason)
	require.Less(t, res.ResidualNorm, 1e-9)
	require.Equal(t, 0, res.TotalLinsolveIters)
}

func TestSolveRejectsUnknownSolverKind(t *testing.T) {
	net := flatSolutionNetwork(t, device.Host)
	opts := newton.DefaultOptions()
	opts.SolverKind = "not_a_real_solver"
	res := newton.Solve(net, opts)
	require.False(t, res.Converged)
	require.Equal(t, newton.ReasonInvalidNetwork, res.Reason)
}

func TestSolvePreservesRefBusVoltageBitwise(t *testing.T) {
	net := flatSolutionNetwork(t, device.Host)
	res := newton.Solve(net, newton.DefaultOptions())
	require.True(t, res.Converged)
	for _, bus := range net.Ref {
		require.Equal(t, net.V0[bus], res.V[bus])
	}
}

func TestSolveObserverIsCalled(t *testing.T) {
	net := flatSolutionNetwork(t, device.Host)
	calls := 0
	opts := newton.DefaultOptions()
	opts.Observer = func(iter int, residualNorm float64, linIters int) { calls++ }
	newton.Solve(net, opts)
	require.GreaterOrEqual(t, calls, 1)
}

// meshThreeBus is a 3-bus fully-connected mesh with pure-reactive lines
// (B=20 on the diagonal, -10 off-diagonal) and nonzero PV/PQ injections, so
// the flat start Vm=1, Va=0 is not a solution: Solve must actually iterate,
// exercising applyStep, renormalize, and every solver_kind's precond.Build/
// Update path. Mirrors pkg/jacobian's network of the same name.
func meshThreeBus(t *testing.T, backend device.Backend) *network.Network {
	t.Helper()
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
	net, err := network.New(3, p, ybus, []int{0}, []int{1}, []int{2}, sbus, v0, backend)
	require.NoError(t, err)
	return net
}

func TestSolveConvergesUnderEverySolverKind(t *testing.T) {
	for _, kind := range []string{"default", "bicgstab", "bicgstab_ref", "gmres"} {
		t.Run(kind, func(t *testing.T) {
			net := meshThreeBus(t, device.Host)
			opts := newton.DefaultOptions()
			opts.SolverKind = kind
			res := newton.Solve(net, opts)
			require.True(t, res.Converged, "kind=%s reason=%s residual=%g", kind, res.Reason, res.ResidualNorm)
			require.Less(t, res.ResidualNorm, opts.Tol, "kind=%s", kind)
			require.Greater(t, res.TotalLinsolveIters, 0, "kind=%s must exercise the linear solver, not a trivial fixed point", kind)
			for _, bus := range net.Ref {
				require.Equal(t, net.V0[bus], res.V[bus], "kind=%s", kind)
			}
		})
	}
}

func TestSolveDevicesAgreeOnFlatCase(t *testing.T) {
	hostRes := newton.Solve(flatSolutionNetwork(t, device.Host), newton.DefaultOptions())
	simtRes := newton.Solve(flatSolutionNetwork(t, device.SIMT), newton.DefaultOptions())
	require.True(t, hostRes.Converged)
	require.True(t, simtRes.Converged)
	for i := range hostRes.V {
		require.InDelta(t, real(hostRes.V[i]), real(simtRes.V[i]), 1e-10)
		require.InDelta(t, imag(hostRes.V[i]), imag(simtRes.V[i]), 1e-10)
	}
}
