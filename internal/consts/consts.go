package consts

const (
	DefaultTol      = 1e-6  // default outer Newton tolerance on ||F||inf
	DefaultMaxIters = 20    // default Newton iteration budget
	MinLinTol       = 1e-8  // floor for the inner solver tolerance
	LinTolFactor    = 0.1   // inner tolerance = max(MinLinTol, LinTolFactor*tol)
	BreakdownEps    = 1e-30 // BiCGSTAB biorthogonality breakdown threshold
)
