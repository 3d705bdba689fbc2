// Package report formats Newton-solve output for a human reader, adapted
// from the source material's pkg/util magnitude/phase formatters (used
// there for node-voltage and branch-current printouts) onto spec.md's bus
// voltage result.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/edp1096/gopf/pkg/newton"
)

// FormatMagnitudePhase renders name=mag<phase-deg, the same column layout
// the source material used for SPICE node voltages.
func FormatMagnitudePhase(name string, value, phaseDeg float64) string {
	var magStr string
	switch {
	case value >= 1000, value < 0.001 && value != 0:
		magStr = fmt.Sprintf("%8.2e", value)
	default:
		magStr = fmt.Sprintf("%8.3g", value)
	}
	return fmt.Sprintf("%s=%s<%6.1fdeg", name, magStr, phaseDeg)
}

// FormatMagnitude renders a single magnitude with the same column width.
func FormatMagnitude(value float64) string {
	if value >= 1000 || (value < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e", value)
	}
	return fmt.Sprintf("%8.3g", value)
}

// FormatPhase renders a phase angle in degrees.
func FormatPhase(value float64) string {
	return fmt.Sprintf("%6.1f", value)
}

// Buses renders one line per bus voltage in a solve result, in the format
// "bus<i>=<mag><phase-deg>", plus a trailing convergence summary line.
func Buses(res newton.Result) string {
	var b strings.Builder
	for i, v := range res.V {
		mag := absComplex(v)
		phase := math.Atan2(imag(v), real(v)) * 180 / math.Pi
		b.WriteString(FormatMagnitudePhase(fmt.Sprintf("bus%d", i), mag, phase))
		b.WriteByte('\n')
	}
	status := "converged"
	if !res.Converged {
		status = fmt.Sprintf("failed (%s)", res.Reason)
	}
	fmt.Fprintf(&b, "%s: residual_norm=%.3e first_iters=%d total_iters=%d\n",
		status, res.ResidualNorm, res.FirstLinsolveIters, res.TotalLinsolveIters)
	return b.String()
}

func absComplex(v complex128) float64 {
	return math.Hypot(real(v), imag(v))
}
