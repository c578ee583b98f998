// Package curve normalizes, merges and scores equity curves.
// All functions are pure and never modify their inputs.
package curve

import (
	"math"

	"equity-lab/internal/domain"
)

// Baseline is the value the first point of a normalized curve is rescaled to.
const Baseline = 100.0

// Normalize rescales points so the first value becomes Baseline: v' = v / v0 * 100.
// Empty input returns empty output. If v0 is zero or non-finite the curve is
// returned unchanged (as a copy) rather than producing Inf/NaN values.
func Normalize(points []domain.EquityPoint) []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(points))
	copy(out, points)
	if len(points) == 0 {
		return out
	}

	v0 := points[0].V
	if v0 == 0 || !isFinite(v0) {
		return out
	}

	for i := range out {
		out[i].V = out[i].V / v0 * Baseline
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
