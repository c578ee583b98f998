package curve

import (
	"math"

	"equity-lab/internal/domain"
)

// MaxDrawdown returns the worst (peak - value) / peak * 100 over the curve,
// where peak is the highest value seen so far including the current point.
// Empty curve returns 0. Non-positive or non-finite peaks contribute nothing.
func MaxDrawdown(points []domain.EquityPoint) float64 {
	if len(points) == 0 {
		return 0
	}

	peak := math.Inf(-1)
	maxDD := 0.0
	for _, p := range points {
		if !isFinite(p.V) {
			continue
		}
		if p.V > peak {
			peak = p.V
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - p.V) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// Volatility returns the population standard deviation of fractional
// period-over-period returns (v[i]-v[i-1])/v[i-1]. Pairs with a zero or
// non-finite previous value, or a non-finite current value, are skipped.
// Fewer than 2 valid returns yields 0.
func Volatility(points []domain.EquityPoint) float64 {
	returns := make([]float64, 0, len(points))
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1].V, points[i].V
		if prev == 0 || !isFinite(prev) || !isFinite(cur) {
			continue
		}
		returns = append(returns, (cur-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}
	constant := true
	for _, r := range returns[1:] {
		if r != returns[0] {
			constant = false
			break
		}
	}
	if constant {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	sumSq := 0.0
	for _, r := range returns {
		d := r - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(returns)))
}

// Risk computes drawdown and volatility together.
func Risk(points []domain.EquityPoint) domain.RiskStats {
	return domain.RiskStats{
		MaxDrawdownPct: MaxDrawdown(points),
		Volatility:     Volatility(points),
	}
}
