package volatility

import (
	"math"

	"equity-lab/internal/domain"
)

// Percentile bounds. A rank is never reported as exactly 0 or 100.
const (
	MinPercentile = 1
	MaxPercentile = 99
)

// PercentileRank returns round(count(s <= atr) / (len(samples)+1) * 100)
// clamped to [MinPercentile, MaxPercentile].
func PercentileRank(samples []float64, atr float64) int {
	below := 0
	for _, s := range samples {
		if s <= atr {
			below++
		}
	}

	p := int(math.Round(float64(below) / float64(len(samples)+1) * 100))
	if p < MinPercentile {
		return MinPercentile
	}
	if p > MaxPercentile {
		return MaxPercentile
	}
	return p
}

// StateForPercentile maps a percentile to its volatility state.
func StateForPercentile(p int) domain.VolatilityState {
	switch {
	case p < 25:
		return domain.VolatilityLow
	case p < 60:
		return domain.VolatilityNormal
	case p < 85:
		return domain.VolatilityHigh
	default:
		return domain.VolatilityExtreme
	}
}
