package volatility

import (
	"fmt"
	"math"

	"equity-lab/internal/domain"
)

// WilderATR computes the Average True Range over bars using Wilder's smoothing.
// The first ATR is the simple average of the first period true ranges; each
// later true range is folded in as atr = (atr*(period-1) + tr) / period.
// Requires at least period+1 bars.
func WilderATR(bars []*domain.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("%w: need %d, got %d", ErrInsufficientBars, period+1, len(bars))
	}

	trueRanges := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		if bars[i] == nil || bars[i-1] == nil {
			return 0, fmt.Errorf("nil bar at index %d", i)
		}
		trueRanges = append(trueRanges, TrueRange(bars[i], bars[i-1]))
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += trueRanges[i]
	}
	atr := sum / float64(period)

	for i := period; i < len(trueRanges); i++ {
		atr = (atr*float64(period-1) + trueRanges[i]) / float64(period)
	}

	if math.IsNaN(atr) || math.IsInf(atr, 0) {
		return 0, fmt.Errorf("non-finite ATR")
	}
	return atr, nil
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(current, previous *domain.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
