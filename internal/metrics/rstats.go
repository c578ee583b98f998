package metrics

import (
	"math"

	"equity-lab/internal/domain"
)

// ComputeRStats calculates expectancy, stddev, profit factor and SQN from
// signed R-multiples. Non-finite values are ignored; empty input gives all zeros.
//
// Profit factor is sum(R>0) / sum(|R<0|): +Inf when there are no losses but
// some profit, 0 when both sides are zero. SQN is expectancy*sqrt(n)/stddev,
// 0 when stddev is 0.
func ComputeRStats(rMultiples []float64) domain.RStats {
	rs := finiteOnly(rMultiples)
	n := len(rs)
	if n == 0 {
		return domain.RStats{}
	}

	mean := computeMean(rs)
	stddev := computePopulationStddev(rs, mean)

	sqn := 0.0
	if stddev > 0 {
		sqn = mean * math.Sqrt(float64(n)) / stddev
	}

	return domain.RStats{
		Count:        n,
		Expectancy:   mean,
		StddevR:      stddev,
		ProfitFactor: computeRProfitFactor(rs),
		SQN:          sqn,
	}
}

// computeRProfitFactor returns gross positive R over gross negative R.
func computeRProfitFactor(rs []float64) float64 {
	gains, losses := 0.0, 0.0
	for _, r := range rs {
		if r > 0 {
			gains += r
		} else if r < 0 {
			losses += -r
		}
	}

	switch {
	case losses > 0:
		return gains / losses
	case gains > 0:
		return math.Inf(1)
	default:
		return 0
	}
}

// RMultiplesOf extracts the non-nil R-multiples of trades.
func RMultiplesOf(trades []*domain.ClosedTrade) []float64 {
	out := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t != nil && t.RMultiple != nil {
			out = append(out, *t.RMultiple)
		}
	}
	return out
}
