// Package volatility classifies the current hourly ATR against its own history.
package volatility

import (
	"errors"
	"fmt"
	"sort"

	"equity-lab/internal/domain"
)

// ErrInsufficientBars is returned when a requested bar window cannot be built.
var ErrInsufficientBars = errors.New("insufficient bars")

// AggregateHourly builds count consecutive 1h bars ending at refMs.
// Bucket k covers [refMs-(k+1)h, refMs-kh). The result is ordered oldest first.
// Returns ErrInsufficientBars if any bucket has no minute bars.
func AggregateHourly(minuteBars []*domain.Bar, refMs int64, count int) ([]*domain.Bar, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count must be positive, got %d", ErrInsufficientBars, count)
	}

	sorted := make([]*domain.Bar, 0, len(minuteBars))
	for _, b := range minuteBars {
		if b != nil {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	hourly := make([]*domain.Bar, count)
	for k := 0; k < count; k++ {
		end := refMs - int64(k)*domain.HourMs
		start := end - domain.HourMs

		lo := sort.Search(len(sorted), func(i int) bool { return sorted[i].TimestampMs >= start })
		hi := sort.Search(len(sorted), func(i int) bool { return sorted[i].TimestampMs >= end })
		if lo >= hi {
			return nil, fmt.Errorf("%w: no minute bars in hour bucket %d [%d, %d)", ErrInsufficientBars, k, start, end)
		}

		hourly[count-1-k] = aggregate(sorted[lo:hi], start)
	}

	return hourly, nil
}

// aggregate folds time-ordered minute bars into one bar opening at startMs.
func aggregate(bars []*domain.Bar, startMs int64) *domain.Bar {
	first := bars[0]
	out := &domain.Bar{
		Symbol:      first.Symbol,
		TimestampMs: startMs,
		Open:        first.Open,
		High:        first.High,
		Low:         first.Low,
		Close:       bars[len(bars)-1].Close,
	}
	for _, b := range bars {
		if b.High > out.High {
			out.High = b.High
		}
		if b.Low < out.Low {
			out.Low = b.Low
		}
		out.Volume += b.Volume
	}
	return out
}
