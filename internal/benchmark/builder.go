// Package benchmark builds buy-and-hold comparison curves for a reference symbol.
package benchmark

import (
	"math"
	"sort"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/lookup"
)

// BuildCurve returns the equity a buy-and-hold position in symbol would have
// had, starting with the subject's first equity on the subject's first day.
//
// Subject points carry real timestamps (not normalized). Closes are matched on
// UTC calendar day: each subject point uses the last valid close on or before
// its day. The base is the close on or immediately before the first subject
// day. Returns nil if the subject is empty, its starting equity is not
// finite, or that base close is missing or invalid.
func BuildCurve(symbol string, subject []domain.EquityPoint, closes []*domain.DailyClose) *domain.BenchmarkCurve {
	if len(subject) == 0 {
		return nil
	}
	startEquity := subject[0].V
	if math.IsNaN(startEquity) || math.IsInf(startEquity, 0) {
		return nil
	}

	sorted := make([]*domain.DailyClose, 0, len(closes))
	for _, c := range closes {
		if c != nil {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TimestampMs < sorted[j].TimestampMs
	})

	firstClose, err := lookup.CloseAt(EndOfDay(subject[0].T), sorted)
	if err != nil {
		return nil
	}

	points := make([]domain.EquityPoint, 0, len(subject))
	current := firstClose
	idx := 0
	for _, p := range subject {
		dayEnd := EndOfDay(p.T)
		for idx < len(sorted) && sorted[idx].TimestampMs <= dayEnd {
			if lookup.ValidPrice(sorted[idx].Close) {
				current = sorted[idx].Close
			}
			idx++
		}
		points = append(points, domain.EquityPoint{
			T: p.T,
			V: startEquity * current / firstClose,
		})
	}

	return &domain.BenchmarkCurve{
		Symbol:     symbol,
		FirstClose: firstClose,
		Points:     points,
	}
}

// EndOfDay returns the last millisecond of ms's UTC calendar day.
func EndOfDay(ms int64) int64 {
	t := time.UnixMilli(ms).UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.AddDate(0, 0, 1).UnixMilli() - 1
}

// StartOfDay returns the first millisecond of ms's UTC calendar day.
func StartOfDay(ms int64) int64 {
	t := time.UnixMilli(ms).UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).UnixMilli()
}
