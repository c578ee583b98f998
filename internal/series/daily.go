// Package series reconstructs day-by-day equity from discrete events.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"equity-lab/internal/domain"
)

// DayLayout is the key format of daily series items.
const DayLayout = "2006-01-02"

// ErrInvalidDate is returned when a start or end date cannot be parsed.
var ErrInvalidDate = errors.New("invalid date")

// DailyRequest describes one daily series reconstruction.
type DailyRequest struct {
	StartDate      string // YYYY-MM-DD, inclusive (UTC)
	EndDate        string // YYYY-MM-DD, inclusive (UTC)
	StartingEquity float64
	Closures       []domain.TradeClosure
	Snapshots      []*domain.EquitySnapshot
}

// BuildDaily returns exactly one item per UTC calendar day in [StartDate, EndDate].
//
// Realized P&L is summed per day and accumulated in day order. A day's equity is
// the most recent snapshot at or before the end of that day; before any snapshot
// exists it is estimated as startingEquity + cumulativeRealized + previous day's
// unrealized, and the item is marked Estimated. Unrealized is the equity minus
// (startingEquity + cumulativeRealized).
//
// An end date before the start date yields an empty series.
func BuildDaily(req DailyRequest) ([]domain.DailySeriesItem, error) {
	start, err := ParseDay(req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDay(req.EndDate)
	if err != nil {
		return nil, err
	}

	keys := DayKeys(start, end)
	items := make([]domain.DailySeriesItem, 0, len(keys))
	if len(keys) == 0 {
		return items, nil
	}

	realizedByDay := make(map[string]float64, len(keys))
	for _, c := range req.Closures {
		if !isFinite(c.Amount) {
			continue
		}
		key := DayKey(c.RealizedAt)
		realizedByDay[key] += c.Amount
	}

	snaps := sortedSnapshots(req.Snapshots)

	cumulative := 0.0
	prevUnrealized := 0.0
	snapIdx := 0
	var latest *float64

	for i, key := range keys {
		realized := realizedByDay[key]
		cumulative += realized

		dayEnd := start.AddDate(0, 0, i+1).UnixMilli() - 1
		for snapIdx < len(snaps) && snaps[snapIdx].TimestampMs <= dayEnd {
			eq := snaps[snapIdx].Equity
			latest = &eq
			snapIdx++
		}

		base := req.StartingEquity + cumulative
		equity := base + prevUnrealized
		estimated := true
		if latest != nil {
			equity = *latest
			estimated = false
		}
		unrealized := equity - base

		items = append(items, domain.DailySeriesItem{
			Key:                key,
			Realized:           realized,
			Unrealized:         unrealized,
			Equity:             equity,
			CumulativeRealized: cumulative,
			Estimated:          estimated,
		})
		prevUnrealized = unrealized
	}

	return items, nil
}

// ParseDay parses a YYYY-MM-DD string as UTC midnight.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// DayKeys lists the UTC day keys from start to end inclusive.
func DayKeys(start, end time.Time) []string {
	var keys []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(DayLayout))
	}
	return keys
}

// DayKey returns the UTC calendar day of a millisecond timestamp.
func DayKey(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(DayLayout)
}

// sortedSnapshots returns finite snapshots ordered by timestamp ASC.
func sortedSnapshots(in []*domain.EquitySnapshot) []*domain.EquitySnapshot {
	out := make([]*domain.EquitySnapshot, 0, len(in))
	for _, s := range in {
		if s != nil && isFinite(s.Equity) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimestampMs < out[j].TimestampMs
	})
	return out
}
