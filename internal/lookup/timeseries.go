// Package lookup resolves values at a point in time from ordered series.
package lookup

import (
	"errors"
	"math"

	"equity-lab/internal/domain"
)

// Errors returned by lookup functions.
var (
	ErrNoPriceData  = errors.New("no price data available")
	ErrInvalidPrice = errors.New("close is zero, negative or not finite")
	ErrNoEquityData = errors.New("no equity data available")
)

// CloseAt returns the last close at or before target.
// Closes must be ordered by timestamp ASC; later closes are never used.
// Returns ErrNoPriceData if no close precedes target and ErrInvalidPrice
// if the close found there is not a valid price.
func CloseAt(target int64, closes []*domain.DailyClose) (float64, error) {
	var found *domain.DailyClose
	for _, c := range closes {
		if c == nil {
			continue
		}
		if c.TimestampMs > target {
			break
		}
		found = c
	}
	if found == nil {
		return 0, ErrNoPriceData
	}
	if !ValidPrice(found.Close) {
		return 0, ErrInvalidPrice
	}
	return found.Close, nil
}

// EquityAt returns the snapshot equity at or before target.
// Snapshots must be ordered by timestamp ASC.
// Returns (nil, nil) if no snapshot precedes target (valid case).
// Returns ErrNoEquityData if the slice is empty.
func EquityAt(target int64, snapshots []*domain.EquitySnapshot) (*float64, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoEquityData
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		if snapshots[i].TimestampMs <= target {
			v := snapshots[i].Equity
			return &v, nil
		}
	}

	return nil, nil
}

// ValidPrice reports whether p is a usable price (finite and > 0).
func ValidPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
