package domain

// VolatilityState is the ordinal volatility regime.
type VolatilityState string

const (
	VolatilityLow     VolatilityState = "LOW"
	VolatilityNormal  VolatilityState = "NORMAL"
	VolatilityHigh    VolatilityState = "HIGH"
	VolatilityExtreme VolatilityState = "EXTREME"
)

// String returns the string representation of VolatilityState.
func (s VolatilityState) String() string {
	return string(s)
}

// IsValid checks if the state is a valid value.
func (s VolatilityState) IsValid() bool {
	switch s {
	case VolatilityLow, VolatilityNormal, VolatilityHigh, VolatilityExtreme:
		return true
	}
	return false
}

// VolatilityContext is the classifier output for one evaluation.
type VolatilityContext struct {
	State       VolatilityState `json:"state"`
	Percentile  int             `json:"percentile"` // always within [1, 99]
	ATR         float64         `json:"atr"`
	Explanation string          `json:"explanation"`
	SampleCount int             `json:"sampleCount"`
}

// ATRSample is one historical ATR observation.
// Corresponds to atr_samples table in PostgreSQL.
type ATRSample struct {
	SampleID    string   // base58 hash of (symbol, timeframe, timestamp)
	Symbol      string   // instrument
	Timeframe   string   // e.g. "1h"
	TimestampMs int64    // evaluation reference time (ms)
	ATR         *float64 // NULL when the evaluation could not compute ATR
}
