package domain

// EquityPoint is a single observation on an equity curve.
// Curves are ordered by T ascending; T is never decreasing within one curve.
type EquityPoint struct {
	T int64   `json:"t"` // Unix timestamp in milliseconds
	V float64 `json:"v"` // equity value
}

// EquitySnapshot represents point-in-time account equity.
// Corresponds to equity_snapshots table in PostgreSQL.
type EquitySnapshot struct {
	Account     string  // account identifier
	TimestampMs int64   // Unix timestamp in milliseconds
	Equity      float64 // total equity at TimestampMs
}

// RiskStats holds drawdown and volatility derived from a curve.
type RiskStats struct {
	MaxDrawdownPct float64 `json:"maxDrawdownPct"` // worst peak-to-trough, percent of peak
	Volatility     float64 `json:"volatility"`     // stddev of period-over-period returns
}

// CompositeCurve is the normalized, merged curve of one engine/horizon.
type CompositeCurve struct {
	Engine  string        `json:"engine"`
	Horizon string        `json:"horizon"`
	Symbols []string      `json:"symbols"`
	Points  []EquityPoint `json:"points"`
	Risk    RiskStats     `json:"risk"`
}
