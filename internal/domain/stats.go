package domain

import (
	"encoding/json"
	"math"
)

// RStats summarizes a set of R-multiples.
type RStats struct {
	Count        int     `json:"count"`
	Expectancy   float64 `json:"expectancy"`
	StddevR      float64 `json:"stddevR"`
	ProfitFactor float64 `json:"profitFactor"` // +Inf when there are no losses
	SQN          float64 `json:"sqn"`
}

// MarshalJSON renders an infinite profit factor as the string "Infinity".
func (s RStats) MarshalJSON() ([]byte, error) {
	type plain RStats
	if !math.IsInf(s.ProfitFactor, 1) {
		return json.Marshal(plain(s))
	}
	return json.Marshal(struct {
		Count        int     `json:"count"`
		Expectancy   float64 `json:"expectancy"`
		StddevR      float64 `json:"stddevR"`
		ProfitFactor string  `json:"profitFactor"`
		SQN          float64 `json:"sqn"`
	}{s.Count, s.Expectancy, s.StddevR, "Infinity", s.SQN})
}

// PortfolioMetrics summarizes closed trades plus open exposure.
// Nullable fields are nil when there is no data to support them.
type PortfolioMetrics struct {
	InitialEquity  float64 `json:"initialEquity"`
	Equity         float64 `json:"equity"`
	RealizedPnL    float64 `json:"realizedPnl"`
	RealizedPnLPct float64 `json:"realizedPnlPct"`
	UnrealizedPnL  float64 `json:"unrealizedPnl"`

	ClosedTrades int     `json:"closedTrades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	GrossProfit  float64 `json:"grossProfit"`
	GrossLoss    float64 `json:"grossLoss"` // absolute value

	WinRateClosedPct         *float64 `json:"winRateClosedPct"`
	ProfitFactor             *float64 `json:"profitFactor"`
	CapitalWeightedReturnPct *float64 `json:"capitalWeightedReturnPct"`

	// SignMismatch flags realized P&L and capital-weighted return disagreeing in sign.
	SignMismatch bool `json:"signMismatch"`
}

// BenchmarkCurve is a buy-and-hold comparison curve for a reference symbol.
type BenchmarkCurve struct {
	Symbol     string        `json:"symbol"`
	FirstClose float64       `json:"firstClose"`
	Points     []EquityPoint `json:"points"`
}
