package domain

// DailySeriesItem is one calendar day of a daily equity series.
type DailySeriesItem struct {
	Key                string  `json:"key"` // YYYY-MM-DD (UTC)
	Realized           float64 `json:"realized"`
	Unrealized         float64 `json:"unrealized"`
	Equity             float64 `json:"equity"`
	CumulativeRealized float64 `json:"cumulativeRealized"`
	Estimated          bool    `json:"estimated"` // true when no snapshot backed the equity yet
}
