package domain

// Bar is an OHLCV candle.
// Minute bars correspond to minute_bars table in ClickHouse.
type Bar struct {
	Symbol      string
	TimestampMs int64 // bucket open time (ms)
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// DailyClose is a daily closing price of a reference instrument.
// Corresponds to daily_closes table in ClickHouse.
type DailyClose struct {
	Symbol      string  `json:"symbol"`
	TimestampMs int64   `json:"t"`
	Close       float64 `json:"close"`
}

// Bar timeframes.
const (
	MinuteMs = int64(60_000)
	HourMs   = int64(3_600_000)
	DayMs    = int64(86_400_000)
)
