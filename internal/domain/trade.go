package domain

// ClosedTrade represents one completed round-trip.
// Corresponds to closed_trades table in PostgreSQL.
type ClosedTrade struct {
	TradeID   string // deterministic hash
	Account   string // owning account
	Symbol    string // traded instrument
	Timeframe string // signal timeframe, e.g. "1h"

	EntryPrice     float64
	ExitPrice      float64
	RealizedPnL    float64  // signed dollars, positive = profit
	CapitalAtEntry *float64 // capital deployed (nullable)
	RMultiple      *float64 // P&L in units of initial risk (nullable)
	ExitTimestamp  int64    // Unix timestamp in milliseconds
}

// TradeClosure is a realized amount booked at a point in time.
type TradeClosure struct {
	RealizedAt int64   // Unix timestamp in milliseconds
	Amount     float64 // signed dollars
}

// Closure converts the trade into a TradeClosure.
func (t *ClosedTrade) Closure() TradeClosure {
	return TradeClosure{RealizedAt: t.ExitTimestamp, Amount: t.RealizedPnL}
}
