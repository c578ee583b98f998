package reporting

import (
	"time"

	"equity-lab/internal/domain"
)

// Report is the account performance report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Account     string
	Engine      string
	Horizon     string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD

	Portfolio domain.PortfolioMetrics
	Issues    []string // data consistency warnings, never corrected

	// Curve is nil when the engine/horizon has no stored curves
	Curve     *domain.CompositeCurve
	Summary   CurveSummary
	Benchmark *domain.BenchmarkCurve

	// TradeStats sorted by symbol, timeframe
	TradeStats []TradeStatsRow

	Daily      []domain.DailySeriesItem
	Volatility []VolatilityRow
}

// CurveSummary compares the composite curve with its benchmark.
type CurveSummary struct {
	Points             int
	ReturnPct          float64
	BenchmarkReturnPct *float64 // nil without a benchmark curve
}

// TradeStatsRow is one row of the R-multiple table.
type TradeStatsRow struct {
	Symbol    string
	Timeframe string
	Stats     domain.RStats
}

// VolatilityRow is the volatility context of one symbol.
type VolatilityRow struct {
	Symbol    string
	Timeframe string
	Context   domain.VolatilityContext
}
