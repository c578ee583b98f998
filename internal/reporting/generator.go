package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"equity-lab/internal/domain"
	"equity-lab/internal/metrics"
	"equity-lab/internal/observability"
	"equity-lab/internal/performance"
)

// Source supplies the performance views a report is built from.
type Source interface {
	EngineCurve(ctx context.Context, engine, horizon string) (*domain.CompositeCurve, error)
	TradeStats(ctx context.Context, symbol, timeframe string) (domain.RStats, error)
	Portfolio(ctx context.Context, account string, unrealized *float64) (domain.PortfolioMetrics, error)
	DailySeries(ctx context.Context, account, startDate, endDate string, startingEquity float64) ([]domain.DailySeriesItem, error)
	Benchmark(ctx context.Context, symbolOrAlias string, subject []domain.EquityPoint) (*domain.BenchmarkCurve, error)
	Volatility(ctx context.Context, symbol, timeframe string, refMs int64) domain.VolatilityContext
	InitialEquity() float64
}

var _ Source = (*performance.Service)(nil)

// Market identifies one symbol/timeframe pair to report on.
type Market struct {
	Symbol    string
	Timeframe string
}

// Request selects what a report covers.
type Request struct {
	Account   string
	Engine    string
	Horizon   string
	Benchmark string // symbol or alias, empty for the default index
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Markets   []Market
}

// Generator produces reports from stored data.
type Generator struct {
	source Source
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(source Source) *Generator {
	return &Generator{
		source: source,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete performance report.
func (g *Generator) Generate(ctx context.Context, req Request) (*Report, error) {
	now := g.now()

	portfolio, err := g.source.Portfolio(ctx, req.Account, nil)
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}

	report := &Report{
		GeneratedAt: now,
		Account:     req.Account,
		Engine:      req.Engine,
		Horizon:     req.Horizon,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Portfolio:   portfolio,
		Issues:      metrics.ConsistencyIssues(portfolio),
	}

	cc, err := g.source.EngineCurve(ctx, req.Engine, req.Horizon)
	switch {
	case err == nil:
		report.Curve = cc
		report.Summary = summarize(cc.Points)
	case errors.Is(err, performance.ErrNoCurves):
	default:
		return nil, fmt.Errorf("engine curve: %w", err)
	}

	if report.Curve != nil && len(report.Curve.Points) > 0 {
		bc, err := g.source.Benchmark(ctx, req.Benchmark, report.Curve.Points)
		if err != nil {
			return nil, fmt.Errorf("benchmark: %w", err)
		}
		report.Benchmark = bc
		if bc != nil {
			r := summarize(bc.Points).ReturnPct
			report.Summary.BenchmarkReturnPct = &r
		}
	}

	markets := append([]Market(nil), req.Markets...)
	sort.Slice(markets, func(i, j int) bool {
		if markets[i].Symbol != markets[j].Symbol {
			return markets[i].Symbol < markets[j].Symbol
		}
		return markets[i].Timeframe < markets[j].Timeframe
	})

	for _, m := range markets {
		stats, err := g.source.TradeStats(ctx, m.Symbol, m.Timeframe)
		if err != nil {
			return nil, fmt.Errorf("trade stats %s/%s: %w", m.Symbol, m.Timeframe, err)
		}
		report.TradeStats = append(report.TradeStats, TradeStatsRow{Symbol: m.Symbol, Timeframe: m.Timeframe, Stats: stats})
		report.Volatility = append(report.Volatility, VolatilityRow{
			Symbol:    m.Symbol,
			Timeframe: m.Timeframe,
			Context:   g.source.Volatility(ctx, m.Symbol, m.Timeframe, now.UnixMilli()),
		})
	}

	if req.StartDate != "" && req.EndDate != "" {
		daily, err := g.source.DailySeries(ctx, req.Account, req.StartDate, req.EndDate, g.source.InitialEquity())
		if err != nil {
			return nil, fmt.Errorf("daily series: %w", err)
		}
		report.Daily = daily
	}

	observability.RecordReportGenerated()
	return report, nil
}

// summarize returns the total return from the first to the last point.
func summarize(points []domain.EquityPoint) CurveSummary {
	s := CurveSummary{Points: len(points)}
	if len(points) < 2 || points[0].V == 0 {
		return s
	}
	s.ReturnPct = (points[len(points)-1].V/points[0].V - 1) * 100
	return s
}
