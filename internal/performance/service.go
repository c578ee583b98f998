// Package performance assembles equity curves, statistics and volatility
// context from persisted trading data.
package performance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"equity-lab/internal/benchmark"
	"equity-lab/internal/curve"
	"equity-lab/internal/domain"
	"equity-lab/internal/idhash"
	"equity-lab/internal/lookup"
	"equity-lab/internal/metrics"
	"equity-lab/internal/observability"
	"equity-lab/internal/series"
	"equity-lab/internal/storage"
	"equity-lab/internal/volatility"
)

// ErrNoCurves is returned when an engine/horizon has no stored curves.
var ErrNoCurves = errors.New("no curves for engine and horizon")

// ErrSpanTooLarge is returned when a daily series would exceed MaxDailySpanDays items.
var ErrSpanTooLarge = errors.New("daily series span too large")

// MaxDailySpanDays bounds a daily series to roughly ten years.
const MaxDailySpanDays = 3660

// Stores groups the storage dependencies of the service.
// Any store may be nil when the operations that need it are unused.
type Stores struct {
	Trades     storage.ClosedTradeStore
	Snapshots  storage.EquitySnapshotStore
	Samples    storage.ATRSampleStore
	MinuteBars storage.MinuteBarStore
	Closes     storage.DailyCloseStore
	Curves     storage.EquityCurveStore
}

// Service computes performance views over the configured stores.
type Service struct {
	stores        Stores
	initialEquity float64
	classifier    *volatility.Classifier
	logger        *log.Logger
}

// NewService creates a performance service.
// initialEquity is the account equity before any realized P&L.
func NewService(stores Stores, initialEquity float64, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	var source volatility.SampleSource
	if stores.Samples != nil {
		source = stores.Samples
	}
	return &Service{
		stores:        stores,
		initialEquity: initialEquity,
		classifier:    volatility.NewClassifier(source, logger),
		logger:        logger,
	}
}

// InitialEquity returns the configured starting equity.
func (s *Service) InitialEquity() float64 {
	return s.initialEquity
}

// EngineCurve builds the composite curve of every symbol traded by engine at horizon.
// Returns ErrNoCurves if nothing is stored for the pair.
func (s *Service) EngineCurve(ctx context.Context, engine, horizon string) (*domain.CompositeCurve, error) {
	symbols, err := s.stores.Curves.ListSymbols(ctx, engine, horizon)
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	sort.Strings(symbols)

	used := make([]string, 0, len(symbols))
	curves := make([][]domain.EquityPoint, 0, len(symbols))
	for _, symbol := range symbols {
		points, err := s.stores.Curves.GetCurve(ctx, engine, horizon, symbol)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("get curve %s: %w", symbol, err)
		}
		used = append(used, symbol)
		curves = append(curves, points)
	}
	if len(curves) == 0 {
		return nil, ErrNoCurves
	}

	points := curve.Composite(curves)
	observability.RecordCurveComputed("composite")

	return &domain.CompositeCurve{
		Engine:  engine,
		Horizon: horizon,
		Symbols: used,
		Points:  points,
		Risk:    curve.Risk(points),
	}, nil
}

// SaveCurve stores a per-symbol curve for engine/horizon.
func (s *Service) SaveCurve(ctx context.Context, engine, horizon, symbol string, points []domain.EquityPoint) error {
	return s.stores.Curves.InsertBulk(ctx, engine, horizon, symbol, points)
}

// TradeStats computes R-multiple statistics for a symbol/timeframe.
func (s *Service) TradeStats(ctx context.Context, symbol, timeframe string) (domain.RStats, error) {
	trades, err := s.stores.Trades.GetBySymbolTimeframe(ctx, symbol, timeframe)
	if err != nil {
		return domain.RStats{}, fmt.Errorf("get trades: %w", err)
	}
	return metrics.ComputeRStats(metrics.RMultiplesOf(trades)), nil
}

// Portfolio computes portfolio metrics for every closed trade of account.
// A nil unrealized is derived from the latest equity snapshot when one exists.
func (s *Service) Portfolio(ctx context.Context, account string, unrealized *float64) (domain.PortfolioMetrics, error) {
	trades, err := s.stores.Trades.GetByAccount(ctx, account, 0, math.MaxInt64)
	if err != nil {
		return domain.PortfolioMetrics{}, fmt.Errorf("get trades: %w", err)
	}

	if unrealized == nil && s.stores.Snapshots != nil {
		unrealized, err = s.unrealizedFromSnapshots(ctx, account, trades)
		if err != nil {
			return domain.PortfolioMetrics{}, err
		}
	}

	return metrics.ComputePortfolioMetrics(trades, unrealized, s.initialEquity), nil
}

// unrealizedFromSnapshots returns latest snapshot equity minus
// (initial equity + realized P&L booked up to that snapshot).
// Returns nil when the account has no snapshots.
func (s *Service) unrealizedFromSnapshots(ctx context.Context, account string, trades []*domain.ClosedTrade) (*float64, error) {
	snaps, err := s.stores.Snapshots.GetByTimeRange(ctx, account, 0, math.MaxInt64)
	if err != nil {
		return nil, fmt.Errorf("get snapshots: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	at := snaps[len(snaps)-1].TimestampMs
	equity, err := lookup.EquityAt(at, snaps)
	if err != nil || equity == nil {
		return nil, err
	}

	realized := 0.0
	for _, t := range trades {
		if t.ExitTimestamp <= at && !math.IsNaN(t.RealizedPnL) && !math.IsInf(t.RealizedPnL, 0) {
			realized += t.RealizedPnL
		}
	}
	u := *equity - (s.initialEquity + realized)
	return &u, nil
}

// DailySeries reconstructs the account's day-by-day equity between two
// YYYY-MM-DD dates (inclusive, UTC). Snapshots taken before the start date
// seed the first day's equity.
func (s *Service) DailySeries(ctx context.Context, account, startDate, endDate string, startingEquity float64) ([]domain.DailySeriesItem, error) {
	start, err := series.ParseDay(startDate)
	if err != nil {
		return nil, err
	}
	end, err := series.ParseDay(endDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return []domain.DailySeriesItem{}, nil
	}
	if days := end.Sub(start).Hours()/24 + 1; days > MaxDailySpanDays {
		return nil, fmt.Errorf("%w: %.0f days (max %d)", ErrSpanTooLarge, days, MaxDailySpanDays)
	}

	startMs := start.UnixMilli()
	endMs := end.AddDate(0, 0, 1).UnixMilli() - 1

	trades, err := s.stores.Trades.GetByAccount(ctx, account, startMs, endMs)
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	closures := make([]domain.TradeClosure, len(trades))
	for i, t := range trades {
		closures[i] = t.Closure()
	}

	var snaps []*domain.EquitySnapshot
	if s.stores.Snapshots != nil {
		snaps, err = s.stores.Snapshots.GetByTimeRange(ctx, account, 0, endMs)
		if err != nil {
			return nil, fmt.Errorf("get snapshots: %w", err)
		}
	}

	return series.BuildDaily(series.DailyRequest{
		StartDate:      startDate,
		EndDate:        endDate,
		StartingEquity: startingEquity,
		Closures:       closures,
		Snapshots:      snaps,
	})
}

// Benchmark builds a buy-and-hold curve for symbolOrAlias aligned to subject.
// Returns (nil, nil) when no curve can be built from the available closes.
func (s *Service) Benchmark(ctx context.Context, symbolOrAlias string, subject []domain.EquityPoint) (*domain.BenchmarkCurve, error) {
	symbol, err := benchmark.ResolveSymbol(symbolOrAlias)
	if err != nil {
		return nil, err
	}
	if len(subject) == 0 {
		return nil, nil
	}

	from := benchmark.StartOfDay(subject[0].T) - domain.DayMs
	to := benchmark.EndOfDay(subject[len(subject)-1].T)
	closes, err := s.stores.Closes.GetByTimeRange(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get closes %s: %w", symbol, err)
	}

	bc := benchmark.BuildCurve(symbol, subject, closes)
	if bc != nil {
		observability.RecordCurveComputed("benchmark")
	}
	return bc, nil
}

// Volatility classifies symbol/timeframe at refMs from the stored minute bars.
// A failed bar fetch degrades to the neutral classification.
func (s *Service) Volatility(ctx context.Context, symbol, timeframe string, refMs int64) domain.VolatilityContext {
	from := refMs - int64(volatility.HourlyBars)*domain.HourMs
	bars, err := s.stores.MinuteBars.GetByTimeRange(ctx, symbol, from, refMs-1)
	if err != nil {
		s.logger.Printf("volatility %s: fetch minute bars: %v", symbol, err)
		bars = nil
	}
	return s.classifier.Evaluate(ctx, symbol, timeframe, bars, refMs)
}

// RecordSample evaluates volatility at refMs and appends the ATR to the
// sample population. An evaluation without an ATR is stored as NULL.
// Recording the same (symbol, timeframe, refMs) twice is not an error.
func (s *Service) RecordSample(ctx context.Context, symbol, timeframe string, refMs int64) (domain.VolatilityContext, error) {
	vc := s.Volatility(ctx, symbol, timeframe, refMs)

	var atr *float64
	if vc.ATR > 0 {
		v := vc.ATR
		atr = &v
	}
	sample := &domain.ATRSample{
		SampleID:    idhash.ComputeSampleID(symbol, timeframe, refMs),
		Symbol:      symbol,
		Timeframe:   timeframe,
		TimestampMs: refMs,
		ATR:         atr,
	}
	if err := s.stores.Samples.Insert(ctx, sample); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return vc, nil
		}
		return vc, fmt.Errorf("insert sample: %w", err)
	}
	observability.RecordATRSample()
	return vc, nil
}
