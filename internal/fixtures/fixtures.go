// Package fixtures populates stores with deterministic demo data.
package fixtures

import (
	"context"
	"fmt"
	"math"

	"equity-lab/internal/domain"
	"equity-lab/internal/idhash"
	"equity-lab/internal/performance"
)

// Demo dataset identifiers.
const (
	Account   = "demo"
	Engine    = "trend"
	Horizon   = "1d"
	Timeframe = "1h"

	// StartMs is the first fixture day, 2024-01-02 00:00:00 UTC.
	StartMs = int64(1704153600000)
	// Days is the number of fixture days.
	Days = 20

	// snapshotFromDay is the first day with an equity snapshot.
	snapshotFromDay = 5
	// sampleCount is the number of historical ATR samples per symbol.
	sampleCount = 40
)

// Symbols are the traded fixture instruments.
var Symbols = []string{"QQQ", "SPY"}

// basePrice is the opening price of each symbol and benchmark.
var basePrice = map[string]float64{
	"QQQ":   400,
	"SPY":   470,
	"^GSPC": 4700,
	"^IXIC": 14800,
}

// RefMs is the end of the fixture window; minute bars cover the 16 hours before it.
func RefMs() int64 {
	return StartMs + Days*domain.DayMs
}

// StartDate and EndDate bound the fixture window as YYYY-MM-DD.
const (
	StartDate = "2024-01-02"
	EndDate   = "2024-01-21"
)

// Load populates every store in stores. Nil stores are skipped.
func Load(ctx context.Context, stores performance.Stores) error {
	if stores.Trades != nil {
		if err := stores.Trades.InsertBulk(ctx, trades()); err != nil {
			return fmt.Errorf("load trades: %w", err)
		}
	}
	if stores.Snapshots != nil {
		if err := stores.Snapshots.InsertBulk(ctx, snapshots()); err != nil {
			return fmt.Errorf("load snapshots: %w", err)
		}
	}
	if stores.Closes != nil {
		if err := stores.Closes.InsertBulk(ctx, closes()); err != nil {
			return fmt.Errorf("load closes: %w", err)
		}
	}
	if stores.Curves != nil {
		for _, symbol := range Symbols {
			if err := stores.Curves.InsertBulk(ctx, Engine, Horizon, symbol, curve(symbol)); err != nil {
				return fmt.Errorf("load curve %s: %w", symbol, err)
			}
		}
	}
	if stores.MinuteBars != nil {
		for _, symbol := range Symbols {
			if err := stores.MinuteBars.InsertBulk(ctx, minuteBars(symbol)); err != nil {
				return fmt.Errorf("load minute bars %s: %w", symbol, err)
			}
		}
	}
	if stores.Samples != nil {
		for _, symbol := range Symbols {
			for _, s := range samples(symbol) {
				if err := stores.Samples.Insert(ctx, s); err != nil {
					return fmt.Errorf("load samples %s: %w", symbol, err)
				}
			}
		}
	}
	return nil
}

// wave is a deterministic oscillation in [-1, 1].
func wave(i int, phase float64) float64 {
	return math.Sin(float64(i)*0.9 + phase)
}

func symbolPhase(symbol string) float64 {
	if symbol == "QQQ" {
		return 1.3
	}
	return 0
}

func trades() []*domain.ClosedTrade {
	var out []*domain.ClosedTrade
	for day := 0; day < Days; day++ {
		for _, symbol := range Symbols {
			exit := StartMs + int64(day)*domain.DayMs + 20*domain.HourMs
			entry := basePrice[symbol] * (1 + 0.002*float64(day))
			r := math.Round(wave(day, symbolPhase(symbol))*150) / 100 // [-1.5, 1.5]
			risk := 200.0
			capital := entry * 50

			out = append(out, &domain.ClosedTrade{
				TradeID:        idhash.ComputeTradeID(Account, symbol, Timeframe, exit, entry),
				Account:        Account,
				Symbol:         symbol,
				Timeframe:      Timeframe,
				EntryPrice:     entry,
				ExitPrice:      entry + r*risk/50,
				RealizedPnL:    r * risk,
				CapitalAtEntry: &capital,
				RMultiple:      &r,
				ExitTimestamp:  exit,
			})
		}
	}
	return out
}

func snapshots() []*domain.EquitySnapshot {
	realized := 0.0
	all := trades()
	var out []*domain.EquitySnapshot
	for day := 0; day < Days; day++ {
		at := StartMs + int64(day)*domain.DayMs + 21*domain.HourMs
		for _, t := range all {
			if t.ExitTimestamp > at-domain.DayMs && t.ExitTimestamp <= at {
				realized += t.RealizedPnL
			}
		}
		if day < snapshotFromDay {
			continue
		}
		unrealized := 120 * wave(day, 2.1)
		out = append(out, &domain.EquitySnapshot{
			Account:     Account,
			TimestampMs: at,
			Equity:      100000 + realized + unrealized,
		})
	}
	return out
}

func closes() []*domain.DailyClose {
	var out []*domain.DailyClose
	for _, symbol := range []string{"^GSPC", "^IXIC"} {
		// One extra close the day before so the first day has a base
		for day := -1; day < Days; day++ {
			out = append(out, &domain.DailyClose{
				Symbol:      symbol,
				TimestampMs: StartMs + int64(day)*domain.DayMs + 21*domain.HourMs,
				Close:       basePrice[symbol] * (1 + 0.001*float64(day+1) + 0.004*wave(day, 0.4)),
			})
		}
	}
	return out
}

func curve(symbol string) []domain.EquityPoint {
	points := make([]domain.EquityPoint, 0, Days)
	v := 50000.0
	for day := 0; day < Days; day++ {
		v *= 1 + 0.003*wave(day, symbolPhase(symbol)) + 0.001
		points = append(points, domain.EquityPoint{T: StartMs + int64(day)*domain.DayMs, V: v})
	}
	return points
}

func minuteBars(symbol string) []*domain.Bar {
	ref := RefMs()
	from := ref - 16*domain.HourMs
	var out []*domain.Bar
	for i, ts := 0, from; ts < ref; i, ts = i+1, ts+domain.MinuteMs {
		mid := basePrice[symbol] * (1 + 0.002*wave(i/60, symbolPhase(symbol)))
		spread := basePrice[symbol] * 0.0015 * (1 + 0.5*math.Abs(wave(i, 0)))
		out = append(out, &domain.Bar{
			Symbol:      symbol,
			TimestampMs: ts,
			Open:        mid,
			High:        mid + spread/2,
			Low:         mid - spread/2,
			Close:       mid + spread/4*wave(i, 0.7),
			Volume:      1000 + 500*math.Abs(wave(i, 1.1)),
		})
	}
	return out
}

func samples(symbol string) []*domain.ATRSample {
	out := make([]*domain.ATRSample, 0, sampleCount)
	base := basePrice[symbol] * 0.004
	for i := 0; i < sampleCount; i++ {
		ts := RefMs() - int64(sampleCount-i)*domain.HourMs*6
		atr := base * (1 + 0.6*wave(i, 0.2))
		s := &domain.ATRSample{
			SampleID:    idhash.ComputeSampleID(symbol, Timeframe, ts),
			Symbol:      symbol,
			Timeframe:   Timeframe,
			TimestampMs: ts,
		}
		// Every tenth evaluation failed to produce an ATR
		if i%10 != 9 {
			s.ATR = &atr
		}
		out = append(out, s)
	}
	return out
}
