package volatility

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"equity-lab/internal/domain"
	"equity-lab/internal/observability"
)

const (
	// ATRPeriod is the Wilder ATR lookback in hourly bars.
	ATRPeriod = 14
	// HourlyBars is the number of hourly bars the ATR needs.
	HourlyBars = ATRPeriod + 1
	// SampleLimit caps the historical ATR population.
	SampleLimit = 360
	// MinConfidentSamples is the population size below which labels are provisional.
	MinConfidentSamples = 20
	// NeutralPercentile is reported whenever classification cannot complete.
	NeutralPercentile = 50
)

// Fallback reasons, used as metric labels.
const (
	reasonInsufficientBars = "insufficient_bars"
	reasonATRFailed        = "atr_failed"
	reasonNoSource         = "no_source"
	reasonSampleFetch      = "sample_fetch"
	reasonNoSamples        = "no_samples"
)

// SampleSource supplies historical ATR values, most recent first, nulls excluded.
type SampleSource interface {
	GetRecent(ctx context.Context, symbol, timeframe string, limit int) ([]float64, error)
}

// Classifier ranks the current hourly ATR against historical samples.
type Classifier struct {
	samples SampleSource
	logger  *log.Logger
}

// NewClassifier creates a classifier. A nil logger uses log.Default().
func NewClassifier(samples SampleSource, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Classifier{samples: samples, logger: logger}
}

// Evaluate classifies the volatility of symbol/timeframe at refMs.
// It never fails: every degraded path yields NORMAL at the 50th percentile
// with an explanation of what was missing.
//
// ATR is 0 only when it could not be computed (too few bars, ATR failure).
// When the ATR was computed but the sample population is missing, unreadable
// or empty, the computed ATR is returned with the neutral label so that
// RecordSample can seed the first samples of a new symbol.
func (c *Classifier) Evaluate(ctx context.Context, symbol, timeframe string, minuteBars []*domain.Bar, refMs int64) domain.VolatilityContext {
	hourly, err := AggregateHourly(minuteBars, refMs, HourlyBars)
	if err != nil {
		return c.fallback(symbol, reasonInsufficientBars, 0,
			fmt.Sprintf("Not enough minute data to build %d hourly bars; volatility assumed normal.", HourlyBars), err)
	}

	atr, err := WilderATR(hourly, ATRPeriod)
	if err != nil {
		return c.fallback(symbol, reasonATRFailed, 0,
			"ATR could not be computed; volatility assumed normal.", err)
	}

	if c.samples == nil {
		return c.fallback(symbol, reasonNoSource, atr,
			"No historical ATR source configured; volatility assumed normal.", nil)
	}

	raw, err := c.samples.GetRecent(ctx, symbol, timeframe, SampleLimit)
	if err != nil {
		return c.fallback(symbol, reasonSampleFetch, atr,
			"Historical ATR samples unavailable; volatility assumed normal.", err)
	}

	samples := make([]float64, 0, len(raw))
	for _, s := range raw {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			samples = append(samples, s)
		}
	}
	if len(samples) == 0 {
		return c.fallback(symbol, reasonNoSamples, atr,
			"No historical ATR samples yet; volatility assumed normal.", nil)
	}

	p := PercentileRank(samples, atr)
	state := StateForPercentile(p)
	observability.RecordVolatilityEvaluation(state.String())

	return domain.VolatilityContext{
		State:       state,
		Percentile:  p,
		ATR:         atr,
		Explanation: explain(state, p, atr, len(samples)),
		SampleCount: len(samples),
	}
}

func (c *Classifier) fallback(symbol, reason string, atr float64, explanation string, err error) domain.VolatilityContext {
	if err != nil {
		c.logger.Printf("volatility %s: %s: %v", symbol, reason, err)
	}
	observability.RecordClassifierFallback(reason)
	observability.RecordVolatilityEvaluation(domain.VolatilityNormal.String())

	return domain.VolatilityContext{
		State:       domain.VolatilityNormal,
		Percentile:  NeutralPercentile,
		ATR:         atr,
		Explanation: explanation,
	}
}

func explain(state domain.VolatilityState, p int, atr float64, n int) string {
	var b strings.Builder
	if n < MinConfidentSamples {
		fmt.Fprintf(&b, "Limited history (%d samples): ATR(%d) of %.4f ranks near the %s percentile, ",
			n, ATRPeriod, atr, ordinal(p))
		fmt.Fprintf(&b, "so the %s label is provisional.", strings.ToLower(state.String()))
		return b.String()
	}
	fmt.Fprintf(&b, "ATR(%d) of %.4f is at the %s percentile of the last %d samples: %s volatility.",
		ATRPeriod, atr, ordinal(p), n, strings.ToLower(state.String()))
	return b.String()
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
