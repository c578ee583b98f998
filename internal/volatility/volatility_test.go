package volatility

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"equity-lab/internal/domain"
)

const refMs = int64(1_700_000_000_000)

// flatMinuteBars returns two minute bars per hour for hours hourly buckets
// before refMs. Every resulting hourly bar is H=101 L=99 C=100, so TR=2.
func flatMinuteBars(hours int) []*domain.Bar {
	var bars []*domain.Bar
	for k := 0; k < hours; k++ {
		start := refMs - int64(k+1)*domain.HourMs
		bars = append(bars,
			&domain.Bar{Symbol: "AAPL", TimestampMs: start, Open: 100, High: 101, Low: 99.5, Close: 100.5, Volume: 10},
			&domain.Bar{Symbol: "AAPL", TimestampMs: start + 30*domain.MinuteMs, Open: 100.5, High: 100.8, Low: 99, Close: 100, Volume: 5},
		)
	}
	return bars
}

func TestAggregateHourly(t *testing.T) {
	bars := flatMinuteBars(3)
	hourly, err := AggregateHourly(bars, refMs, 3)
	if err != nil {
		t.Fatalf("AggregateHourly failed: %v", err)
	}
	if len(hourly) != 3 {
		t.Fatalf("expected 3 hourly bars, got %d", len(hourly))
	}

	for i := 1; i < len(hourly); i++ {
		if hourly[i].TimestampMs-hourly[i-1].TimestampMs != domain.HourMs {
			t.Errorf("expected consecutive ascending hours, got %d then %d", hourly[i-1].TimestampMs, hourly[i].TimestampMs)
		}
	}
	last := hourly[2]
	if last.TimestampMs != refMs-domain.HourMs {
		t.Errorf("expected last bucket to open at ref-1h, got %d", last.TimestampMs)
	}
	if last.Open != 100 || last.High != 101 || last.Low != 99 || last.Close != 100 || last.Volume != 15 {
		t.Errorf("unexpected aggregate: %+v", last)
	}
}

func TestAggregateHourly_BucketBounds(t *testing.T) {
	bars := []*domain.Bar{
		{TimestampMs: refMs, Open: 1, High: 1, Low: 1, Close: 1},                 // excluded: buckets are open at ref
		{TimestampMs: refMs - domain.HourMs, Open: 2, High: 2, Low: 2, Close: 2}, // inclusive start of bucket 0
	}
	hourly, err := AggregateHourly(bars, refMs, 1)
	if err != nil {
		t.Fatalf("AggregateHourly failed: %v", err)
	}
	if hourly[0].Close != 2 {
		t.Errorf("expected only the bar at ref-1h, got close %f", hourly[0].Close)
	}
}

func TestAggregateHourly_MissingBucket(t *testing.T) {
	bars := flatMinuteBars(15)
	// Drop the hour [ref-6h, ref-5h)
	var gapped []*domain.Bar
	for _, b := range bars {
		if b.TimestampMs >= refMs-6*domain.HourMs && b.TimestampMs < refMs-5*domain.HourMs {
			continue
		}
		gapped = append(gapped, b)
	}

	_, err := AggregateHourly(gapped, refMs, 15)
	if !errors.Is(err, ErrInsufficientBars) {
		t.Errorf("expected ErrInsufficientBars, got %v", err)
	}
}

func TestWilderATR(t *testing.T) {
	bars := []*domain.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},  // TR 2
		{High: 14, Low: 10, Close: 13}, // TR 4
		{High: 13, Low: 12, Close: 12}, // TR 1
	}

	// seed (2+4)/2 = 3, then (3*1 + 1)/2 = 2
	atr, err := WilderATR(bars, 2)
	if err != nil {
		t.Fatalf("WilderATR failed: %v", err)
	}
	if atr != 2 {
		t.Errorf("expected ATR 2, got %f", atr)
	}
}

func TestWilderATR_GapUsesPreviousClose(t *testing.T) {
	prev := &domain.Bar{High: 10, Low: 9, Close: 10}
	cur := &domain.Bar{High: 15, Low: 14, Close: 14.5}
	if tr := TrueRange(cur, prev); tr != 5 {
		t.Errorf("expected TR 5 (high - prevClose), got %f", tr)
	}
}

func TestWilderATR_NotEnoughBars(t *testing.T) {
	bars := make([]*domain.Bar, ATRPeriod)
	for i := range bars {
		bars[i] = &domain.Bar{High: 2, Low: 1, Close: 1.5}
	}
	if _, err := WilderATR(bars, ATRPeriod); err == nil {
		t.Error("expected error with period bars, need period+1")
	}
	if _, err := WilderATR(bars, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestPercentileRank(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		atr     float64
		want    int
	}{
		{"plotting position", []float64{1, 2, 3, 4}, 2.5, 40},
		{"ties count as below", []float64{1, 2, 2, 4}, 2, 60},
		{"below all clamps to 1", []float64{5, 6, 7}, 1, 1},
		{"empty clamps to 1", nil, 1, 1},
		{"above 100 samples clamps to 99", seq(100), 1000, 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PercentileRank(tt.samples, tt.atr); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestPercentileRank_MaxOf99SamplesNeverReaches100(t *testing.T) {
	samples := seq(99)
	got := PercentileRank(samples, 99)
	if got != 99 {
		t.Errorf("expected 99 for max of 99 samples, got %d", got)
	}
}

func TestStateForPercentile(t *testing.T) {
	tests := []struct {
		p    int
		want domain.VolatilityState
	}{
		{1, domain.VolatilityLow},
		{24, domain.VolatilityLow},
		{25, domain.VolatilityNormal},
		{59, domain.VolatilityNormal},
		{60, domain.VolatilityHigh},
		{84, domain.VolatilityHigh},
		{85, domain.VolatilityExtreme},
		{99, domain.VolatilityExtreme},
	}
	for _, tt := range tests {
		if got := StateForPercentile(tt.p); got != tt.want {
			t.Errorf("StateForPercentile(%d): expected %s, got %s", tt.p, tt.want, got)
		}
	}
}

type fakeSource struct {
	values []float64
	err    error

	gotSymbol    string
	gotTimeframe string
	gotLimit     int
}

func (f *fakeSource) GetRecent(_ context.Context, symbol, timeframe string, limit int) ([]float64, error) {
	f.gotSymbol, f.gotTimeframe, f.gotLimit = symbol, timeframe, limit
	return f.values, f.err
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func assertNeutral(t *testing.T, got domain.VolatilityContext, wantATR float64) {
	t.Helper()
	if got.State != domain.VolatilityNormal || got.Percentile != NeutralPercentile {
		t.Errorf("expected NORMAL/50, got %s/%d", got.State, got.Percentile)
	}
	if got.ATR != wantATR {
		t.Errorf("expected ATR %f, got %f", wantATR, got.ATR)
	}
	if got.Explanation == "" {
		t.Error("expected an explanation")
	}
}

func TestClassifier_InsufficientBars(t *testing.T) {
	src := &fakeSource{values: seq(50)}
	c := NewClassifier(src, quietLogger())

	got := c.Evaluate(context.Background(), "AAPL", "1h", flatMinuteBars(10), refMs)
	assertNeutral(t, got, 0)
	if src.gotLimit != 0 {
		t.Error("sample source should not be queried without an ATR")
	}
}

func TestClassifier_SampleFetchError(t *testing.T) {
	c := NewClassifier(&fakeSource{err: errors.New("db down")}, quietLogger())
	got := c.Evaluate(context.Background(), "AAPL", "1h", flatMinuteBars(HourlyBars), refMs)
	assertNeutral(t, got, 2)
}

func TestClassifier_NoSamples(t *testing.T) {
	c := NewClassifier(&fakeSource{}, quietLogger())
	got := c.Evaluate(context.Background(), "AAPL", "1h", flatMinuteBars(HourlyBars), refMs)
	assertNeutral(t, got, 2)
	if got.SampleCount != 0 {
		t.Errorf("expected zero samples, got %d", got.SampleCount)
	}
}

func TestClassifier_NilSourceAndLogger(t *testing.T) {
	c := NewClassifier(nil, nil)
	got := c.Evaluate(context.Background(), "AAPL", "1h", flatMinuteBars(HourlyBars), refMs)
	assertNeutral(t, got, 2)
}

func TestClassifier_Classifies(t *testing.T) {
	// 30 samples all below the current ATR of 2: 30/31 -> 97
	values := make([]float64, 30)
	for i := range values {
		values[i] = 1
	}
	src := &fakeSource{values: values}
	c := NewClassifier(src, quietLogger())

	got := c.Evaluate(context.Background(), "AAPL", "1h", flatMinuteBars(HourlyBars), refMs)
	if got.State != domain.VolatilityExtreme || got.Percentile != 97 {
		t.Errorf("expected EXTREME/97, got %s/%d", got.State, got.Percentile)
	}
	if got.ATR != 2 || got.SampleCount != 30 {
		t.Errorf("unexpected context: %+v", got)
	}
	if strings.Contains(got.Explanation, "Limited history") {
		t.Errorf("unexpected limited-history note: %s", got.Explanation)
	}
	if src.gotSymbol != "AAPL" || src.gotTimeframe != "1h" || src.gotLimit != SampleLimit {
		t.Errorf("unexpected sample query: %s %s %d", src.gotSymbol, src.gotTimeframe, src.gotLimit)
	}
}

func TestClassifier_LimitedHistory(t *testing.T) {
	c := NewClassifier(&fakeSource{values: []float64{3, 4, 5}}, quietLogger())
	got := c.Evaluate(context.Background(), "AAPL", "1h", flatMinuteBars(HourlyBars), refMs)

	if got.State != domain.VolatilityLow || got.Percentile != 1 {
		t.Errorf("expected LOW/1, got %s/%d", got.State, got.Percentile)
	}
	if !strings.Contains(got.Explanation, "Limited history") || !strings.Contains(got.Explanation, "provisional") {
		t.Errorf("expected provisional limited-history explanation, got %q", got.Explanation)
	}
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}
