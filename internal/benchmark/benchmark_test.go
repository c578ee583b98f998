package benchmark

import (
	"errors"
	"math"
	"testing"
	"time"

	"equity-lab/internal/domain"
)

func day(date string, hour int) int64 {
	d, _ := time.Parse("2006-01-02", date)
	return d.Add(time.Duration(hour) * time.Hour).UnixMilli()
}

func closeOn(date string, c float64) *domain.DailyClose {
	// Daily closes are stamped at 21:00 UTC
	return &domain.DailyClose{Symbol: "SPY", TimestampMs: day(date, 21), Close: c}
}

func TestBuildCurve_BuyAndHold(t *testing.T) {
	subject := []domain.EquityPoint{
		{T: day("2024-01-02", 9), V: 1000},
		{T: day("2024-01-03", 9), V: 1010},
		{T: day("2024-01-05", 9), V: 990},
	}
	closes := []*domain.DailyClose{
		closeOn("2024-01-05", 110),
		closeOn("2024-01-01", 100),
		closeOn("2024-01-02", 105),
		closeOn("2024-01-03", 0), // invalid: previous close carried
	}

	got := BuildCurve("SPY", subject, closes)
	if got == nil {
		t.Fatal("expected a benchmark curve")
	}
	// Same UTC day counts as "on or before", even though the close is later in the day
	if got.FirstClose != 105 {
		t.Errorf("expected firstClose 105, got %f", got.FirstClose)
	}

	want := []float64{1000, 1000, 1000 * 110 / 105.0}
	if len(got.Points) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got.Points))
	}
	for i, w := range want {
		if got.Points[i].T != subject[i].T {
			t.Errorf("point %d: expected t %d, got %d", i, subject[i].T, got.Points[i].T)
		}
		if math.Abs(got.Points[i].V-w) > 1e-9 {
			t.Errorf("point %d: expected %f, got %f", i, w, got.Points[i].V)
		}
	}
}

func TestBuildCurve_NoCloseBeforeFirstDayReturnsNil(t *testing.T) {
	subject := []domain.EquityPoint{
		{T: day("2024-01-01", 9), V: 1000},
		{T: day("2024-01-10", 9), V: 1100},
	}
	closes := []*domain.DailyClose{closeOn("2024-01-09", 200), closeOn("2024-01-10", 220)}

	if got := BuildCurve("SPY", subject, closes); got != nil {
		t.Errorf("expected nil without a close on or before the first day, got %+v", got)
	}
}

func TestBuildCurve_InvalidBaseIsNotReplacedByOlderClose(t *testing.T) {
	subject := []domain.EquityPoint{{T: day("2024-01-02", 9), V: 1000}}
	closes := []*domain.DailyClose{closeOn("2023-12-29", 100), closeOn("2024-01-02", 0)}

	if got := BuildCurve("SPY", subject, closes); got != nil {
		t.Errorf("expected nil for zero base close, got %+v", got)
	}
}

func TestBuildCurve_ZeroFirstCloseReturnsNil(t *testing.T) {
	subject := []domain.EquityPoint{{T: day("2024-01-02", 9), V: 1000}}
	closes := []*domain.DailyClose{closeOn("2024-01-01", 0)}

	if got := BuildCurve("SPY", subject, closes); got != nil {
		t.Errorf("expected nil for zero base close, got %+v", got)
	}
}

func TestBuildCurve_NilCases(t *testing.T) {
	closes := []*domain.DailyClose{closeOn("2024-01-01", 100)}

	if got := BuildCurve("SPY", nil, closes); got != nil {
		t.Error("expected nil for empty subject")
	}
	if got := BuildCurve("SPY", []domain.EquityPoint{{T: day("2024-01-02", 0), V: math.NaN()}}, closes); got != nil {
		t.Error("expected nil for non-finite start equity")
	}
	if got := BuildCurve("SPY", []domain.EquityPoint{{T: day("2024-01-02", 0), V: 1}}, nil); got != nil {
		t.Error("expected nil without closes")
	}
}

func TestBuildCurve_NoNonFiniteValues(t *testing.T) {
	subject := []domain.EquityPoint{
		{T: day("2024-01-02", 9), V: 1000},
		{T: day("2024-01-03", 9), V: 1000},
	}
	closes := []*domain.DailyClose{
		closeOn("2024-01-02", 100),
		closeOn("2024-01-03", math.Inf(1)),
	}
	got := BuildCurve("SPY", subject, closes)
	for _, p := range got.Points {
		if math.IsNaN(p.V) || math.IsInf(p.V, 0) {
			t.Errorf("unexpected non-finite value %v", p.V)
		}
	}
}

func TestEndOfDay(t *testing.T) {
	ts := day("2024-03-10", 13)
	if got, want := EndOfDay(ts), day("2024-03-11", 0)-1; got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
	if got, want := StartOfDay(ts), day("2024-03-10", 0); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
}

func TestResolveSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sp500", "^GSPC"},
		{"NASDAQ", "^IXIC"},
		{"^n225", "^N225"},
		{"spy", "SPY"},
		{"BRK.B", "BRK.B"},
		{"", DefaultSymbol},
	}
	for _, tt := range tests {
		got, err := ResolveSymbol(tt.in)
		if err != nil {
			t.Errorf("ResolveSymbol(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveSymbol(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}

	for _, bad := range []string{"TOOLONGTICKER", "AB$C", "A B"} {
		if _, err := ResolveSymbol(bad); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("ResolveSymbol(%q): expected ErrInvalidSymbol, got %v", bad, err)
		}
	}
}

func TestAliases_Sorted(t *testing.T) {
	got := Aliases()
	if len(got) != len(IndexAliases) {
		t.Fatalf("expected %d aliases, got %d", len(IndexAliases), len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Errorf("aliases not sorted: %v", got)
		}
	}
}
