package metrics

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"equity-lab/internal/domain"
)

func TestComputeRStats_Example(t *testing.T) {
	s := ComputeRStats([]float64{2, -1, 1.5, -1, 3})

	if s.Count != 5 {
		t.Errorf("expected count 5, got %d", s.Count)
	}
	if math.Abs(s.Expectancy-0.9) > 1e-9 {
		t.Errorf("expected expectancy 0.9, got %f", s.Expectancy)
	}
	// (2 + 1.5 + 3) / (1 + 1)
	if math.Abs(s.ProfitFactor-3.25) > 1e-9 {
		t.Errorf("expected profit factor 3.25, got %f", s.ProfitFactor)
	}
	// Population stddev: deviations 1.1, -1.9, 0.6, -1.9, 2.1 -> var = 13.2/5 = 2.64
	wantStd := math.Sqrt(2.64)
	if math.Abs(s.StddevR-wantStd) > 1e-9 {
		t.Errorf("expected stddev %f, got %f", wantStd, s.StddevR)
	}
	wantSQN := 0.9 * math.Sqrt(5) / wantStd
	if math.Abs(s.SQN-wantSQN) > 1e-9 {
		t.Errorf("expected SQN %f, got %f", wantSQN, s.SQN)
	}
}

func TestComputeRStats_NoLossesIsInfinite(t *testing.T) {
	s := ComputeRStats([]float64{2, 3, 1})
	if !math.IsInf(s.ProfitFactor, 1) {
		t.Errorf("expected +Inf profit factor, got %f", s.ProfitFactor)
	}
}

func TestComputeRStats_Empty(t *testing.T) {
	s := ComputeRStats(nil)
	if s != (domain.RStats{}) {
		t.Errorf("expected zero stats, got %+v", s)
	}
}

func TestComputeRStats_AllZeroR(t *testing.T) {
	s := ComputeRStats([]float64{0, 0})
	if s.ProfitFactor != 0 {
		t.Errorf("expected profit factor 0, got %f", s.ProfitFactor)
	}
	if s.SQN != 0 {
		t.Errorf("expected SQN 0 with zero stddev, got %f", s.SQN)
	}
}

func TestComputeRStats_IdenticalRHasZeroStddev(t *testing.T) {
	// 0.1 is not exact in binary; the mean differs from each value by a few ulps
	s := ComputeRStats([]float64{0.1, 0.1, 0.1})
	if s.StddevR != 0 {
		t.Errorf("expected stddev exactly 0, got %g", s.StddevR)
	}
	if s.SQN != 0 {
		t.Errorf("expected SQN 0, got %g", s.SQN)
	}
	if math.Abs(s.Expectancy-0.1) > 1e-12 {
		t.Errorf("expected expectancy 0.1, got %g", s.Expectancy)
	}
}

func TestComputeRStats_IgnoresNonFinite(t *testing.T) {
	s := ComputeRStats([]float64{1, math.NaN(), -1, math.Inf(1)})
	if s.Count != 2 {
		t.Errorf("expected 2 finite values counted, got %d", s.Count)
	}
	if s.Expectancy != 0 {
		t.Errorf("expected expectancy 0, got %f", s.Expectancy)
	}
}

func TestRStats_MarshalInfiniteProfitFactor(t *testing.T) {
	data, err := json.Marshal(ComputeRStats([]float64{1, 2}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"profitFactor":"Infinity"`) {
		t.Errorf("expected Infinity literal, got %s", data)
	}

	data, err = json.Marshal(ComputeRStats([]float64{1, -1}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"profitFactor":1`) {
		t.Errorf("expected numeric profit factor, got %s", data)
	}
}

func TestRMultiplesOf(t *testing.T) {
	r1, r2 := 1.5, -1.0
	trades := []*domain.ClosedTrade{
		{TradeID: "a", RMultiple: &r1},
		{TradeID: "b"},
		nil,
		{TradeID: "c", RMultiple: &r2},
	}
	got := RMultiplesOf(trades)
	if len(got) != 2 || got[0] != 1.5 || got[1] != -1 {
		t.Errorf("expected [1.5 -1], got %v", got)
	}
}
