package metrics

import (
	"fmt"
	"math"

	"equity-lab/internal/domain"
)

// ComputePortfolioMetrics summarizes closed trades plus an optional unrealized
// P&L against a fixed initial equity.
//
// Nullable outputs:
//   - WinRateClosedPct is nil with zero closed trades.
//   - ProfitFactor is nil unless gross profit and gross loss are both > 0.
//   - CapitalWeightedReturnPct is nil unless at least one trade reports a
//     positive finite capital at entry.
//
// The capital-weighted return is realized / sum(|capital|) * 100, i.e. the
// return earned by the capital actually deployed.
func ComputePortfolioMetrics(trades []*domain.ClosedTrade, unrealized *float64, initialEquity float64) domain.PortfolioMetrics {
	m := domain.PortfolioMetrics{InitialEquity: initialEquity}

	capitalSum := 0.0
	hasCapital := false

	for _, t := range trades {
		if t == nil {
			continue
		}
		pnl := t.RealizedPnL
		if !isFinite(pnl) {
			continue
		}

		m.ClosedTrades++
		m.RealizedPnL += pnl
		switch {
		case pnl > 0:
			m.Wins++
			m.GrossProfit += pnl
		case pnl < 0:
			m.Losses++
			m.GrossLoss += -pnl
		}

		if t.CapitalAtEntry != nil {
			c := *t.CapitalAtEntry
			if isFinite(c) && c > 0 {
				capitalSum += math.Abs(c)
				hasCapital = true
			}
		}
	}

	if unrealized != nil && isFinite(*unrealized) {
		m.UnrealizedPnL = *unrealized
	}

	m.Equity = initialEquity + m.RealizedPnL + m.UnrealizedPnL
	if initialEquity != 0 && isFinite(initialEquity) {
		m.RealizedPnLPct = m.RealizedPnL / initialEquity * 100
	}

	if m.ClosedTrades > 0 {
		winRate := float64(m.Wins) / float64(m.ClosedTrades) * 100
		m.WinRateClosedPct = &winRate
	}

	if m.GrossProfit > 0 && m.GrossLoss > 0 {
		pf := m.GrossProfit / m.GrossLoss
		m.ProfitFactor = &pf
	}

	if hasCapital {
		ret := m.RealizedPnL / capitalSum * 100
		m.CapitalWeightedReturnPct = &ret
		m.SignMismatch = signOf(m.RealizedPnL) != signOf(ret)
	}

	return m
}

// ConsistencyIssues lists data anomalies worth surfacing. It never corrects them.
func ConsistencyIssues(m domain.PortfolioMetrics) []string {
	var issues []string
	if m.SignMismatch && m.CapitalWeightedReturnPct != nil {
		issues = append(issues, fmt.Sprintf(
			"realized P&L %.2f and capital-weighted return %.4f%% disagree in sign",
			m.RealizedPnL, *m.CapitalWeightedReturnPct))
	}
	if m.ClosedTrades != m.Wins+m.Losses {
		issues = append(issues, fmt.Sprintf("%d closed trade(s) with zero P&L", m.ClosedTrades-m.Wins-m.Losses))
	}
	return issues
}

func signOf(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
