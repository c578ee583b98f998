package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Performance Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Account: %s | Engine: %s | Horizon: %s\n\n", r.Account, r.Engine, r.Horizon))

	// Portfolio
	p := r.Portfolio
	sb.WriteString("## Portfolio\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Equity | %s |\n", dollars(p.InitialEquity)))
	sb.WriteString(fmt.Sprintf("| Equity | %s |\n", dollars(p.Equity)))
	sb.WriteString(fmt.Sprintf("| Realized P&L | %s (%s) |\n", dollars(p.RealizedPnL), pct(&p.RealizedPnLPct)))
	sb.WriteString(fmt.Sprintf("| Unrealized P&L | %s |\n", dollars(p.UnrealizedPnL)))
	sb.WriteString(fmt.Sprintf("| Closed Trades | %d (%d W / %d L) |\n", p.ClosedTrades, p.Wins, p.Losses))
	sb.WriteString(fmt.Sprintf("| Gross Profit | %s |\n", dollars(p.GrossProfit)))
	sb.WriteString(fmt.Sprintf("| Gross Loss | %s |\n", dollars(p.GrossLoss)))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s |\n", pct(p.WinRateClosedPct)))
	profitFactor := "-"
	if p.ProfitFactor != nil {
		profitFactor = ratio(*p.ProfitFactor)
	}
	sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", profitFactor))
	sb.WriteString(fmt.Sprintf("| Capital-Weighted Return | %s |\n", pct(p.CapitalWeightedReturnPct)))
	sb.WriteString("\n")

	if len(r.Issues) > 0 {
		sb.WriteString("### Consistency Warnings\n\n")
		for _, issue := range r.Issues {
			sb.WriteString(fmt.Sprintf("- %s\n", issue))
		}
		sb.WriteString("\n")
	}

	// Equity curve
	sb.WriteString("## Equity Curve\n\n")
	if r.Curve != nil {
		sb.WriteString(fmt.Sprintf("Symbols: %s\n\n", strings.Join(r.Curve.Symbols, ", ")))
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Points | %d |\n", r.Summary.Points))
		sb.WriteString(fmt.Sprintf("| Return | %s |\n", pct(&r.Summary.ReturnPct)))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %s |\n", pct(&r.Curve.Risk.MaxDrawdownPct)))
		sb.WriteString(fmt.Sprintf("| Volatility | %s |\n", ratio(r.Curve.Risk.Volatility)))
		if r.Benchmark != nil {
			sb.WriteString(fmt.Sprintf("| Benchmark (%s) Return | %s |\n", r.Benchmark.Symbol, pct(r.Summary.BenchmarkReturnPct)))
		}
	} else {
		sb.WriteString("No equity curves available.\n")
	}
	sb.WriteString("\n")

	// Trade statistics
	sb.WriteString("## R-Multiple Statistics\n\n")
	if len(r.TradeStats) > 0 {
		sb.WriteString("| Symbol | Timeframe | Trades | Expectancy | StdDev | Profit Factor | SQN |\n")
		sb.WriteString("|--------|-----------|--------|------------|--------|---------------|-----|\n")
		for _, row := range r.TradeStats {
			s := row.Stats
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %s | %s | %s |\n",
				row.Symbol, row.Timeframe, s.Count,
				ratio(s.Expectancy), ratio(s.StddevR), ratio(s.ProfitFactor), ratio(s.SQN)))
		}
	} else {
		sb.WriteString("No trade statistics available.\n")
	}
	sb.WriteString("\n")

	// Volatility
	sb.WriteString("## Volatility\n\n")
	if len(r.Volatility) > 0 {
		sb.WriteString("| Symbol | Timeframe | State | Percentile | ATR | Notes |\n")
		sb.WriteString("|--------|-----------|-------|------------|-----|-------|\n")
		for _, row := range r.Volatility {
			v := row.Context
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s | %s |\n",
				row.Symbol, row.Timeframe, v.State, v.Percentile, ratio(v.ATR), v.Explanation))
		}
	} else {
		sb.WriteString("No volatility data available.\n")
	}
	sb.WriteString("\n")

	// Daily series
	sb.WriteString("## Daily Series\n\n")
	if len(r.Daily) > 0 {
		sb.WriteString("| Date | Realized | Unrealized | Equity | Cumulative |\n")
		sb.WriteString("|------|----------|------------|--------|------------|\n")
		for _, d := range r.Daily {
			equity := dollars(d.Equity)
			if d.Estimated {
				equity += "*"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				d.Key, dollars(d.Realized), dollars(d.Unrealized), equity, dollars(d.CumulativeRealized)))
		}
		sb.WriteString("\n\\* estimated: no equity snapshot yet\n")
	} else {
		sb.WriteString("No daily series requested.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
