package reporting

import (
	"fmt"
	"strings"

	"equity-lab/internal/domain"
)

// RenderDailyCSV renders a daily series as CSV string.
func RenderDailyCSV(items []domain.DailySeriesItem) string {
	var sb strings.Builder

	// Header
	sb.WriteString("date,realized,unrealized,equity,cumulative_realized,estimated\n")

	// Rows
	for _, it := range items {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%t\n",
			it.Key,
			money(it.Realized),
			money(it.Unrealized),
			money(it.Equity),
			money(it.CumulativeRealized),
			it.Estimated,
		))
	}

	return sb.String()
}
