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
	sb.WriteString("# Position Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Positions: %d total | %d active\n\n",
		r.Lifecycle.TotalCount(), r.Lifecycle.ActiveCount()))

	// Lifecycle summary
	sb.WriteString("## Lifecycle\n\n")
	sb.WriteString("| State | Count |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| SCREENED | %d |\n", r.Lifecycle.Screened))
	sb.WriteString(fmt.Sprintf("| OPTIMIZED | %d |\n", r.Lifecycle.Optimized))
	sb.WriteString(fmt.Sprintf("| DISPATCHED | %d |\n", r.Lifecycle.Dispatched))
	sb.WriteString(fmt.Sprintf("| OPEN | %d |\n", r.Lifecycle.Open))
	sb.WriteString(fmt.Sprintf("| CANCELLED | %d |\n", r.Lifecycle.Cancelled))
	sb.WriteString(fmt.Sprintf("| CLOSED | %d |\n", r.Lifecycle.Closed))
	sb.WriteString("\n")

	// Positions
	sb.WriteString("## Positions\n\n")
	if len(r.Positions) > 0 {
		sb.WriteString("| Ticker | Status | Strategy | Direction | Entry | Stop | Take | Updated |\n")
		sb.WriteString("|--------|--------|----------|-----------|-------|------|------|--------|\n")
		for _, p := range r.Positions {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f | %.2f | %.2f | %s |\n",
				p.Ticker, p.Status, orDash(p.Strategy), p.Direction,
				p.TargetEntry, p.StopLoss, p.TakeProfit,
				time.UnixMilli(p.UpdatedAt).UTC().Format(time.RFC3339)))
		}
	} else {
		sb.WriteString("No positions tracked.\n")
	}
	sb.WriteString("\n")

	// Rankings
	sb.WriteString("## Strategy Rankings\n\n")
	if len(r.Rankings) > 0 {
		sb.WriteString("| Ticker | Rank | Strategy | Sharpe | Return | Trades | MaxDD | Params |\n")
		sb.WriteString("|--------|------|----------|--------|--------|--------|-------|--------|\n")
		for _, row := range r.Rankings {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s | %.4f | %.4f | %d | %.4f | `%s` |\n",
				row.Ticker, row.Rank, row.Strategy,
				row.SharpeRatio, row.TotalReturn, row.TradeCount, row.MaxDrawdown,
				row.Params))
		}
	} else {
		sb.WriteString("No optimization results available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
