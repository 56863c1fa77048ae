package reporting

import (
	"fmt"
	"strings"
)

// RenderPositionsCSV renders position rows as CSV string.
func RenderPositionsCSV(rows []PositionRow) string {
	var sb strings.Builder

	sb.WriteString("position_id,ticker,status,strategy,direction,target_entry,stop_loss,take_profit,created_at,updated_at\n")
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%.2f,%.2f,%.2f,%d,%d\n",
			p.PositionID,
			p.Ticker,
			p.Status,
			p.Strategy,
			p.Direction,
			p.TargetEntry,
			p.StopLoss,
			p.TakeProfit,
			p.CreatedAt,
			p.UpdatedAt,
		))
	}

	return sb.String()
}

// RenderRankingsCSV renders ranking rows as CSV string. The params
// column is quoted because the encoded record contains commas.
func RenderRankingsCSV(rows []RankingRow) string {
	var sb strings.Builder

	sb.WriteString("ticker,rank,strategy,sharpe_ratio,total_return,trade_count,max_drawdown,optimized_at,params\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%.6f,%.6f,%d,%.6f,%d,%s\n",
			r.Ticker,
			r.Rank,
			r.Strategy,
			r.SharpeRatio,
			r.TotalReturn,
			r.TradeCount,
			r.MaxDrawdown,
			r.OptimizedAt.UnixMilli(),
			csvQuote(r.Params),
		))
	}

	return sb.String()
}

// csvQuote wraps a field in double quotes, doubling embedded quotes.
func csvQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
