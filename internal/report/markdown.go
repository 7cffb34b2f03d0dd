package report

import (
	"fmt"
	"strings"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/metrics"
)

// Markdown renders the full report as a Markdown document
func Markdown(m *contracts.ProcessedMetrics, periods []metrics.DrawdownPeriod) string {
	var sb strings.Builder

	title := m.StrategyName
	if title == "" {
		title = "Strategy"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if m.StrategyParams != "" {
		sb.WriteString(fmt.Sprintf("Params: `%s`\n\n", m.StrategyParams))
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", m.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Capital | %.2f |\n", m.FinalCapital()))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", m.TotalReturn*100))
	sb.WriteString(fmt.Sprintf("| Annual Return | %.2f%% |\n", m.AnnualReturn*100))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.2f |\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.2f%% |\n", m.MaxDrawdown*100))
	sb.WriteString(fmt.Sprintf("| Round Trips | %d |\n", m.RoundTrips()))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", m.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.2f |\n", m.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Win/Loss Ratio | %.2f |\n", m.WinLossRatio))
	sb.WriteString("\n")

	sb.WriteString("## Monthly Returns\n\n")
	if len(m.MonthlyReturns) > 0 {
		sb.WriteString("| Month | Return |\n")
		sb.WriteString("|-------|--------|\n")
		for _, mr := range m.MonthlyReturns {
			sb.WriteString(fmt.Sprintf("| %s | %.2f%% |\n", mr.Month, mr.Return*100))
		}
	} else {
		sb.WriteString("No closed round trips.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Drawdowns\n\n")
	if len(periods) > 0 {
		sb.WriteString("| Start | End | Depth | Duration | Recovery |\n")
		sb.WriteString("|-------|-----|-------|----------|----------|\n")
		for _, p := range periods {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f%% | %d | %s |\n",
				p.Start, p.End, p.Depth*100, p.Duration, recoveryLabel(p)))
		}
	} else {
		sb.WriteString("No drawdown periods.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	if len(m.Trades) > 0 {
		sb.WriteString("| # | Date | Type | Price | Size | P&L | Capital |\n")
		sb.WriteString("|---|------|------|-------|------|-----|---------|\n")
		for _, t := range m.Trades {
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %.4f | %.4f | %.2f | %.2f |\n",
				t.ID, t.Date, t.Type, t.EntryPrice, t.Size, t.PnL, t.RunningCapital))
		}
	} else {
		sb.WriteString("No trades.\n")
	}

	return sb.String()
}
