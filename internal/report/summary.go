package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/metrics"
	"github.com/wonny/alphapulse/internal/risk"
)

// JSON 형식으로 출력
func JSON(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// Summary renders the headline numbers as plain text
func Summary(m *contracts.ProcessedMetrics, periods []metrics.DrawdownPeriod) string {
	var sb strings.Builder

	title := m.StrategyName
	if title == "" {
		title = "Strategy"
	}
	sb.WriteString(fmt.Sprintf("=== %s ===\n", title))
	if m.StrategyParams != "" {
		sb.WriteString(fmt.Sprintf("Params: %s\n", m.StrategyParams))
	}
	sb.WriteString("\n")

	sb.WriteString("📈 Returns\n")
	sb.WriteString(fmt.Sprintf("  Initial Capital: %.2f\n", m.InitialCapital))
	sb.WriteString(fmt.Sprintf("  Final Capital: %.2f\n", m.FinalCapital()))
	sb.WriteString(fmt.Sprintf("  Total Return: %.2f%%\n", m.TotalReturn*100))
	sb.WriteString(fmt.Sprintf("  Annual Return: %.2f%%\n", m.AnnualReturn*100))
	sb.WriteString("\n")

	sb.WriteString("📊 Risk\n")
	sb.WriteString(fmt.Sprintf("  Sharpe Ratio: %.2f\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("  Max Drawdown: %.2f%%\n", m.MaxDrawdown*100))
	sb.WriteString("\n")

	sb.WriteString("🎯 Trading\n")
	sb.WriteString(fmt.Sprintf("  Round Trips: %d\n", m.RoundTrips()))
	sb.WriteString(fmt.Sprintf("  Win Rate: %.2f%%\n", m.WinRate*100))
	sb.WriteString(fmt.Sprintf("  Avg Profit: %.2f\n", m.AvgProfit))
	sb.WriteString(fmt.Sprintf("  Profit Factor: %.2f\n", m.ProfitFactor))
	sb.WriteString(fmt.Sprintf("  Win/Loss Ratio: %.2f\n", m.WinLossRatio))

	if len(periods) > 0 {
		sb.WriteString("\n⚠️ Worst Drawdowns\n")
		for _, p := range periods {
			sb.WriteString(fmt.Sprintf("  %s → %s: %.2f%% (%s)\n", p.Start, p.End, p.Depth*100, recoveryLabel(p)))
		}
	}

	return sb.String()
}

// ProjectionSummary renders the final projection band
func ProjectionSummary(p *risk.Projection) string {
	var sb strings.Builder

	sb.WriteString("🎲 Monte Carlo Projection\n")
	sb.WriteString(fmt.Sprintf("  Run ID: %s\n", p.RunID))
	sb.WriteString(fmt.Sprintf("  Simulations: %d (seed %d)\n", p.Config.Simulations, p.Config.Seed))
	sb.WriteString(fmt.Sprintf("  Mean Step Return: %.4f\n", p.MeanReturn))
	sb.WriteString(fmt.Sprintf("  Volatility: %.4f\n", p.Volatility))
	if last, ok := p.Final(); ok {
		sb.WriteString(fmt.Sprintf("  Final P10: %.2f\n", last.P10))
		sb.WriteString(fmt.Sprintf("  Final P50: %.2f\n", last.P50))
		sb.WriteString(fmt.Sprintf("  Final P90: %.2f\n", last.P90))
	}
	sb.WriteString(fmt.Sprintf("  VaR 95%%: %.2f%%\n", p.VaR95*100))
	sb.WriteString(fmt.Sprintf("  CVaR 95%%: %.2f%%\n", p.CVaR95*100))

	return sb.String()
}

func recoveryLabel(p metrics.DrawdownPeriod) string {
	if !p.Recovered() {
		return "not recovered"
	}
	return fmt.Sprintf("recovered in %d", p.Recovery)
}
