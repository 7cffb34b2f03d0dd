package metrics

import (
	"time"

	"github.com/wonny/alphapulse/internal/contracts"
)

// DateRange is an inclusive window of calendar days. A nil bound is open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether neither bound is set
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// contains compares on UTC calendar days
func (r DateRange) contains(date string) bool {
	if r.Start != nil && date < dateLabel(*r.Start) {
		return false
	}
	if r.End != nil && date > dateLabel(*r.End) {
		return false
	}
	return true
}

// FilterByDateRange narrows the date-keyed series of already computed metrics.
// Scalars are not recomputed. Monthly returns are compared by the first day of
// their month; labels that do not parse are kept. Trade clusters are filtered
// with the same mask as trades so the two stay index-aligned.
func FilterByDateRange(m *contracts.ProcessedMetrics, r DateRange) *contracts.ProcessedMetrics {
	if m == nil {
		return nil
	}
	out := m.Clone()
	if r.IsZero() {
		return out
	}

	out.EquityCurve = out.EquityCurve[:0]
	for _, p := range m.EquityCurve {
		if r.contains(p.Date) {
			out.EquityCurve = append(out.EquityCurve, p)
		}
	}

	out.Drawdowns = out.Drawdowns[:0]
	for _, d := range m.Drawdowns {
		if r.contains(d.Name) {
			out.Drawdowns = append(out.Drawdowns, d)
		}
	}

	out.Trades = out.Trades[:0]
	out.TradeClusters = out.TradeClusters[:0]
	for i, t := range m.Trades {
		if !r.contains(t.Date) {
			continue
		}
		out.Trades = append(out.Trades, t)
		if i < len(m.TradeClusters) {
			out.TradeClusters = append(out.TradeClusters, m.TradeClusters[i])
		}
	}

	out.MonthlyReturns = out.MonthlyReturns[:0]
	for _, mr := range m.MonthlyReturns {
		first, err := time.Parse(monthLayout, mr.Month)
		if err != nil || r.contains(dateLabel(first)) {
			out.MonthlyReturns = append(out.MonthlyReturns, mr)
		}
	}

	return out
}
