package metrics

import (
	"errors"
	"math"
	"time"

	"github.com/wonny/alphapulse/internal/contracts"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "Jan 2006"

	msPerDay = 24 * 60 * 60 * 1000
)

var (
	errNotPositive = errors.New("must be greater than zero")
	errOverflow    = errors.New("out of float64 range")
)

func dateLabel(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func monthLabel(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// drawdownPoints rescans the equity curve against its running peak and
// emits every point deeper than threshold. Contiguous declines are not merged.
func drawdownPoints(curve []contracts.EquityPoint, threshold float64) []contracts.DrawdownPoint {
	out := []contracts.DrawdownPoint{}
	if len(curve) < 2 {
		return out
	}

	peak := curve[0].Value
	for _, p := range curve {
		if p.Value > peak {
			peak = p.Value
			continue
		}

		dd := (peak - p.Value) / peak
		if dd > threshold {
			out = append(out, contracts.DrawdownPoint{Name: p.Date, Value: -dd})
		}
	}

	return out
}

// tradeClusters buckets round trips by P&L sign. x is a fixed index-based
// holding-period proxy, not a measured duration.
func tradeClusters(trades []contracts.ProcessedTrade) []contracts.TradeCluster {
	out := make([]contracts.TradeCluster, 0, len(trades))
	for i, t := range trades {
		cluster := contracts.ClusterBreakeven
		if t.PnL > 0 {
			cluster = contracts.ClusterWin
		} else if t.PnL < 0 {
			cluster = contracts.ClusterLoss
		}

		out = append(out, contracts.TradeCluster{
			X:       float64(i % 5),
			Y:       t.PnL / t.EntryPrice,
			Z:       math.Abs(t.PnL) * 10,
			Cluster: cluster,
		})
	}
	return out
}
