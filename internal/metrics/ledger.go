package metrics

import (
	"math"

	"github.com/wonny/alphapulse/internal/contracts"
)

// ledger is the accumulator threaded through one computation.
// A fresh ledger is created per call; nothing is shared between calls.
type ledger struct {
	initialCapital float64
	runningCapital float64
	runningPnL     float64
	peakCapital    float64
	maxDrawdown    float64

	totalPnL   float64
	wins       int
	losses     int
	winAmount  float64
	lossAmount float64

	// 월별 손익 (처음 등장한 순서 유지)
	months     []string
	monthlyPnL map[string]float64

	returns []float64
}

func newLedger(initialCapital float64) *ledger {
	return &ledger{
		initialCapital: initialCapital,
		runningCapital: initialCapital,
		peakCapital:    initialCapital,
		monthlyPnL:     make(map[string]float64),
	}
}

// apply folds one round trip into the ledger and returns its trade record
func (l *ledger) apply(rt roundTrip) contracts.ProcessedTrade {
	pnl := rt.PnL()

	l.runningPnL += pnl
	l.runningCapital += pnl
	l.totalPnL += pnl

	if pnl > 0 {
		l.wins++
		l.winAmount += pnl
	} else if pnl < 0 {
		l.losses++
		l.lossAmount += math.Abs(pnl)
	}

	if l.runningCapital > l.peakCapital {
		l.peakCapital = l.runningCapital
	} else {
		dd := (l.peakCapital - l.runningCapital) / l.peakCapital
		if dd > l.maxDrawdown {
			l.maxDrawdown = dd
		}
	}

	exitTime := rt.Exit.Timestamp()
	month := monthLabel(exitTime)
	if _, seen := l.monthlyPnL[month]; !seen {
		l.months = append(l.months, month)
	}
	l.monthlyPnL[month] += pnl

	l.returns = append(l.returns, pnl/l.initialCapital)

	return contracts.ProcessedTrade{
		ID:             rt.Index + 1,
		Date:           dateLabel(exitTime),
		Type:           rt.Entry.Side,
		EntryPrice:     rt.EntryPrice,
		Size:           rt.Quantity,
		PnL:            pnl,
		RunningPnL:     l.runningPnL,
		RunningCapital: l.runningCapital,
	}
}

// monthlyReturns divides each month's P&L by initial capital (not compounded)
func (l *ledger) monthlyReturns() []contracts.MonthlyReturn {
	out := make([]contracts.MonthlyReturn, 0, len(l.months))
	for _, month := range l.months {
		out = append(out, contracts.MonthlyReturn{
			Month:  month,
			Return: l.monthlyPnL[month] / l.initialCapital,
		})
	}
	return out
}
