package metrics

import (
	"math"

	"github.com/wonny/alphapulse/internal/contracts"
)

// summary holds the scalar ratios derived from a finished ledger
type summary struct {
	TotalReturn  float64
	AnnualReturn float64
	SharpeRatio  float64
	AvgProfit    float64
	WinRate      float64
	ProfitFactor float64
	WinLossRatio float64
}

// summarize computes the ratios. Every degenerate denominator resolves to a
// fixed fallback instead of an error.
func summarize(l *ledger, trades []contracts.RawTrade, roundTrips int, opts Options) summary {
	var s summary
	if len(trades) == 0 {
		return s
	}

	s.TotalReturn = (l.runningCapital - l.initialCapital) / l.initialCapital
	s.AnnualReturn = annualize(s.TotalReturn, tradingDays(trades), opts.DaysPerYear)

	if roundTrips == 0 {
		return s
	}

	s.AvgProfit = l.totalPnL / float64(roundTrips)

	if decided := l.wins + l.losses; decided > 0 {
		s.WinRate = float64(l.wins) / float64(decided)
	}

	s.ProfitFactor = 1
	if l.lossAmount > 0 {
		s.ProfitFactor = l.winAmount / l.lossAmount
	}

	avgWin := 0.0
	if l.wins > 0 {
		avgWin = l.winAmount / float64(l.wins)
	}
	// 손실 거래가 없으면 avgLoss=1 → 비율이 avgWin과 같아짐 (기존 동작 유지)
	avgLoss := 1.0
	if l.losses > 0 {
		avgLoss = l.lossAmount / float64(l.losses)
	}
	s.WinLossRatio = avgWin / avgLoss

	s.SharpeRatio = sharpe(l.returns, opts.AnnualizationPeriods)

	return s
}

// tradingDays is the calendar span between the first and last raw trade,
// rounded up. Input order is trusted, so an unordered list can go negative.
func tradingDays(trades []contracts.RawTrade) float64 {
	first := trades[0].Time
	last := trades[len(trades)-1].Time
	return math.Ceil(float64(last-first) / msPerDay)
}

func annualize(totalReturn, days, daysPerYear float64) float64 {
	if days == 0 {
		return 0
	}
	return totalReturn * (daysPerYear / days)
}

// sharpe uses the population standard deviation of per-trade returns and a
// fixed annualization factor regardless of trade frequency
func sharpe(returns []float64, periods float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	// 편차를 최대 편차로 나눠서 제곱 (큰 수익률에서 overflow 방지)
	var scale float64
	for _, r := range returns {
		scale = math.Max(scale, math.Abs(r-mean))
	}
	if scale == 0 {
		return 0
	}
	if !isFinite(scale) {
		return math.NaN()
	}

	var variance float64
	for _, r := range returns {
		diff := (r - mean) / scale
		variance += diff * diff
	}
	variance /= float64(len(returns))

	stdDev := math.Sqrt(variance) * scale
	if stdDev <= 0 {
		return 0
	}
	return (mean / stdDev) * math.Sqrt(periods)
}
