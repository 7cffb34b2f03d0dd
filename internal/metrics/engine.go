package metrics

import (
	"math"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/pkg/logger"
)

// Engine turns a raw execution list into ProcessedMetrics
// ⭐ SSOT: 성과 지표 계산 로직은 여기서만
type Engine struct {
	opts   Options
	logger *logger.Logger
}

// NewEngine creates a metrics engine. A nil logger discards output.
func NewEngine(opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		opts:   opts.withDefaults(),
		logger: log,
	}
}

// Options returns the formula constants in use
func (e *Engine) Options() Options {
	return e.opts
}

// Compute runs the full pipeline with default options
func Compute(trades []contracts.RawTrade, initialCapital float64) (*contracts.ProcessedMetrics, error) {
	return NewEngine(DefaultOptions(), nil).Compute(trades, initialCapital)
}

// Compute pairs trades into round trips and derives every metric and series.
//
// Trades are paired by position (0,1), (2,3), ... and a trailing odd trade is
// ignored. Empty input is valid and yields zero scalars with empty series.
// A price, quantity or side that cannot be used fails the call with a
// *contracts.FieldParseError and no partial result. Values whose P&L leaves
// the float64 range fail the same way, or with contracts.ErrNumericOverflow
// when only an aggregate overflows.
func (e *Engine) Compute(trades []contracts.RawTrade, initialCapital float64) (*contracts.ProcessedMetrics, error) {
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, contracts.ErrInvalidCapital
	}

	trips, err := pairRoundTrips(trades)
	if err != nil {
		return nil, err
	}

	m := &contracts.ProcessedMetrics{
		InitialCapital: initialCapital,
		Trades:         make([]contracts.ProcessedTrade, 0, len(trips)),
		EquityCurve:    make([]contracts.EquityPoint, 0, len(trips)+1),
	}

	if len(trades) > 0 {
		m.EquityCurve = append(m.EquityCurve, contracts.EquityPoint{
			Date:  dateLabel(trades[0].Timestamp()),
			Value: initialCapital,
		})
	}

	l := newLedger(initialCapital)
	for _, rt := range trips {
		pt := l.apply(rt)
		if !isFinite(pt.RunningCapital) {
			return nil, &contracts.FieldParseError{RoundTrip: rt.Index, Leg: contracts.LegEntry, Field: "quantity", Value: rt.Entry.Quantity.String(), Err: errOverflow}
		}
		m.Trades = append(m.Trades, pt)
		m.EquityCurve = append(m.EquityCurve, contracts.EquityPoint{
			Date:  pt.Date,
			Value: pt.RunningCapital,
		})
	}

	m.MaxDrawdown = l.maxDrawdown
	m.MonthlyReturns = l.monthlyReturns()
	m.Drawdowns = drawdownPoints(m.EquityCurve, e.opts.DrawdownThreshold)
	m.TradeClusters = tradeClusters(m.Trades)

	s := summarize(l, trades, len(trips), e.opts)
	m.TotalReturn = s.TotalReturn
	m.AnnualReturn = s.AnnualReturn
	m.SharpeRatio = s.SharpeRatio
	m.AvgProfit = s.AvgProfit
	m.WinRate = s.WinRate
	m.ProfitFactor = s.ProfitFactor
	m.WinLossRatio = s.WinLossRatio

	if !allFinite(m) {
		return nil, contracts.ErrNumericOverflow
	}

	e.logger.WithFields(map[string]interface{}{
		"trades":       len(trades),
		"round_trips":  len(trips),
		"dropped":      len(trades) % 2,
		"total_return": m.TotalReturn,
		"sharpe":       m.SharpeRatio,
		"max_drawdown": m.MaxDrawdown,
	}).Debug("Metrics computed")

	return m, nil
}

// allFinite checks the scalars and the series that aggregate P&L
func allFinite(m *contracts.ProcessedMetrics) bool {
	for _, v := range []float64{
		m.TotalReturn, m.AnnualReturn, m.SharpeRatio, m.MaxDrawdown,
		m.AvgProfit, m.WinRate, m.ProfitFactor, m.WinLossRatio,
	} {
		if !isFinite(v) {
			return false
		}
	}
	for _, mr := range m.MonthlyReturns {
		if !isFinite(mr.Return) {
			return false
		}
	}
	return true
}
