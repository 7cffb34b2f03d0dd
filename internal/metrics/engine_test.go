package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/alphapulse/internal/contracts"
)

const eps = 1e-9

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func at(days int) int64 {
	return day0.AddDate(0, 0, days).UnixMilli()
}

func trade(side contracts.Side, qty, price string, days int) contracts.RawTrade {
	return contracts.RawTrade{
		Quantity: contracts.NumericString(qty),
		Side:     side,
		Price:    contracts.NumericString(price),
		Time:     at(days),
	}
}

func TestCompute_SingleWinningRoundTrip(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "110", 1),
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)

	require.Len(t, m.Trades, 1)
	pt := m.Trades[0]
	assert.Equal(t, 1, pt.ID)
	assert.Equal(t, "2024-01-03", pt.Date)
	assert.Equal(t, contracts.SideBuy, pt.Type)
	assert.InDelta(t, 100, pt.EntryPrice, eps)
	assert.InDelta(t, 1, pt.Size, eps)
	assert.InDelta(t, 10, pt.PnL, eps)
	assert.InDelta(t, 10, pt.RunningPnL, eps)
	assert.InDelta(t, 1010, pt.RunningCapital, eps)

	assert.InDelta(t, 0.01, m.TotalReturn, eps)
	assert.InDelta(t, 0.01*365, m.AnnualReturn, eps)
	assert.InDelta(t, 10, m.AvgProfit, eps)
	assert.InDelta(t, 1, m.WinRate, eps)
	assert.InDelta(t, 1, m.ProfitFactor, eps, "no losses falls back to 1")
	assert.InDelta(t, 10, m.WinLossRatio, eps, "avg loss falls back to 1")
	assert.Zero(t, m.SharpeRatio, "single return has zero deviation")
	assert.Zero(t, m.MaxDrawdown)

	assert.Equal(t, []contracts.EquityPoint{
		{Date: "2024-01-02", Value: 1000},
		{Date: "2024-01-03", Value: 1010},
	}, m.EquityCurve)
	assert.Empty(t, m.Drawdowns)
	assert.NotNil(t, m.Drawdowns)
}

func TestCompute_SingleLosingRoundTrip(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "90", 1),
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)

	assert.InDelta(t, -10, m.Trades[0].PnL, eps)
	assert.InDelta(t, 0.01, m.MaxDrawdown, eps)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.WinLossRatio)
	assert.Empty(t, m.Drawdowns, "1% is under the 2% threshold")

	require.Len(t, m.TradeClusters, 1)
	assert.Equal(t, contracts.ClusterLoss, m.TradeClusters[0].Cluster)
	assert.InDelta(t, -0.1, m.TradeClusters[0].Y, eps)
	assert.InDelta(t, 100, m.TradeClusters[0].Z, eps)
}

func TestCompute_UnpairedTrade(t *testing.T) {
	trades := []contracts.RawTrade{trade(contracts.SideBuy, "1", "100", 0)}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)

	assert.Empty(t, m.Trades)
	assert.Equal(t, []contracts.EquityPoint{{Date: "2024-01-02", Value: 1000}}, m.EquityCurve)
	assert.Zero(t, m.TotalReturn)
	assert.Zero(t, m.AnnualReturn)
	assert.Zero(t, m.SharpeRatio)
	assert.Zero(t, m.AvgProfit)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.WinLossRatio)
}

func TestCompute_Empty(t *testing.T) {
	for _, trades := range [][]contracts.RawTrade{nil, {}} {
		m, err := Compute(trades, 5000)
		require.NoError(t, err)

		assert.Equal(t, 5000.0, m.InitialCapital)
		assert.Zero(t, m.TotalReturn)
		assert.Zero(t, m.ProfitFactor)
		assert.Zero(t, m.MaxDrawdown)
		assert.NotNil(t, m.Trades)
		assert.Empty(t, m.Trades)
		assert.NotNil(t, m.EquityCurve)
		assert.Empty(t, m.EquityCurve)
		assert.Empty(t, m.MonthlyReturns)
		assert.Empty(t, m.Drawdowns)
		assert.Empty(t, m.TradeClusters)
		assert.Equal(t, 5000.0, m.FinalCapital())
	}
}

func TestCompute_MonthlyReturnsSplitByExitMonth(t *testing.T) {
	jan := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	trades := []contracts.RawTrade{
		{Side: contracts.SideBuy, Quantity: "2", Price: "50", Time: jan.UnixMilli()},
		{Side: contracts.SideSell, Quantity: "2", Price: "60", Time: jan.Add(time.Hour).UnixMilli()},
		{Side: contracts.SideSell, Quantity: "1", Price: "100", Time: feb.UnixMilli()},
		{Side: contracts.SideBuy, Quantity: "1", Price: "105", Time: feb.Add(time.Hour).UnixMilli()},
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)

	require.Equal(t, []contracts.MonthlyReturn{
		{Month: "Jan 2024", Return: 0.02},
		{Month: "Feb 2024", Return: -0.005},
	}, roundMonthly(m.MonthlyReturns))

	assert.InDelta(t, 20, m.Trades[0].PnL, eps)
	assert.InDelta(t, -5, m.Trades[1].PnL, eps, "short loses when price rises")
	assert.Equal(t, contracts.SideSell, m.Trades[1].Type)
}

func TestCompute_DrawdownThreshold(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "200", 1), // +100 → 1100
		trade(contracts.SideBuy, "1", "100", 2),
		trade(contracts.SideSell, "1", "50", 3), // -50 → 1050, dd 4.5%
		trade(contracts.SideBuy, "1", "100", 4),
		trade(contracts.SideSell, "1", "90", 5), // -10 → 1040, dd 5.5%
		trade(contracts.SideBuy, "1", "100", 6),
		trade(contracts.SideSell, "1", "155", 7), // +55 → 1095, dd 0.45%
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)

	require.Len(t, m.Drawdowns, 2, "contiguous declines are not merged")
	assert.Equal(t, "2024-01-05", m.Drawdowns[0].Name)
	assert.InDelta(t, -50.0/1100, m.Drawdowns[0].Value, eps)
	assert.Equal(t, "2024-01-07", m.Drawdowns[1].Name)
	assert.InDelta(t, -60.0/1100, m.Drawdowns[1].Value, eps)
	assert.InDelta(t, 60.0/1100, m.MaxDrawdown, eps)

	for _, d := range m.Drawdowns {
		assert.Less(t, d.Value, 0.0)
		assert.GreaterOrEqual(t, d.Value, -m.MaxDrawdown-eps)
	}
}

func TestCompute_CustomThreshold(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "90", 1),
	}

	e := NewEngine(Options{DrawdownThreshold: 0.005}, nil)
	m, err := e.Compute(trades, 1000)
	require.NoError(t, err)

	require.Len(t, m.Drawdowns, 1)
	assert.InDelta(t, -0.01, m.Drawdowns[0].Value, eps)
	assert.Equal(t, 252.0, e.Options().AnnualizationPeriods)
}

func TestCompute_Invariants(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "3", "10.5", 0),
		trade(contracts.SideSell, "3", "12", 3),
		trade(contracts.SideSell, "2", "40", 5),
		trade(contracts.SideBuy, "2", "41.25", 9),
		trade(contracts.SideBuy, "1", "7", 12),
		trade(contracts.SideSell, "1", "7", 13),
		trade(contracts.SideBuy, "5", "3", 20),
		trade(contracts.SideSell, "5", "2.2", 40),
		trade(contracts.SideBuy, "1", "99", 41), // dropped
	}
	const capital = 2500.0

	m, err := Compute(trades, capital)
	require.NoError(t, err)

	require.Len(t, m.Trades, 4)
	assert.Len(t, m.EquityCurve, len(m.Trades)+1)
	assert.Len(t, m.TradeClusters, len(m.Trades))

	var sum float64
	var wins, losses, flat int
	for i, pt := range m.Trades {
		sum += pt.PnL
		assert.Equal(t, i+1, pt.ID)
		assert.InDelta(t, capital+sum, pt.RunningCapital, eps)
		assert.InDelta(t, sum, pt.RunningPnL, eps)
		assert.Equal(t, float64(i%5), m.TradeClusters[i].X)

		switch {
		case pt.PnL > 0:
			wins++
			assert.Equal(t, contracts.ClusterWin, m.TradeClusters[i].Cluster)
		case pt.PnL < 0:
			losses++
			assert.Equal(t, contracts.ClusterLoss, m.TradeClusters[i].Cluster)
		default:
			flat++
			assert.Equal(t, contracts.ClusterBreakeven, m.TradeClusters[i].Cluster)
		}
	}
	assert.Equal(t, len(m.Trades), wins+losses+flat)
	assert.Equal(t, 1, flat)
	assert.InDelta(t, float64(wins)/float64(wins+losses), m.WinRate, eps)
	assert.InDelta(t, (m.FinalCapital()-capital)/capital, m.TotalReturn, eps)
	assert.GreaterOrEqual(t, m.MaxDrawdown, 0.0)
	assert.LessOrEqual(t, m.MaxDrawdown, 1.0)

	var monthly float64
	for _, mr := range m.MonthlyReturns {
		monthly += mr.Return
	}
	assert.InDelta(t, sum/capital, monthly, eps)
}

func TestCompute_Idempotent(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "120", 1),
		trade(contracts.SideBuy, "1", "100", 2),
		trade(contracts.SideSell, "1", "80", 3),
	}

	e := NewEngine(DefaultOptions(), nil)
	first, err := e.Compute(trades, 1000)
	require.NoError(t, err)
	second, err := e.Compute(trades, 1000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCompute_SharpeUsesPopulationDeviation(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "130", 1), // +30 → 0.03
		trade(contracts.SideBuy, "1", "100", 2),
		trade(contracts.SideSell, "1", "90", 3), // -10 → -0.01
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)

	// mean 0.01, population std 0.02
	assert.InDelta(t, 0.5*math.Sqrt(252), m.SharpeRatio, 1e-6)
	assert.InDelta(t, 3, m.ProfitFactor, eps)
	assert.InDelta(t, 3, m.WinLossRatio, eps)
	assert.InDelta(t, 10, m.AvgProfit, eps)
}

func TestCompute_InvalidCapital(t *testing.T) {
	for _, c := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Compute(nil, c)
		assert.ErrorIs(t, err, contracts.ErrInvalidCapital, "capital %v", c)
	}
}

func TestCompute_FieldParseErrors(t *testing.T) {
	tests := []struct {
		name      string
		trades    []contracts.RawTrade
		wantTrip  int
		wantLeg   contracts.Leg
		wantField string
	}{
		{
			name: "entry price not numeric",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1", "abc", 0),
				trade(contracts.SideSell, "1", "110", 1),
			},
			wantLeg:   contracts.LegEntry,
			wantField: "price",
		},
		{
			name: "zero quantity",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "0", "100", 0),
				trade(contracts.SideSell, "0", "110", 1),
			},
			wantLeg:   contracts.LegEntry,
			wantField: "quantity",
		},
		{
			name: "negative exit price in second round trip",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1", "100", 0),
				trade(contracts.SideSell, "1", "110", 1),
				trade(contracts.SideBuy, "1", "100", 2),
				trade(contracts.SideSell, "1", "-5", 3),
			},
			wantTrip:  1,
			wantLeg:   contracts.LegExit,
			wantField: "price",
		},
		{
			name: "unknown entry side",
			trades: []contracts.RawTrade{
				trade("hold", "1", "100", 0),
				trade(contracts.SideSell, "1", "110", 1),
			},
			wantLeg:   contracts.LegEntry,
			wantField: "side",
		},
		{
			name: "entry price beyond float64 range",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1", "1e400", 0),
				trade(contracts.SideSell, "1", "1e400", 1),
			},
			wantLeg:   contracts.LegEntry,
			wantField: "price",
		},
		{
			name: "exit price beyond float64 range",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1", "100", 0),
				trade(contracts.SideSell, "1", "1e400", 1),
			},
			wantLeg:   contracts.LegExit,
			wantField: "price",
		},
		{
			name: "price underflows to zero",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1", "1e-400", 0),
				trade(contracts.SideSell, "1", "110", 1),
			},
			wantLeg:   contracts.LegEntry,
			wantField: "price",
		},
		{
			name: "pnl overflows",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1e300", "1", 0),
				trade(contracts.SideSell, "1e300", "1e300", 1),
			},
			wantLeg:   contracts.LegEntry,
			wantField: "quantity",
		},
		{
			name: "running capital overflows",
			trades: []contracts.RawTrade{
				trade(contracts.SideBuy, "1", "1", 0),
				trade(contracts.SideSell, "1", "1.7e308", 1),
				trade(contracts.SideBuy, "1", "1", 2),
				trade(contracts.SideSell, "1", "1.7e308", 3),
			},
			wantTrip:  1,
			wantLeg:   contracts.LegEntry,
			wantField: "quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compute(tt.trades, 1000)
			require.Error(t, err)
			assert.Nil(t, m)

			var fpe *contracts.FieldParseError
			require.True(t, errors.As(err, &fpe))
			assert.Equal(t, tt.wantTrip, fpe.RoundTrip)
			assert.Equal(t, tt.wantLeg, fpe.Leg)
			assert.Equal(t, tt.wantField, fpe.Field)
			assert.True(t, contracts.IsInputError(err))
		})
	}
}

func TestCompute_UnpairedBadTradeIgnored(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "110", 1),
		trade(contracts.SideBuy, "x", "y", 2),
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)
	assert.Len(t, m.Trades, 1)
}

func TestCompute_AnnualReturnUsesRawTradeSpan(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 0),
		trade(contracts.SideSell, "1", "110", 10),
		trade(contracts.SideBuy, "1", "100", 73), // unpaired, still extends the span
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.01*(365.0/73), m.AnnualReturn, eps)
}

func TestCompute_AggregateOverflow(t *testing.T) {
	// running capital stays finite but the summed wins do not
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "1", 0),
		trade(contracts.SideSell, "1", "1.7e308", 1),
		trade(contracts.SideBuy, "1", "1.7e308", 2),
		trade(contracts.SideSell, "1", "1", 3),
		trade(contracts.SideBuy, "1", "1", 4),
		trade(contracts.SideSell, "1", "1.7e308", 5),
	}

	m, err := Compute(trades, 1000)
	require.ErrorIs(t, err, contracts.ErrNumericOverflow)
	assert.Nil(t, m)
	assert.True(t, contracts.IsInputError(err))
}

func TestCompute_SameTimestampKeepsAnnualReturnZero(t *testing.T) {
	trades := []contracts.RawTrade{
		trade(contracts.SideBuy, "1", "100", 3),
		trade(contracts.SideSell, "1", "110", 3),
	}

	m, err := Compute(trades, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, m.TotalReturn, eps)
	assert.Equal(t, 0.0, m.AnnualReturn)
	assert.False(t, math.IsInf(m.AnnualReturn, 0))
}

func roundMonthly(in []contracts.MonthlyReturn) []contracts.MonthlyReturn {
	out := make([]contracts.MonthlyReturn, len(in))
	for i, mr := range in {
		out[i] = contracts.MonthlyReturn{Month: mr.Month, Return: math.Round(mr.Return*1e9) / 1e9}
	}
	return out
}
