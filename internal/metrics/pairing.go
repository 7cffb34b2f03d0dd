package metrics

import (
	"math"

	"github.com/wonny/alphapulse/internal/contracts"
)

// roundTrip is one entry/exit pair with its numeric fields already parsed
type roundTrip struct {
	Index      int
	Entry      contracts.RawTrade
	Exit       contracts.RawTrade
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
}

// PnL is long (exit - entry) or short (entry - exit) times the entry quantity
func (rt roundTrip) PnL() float64 {
	if rt.Entry.Side == contracts.SideBuy {
		return (rt.ExitPrice - rt.EntryPrice) * rt.Quantity
	}
	return (rt.EntryPrice - rt.ExitPrice) * rt.Quantity
}

// pairRoundTrips walks the trades in fixed strides of two. A trailing trade
// without a partner is dropped. Every leg is parsed up front so a bad field
// fails the whole computation before any state is accumulated.
func pairRoundTrips(trades []contracts.RawTrade) ([]roundTrip, error) {
	n := len(trades) / 2
	trips := make([]roundTrip, 0, n)

	for i := 0; i < n; i++ {
		entry := trades[2*i]
		exit := trades[2*i+1]

		if !entry.Side.IsValid() {
			return nil, &contracts.FieldParseError{RoundTrip: i, Leg: contracts.LegEntry, Field: "side", Value: string(entry.Side)}
		}

		entryPrice, err := parsePositive(entry.Price, i, contracts.LegEntry, "price")
		if err != nil {
			return nil, err
		}
		quantity, err := parsePositive(entry.Quantity, i, contracts.LegEntry, "quantity")
		if err != nil {
			return nil, err
		}
		exitPrice, err := parsePositive(exit.Price, i, contracts.LegExit, "price")
		if err != nil {
			return nil, err
		}

		rt := roundTrip{
			Index:      i,
			Entry:      entry,
			Exit:       exit,
			EntryPrice: entryPrice,
			ExitPrice:  exitPrice,
			Quantity:   quantity,
		}
		if !isFinite(rt.PnL()) {
			return nil, &contracts.FieldParseError{RoundTrip: i, Leg: contracts.LegEntry, Field: "quantity", Value: entry.Quantity.String(), Err: errOverflow}
		}

		trips = append(trips, rt)
	}

	return trips, nil
}

func parsePositive(v contracts.NumericString, idx int, leg contracts.Leg, field string) (float64, error) {
	d, err := v.Decimal()
	if err != nil {
		return 0, &contracts.FieldParseError{RoundTrip: idx, Leg: leg, Field: field, Value: v.String(), Err: err}
	}
	if !d.IsPositive() {
		return 0, &contracts.FieldParseError{RoundTrip: idx, Leg: leg, Field: field, Value: v.String(), Err: errNotPositive}
	}

	f := d.InexactFloat64()
	if !isFinite(f) {
		return 0, &contracts.FieldParseError{RoundTrip: idx, Leg: leg, Field: field, Value: v.String(), Err: errOverflow}
	}
	// 1e-400 같은 값은 float64 로 0 이 됨
	if f <= 0 {
		return 0, &contracts.FieldParseError{RoundTrip: idx, Leg: leg, Field: field, Value: v.String(), Err: errNotPositive}
	}
	return f, nil
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}
