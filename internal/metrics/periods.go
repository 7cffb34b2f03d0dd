package metrics

import (
	"sort"

	"github.com/wonny/alphapulse/internal/contracts"
)

// DefaultMaxDrawdowns is how many periods the waterfall view shows
const DefaultMaxDrawdowns = 5

// DrawdownPeriod is one contiguous stretch below the high-water mark
type DrawdownPeriod struct {
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Duration int     `json:"duration"` // equity points
	Depth    float64 `json:"depth"`    // negative fraction, deepest point of the period
	Recovery int     `json:"recovery"` // equity points until a new high, 0 = not recovered
}

// Recovered reports whether the curve made a new high after the period
func (p DrawdownPeriod) Recovered() bool {
	return p.Recovery > 0
}

// DrawdownPeriods groups consecutive points at or below the running peak into
// periods and returns the deepest max of them. Unlike the per-point drawdown
// series there is no threshold here; a flat point opens a zero-depth period.
func DrawdownPeriods(curve []contracts.EquityPoint, max int) []DrawdownPeriod {
	if max <= 0 {
		max = DefaultMaxDrawdowns
	}

	periods := []DrawdownPeriod{}
	if len(curve) == 0 {
		return periods
	}

	var (
		inDrawdown bool
		peak       = curve[0].Value
		start      string
		startIdx   int
		depth      float64
	)

	for i := 1; i < len(curve); i++ {
		p := curve[i]

		if p.Value > peak {
			peak = p.Value
			if inDrawdown {
				periods = append(periods, DrawdownPeriod{
					Start:    start,
					End:      curve[i-1].Date,
					Duration: i - startIdx,
					Depth:    depth,
					Recovery: i - startIdx,
				})
				inDrawdown = false
				depth = 0
			}
			continue
		}

		dd := (p.Value - peak) / peak
		if !inDrawdown {
			inDrawdown = true
			start = p.Date
			startIdx = i
			depth = dd
		} else if dd < depth {
			depth = dd
		}
	}

	if inDrawdown {
		periods = append(periods, DrawdownPeriod{
			Start:    start,
			End:      curve[len(curve)-1].Date,
			Duration: len(curve) - startIdx,
			Depth:    depth,
		})
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].Depth < periods[j].Depth
	})

	if len(periods) > max {
		periods = periods[:max]
	}
	return periods
}
