package metrics

// Options holds the constants of the metric formulas
type Options struct {
	// DrawdownThreshold is the decline from peak above which an equity
	// point is reported as a drawdown (0.02 = 2%)
	DrawdownThreshold float64 `json:"drawdown_threshold" yaml:"drawdown_threshold"`

	// AnnualizationPeriods scales the per-trade Sharpe ratio
	AnnualizationPeriods float64 `json:"annualization_periods" yaml:"annualization_periods"`

	// DaysPerYear converts total return into annual return
	DaysPerYear float64 `json:"days_per_year" yaml:"days_per_year"`
}

// DefaultOptions returns the standard formula constants
func DefaultOptions() Options {
	return Options{
		DrawdownThreshold:    0.02,
		AnnualizationPeriods: 252,
		DaysPerYear:          365,
	}
}

// withDefaults fills zero fields from DefaultOptions
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DrawdownThreshold <= 0 {
		o.DrawdownThreshold = def.DrawdownThreshold
	}
	if o.AnnualizationPeriods <= 0 {
		o.AnnualizationPeriods = def.AnnualizationPeriods
	}
	if o.DaysPerYear <= 0 {
		o.DaysPerYear = def.DaysPerYear
	}
	return o
}
