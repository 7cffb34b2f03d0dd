package settings

import (
	"fmt"
	"math"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if cfg.Meta.ProfileID == "" {
		return ValidationError{"meta.profile_id", "required"}
	}

	// === Metrics ===
	if !finite(cfg.Metrics.DrawdownThreshold) || cfg.Metrics.DrawdownThreshold <= 0 || cfg.Metrics.DrawdownThreshold >= 1 {
		return ValidationError{"metrics.drawdown_threshold", "must be in (0, 1)"}
	}
	if !finite(cfg.Metrics.AnnualizationPeriods) || cfg.Metrics.AnnualizationPeriods <= 0 {
		return ValidationError{"metrics.annualization_periods", "must be > 0"}
	}
	if !finite(cfg.Metrics.DaysPerYear) || cfg.Metrics.DaysPerYear <= 0 {
		return ValidationError{"metrics.days_per_year", "must be > 0"}
	}

	// === Drawdowns ===
	if cfg.Drawdowns.MaxPeriods <= 0 {
		return ValidationError{"drawdowns.max_periods", "must be > 0"}
	}

	// === Projection ===
	if cfg.Projection.Simulations <= 0 || cfg.Projection.Simulations > 100000 {
		return ValidationError{"projection.simulations", "must be in [1, 100000]"}
	}
	if !finite(cfg.Projection.NoiseWidth) || cfg.Projection.NoiseWidth <= 0 {
		return ValidationError{"projection.noise_width", "must be > 0"}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
