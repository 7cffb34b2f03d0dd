package settings

import (
	"github.com/wonny/alphapulse/internal/metrics"
	"github.com/wonny/alphapulse/internal/risk"
)

// Config는 분석 파이프라인의 전체 설정
// ⭐ SSOT: 지표 공식 상수는 이 파일 하나로 관리 (해시로 리포트에 기록)
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Metrics    Metrics    `yaml:"metrics" json:"metrics"`
	Drawdowns  Drawdowns  `yaml:"drawdowns" json:"drawdowns"`
	Projection Projection `yaml:"projection" json:"projection"`
}

// Meta identifies the settings profile
type Meta struct {
	ProfileID string `yaml:"profile_id" json:"profile_id"`
	Version   string `yaml:"version" json:"version"`
}

// Metrics holds the formula constants
type Metrics struct {
	DrawdownThreshold    float64 `yaml:"drawdown_threshold" json:"drawdown_threshold"`       // 0.02 = 2%
	AnnualizationPeriods float64 `yaml:"annualization_periods" json:"annualization_periods"` // Sharpe sqrt factor
	DaysPerYear          float64 `yaml:"days_per_year" json:"days_per_year"`
}

// Drawdowns controls the waterfall view
type Drawdowns struct {
	MaxPeriods int `yaml:"max_periods" json:"max_periods"`
}

// Projection controls the Monte Carlo projection
type Projection struct {
	Simulations int     `yaml:"simulations" json:"simulations"`
	Seed        int64   `yaml:"seed" json:"seed"`
	NoiseWidth  float64 `yaml:"noise_width" json:"noise_width"`
}

// Default returns the settings the dashboard ships with
func Default() *Config {
	opts := metrics.DefaultOptions()
	proj := risk.DefaultProjectionConfig()

	return &Config{
		Meta: Meta{ProfileID: "default", Version: "1"},
		Metrics: Metrics{
			DrawdownThreshold:    opts.DrawdownThreshold,
			AnnualizationPeriods: opts.AnnualizationPeriods,
			DaysPerYear:          opts.DaysPerYear,
		},
		Drawdowns: Drawdowns{MaxPeriods: metrics.DefaultMaxDrawdowns},
		Projection: Projection{
			Simulations: proj.Simulations,
			Seed:        proj.Seed,
			NoiseWidth:  proj.NoiseWidth,
		},
	}
}

// MetricsOptions converts to engine options
func (c *Config) MetricsOptions() metrics.Options {
	return metrics.Options{
		DrawdownThreshold:    c.Metrics.DrawdownThreshold,
		AnnualizationPeriods: c.Metrics.AnnualizationPeriods,
		DaysPerYear:          c.Metrics.DaysPerYear,
	}
}

// ProjectionConfig converts to projector config
func (c *Config) ProjectionConfig() risk.ProjectionConfig {
	return risk.ProjectionConfig{
		Simulations: c.Projection.Simulations,
		Seed:        c.Projection.Seed,
		NoiseWidth:  c.Projection.NoiseWidth,
	}
}
