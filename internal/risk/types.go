package risk

import "time"

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// VaRResult is a historical VaR/CVaR pair at one confidence level
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// ProjectionConfig controls the equity projection
// ⭐ SSOT: 재현성을 위해 모든 설정을 결과에 기록
type ProjectionConfig struct {
	Simulations int `json:"simulations" yaml:"simulations"`
	// 0 = time based
	Seed int64 `json:"seed" yaml:"seed"`
	// uniform noise spans ±NoiseWidth volatilities around the mean
	NoiseWidth float64 `json:"noise_width" yaml:"noise_width"`
}

// DefaultProjectionConfig matches the dashboard projection
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		Simulations: 100,
		Seed:        0,
		NoiseWidth:  2,
	}
}

// ProjectionPoint is the p10/p50/p90 band at one step of the equity curve
type ProjectionPoint struct {
	Name string  `json:"name"`
	P10  float64 `json:"p10"`
	P50  float64 `json:"p50"`
	P90  float64 `json:"p90"`
}

// Projection is the result of one projection run
type Projection struct {
	RunID          string            `json:"run_id"`
	RunDate        time.Time         `json:"run_date"`
	Config         ProjectionConfig  `json:"config"`
	InitialCapital float64           `json:"initial_capital"`
	SampleCount    int               `json:"sample_count"`
	MeanReturn     float64           `json:"mean_return"`
	Volatility     float64           `json:"volatility"`
	Points         []ProjectionPoint `json:"points"`

	// 시뮬레이션 최종 수익률 기준 (손실 양수)
	VaR95  float64 `json:"var_95"`
	CVaR95 float64 `json:"cvar_95"`
}

// Final returns the band at the last step
func (p *Projection) Final() (ProjectionPoint, bool) {
	if len(p.Points) == 0 {
		return ProjectionPoint{}, false
	}
	return p.Points[len(p.Points)-1], true
}
