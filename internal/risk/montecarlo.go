package risk

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/pkg/logger"
)

// ErrEmptyCurve is returned when there is nothing to project from
var ErrEmptyCurve = errors.New("equity curve is empty")

// Projector runs the equity-curve Monte Carlo projection.
// 단순화된 방식: 정규분포 대신 균등 노이즈 사용 (대시보드와 동일한 값 유지)
type Projector struct {
	config ProjectionConfig
	logger *logger.Logger
}

// NewProjector creates a projector. Zero-valued config fields take defaults.
func NewProjector(config ProjectionConfig, log *logger.Logger) *Projector {
	def := DefaultProjectionConfig()
	if config.Simulations <= 0 {
		config.Simulations = def.Simulations
	}
	if config.NoiseWidth <= 0 {
		config.NoiseWidth = def.NoiseWidth
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Projector{config: config, logger: log}
}

// Project simulates Config.Simulations paths over the same steps as curve.
// Each step applies mean + vol*(U*2w - w) where mean and vol come from the
// step returns of curve. Percentiles are read at index floor(n*p).
func (p *Projector) Project(ctx context.Context, curve []contracts.EquityPoint, initialCapital float64) (*Projection, error) {
	if !(initialCapital > 0) || math.IsInf(initialCapital, 0) {
		return nil, contracts.ErrInvalidCapital
	}
	if len(curve) == 0 {
		return nil, ErrEmptyCurve
	}

	returns := stepReturns(curve)
	mean := Mean(returns)
	vol := PopulationStdDev(returns)

	cfg := p.config
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	// paths[step][sim]
	paths := make([][]float64, len(curve))
	for i := range paths {
		paths[i] = make([]float64, cfg.Simulations)
	}

	w := cfg.NoiseWidth
	for sim := 0; sim < cfg.Simulations; sim++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		value := initialCapital
		paths[0][sim] = value
		for step := 1; step < len(curve); step++ {
			r := mean + vol*(rng.Float64()*2*w-w)
			value *= 1 + r
			paths[step][sim] = value
		}
	}

	points := make([]ProjectionPoint, len(curve))
	for step, values := range paths {
		sort.Float64s(values)
		points[step] = ProjectionPoint{
			Name: curve[step].Date,
			P10:  PercentileAt(values, 0.1),
			P50:  PercentileAt(values, 0.5),
			P90:  PercentileAt(values, 0.9),
		}
	}

	terminal := make([]float64, cfg.Simulations)
	for i, v := range paths[len(paths)-1] {
		terminal[i] = (v - initialCapital) / initialCapital
	}
	tail := CalculateVaR(terminal, 0.95)

	proj := &Projection{
		RunID:          uuid.New().String(),
		RunDate:        time.Now().UTC(),
		Config:         cfg,
		InitialCapital: initialCapital,
		SampleCount:    len(returns),
		MeanReturn:     mean,
		Volatility:     vol,
		Points:         points,
		VaR95:          tail.VaR,
		CVaR95:         tail.CVaR,
	}

	p.logger.WithFields(map[string]interface{}{
		"run_id":      proj.RunID,
		"simulations": cfg.Simulations,
		"steps":       len(points),
		"seed":        cfg.Seed,
	}).Debug("Projection completed")

	return proj, nil
}

// stepReturns is the fractional change between consecutive curve points.
// A zero previous value has no defined return and is skipped.
func stepReturns(curve []contracts.EquityPoint) []float64 {
	out := make([]float64, 0, len(curve))
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev == 0 {
			continue
		}
		out = append(out, (curve[i].Value-prev)/prev)
	}
	return out
}
