package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/internal/extract"
	"github.com/wonny/alphapulse/internal/metrics"
	"github.com/wonny/alphapulse/internal/risk"
	"github.com/wonny/alphapulse/internal/settings"
	"github.com/wonny/alphapulse/pkg/logger"
	"github.com/wonny/alphapulse/pkg/redis"
)

// DefaultStrategyName is used when the dataset names no symbol
const DefaultStrategyName = "Custom Strategy"

// Service runs extraction and metrics for uploaded datasets
// ⭐ SSOT: 업로드 → 지표 → 저장 흐름은 여기서만
type Service struct {
	engine       *metrics.Engine
	settings     *settings.Config
	settingsHash string
	cache        *redis.Cache
	repo         contracts.ReportRepository
	logger       *logger.Logger
	now          func() time.Time

	mu       sync.Mutex
	inflight map[string]*Submission
	seq      uint64
}

// NewService creates an analysis service.
// A nil repo disables persistence and a disabled redis client disables caching.
func NewService(cfg *settings.Config, rdb *redis.Client, repo contracts.ReportRepository, log *logger.Logger) *Service {
	if cfg == nil {
		cfg = settings.Default()
	}
	if log == nil {
		log = logger.Nop()
	}

	hash, err := settings.Hash(cfg)
	if err != nil {
		log.WithError(err).Warn("Failed to hash settings")
	}

	return &Service{
		engine:       metrics.NewEngine(cfg.MetricsOptions(), log),
		settings:     cfg,
		settingsHash: hash,
		cache:        redis.NewCache(rdb, cachePrefix(hash)),
		repo:         repo,
		logger:       log,
		now:          time.Now,
		inflight:     make(map[string]*Submission),
	}
}

// cachePrefix namespaces cached results by settings so a changed threshold
// never serves stale metrics
func cachePrefix(settingsHash string) string {
	if len(settingsHash) > 12 {
		settingsHash = settingsHash[:12]
	}
	return "alphapulse:" + settingsHash
}

// Settings returns the analysis settings in use
func (s *Service) Settings() *settings.Config {
	return s.settings
}

// Analyze extracts trades from the dataset and computes its metrics.
// Identical datasets at the same capital are served from cache with the
// report id of the first computation.
func (s *Service) Analyze(ctx context.Context, ds *contracts.PerformanceDataset) (*contracts.AnalysisReport, error) {
	if ds == nil {
		return nil, &contracts.MalformedInputError{Reason: "dataset is empty"}
	}

	datasetHash, err := HashDataset(ds)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithFields(map[string]interface{}{
		"dataset": datasetHash[:12],
		"capital": ds.InitialCapital,
	})

	cacheKey := redis.MetricsKey(datasetHash, ds.InitialCapital)
	var cached contracts.AnalysisReport
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err != nil {
		log.WithError(err).Warn("Metrics cache read failed")
	} else if hit {
		log.WithField("report_id", cached.ID).Debug("Metrics cache hit")
		return &cached, nil
	}

	ex, err := extract.ExtractSource(ds)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := s.engine.Compute(ex.Trades, ds.InitialCapital)
	if err != nil {
		return nil, err
	}
	Annotate(m, ex)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &contracts.AnalysisReport{
		ID:           uuid.NewString(),
		DatasetHash:  datasetHash,
		SettingsHash: s.settingsHash,
		StrategyKey:  ex.StrategyKey,
		Symbol:       ex.Symbol,
		Metrics:      m,
		CreatedAt:    s.now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, report); err != nil {
			return nil, fmt.Errorf("failed to save report: %w", err)
		}
	}

	if err := s.cache.Set(ctx, cacheKey, report, redis.TTLLong); err != nil {
		log.WithError(err).Warn("Metrics cache write failed")
	}
	if err := s.cache.Set(ctx, redis.ReportKey(report.ID), report, redis.TTLLong); err != nil {
		log.WithError(err).Warn("Report cache write failed")
	}

	log.WithFields(map[string]interface{}{
		"report_id":   report.ID,
		"strategy":    report.StrategyKey,
		"symbol":      report.Symbol,
		"round_trips": m.RoundTrips(),
	}).Info("Analysis completed")

	return report, nil
}

// Annotate fills the strategy strings from where the trades were found
func Annotate(m *contracts.ProcessedMetrics, ex *extract.Extraction) {
	m.StrategyParams = ex.StrategyKey
	m.StrategyName = DefaultStrategyName
	if ex.Symbol != "" {
		m.StrategyName = ex.Symbol + " Strategy"
	}
}

// Report returns a stored report by id
func (s *Service) Report(ctx context.Context, id string) (*contracts.AnalysisReport, error) {
	var cached contracts.AnalysisReport
	if hit, err := s.cache.Get(ctx, redis.ReportKey(id), &cached); err != nil {
		s.logger.WithError(err).Warn("Report cache read failed")
	} else if hit {
		return &cached, nil
	}

	if s.repo == nil {
		return nil, fmt.Errorf("%w: %s", contracts.ErrReportNotFound, id)
	}
	return s.repo.Get(ctx, id)
}

// Reports lists stored reports newest first
func (s *Service) Reports(ctx context.Context, limit int) ([]contracts.ReportSummary, error) {
	if s.repo == nil {
		return []contracts.ReportSummary{}, nil
	}
	return s.repo.List(ctx, limit)
}

// Drawdowns returns the deepest drawdown periods of a stored report.
// A non-positive limit uses the configured waterfall size.
func (s *Service) Drawdowns(ctx context.Context, id string, limit int) ([]metrics.DrawdownPeriod, error) {
	report, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.settings.Drawdowns.MaxPeriods
	}
	return metrics.DrawdownPeriods(report.Metrics.EquityCurve, limit), nil
}

// Project runs the equity projection for a stored report.
// Zero values in override keep the configured projection settings.
func (s *Service) Project(ctx context.Context, id string, override risk.ProjectionConfig) (*risk.Projection, error) {
	report, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}

	cfg := s.settings.ProjectionConfig()
	if override.Simulations > 0 {
		cfg.Simulations = override.Simulations
	}
	if override.Seed != 0 {
		cfg.Seed = override.Seed
	}
	if override.NoiseWidth > 0 {
		cfg.NoiseWidth = override.NoiseWidth
	}

	return risk.NewProjector(cfg, s.logger).Project(ctx, report.Metrics.EquityCurve, report.Metrics.InitialCapital)
}

// HashDataset returns the sha256 of the re-encoded dataset
func HashDataset(ds *contracts.PerformanceDataset) (string, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
