package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/alphapulse/internal/contracts"
)

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS analytics;

	CREATE TABLE IF NOT EXISTS analytics.reports (
		id              TEXT PRIMARY KEY,
		dataset_hash    TEXT NOT NULL,
		settings_hash   TEXT NOT NULL DEFAULT '',
		strategy_key    TEXT NOT NULL,
		strategy_name   TEXT NOT NULL,
		symbol          TEXT NOT NULL,
		total_return    DOUBLE PRECISION NOT NULL,
		round_trips     INTEGER NOT NULL,
		metrics         JSONB NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS reports_created_at_idx ON analytics.reports (created_at DESC);
	CREATE INDEX IF NOT EXISTS reports_dataset_hash_idx ON analytics.reports (dataset_hash);
`

// Repository handles report persistence
// ⭐ SSOT: 리포트 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

var _ contracts.ReportRepository = (*Repository)(nil)

// NewRepository creates a new report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the reports table when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Save upserts a report by id
func (r *Repository) Save(ctx context.Context, report *contracts.AnalysisReport) error {
	if report.Metrics == nil {
		return fmt.Errorf("report %s has no metrics", report.ID)
	}

	metricsJSON, err := json.Marshal(report.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO analytics.reports (
			id, dataset_hash, settings_hash, strategy_key, strategy_name, symbol,
			total_return, round_trips, metrics, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			dataset_hash = EXCLUDED.dataset_hash,
			settings_hash = EXCLUDED.settings_hash,
			strategy_key = EXCLUDED.strategy_key,
			strategy_name = EXCLUDED.strategy_name,
			symbol = EXCLUDED.symbol,
			total_return = EXCLUDED.total_return,
			round_trips = EXCLUDED.round_trips,
			metrics = EXCLUDED.metrics,
			created_at = EXCLUDED.created_at
	`

	_, err = r.pool.Exec(ctx, query,
		report.ID, report.DatasetHash, report.SettingsHash, report.StrategyKey,
		report.Metrics.StrategyName, report.Symbol,
		report.Metrics.TotalReturn, report.Metrics.RoundTrips(), metricsJSON, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// Get retrieves one report with its full metrics
func (r *Repository) Get(ctx context.Context, id string) (*contracts.AnalysisReport, error) {
	query := `
		SELECT id, dataset_hash, settings_hash, strategy_key, symbol, metrics, created_at
		FROM analytics.reports
		WHERE id = $1
	`

	var report contracts.AnalysisReport
	var metricsJSON []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&report.ID, &report.DatasetHash, &report.SettingsHash, &report.StrategyKey,
		&report.Symbol, &metricsJSON, &report.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contracts.ErrReportNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report.Metrics = &contracts.ProcessedMetrics{}
	if err := json.Unmarshal(metricsJSON, report.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	report.CreatedAt = report.CreatedAt.UTC()

	return &report, nil
}

// List returns the newest reports first
func (r *Repository) List(ctx context.Context, limit int) ([]contracts.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, strategy_key, strategy_name, symbol, total_return, round_trips, created_at
		FROM analytics.reports
		ORDER BY created_at DESC, id
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	out := []contracts.ReportSummary{}
	for rows.Next() {
		var s contracts.ReportSummary
		if err := rows.Scan(&s.ID, &s.StrategyKey, &s.StrategyName, &s.Symbol,
			&s.TotalReturn, &s.RoundTrips, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	return out, nil
}

// DeleteOlderThan removes reports created before cutoff and returns how many
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM analytics.reports WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
