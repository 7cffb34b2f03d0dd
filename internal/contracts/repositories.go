package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrReportNotFound is returned when no report has the requested id
var ErrReportNotFound = errors.New("report not found")

// ReportRepository persists analysis reports
type ReportRepository interface {
	Save(ctx context.Context, report *AnalysisReport) error
	Get(ctx context.Context, id string) (*AnalysisReport, error)
	List(ctx context.Context, limit int) ([]ReportSummary, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AnalysisReport is one computed result with where it came from
type AnalysisReport struct {
	ID           string            `json:"id"`
	DatasetHash  string            `json:"datasetHash"`
	SettingsHash string            `json:"settingsHash,omitempty"`
	StrategyKey  string            `json:"strategyKey"`
	Symbol       string            `json:"symbol"`
	Metrics      *ProcessedMetrics `json:"metrics"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Summary returns the list view of the report
func (r *AnalysisReport) Summary() ReportSummary {
	s := ReportSummary{
		ID:          r.ID,
		StrategyKey: r.StrategyKey,
		Symbol:      r.Symbol,
		CreatedAt:   r.CreatedAt,
	}
	if r.Metrics != nil {
		s.StrategyName = r.Metrics.StrategyName
		s.TotalReturn = r.Metrics.TotalReturn
		s.RoundTrips = r.Metrics.RoundTrips()
	}
	return s
}

// ReportSummary is a report without its series
type ReportSummary struct {
	ID           string    `json:"id"`
	StrategyKey  string    `json:"strategyKey"`
	StrategyName string    `json:"strategyName"`
	Symbol       string    `json:"symbol"`
	TotalReturn  float64   `json:"totalReturn"`
	RoundTrips   int       `json:"roundTrips"`
	CreatedAt    time.Time `json:"createdAt"`
}
