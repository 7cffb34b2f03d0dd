package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/alphapulse/internal/contracts"
)

// Memory keeps reports in process. Used when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*contracts.AnalysisReport
}

var _ contracts.ReportRepository = (*Memory)(nil)

// NewMemory creates an empty in-process store
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*contracts.AnalysisReport)}
}

// Save stores a copy of the report
func (m *Memory) Save(_ context.Context, report *contracts.AnalysisReport) error {
	if report.Metrics == nil {
		return fmt.Errorf("report %s has no metrics", report.ID)
	}

	cp := *report
	cp.Metrics = report.Metrics.Clone()

	m.mu.Lock()
	m.reports[report.ID] = &cp
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the stored report
func (m *Memory) Get(_ context.Context, id string) (*contracts.AnalysisReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contracts.ErrReportNotFound, id)
	}
	cp := *r
	cp.Metrics = r.Metrics.Clone()
	return &cp, nil
}

// List returns the newest reports first
func (m *Memory) List(_ context.Context, limit int) ([]contracts.ReportSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	m.mu.RLock()
	out := make([]contracts.ReportSummary, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r.Summary())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DeleteOlderThan removes reports created before cutoff
func (m *Memory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, r := range m.reports {
		if r.CreatedAt.Before(cutoff) {
			delete(m.reports, id)
			n++
		}
	}
	return n, nil
}
