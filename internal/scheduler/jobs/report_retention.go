package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/alphapulse/internal/contracts"
	"github.com/wonny/alphapulse/pkg/logger"
)

// DefaultRetentionSchedule runs the cleanup at 04:00 every day
const DefaultRetentionSchedule = "0 0 4 * * *"

// ReportRetentionJob deletes stored reports older than the retention window
type ReportRetentionJob struct {
	repo      contracts.ReportRepository
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *logger.Logger
}

// NewReportRetentionJob creates a new retention job.
// An empty schedule uses DefaultRetentionSchedule.
func NewReportRetentionJob(repo contracts.ReportRepository, retention time.Duration, schedule string, log *logger.Logger) *ReportRetentionJob {
	if schedule == "" {
		schedule = DefaultRetentionSchedule
	}
	return &ReportRetentionJob{
		repo:      repo,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    log,
	}
}

// Name returns the job name
func (j *ReportRetentionJob) Name() string {
	return "report_retention"
}

// Schedule returns the cron schedule
func (j *ReportRetentionJob) Schedule() string {
	return j.schedule
}

// Run deletes reports created before now minus the retention window
func (j *ReportRetentionJob) Run(ctx context.Context) error {
	if j.retention <= 0 {
		j.logger.Debug("Report retention disabled")
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	removed, err := j.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("report retention: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"removed": removed,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Report retention completed")

	return nil
}
