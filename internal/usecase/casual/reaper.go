package casual

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kindred-social/matchengine/internal/domain"
	"github.com/kindred-social/matchengine/internal/metrics"
)

// Reaper removes casual requests whose owners have been inactive past
// the retention window.
type Reaper struct {
	repo      Repository
	retention time.Duration
	pageSize  int
	logger    *zap.Logger
	now       func() time.Time
}

// NewReaper creates a reaper. retention is how long a record survives
// after its owner's last activity; pageSize bounds one scan batch.
func NewReaper(repo Repository, retention time.Duration, pageSize int, logger *zap.Logger) *Reaper {
	return &Reaper{
		repo:      repo,
		retention: retention,
		pageSize:  pageSize,
		logger:    logger,
		now:       time.Now,
	}
}

// Reap deletes all expired records and reports how many relational and
// vector entries were removed. Per-record delete failures abort the run
// so a retry can resume from the same scan.
func (r *Reaper) Reap(ctx context.Context) (domain.ReapReport, error) {
	cutoff := r.now().Add(-r.retention)
	var report domain.ReapReport

	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ids, err := r.repo.Expired(ctx, cutoff, r.pageSize)
		if err != nil {
			return report, fmt.Errorf("scan expired: %w", err)
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			meta, vector, err := r.repo.Delete(ctx, id)
			if err != nil {
				return report, fmt.Errorf("reap %s: %w", id, err)
			}
			if meta {
				report.DeletedRelational++
			}
			if vector {
				report.DeletedVector++
			}
		}

		if len(ids) < r.pageSize {
			break
		}
	}

	metrics.ReaperDeletionsTotal.WithLabelValues("relational").Add(float64(report.DeletedRelational))
	metrics.ReaperDeletionsTotal.WithLabelValues("vector").Add(float64(report.DeletedVector))

	if report.DeletedRelational != report.DeletedVector {
		r.logger.Warn("reaper removed unequal record counts",
			zap.Int("relational", report.DeletedRelational),
			zap.Int("vector", report.DeletedVector))
	}

	return report, nil
}

// RunPeriodic reaps on a fixed interval until ctx is cancelled. Errors
// are logged and the loop keeps going.
func (r *Reaper) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Reap(ctx)
			if err != nil {
				r.logger.Error("reaper run failed", zap.Error(err))
				continue
			}
			if report.DeletedRelational > 0 || report.DeletedVector > 0 {
				r.logger.Info("reaper run complete",
					zap.Int("relational", report.DeletedRelational),
					zap.Int("vector", report.DeletedVector))
			}
		}
	}
}
