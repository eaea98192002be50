package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/events"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/internal/store"
)

// SystemModerator is recorded as the actor of automatic status changes
const SystemModerator = "system"

const expiryPageSize = 200

// ReportExpiry moves reports that stayed pending longer than the TTL to the
// expired status
type ReportExpiry struct {
	store    store.Store
	events   events.Publisher
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewReportExpiry creates the expiry job. A nil publisher discards events.
func NewReportExpiry(s store.Store, p events.Publisher, ttl, interval time.Duration) *ReportExpiry {
	if p == nil {
		p = events.NoOp{}
	}
	return &ReportExpiry{store: s, events: p, ttl: ttl, interval: interval, now: time.Now}
}

func (j *ReportExpiry) Name() string            { return "expire_reports" }
func (j *ReportExpiry) Interval() time.Duration { return j.interval }

// Run expires every stale pending report
func (j *ReportExpiry) Run(ctx context.Context) error {
	stale, err := j.stalePending(ctx, j.now().Add(-j.ttl))
	if err != nil {
		return err
	}

	expired := 0
	for _, id := range stale {
		r, err := j.store.TransitionStatus(ctx, id, models.StatusPending, models.StatusExpired, SystemModerator)
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
			// deleted or moderated since the scan
			continue
		}
		if err != nil {
			return fmt.Errorf("expire report %s: %w", id, err)
		}
		expired++
		if err := j.events.PublishReportStatusChanged(ctx, r, SystemModerator); err != nil {
			logger.Warn("Failed to publish expiry event", "report_id", id, "error", err)
		}
	}

	if expired > 0 {
		logger.Info("Expired stale reports", "count", expired, "ttl", j.ttl.String())
	}
	return nil
}

// stalePending collects the ids of pending reports created before cutoff.
// Ids are gathered before any update so paging is not disturbed.
func (j *ReportExpiry) stalePending(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	for offset := 0; ; offset += expiryPageSize {
		page, err := j.store.QueryReports(ctx, models.ReportQuery{
			Statuses: []models.ReportStatus{models.StatusPending},
			Limit:    expiryPageSize,
			Offset:   offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list pending reports: %w", err)
		}
		for _, r := range page {
			if r.CreatedAt.Before(cutoff) {
				ids = append(ids, r.ID)
			}
		}
		if len(page) < expiryPageSize {
			return ids, nil
		}
	}
}
