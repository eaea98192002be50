package events

import (
	"context"
	"time"

	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// Subjects report lifecycle events are published on
const (
	SubjectReportCreated = "reports.created"
	SubjectReportStatus  = "reports.status"
)

// ReportEvent is the JSON payload of a report lifecycle event
type ReportEvent struct {
	ReportID   string              `json:"report_id"`
	DangerType models.DangerType   `json:"danger_type"`
	Severity   models.Severity     `json:"severity"`
	Status     models.ReportStatus `json:"status"`
	Commune    string              `json:"commune,omitempty"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
	Moderator  string              `json:"moderator,omitempty"`
	Timestamp  int64               `json:"timestamp"`
}

// NewReportEvent builds the event for r at time t
func NewReportEvent(r *models.Report, t time.Time) ReportEvent {
	return ReportEvent{
		ReportID:   r.ID,
		DangerType: r.DangerType,
		Severity:   r.Severity,
		Status:     r.Status,
		Commune:    r.Location.Commune,
		Latitude:   r.Location.Latitude,
		Longitude:  r.Location.Longitude,
		Moderator:  r.ResolvedBy,
		Timestamp:  t.Unix(),
	}
}

// Publisher announces report lifecycle changes. Failures are reported to the
// caller, which logs them; they never fail the request that caused them.
type Publisher interface {
	PublishReportCreated(ctx context.Context, r *models.Report) error
	PublishReportStatusChanged(ctx context.Context, r *models.Report, moderator string) error
	Close()
}

// NoOp discards every event
type NoOp struct{}

func (NoOp) PublishReportCreated(context.Context, *models.Report) error { return nil }
func (NoOp) PublishReportStatusChanged(context.Context, *models.Report, string) error {
	return nil
}
func (NoOp) Close() {}
