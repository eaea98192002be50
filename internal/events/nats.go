package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/metrics"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// conn is the subset of *nats.Conn the publisher uses
type conn interface {
	Publish(subj string, data []byte) error
	IsConnected() bool
	Close()
}

// NATSPublisher publishes report events to NATS
type NATSPublisher struct {
	conn conn
	now  func() time.Time
}

// NewNATSPublisher connects to natsURL. The connection retries in the
// background so the API can start before NATS is reachable.
func NewNATSPublisher(natsURL, clientName string) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(clientName),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	logger.Info("Event publisher connected to NATS", "url", natsURL)
	return newNATSPublisher(nc), nil
}

func newNATSPublisher(c conn) *NATSPublisher {
	return &NATSPublisher{conn: c, now: time.Now}
}

// PublishReportCreated announces a new report
func (p *NATSPublisher) PublishReportCreated(ctx context.Context, r *models.Report) error {
	return p.publish(ctx, SubjectReportCreated, NewReportEvent(r, p.now()))
}

// PublishReportStatusChanged announces a moderation status change
func (p *NATSPublisher) PublishReportStatusChanged(ctx context.Context, r *models.Report, moderator string) error {
	ev := NewReportEvent(r, p.now())
	ev.Moderator = moderator
	return p.publish(ctx, SubjectReportStatus, ev)
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, ev ReportEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		metrics.RecordEventPublished(subject, "error")
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		metrics.RecordEventPublished(subject, "error")
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	metrics.RecordEventPublished(subject, "ok")
	logger.WithContext(ctx).Debug("Published report event", "subject", subject, "report_id", ev.ReportID)
	return nil
}

// IsConnected reports whether the underlying connection is up
func (p *NATSPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drops the connection
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		logger.Info("Event publisher disconnected from NATS")
	}
}
