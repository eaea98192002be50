package metrics

import (
	"net/http"
	"time"
)

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordAIRequest(operation, outcome string, duration time.Duration)
	RecordReportCreated(dangerType, severity string)
	RecordVote(voteType, action string)
	RecordEventPublished(subject, status string)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	RecordJobRun(job, status string, duration time.Duration)
	Handler() http.Handler
}

// Outcomes recorded for AI operations
const (
	OutcomeRemote   = "remote"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordAIRequest(operation, outcome string, duration time.Duration) {}
func (m *NoOpMetrics) RecordReportCreated(dangerType, severity string)                   {}
func (m *NoOpMetrics) RecordVote(voteType, action string)                                {}
func (m *NoOpMetrics) RecordEventPublished(subject, status string)                       {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                              {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                            {}
func (m *NoOpMetrics) RecordJobRun(job, status string, duration time.Duration)           {}
func (m *NoOpMetrics) Handler() http.Handler                                             { return http.NotFoundHandler() }

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init installs the Prometheus implementation as the global metrics sink.
// Calling it more than once keeps the first registry.
func Init() {
	if _, ok := globalMetrics.(*PrometheusMetrics); ok {
		return
	}
	globalMetrics = NewPrometheus()
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordAIRequest records which path served an AI operation
func RecordAIRequest(operation, outcome string, duration time.Duration) {
	globalMetrics.RecordAIRequest(operation, outcome, duration)
}

// RecordReportCreated counts a stored hazard report
func RecordReportCreated(dangerType, severity string) {
	globalMetrics.RecordReportCreated(dangerType, severity)
}

// RecordVote counts a vote being cast, replaced or removed
func RecordVote(voteType, action string) {
	globalMetrics.RecordVote(voteType, action)
}

// RecordEventPublished counts report lifecycle events
func RecordEventPublished(subject, status string) {
	globalMetrics.RecordEventPublished(subject, status)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}

// RecordJobRun records a background job run
func RecordJobRun(job, status string, duration time.Duration) {
	globalMetrics.RecordJobRun(job, status, duration)
}
