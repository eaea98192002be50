package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/rajasatyajit/ProtectLife/internal/assistant"
	"github.com/rajasatyajit/ProtectLife/internal/auth"
	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/events"
	"github.com/rajasatyajit/ProtectLife/internal/geocoder"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	middlewares "github.com/rajasatyajit/ProtectLife/internal/middleware"
	"github.com/rajasatyajit/ProtectLife/internal/ratelimit"
	"github.com/rajasatyajit/ProtectLife/internal/store"
)

// MsgInternal is the only detail a client sees for a server-side failure
const MsgInternal = "Erreur interne du serveur"

// MsgInvalidRequest answers input the model gateway refused before calling out
const MsgInvalidRequest = "Requête invalide"

// Options wires the handler's dependencies. Store and Assistant are
// required; the rest are optional.
type Options struct {
	Store     store.Store
	Assistant *assistant.Service
	Events    events.Publisher
	Limiter   *ratelimit.Manager
	Verifier  *auth.Verifier

	ModeratorHeader     string
	AIRequestsPerMinute int

	Version   string
	BuildTime string
	GitCommit string
}

// Handler handles HTTP requests for the API
type Handler struct {
	store     store.Store
	assistant *assistant.Service
	geocoder  *geocoder.Geocoder
	events    events.Publisher
	limiter   *ratelimit.Manager
	verifier  *auth.Verifier

	moderatorHeader string
	aiRPM           int

	version   string
	buildTime string
	gitCommit string
	startTime time.Time
}

// NewHandler creates a new API handler
func NewHandler(opts Options) *Handler {
	h := &Handler{
		store:           opts.Store,
		assistant:       opts.Assistant,
		geocoder:        geocoder.New(),
		events:          opts.Events,
		limiter:         opts.Limiter,
		verifier:        opts.Verifier,
		moderatorHeader: opts.ModeratorHeader,
		aiRPM:           opts.AIRequestsPerMinute,
		version:         opts.Version,
		buildTime:       opts.BuildTime,
		gitCommit:       opts.GitCommit,
		startTime:       time.Now(),
	}
	if h.events == nil {
		h.events = events.NoOp{}
	}
	if h.verifier == nil {
		h.verifier, _ = auth.NewVerifier(nil)
	}
	return h
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		// Health check endpoints
		r.Get("/health", h.healthHandler)
		r.Get("/health/ready", h.readinessHandler)
		r.Get("/health/live", h.livenessHandler)

		r.Route("/ai", func(r chi.Router) {
			r.Use(middlewares.AIRateLimit(h.limiter, h.aiRPM))
			r.Post("/analyze-report", h.analyzeReportHandler)
			r.Post("/enhance-description", h.enhanceDescriptionHandler)
			r.Post("/safety-advice", h.safetyAdviceHandler)
			r.Post("/transcribe", h.transcribeHandler)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(middlewares.UserID)
			r.Post("/", h.createReportHandler)
			r.Get("/", h.listReportsHandler)
			r.Get("/{id}", h.getReportHandler)
			r.Post("/{id}/votes", h.castVoteHandler)
			r.Delete("/{id}/votes", h.removeVoteHandler)
		})

		r.Route("/moderation", func(r chi.Router) {
			r.Use(middlewares.Moderator(h.verifier, h.moderatorHeader))
			r.Patch("/reports/{id}/status", h.updateStatusHandler)
			r.Delete("/reports/{id}", h.deleteReportHandler)
			r.Get("/ai-usage", h.aiUsageHandler)
		})

		// System info
		r.Get("/version", h.versionHandler)
	})

	// Root health check
	r.Get("/health", h.healthHandler)
}

// healthHandler provides basic health check
func (h *Handler) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// readinessHandler checks if the application is ready to serve traffic
func (h *Handler) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{
		"store": "ok",
	}
	statusCode := http.StatusOK

	if err := h.store.Health(ctx); err != nil {
		checks["store"] = "error: " + err.Error()
		statusCode = http.StatusServiceUnavailable
	}

	// Redis only gates the AI limiter, which fails open
	if h.limiter != nil {
		checks["redis"] = "ok"
		if err := h.limiter.Health(ctx); err != nil {
			checks["redis"] = "degraded: " + err.Error()
		}
	}

	status := "ready"
	if statusCode != http.StatusOK {
		status = "not ready"
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	}

	h.writeJSONResponse(w, statusCode, response)
}

// livenessHandler checks if the application is alive
func (h *Handler) livenessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// versionHandler returns version information
func (h *Handler) versionHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"version":    h.version,
		"build_time": h.buildTime,
		"git_commit": h.gitCommit,
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// decodeJSON reads a JSON body; malformed input is a validation error
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return apperrors.ValidationError{Field: "body", Message: "Corps de requête JSON invalide"}
	}
	return nil
}

// writeJSONResponse writes a JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a standardized error response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	response := ErrorResponse{
		Error:     http.StatusText(statusCode),
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: chimiddleware.GetReqID(r.Context()),
	}

	h.writeJSONResponse(w, statusCode, response)
}

// handleError maps a domain error to a status code. Remote failures are
// checked first so their details never reach the client.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		remoteErr     *apperrors.RemoteError
		validationErr apperrors.ValidationError
	)

	switch {
	case errors.As(err, &remoteErr) && remoteErr.Kind == apperrors.KindInvalidInput:
		h.writeErrorResponse(w, r, http.StatusBadRequest, MsgInvalidRequest)
	case errors.As(err, &remoteErr):
		h.writeErrorResponse(w, r, http.StatusInternalServerError, MsgInternal)
	case errors.As(err, &validationErr):
		h.writeErrorResponse(w, r, http.StatusBadRequest, validationErr.Message)
		return
	case errors.Is(err, apperrors.ErrInvalidInput):
		h.writeErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeErrorResponse(w, r, http.StatusNotFound, "Ressource introuvable")
		return
	case errors.Is(err, apperrors.ErrConflict):
		h.writeErrorResponse(w, r, http.StatusConflict, "Conflit avec l'état actuel de la ressource")
		return
	case errors.Is(err, apperrors.ErrUnauthorized):
		h.writeErrorResponse(w, r, http.StatusUnauthorized, "Authentification requise")
		return
	default:
		h.writeErrorResponse(w, r, http.StatusInternalServerError, MsgInternal)
	}

	logger.WithContext(r.Context()).Error("Request failed", "op", op, "error", err)
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}
