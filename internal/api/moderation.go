package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rajasatyajit/ProtectLife/internal/auth"
	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

type statusRequest struct {
	Status models.ReportStatus `json:"status"`
}

func moderatorID(r *http.Request) string {
	if p := auth.GetPrincipal(r.Context()); p != nil {
		return p.ModeratorID
	}
	return ""
}

// updateStatusHandler handles PATCH /v1/moderation/reports/{id}/status
func (h *Handler) updateStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, "update status", err)
		return
	}
	if !req.Status.Valid() {
		h.handleError(w, r, "update status", apperrors.ValidationError{Field: "status", Message: "Statut invalide"})
		return
	}

	moderator := moderatorID(r)
	report, err := h.store.UpdateStatus(ctx, chi.URLParam(r, "id"), req.Status, moderator)
	if err != nil {
		h.handleError(w, r, "update status", err)
		return
	}

	if err := h.events.PublishReportStatusChanged(ctx, report, moderator); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish status event", "report_id", report.ID, "error", err)
	}
	logger.WithContext(ctx).Info("Report status changed",
		"report_id", report.ID,
		"status", report.Status,
		"moderator", moderator,
	)

	h.writeJSONResponse(w, http.StatusOK, report)
}

// deleteReportHandler handles DELETE /v1/moderation/reports/{id}
func (h *Handler) deleteReportHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteReport(r.Context(), id); err != nil {
		h.handleError(w, r, "delete report", err)
		return
	}

	logger.WithContext(r.Context()).Info("Report deleted", "report_id", id, "moderator", moderatorID(r))
	w.WriteHeader(http.StatusNoContent)
}

// aiUsageHandler handles GET /v1/moderation/ai-usage?date=YYYY-MM-DD
func (h *Handler) aiUsageHandler(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := time.Parse(time.DateOnly, s)
		if err != nil {
			h.handleError(w, r, "ai usage", apperrors.ValidationError{Field: "date", Message: "date doit être au format AAAA-MM-JJ"})
			return
		}
		day = parsed
	}

	if h.limiter == nil {
		h.writeErrorResponse(w, r, http.StatusServiceUnavailable, "Comptage indisponible : Redis non configuré")
		return
	}

	usage, err := h.limiter.DailyUsage(r.Context(), day)
	if err != nil {
		h.handleError(w, r, "ai usage", err)
		return
	}

	total := 0
	for _, n := range usage {
		total += n
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"date":   day.Format(time.DateOnly),
		"routes": usage,
		"total":  total,
	})
}
