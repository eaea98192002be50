package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rajasatyajit/ProtectLife/internal/assistant"
	"github.com/rajasatyajit/ProtectLife/internal/classifier"
	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/metrics"
	middlewares "github.com/rajasatyajit/ProtectLife/internal/middleware"
	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/pkg/utils"
)

// Listing limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Report field bounds, counted in runes
const (
	minTitleLen       = 5
	maxTitleLen       = 100
	minDescriptionLen = 10
	maxDescriptionLen = 1000
	maxImages         = 5
)

const msgUserRequired = "Identifiant utilisateur requis"

type createReportRequest struct {
	DangerType  models.DangerType `json:"dangerType,omitempty"`
	Severity    models.Severity   `json:"severity,omitempty"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Location    models.Location   `json:"location"`
	Images      []string          `json:"images,omitempty"`
}

type voteRequest struct {
	VoteType models.VoteType `json:"voteType"`
}

type voteResponse struct {
	Report   *models.Report  `json:"report"`
	Previous models.VoteType `json:"previous,omitempty"`
}

// validate trims the request in place and checks its bounds
func (req *createReportRequest) validate() error {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)

	switch {
	case req.Title == "" || req.Description == "":
		return apperrors.ValidationError{Field: "title", Message: "Titre et description requis"}
	case utils.RuneLen(req.Title) < minTitleLen || utils.RuneLen(req.Title) > maxTitleLen:
		return apperrors.ValidationError{Field: "title", Message: fmt.Sprintf("Le titre doit faire entre %d et %d caractères", minTitleLen, maxTitleLen)}
	case utils.RuneLen(req.Description) < minDescriptionLen || utils.RuneLen(req.Description) > maxDescriptionLen:
		return apperrors.ValidationError{Field: "description", Message: fmt.Sprintf("La description doit faire entre %d et %d caractères", minDescriptionLen, maxDescriptionLen)}
	case req.DangerType != "" && !req.DangerType.Valid():
		return apperrors.ValidationError{Field: "dangerType", Message: "Type de danger invalide"}
	case req.Severity != "" && !req.Severity.Valid():
		return apperrors.ValidationError{Field: "severity", Message: "Gravité invalide"}
	case len(req.Images) > maxImages:
		return apperrors.ValidationError{Field: "images", Message: fmt.Sprintf("%d images maximum", maxImages)}
	case req.Location.Latitude < -90 || req.Location.Latitude > 90 ||
		req.Location.Longitude < -180 || req.Location.Longitude > 180:
		return apperrors.ValidationError{Field: "location", Message: "Coordonnées invalides"}
	}
	return nil
}

// createReportHandler handles POST /v1/reports
func (h *Handler) createReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		h.writeErrorResponse(w, r, http.StatusUnauthorized, msgUserRequired)
		return
	}

	var req createReportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, "create report", err)
		return
	}
	if err := req.validate(); err != nil {
		h.handleError(w, r, "create report", err)
		return
	}

	report := &models.Report{
		UserID:      userID,
		DangerType:  req.DangerType,
		Severity:    req.Severity,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Images:      req.Images,
	}

	// Let the assistant fill whatever the reporter left out
	if report.DangerType == "" || report.Severity == "" {
		analysis, err := h.assistant.Analyze(ctx, models.ReportDraft{
			Title:       report.Title,
			Description: report.Description,
			Location:    report.Location.Address,
		})
		if err != nil {
			// Storing a report never depends on the model
			logger.WithContext(ctx).Warn("Report analysis failed, classifying locally", "error", err)
			local := classifier.New().Analyze(report.Title, report.Description)
			local.FallbackMode = true
			local.Notice = assistant.NoticeAnalyze
			analysis = &local
		}
		if report.DangerType == "" {
			report.DangerType = analysis.DangerType
		}
		if report.Severity == "" {
			report.Severity = analysis.Severity
		}
		report.Analysis = analysis
	}

	h.geocoder.Geocode(report)

	if err := h.store.CreateReport(ctx, report); err != nil {
		h.handleError(w, r, "create report", err)
		return
	}

	metrics.RecordReportCreated(string(report.DangerType), string(report.Severity))
	if err := h.events.PublishReportCreated(ctx, report); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish report event", "report_id", report.ID, "error", err)
	}

	logger.WithContext(ctx).Info("Report created",
		"report_id", report.ID,
		"danger_type", report.DangerType,
		"severity", report.Severity,
		"commune", report.Location.Commune,
	)

	h.writeJSONResponse(w, http.StatusCreated, report)
}

// listReportsHandler handles GET /v1/reports
func (h *Handler) listReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	q, err := parseReportQuery(r)
	if err != nil {
		h.handleError(w, r, "list reports", err)
		return
	}

	reports, err := h.store.QueryReports(ctx, q)
	if err != nil {
		h.handleError(w, r, "list reports", err)
		return
	}

	response := map[string]interface{}{
		"data":      reports,
		"count":     len(reports),
		"limit":     q.Limit,
		"offset":    q.Offset,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Cache-Control", "public, max-age=30")
	h.writeJSONResponse(w, http.StatusOK, response)
}

// getReportHandler handles GET /v1/reports/{id}
func (h *Handler) getReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, "get report", err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, report)
}

// castVoteHandler handles POST /v1/reports/{id}/votes
func (h *Handler) castVoteHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		h.writeErrorResponse(w, r, http.StatusUnauthorized, msgUserRequired)
		return
	}

	var req voteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, "cast vote", err)
		return
	}
	if !req.VoteType.Valid() {
		h.handleError(w, r, "cast vote", apperrors.ValidationError{Field: "voteType", Message: "Type de vote invalide"})
		return
	}

	res, err := h.store.CastVote(ctx, chi.URLParam(r, "id"), userID, req.VoteType)
	if errors.Is(err, apperrors.ErrConflict) {
		h.writeErrorResponse(w, r, http.StatusConflict, "Vous avez déjà donné ce vote")
		return
	}
	if err != nil {
		h.handleError(w, r, "cast vote", err)
		return
	}

	action := "cast"
	if res.Previous != "" {
		action = "replaced"
	}
	metrics.RecordVote(string(req.VoteType), action)

	h.writeJSONResponse(w, http.StatusOK, voteResponse{Report: res.Report, Previous: res.Previous})
}

// removeVoteHandler handles DELETE /v1/reports/{id}/votes
func (h *Handler) removeVoteHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := middlewares.GetUserID(ctx)
	if userID == "" {
		h.writeErrorResponse(w, r, http.StatusUnauthorized, msgUserRequired)
		return
	}

	res, err := h.store.RemoveVote(ctx, chi.URLParam(r, "id"), userID)
	if err != nil {
		h.handleError(w, r, "remove vote", err)
		return
	}

	metrics.RecordVote(string(res.Previous), "removed")
	h.writeJSONResponse(w, http.StatusOK, voteResponse{Report: res.Report, Previous: res.Previous})
}

// parseReportQuery parses query parameters into a ReportQuery
func parseReportQuery(r *http.Request) (models.ReportQuery, error) {
	values := r.URL.Query()
	q := models.ReportQuery{Limit: DefaultListLimit}

	if limitStr := values.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > MaxListLimit {
			return q, apperrors.ValidationError{Field: "limit", Message: fmt.Sprintf("limit doit être entre 1 et %d", MaxListLimit)}
		}
		q.Limit = limit
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return q, apperrors.ValidationError{Field: "offset", Message: "offset doit être positif"}
		}
		q.Offset = offset
	}

	if sinceStr := values.Get("since"); sinceStr != "" {
		since, err := time.Parse(time.RFC3339, sinceStr)
		if err != nil {
			return q, apperrors.ValidationError{Field: "since", Message: "since doit être au format RFC3339"}
		}
		q.Since = since
	}

	for _, v := range splitValues(values["dangerType"]) {
		d := models.DangerType(v)
		if !d.Valid() {
			return q, apperrors.ValidationError{Field: "dangerType", Message: "Type de danger invalide : " + v}
		}
		q.DangerTypes = append(q.DangerTypes, d)
	}

	for _, v := range splitValues(values["severity"]) {
		s := models.Severity(v)
		if !s.Valid() {
			return q, apperrors.ValidationError{Field: "severity", Message: "Gravité invalide : " + v}
		}
		q.Severities = append(q.Severities, s)
	}

	for _, v := range splitValues(values["status"]) {
		s := models.ReportStatus(v)
		if !s.Valid() {
			return q, apperrors.ValidationError{Field: "status", Message: "Statut invalide : " + v}
		}
		q.Statuses = append(q.Statuses, s)
	}

	q.Communes = splitValues(values["commune"])
	q.UserID = values.Get("userId")

	return q, nil
}

// splitValues accepts both repeated parameters and comma lists
func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
