package api

import (
	"errors"
	"net/http"

	"github.com/rajasatyajit/ProtectLife/internal/assistant"
	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/internal/transcript"
)

type enhanceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type adviceRequest struct {
	Question string `json:"question"`
	Location string `json:"location,omitempty"`
}

// analyzeReportHandler handles POST /v1/ai/analyze-report
func (h *Handler) analyzeReportHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ReportDraft
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, "analyze report", err)
		return
	}

	analysis, err := h.assistant.Analyze(r.Context(), req)
	if err != nil {
		h.handleError(w, r, "analyze report", err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, analysis)
}

// enhanceDescriptionHandler handles POST /v1/ai/enhance-description
func (h *Handler) enhanceDescriptionHandler(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, "enhance description", err)
		return
	}

	enhanced, err := h.assistant.Enhance(r.Context(), req.Title, req.Description)
	if err != nil {
		h.handleError(w, r, "enhance description", err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, enhanced)
}

// safetyAdviceHandler handles POST /v1/ai/safety-advice
func (h *Handler) safetyAdviceHandler(w http.ResponseWriter, r *http.Request) {
	var req adviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.handleError(w, r, "safety advice", err)
		return
	}

	advice, err := h.assistant.Advise(r.Context(), req.Question, req.Location)
	if err != nil {
		h.handleError(w, r, "safety advice", err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, advice)
}

// transcribeHandler handles POST /v1/ai/transcribe with a multipart "audio"
// file
func (h *Handler) transcribeHandler(w http.ResponseWriter, r *http.Request) {
	// leave room for the multipart envelope around the audio
	r.Body = http.MaxBytesReader(w, r.Body, transcript.MaxAudioBytes+1<<20)

	file, header, err := r.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		msg := assistant.MsgAudioRequired
		if errors.As(err, &tooLarge) {
			msg = assistant.MsgAudioTooLarge
		}
		h.handleError(w, r, "transcribe", apperrors.ValidationError{Field: "audio", Message: msg})
		return
	}
	defer file.Close()

	tr, err := h.assistant.Transcribe(r.Context(), file, header.Size, header.Filename)
	if err != nil {
		h.handleError(w, r, "transcribe", err)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, tr)
}
