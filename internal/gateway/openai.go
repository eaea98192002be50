package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rajasatyajit/ProtectLife/internal/classifier"
	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

const (
	defaultBaseURL            = "https://api.openai.com/v1"
	defaultModel              = "gpt-4o-mini"
	defaultTranscriptionModel = "whisper-1"
	defaultTimeout            = 10 * time.Second
	defaultMaxConcurrent      = 4

	// DefaultAdviceLocation is used when a safety question has no location
	DefaultAdviceLocation = "Abidjan (quartier non spécifié)"

	transcriptionLanguage   = "fr"
	transcriptionConfidence = 90
	defaultAudioFilename    = "audio.webm"

	maxResponseBytes = 1 << 20
	maxErrorBytes    = 4096
)

type sampling struct {
	temperature float64
	maxTokens   int
}

var (
	chatSampling       = sampling{temperature: 0.7, maxTokens: 1500}
	completionSampling = sampling{temperature: 0.3, maxTokens: 800}
)

var fenceStripper = strings.NewReplacer("```json", "", "```", "")

// OpenAI talks to the chat completions and audio transcription endpoints
type OpenAI struct {
	httpClient         *http.Client
	baseURL            string
	apiKey             string
	model              string
	transcriptionModel string

	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// NewOpenAI creates a client; zero config fields take defaults
func NewOpenAI(cfg Config) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = defaultTranscriptionModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}

	limit, burst := rate.Inf, 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	return &OpenAI{
		httpClient:         &http.Client{Timeout: cfg.Timeout},
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:             cfg.APIKey,
		model:              cfg.Model,
		transcriptionModel: cfg.TranscriptionModel,
		limiter:            rate.NewLimiter(limit, burst),
		sem:                semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// AnalyzeReport asks the model to classify a report draft
func (c *OpenAI) AnalyzeReport(ctx context.Context, title, description, location string) (*models.Analysis, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, invalidInput(OpAnalyze, "title and description are required")
	}

	content, err := c.chat(ctx, OpAnalyze, buildAnalysisPrompt(title, description, location), chatSampling, true)
	if err != nil {
		return nil, err
	}

	analysis, err := parseAnalysis(content)
	if err != nil {
		return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpAnalyze, 0, err)
	}
	return analysis, nil
}

// EnhanceDescription asks the model to rewrite a description
func (c *OpenAI) EnhanceDescription(ctx context.Context, title, description string) (string, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return "", invalidInput(OpEnhance, "title and description are required")
	}

	enhanced, err := c.chat(ctx, OpEnhance, buildEnhancePrompt(title, description), completionSampling, false)
	if err != nil {
		return "", err
	}
	if enhanced == "" {
		return "", apperrors.NewRemoteError(apperrors.KindPermanent, OpEnhance, 0, errors.New("empty enhancement"))
	}
	return enhanced, nil
}

// SafetyAdvice asks the model for localized safety advice
func (c *OpenAI) SafetyAdvice(ctx context.Context, question, location string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", invalidInput(OpAdvice, "question is required")
	}
	if location == "" {
		location = DefaultAdviceLocation
	}

	advice, err := c.chat(ctx, OpAdvice, buildAdvicePrompt(question, location), chatSampling, false)
	if err != nil {
		return "", err
	}
	if advice == "" {
		return "", apperrors.NewRemoteError(apperrors.KindPermanent, OpAdvice, 0, errors.New("empty advice"))
	}
	return advice, nil
}

// Transcribe sends audio to the speech model, then asks the chat model to
// clean up the text. A failed clean-up keeps the raw transcription.
func (c *OpenAI) Transcribe(ctx context.Context, audio io.Reader, filename string) (*models.Transcription, error) {
	if audio == nil {
		return nil, invalidInput(OpTranscribe, "audio is required")
	}
	if filename == "" {
		filename = defaultAudioFilename
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpTranscribe, 0, err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpTranscribe, 0, fmt.Errorf("read audio: %w", err))
	}
	fields := map[string]string{
		"model":           c.transcriptionModel,
		"language":        transcriptionLanguage,
		"prompt":          whisperHint,
		"response_format": "json",
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpTranscribe, 0, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpTranscribe, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpTranscribe, 0, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	body, err := c.do(ctx, OpTranscribe, req)
	if err != nil {
		return nil, err
	}

	var tr transcriptionResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, apperrors.NewRemoteError(apperrors.KindPermanent, OpTranscribe, 0, fmt.Errorf("decode transcription: %w", err))
	}

	original := strings.TrimSpace(tr.Text)
	improved := original
	if original != "" {
		out, err := c.chat(ctx, OpTranscribe, buildImprovePrompt(original), chatSampling, false)
		switch {
		case err != nil:
			logger.WithContext(ctx).Warn("Transcription improvement failed, keeping original text", "error", err)
		case out != "":
			improved = out
		}
	}

	return &models.Transcription{
		OriginalText: original,
		ImprovedText: improved,
		Confidence:   transcriptionConfidence,
		Language:     transcriptionLanguage,
	}, nil
}

// chat runs a single-turn completion and returns the trimmed reply
func (c *OpenAI) chat(ctx context.Context, op, prompt string, s sampling, jsonMode bool) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}
	if jsonMode {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return "", apperrors.NewRemoteError(apperrors.KindPermanent, op, 0, fmt.Errorf("marshal payload: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", buf)
	if err != nil {
		return "", apperrors.NewRemoteError(apperrors.KindPermanent, op, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, op, req)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.NewRemoteError(apperrors.KindPermanent, op, 0, fmt.Errorf("decode response: %w", err))
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewRemoteError(apperrors.KindPermanent, op, 0, errors.New("no choices in response"))
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// do sends req under the concurrency and rate limits and returns the body
// of a successful response
func (c *OpenAI) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, apperrors.NewRemoteError(transportKind(ctx, err), op, 0, fmt.Errorf("acquire slot: %w", err))
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.NewRemoteError(transportKind(ctx, err), op, 0, fmt.Errorf("rate limiter: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewRemoteError(transportKind(ctx, err), op, 0, err)
	}
	defer resp.Body.Close()

	logger.WithContext(ctx).Debug("Language model call",
		"op", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, apperrors.NewRemoteError(statusKind(resp.StatusCode), op, resp.StatusCode,
			fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(data)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewRemoteError(transportKind(ctx, err), op, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

func invalidInput(op, msg string) error {
	return apperrors.NewRemoteError(apperrors.KindInvalidInput, op, 0, errors.New(msg))
}

// rawAnalysis uses pointers so missing fields can be told apart from zero values
type rawAnalysis struct {
	DangerType       string    `json:"dangerType"`
	Severity         string    `json:"severity"`
	Confidence       *float64  `json:"confidence"`
	Reasoning        *string   `json:"reasoning"`
	SuggestedActions *[]string `json:"suggestedActions"`
}

// parseAnalysis strips code fences from model output and validates it
func parseAnalysis(content string) (*models.Analysis, error) {
	cleaned := strings.TrimSpace(fenceStripper.Replace(content))

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}

	dangerType := models.DangerType(raw.DangerType)
	severity := models.Severity(raw.Severity)

	var errs apperrors.MultiError
	if !dangerType.Valid() {
		errs.Add(apperrors.ValidationError{Field: "dangerType", Message: fmt.Sprintf("unknown value %q", raw.DangerType)})
	}
	if !severity.Valid() {
		errs.Add(apperrors.ValidationError{Field: "severity", Message: fmt.Sprintf("unknown value %q", raw.Severity)})
	}
	if raw.Confidence == nil || *raw.Confidence < 0 || *raw.Confidence > 100 {
		errs.Add(apperrors.ValidationError{Field: "confidence", Message: "must be a number between 0 and 100"})
	}
	if raw.Reasoning == nil {
		errs.Add(apperrors.ValidationError{Field: "reasoning", Message: "missing"})
	}
	if raw.SuggestedActions == nil {
		errs.Add(apperrors.ValidationError{Field: "suggestedActions", Message: "must be an array"})
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, fmt.Errorf("invalid analysis: %v", err)
	}

	// An analysis always carries actions; blank model output gets the local set
	actions := nonBlank(*raw.SuggestedActions)
	if len(actions) == 0 {
		_, actions = classifier.Explain(dangerType, severity)
	}

	return &models.Analysis{
		DangerType:       dangerType,
		Severity:         severity,
		Confidence:       int(math.Round(*raw.Confidence)),
		Reasoning:        *raw.Reasoning,
		SuggestedActions: actions,
	}, nil
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
