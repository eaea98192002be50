// Package gateway is the boundary to the hosted language model. Every failure
// it returns is an *apperrors.RemoteError whose Kind is decided here, so
// callers never have to inspect error text to choose a fallback.
package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// Operation names used in RemoteError.Op and metrics labels
const (
	OpAnalyze    = "analyze"
	OpEnhance    = "enhance"
	OpAdvice     = "advice"
	OpTranscribe = "transcribe"
)

// placeholderKey is the sample value shipped in .env templates
const placeholderKey = "your_openai_api_key"

// ErrDisabled is wrapped when no API key is configured
var ErrDisabled = errors.New("language model not configured")

// Gateway is the remote analysis service
type Gateway interface {
	AnalyzeReport(ctx context.Context, title, description, location string) (*models.Analysis, error)
	EnhanceDescription(ctx context.Context, title, description string) (string, error)
	SafetyAdvice(ctx context.Context, question, location string) (string, error)
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*models.Transcription, error)
}

// Config holds gateway settings
type Config struct {
	APIKey             string
	BaseURL            string
	Model              string
	TranscriptionModel string
	Timeout            time.Duration
	RequestsPerSecond  float64
	MaxConcurrent      int
}

// New returns the OpenAI gateway, or a disabled one when no usable key is set
func New(cfg Config) Gateway {
	if cfg.APIKey == "" || cfg.APIKey == placeholderKey {
		return Disabled{}
	}
	return NewOpenAI(cfg)
}

// Enabled reports whether g will ever contact the remote model
func Enabled(g Gateway) bool {
	_, disabled := g.(Disabled)
	return !disabled
}

// Disabled fails every call as unavailable so callers use their fallback
type Disabled struct{}

func (Disabled) AnalyzeReport(context.Context, string, string, string) (*models.Analysis, error) {
	return nil, disabledError(OpAnalyze)
}

func (Disabled) EnhanceDescription(context.Context, string, string) (string, error) {
	return "", disabledError(OpEnhance)
}

func (Disabled) SafetyAdvice(context.Context, string, string) (string, error) {
	return "", disabledError(OpAdvice)
}

func (Disabled) Transcribe(context.Context, io.Reader, string) (*models.Transcription, error) {
	return nil, disabledError(OpTranscribe)
}

func disabledError(op string) error {
	return apperrors.NewRemoteError(apperrors.KindUnavailable, op, 0, ErrDisabled)
}

// statusKind maps an HTTP status from the provider to a failure kind.
// Rate limiting, quota exhaustion and server-side outages are transient.
func statusKind(status int) apperrors.RemoteKind {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return apperrors.KindUnavailable
	}
	return apperrors.KindPermanent
}

// transportKind classifies an error raised before a response arrived.
// Only cancellation by the caller is permanent; timeouts and network
// failures are worth a fallback.
func transportKind(ctx context.Context, err error) apperrors.RemoteKind {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return apperrors.KindPermanent
	}
	return apperrors.KindUnavailable
}
