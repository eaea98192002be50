// Package assistant serves the AI features of the API. Each operation tries
// the remote model first and, when the failure is retryable, answers from the
// local rule-based components instead. Any other failure is returned.
package assistant

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rajasatyajit/ProtectLife/internal/advisor"
	"github.com/rajasatyajit/ProtectLife/internal/classifier"
	"github.com/rajasatyajit/ProtectLife/internal/enhancer"
	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/gateway"
	"github.com/rajasatyajit/ProtectLife/internal/geocoder"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/metrics"
	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/internal/transcript"
)

// User-facing messages
const (
	MsgTitleAndDescription = "Titre et description requis"
	MsgQuestionRequired    = "Question requise"
	MsgAudioRequired       = "Fichier audio requis"
	MsgAudioTooLarge       = "Fichier audio trop volumineux (max 25MB)"
	MsgInvalidTranscript   = "Transcription invalide ou trop courte"

	NoticeAnalyze    = "Analyse effectuée en mode local : le service d'IA est temporairement indisponible"
	NoticeEnhance    = "Description améliorée en mode local : le service d'IA est temporairement indisponible"
	NoticeTranscribe = "Transcription vocale temporairement indisponible"
)

// Service answers AI requests with a remote-first, local-fallback policy
type Service struct {
	gateway    gateway.Gateway
	classifier *classifier.Classifier
	geocoder   *geocoder.Geocoder
}

// New creates a service backed by gw
func New(gw gateway.Gateway) *Service {
	return &Service{
		gateway:    gw,
		classifier: classifier.New(),
		geocoder:   geocoder.New(),
	}
}

// Analyze classifies a report draft
func (s *Service) Analyze(ctx context.Context, draft models.ReportDraft) (*models.Analysis, error) {
	title, description := strings.TrimSpace(draft.Title), strings.TrimSpace(draft.Description)
	if title == "" || description == "" {
		return nil, apperrors.ValidationError{Field: "title", Message: MsgTitleAndDescription}
	}

	analysis, _, err := run(ctx, gateway.OpAnalyze,
		func() (*models.Analysis, error) {
			return s.gateway.AnalyzeReport(ctx, title, description, draft.Location)
		},
		func() *models.Analysis {
			a := s.classifier.Analyze(title, description)
			a.FallbackMode = true
			a.Notice = NoticeAnalyze
			return &a
		},
	)
	return analysis, err
}

// Enhance rewrites a report description
func (s *Service) Enhance(ctx context.Context, title, description string) (*models.Enhancement, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return nil, apperrors.ValidationError{Field: "title", Message: MsgTitleAndDescription}
	}

	text, fellBack, err := run(ctx, gateway.OpEnhance,
		func() (string, error) { return s.gateway.EnhanceDescription(ctx, title, description) },
		func() string { return enhancer.Normalize(title, description) },
	)
	if err != nil {
		return nil, err
	}

	e := &models.Enhancement{Enhanced: text}
	if fellBack {
		e.FallbackMode = true
		e.Notice = NoticeEnhance
	}
	return e, nil
}

// Advise answers a safety question. Without a location, a commune named in
// the question is used, else the generic Abidjan location.
func (s *Service) Advise(ctx context.Context, question, location string) (*models.AdviceResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.ValidationError{Field: "question", Message: MsgQuestionRequired}
	}
	location = strings.TrimSpace(location)
	if location == "" {
		if commune := s.geocoder.Commune(question); commune != "" {
			location = commune + ", Abidjan"
		} else {
			location = gateway.DefaultAdviceLocation
		}
	}

	advice, fellBack, err := run(ctx, gateway.OpAdvice,
		func() (string, error) { return s.gateway.SafetyAdvice(ctx, question, location) },
		func() string { return advisor.Advise(question) },
	)
	if err != nil {
		return nil, err
	}
	return &models.AdviceResponse{Advice: advice, FallbackMode: fellBack}, nil
}

// Transcribe converts a voice message of size bytes into report text
func (s *Service) Transcribe(ctx context.Context, audio io.Reader, size int64, filename string) (*models.Transcription, error) {
	if audio == nil || size <= 0 {
		return nil, apperrors.ValidationError{Field: "audio", Message: MsgAudioRequired}
	}
	if size > transcript.MaxAudioBytes {
		return nil, apperrors.ValidationError{Field: "audio", Message: MsgAudioTooLarge}
	}

	tr, fellBack, err := run(ctx, gateway.OpTranscribe,
		func() (*models.Transcription, error) { return s.gateway.Transcribe(ctx, audio, filename) },
		func() *models.Transcription {
			fb := transcript.Fallback()
			fb.Notice = NoticeTranscribe
			return fb
		},
	)
	if err != nil {
		return nil, err
	}

	if !fellBack {
		valid, cleaned := transcript.Validate(tr.ImprovedText)
		if !valid {
			return nil, apperrors.ValidationError{Field: "audio", Message: MsgInvalidTranscript}
		}
		tr.ImprovedText = cleaned
		tr.IsValid = true

		if lang := transcript.DetectLanguage(cleaned); lang != tr.Language {
			logger.WithContext(ctx).Warn("Transcription language differs from requested",
				"requested", tr.Language,
				"detected", lang,
			)
		}
	}

	formatted := transcript.Format(tr)
	tr.Formatted = &formatted
	return tr, nil
}

// run calls remote and substitutes local when the failure is retryable. The
// boolean result reports whether local served the request.
func run[T any](ctx context.Context, op string, remote func() (T, error), local func() T) (T, bool, error) {
	start := time.Now()

	result, err := remote()
	switch {
	case err == nil:
		metrics.RecordAIRequest(op, metrics.OutcomeRemote, time.Since(start))
		return result, false, nil

	case apperrors.IsRetryable(err):
		logger.WithContext(ctx).Warn("Language model unavailable, using local fallback",
			"op", op,
			"error", err,
		)
		result = local()
		metrics.RecordAIRequest(op, metrics.OutcomeFallback, time.Since(start))
		return result, true, nil

	default:
		logger.WithContext(ctx).Error("Language model request failed",
			"op", op,
			"kind", apperrors.KindOf(err).String(),
			"error", err,
		)
		metrics.RecordAIRequest(op, metrics.OutcomeError, time.Since(start))
		var zero T
		return zero, false, fmt.Errorf("%s: %w", op, err)
	}
}
