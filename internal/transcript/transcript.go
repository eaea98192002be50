// Package transcript turns voice-message transcriptions into report text and
// provides the local substitute used when transcription is unavailable.
package transcript

import (
	"regexp"
	"strings"

	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/pkg/utils"
)

const (
	// MaxAudioBytes is the largest upload accepted for transcription
	MaxAudioBytes = 25 * 1024 * 1024

	minTextLength  = 5
	maxTextLength  = 1000
	maxTitleLength = 50
	shortText      = 20

	defaultTitle = "Signalement vocal"
	voiceSuffix  = " (Signalement transmis par message vocal)"
)

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

var (
	frenchWords  = []string{"le", "la", "les", "un", "une", "est", "sont", "dans", "sur", "avec", "pour"}
	englishWords = []string{"the", "and", "is", "are", "in", "on", "with", "for"}
)

// Fallback returns the placeholder transcription shown when the speech
// service cannot be reached
func Fallback() *models.Transcription {
	return &models.Transcription{
		OriginalText: "Transcription vocale indisponible",
		ImprovedText: "La transcription vocale n'est pas disponible actuellement. Veuillez saisir votre signalement manuellement.",
		Confidence:   0,
		Language:     "fr",
		FallbackMode: true,
	}
}

// Validate trims text and reports whether it is usable as a report body
func Validate(text string) (bool, string) {
	cleaned := strings.TrimSpace(text)
	n := utils.RuneLen(cleaned)
	valid := n > minTextLength &&
		n < maxTextLength &&
		!strings.Contains(strings.ToLower(cleaned), "transcription failed")
	return valid, cleaned
}

// DetectLanguage guesses between French and English by counting common words
func DetectLanguage(text string) string {
	var fr, en int
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if contains(frenchWords, word) {
			fr++
		}
		if contains(englishWords, word) {
			en++
		}
	}
	if fr > en {
		return "fr"
	}
	return "en"
}

// Format splits a transcription into a report title (first sentence, at most
// 50 characters) and description (full text)
func Format(t *models.Transcription) models.FormattedReport {
	text := t.ImprovedText

	title := strings.TrimSpace(sentenceSplit.Split(text, 2)[0])
	if title == "" {
		title = defaultTitle
	}
	title = utils.Truncate(title, maxTitleLength)

	description := text
	if utils.RuneLen(description) < shortText {
		description += voiceSuffix
	}

	return models.FormattedReport{Title: title, Description: description}
}

func contains(words []string, w string) bool {
	for _, candidate := range words {
		if candidate == w {
			return true
		}
	}
	return false
}
