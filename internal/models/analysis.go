package models

// ReportDraft is the text submitted for analysis before a report is stored
type ReportDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location,omitempty"`
}

// Analysis is the classification of a report draft, produced either by the
// remote model or by the local keyword fallback
type Analysis struct {
	DangerType       DangerType `json:"dangerType"`
	Severity         Severity   `json:"severity"`
	Confidence       int        `json:"confidence"`
	Reasoning        string     `json:"reasoning"`
	SuggestedActions []string   `json:"suggestedActions"`
	FallbackMode     bool       `json:"fallbackMode,omitempty"`
	Notice           string     `json:"notice,omitempty"`
}

// Enhancement is a rewritten report description
type Enhancement struct {
	Enhanced     string `json:"enhanced"`
	FallbackMode bool   `json:"fallbackMode,omitempty"`
	Notice       string `json:"notice,omitempty"`
}

// AdviceResponse carries a safety advice paragraph
type AdviceResponse struct {
	Advice       string `json:"advice"`
	FallbackMode bool   `json:"fallbackMode,omitempty"`
}

// FormattedReport is a transcription split into report fields
type FormattedReport struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Transcription is the result of turning a voice message into report text
type Transcription struct {
	OriginalText string           `json:"originalText"`
	ImprovedText string           `json:"improvedText"`
	Confidence   int              `json:"confidence"`
	Language     string           `json:"language"`
	FallbackMode bool             `json:"fallbackMode,omitempty"`
	Formatted    *FormattedReport `json:"formatted,omitempty"`
	IsValid      bool             `json:"isValid,omitempty"`
	Notice       string           `json:"notice,omitempty"`
}
