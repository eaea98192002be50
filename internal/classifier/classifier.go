package classifier

import (
	"strings"

	"github.com/rajasatyajit/ProtectLife/internal/models"
	"github.com/rajasatyajit/ProtectLife/pkg/utils"
)

// FallbackConfidence is the confidence reported for keyword-based analyses
const FallbackConfidence = 75

type dangerRule struct {
	dangerType models.DangerType
	keywords   []string
}

// dangerRules is checked in order; the first rule with a match wins, so
// accident terms take priority over infrastructure terms.
var dangerRules = []dangerRule{
	{models.DangerTrafficAccident, []string{"accident", "collision", "voiture", "moto"}},
	{models.DangerFire, []string{"feu", "incendie", "fumée", "brûle"}},
	{models.DangerCrime, []string{"vol", "agression", "voleur", "attaque"}},
	{models.DangerMedicalEmergency, []string{"urgence", "blessé", "médical", "ambulance"}},
	{models.DangerNaturalDisaster, []string{"inondation", "pluie", "eau", "inondé"}},
	{models.DangerInfrastructureIssue, []string{"route", "trou", "dégradé", "cassé"}},
	{models.DangerEnvironmentalHazard, []string{"pollution", "odeur", "déversement"}},
}

var (
	criticalKeywords = []string{"urgent", "grave", "critique", "danger"}
	highKeywords     = []string{"important", "sérieux", "attention"}
	lowKeywords      = []string{"léger", "petit", "mineur"}
)

// Classifier provides keyword-based hazard classification
type Classifier struct{}

// New creates a new classifier instance
func New() *Classifier {
	return &Classifier{}
}

// Classify maps a report title and description to a danger type and severity.
// It is total: empty input yields (other, medium).
func (c *Classifier) Classify(title, description string) (models.DangerType, models.Severity) {
	text := strings.ToLower(title + " " + description)
	return c.classifyDanger(text), c.classifySeverity(description)
}

// Analyze classifies a draft and explains the result with the fixed fallback
// confidence
func (c *Classifier) Analyze(title, description string) models.Analysis {
	dangerType, severity := c.Classify(title, description)
	reasoning, actions := Explain(dangerType, severity)

	return models.Analysis{
		DangerType:       dangerType,
		Severity:         severity,
		Confidence:       FallbackConfidence,
		Reasoning:        reasoning,
		SuggestedActions: actions,
	}
}

// classifyDanger determines the danger type of lower-cased text
func (c *Classifier) classifyDanger(text string) models.DangerType {
	for _, rule := range dangerRules {
		if utils.ContainsAny(text, rule.keywords) {
			return rule.dangerType
		}
	}
	return models.DangerOther
}

// classifySeverity determines the severity level from a description
func (c *Classifier) classifySeverity(description string) models.Severity {
	text := strings.ToLower(description)

	switch {
	case utils.ContainsAny(text, criticalKeywords):
		return models.SeverityCritical
	case utils.ContainsAny(text, highKeywords):
		return models.SeverityHigh
	case utils.ContainsAny(text, lowKeywords):
		return models.SeverityLow
	}

	return models.SeverityMedium
}
