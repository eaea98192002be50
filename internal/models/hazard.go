package models

// DangerType is the fixed category of a hazard report
type DangerType string

const (
	DangerTrafficAccident     DangerType = "traffic_accident"
	DangerFire                DangerType = "fire"
	DangerMedicalEmergency    DangerType = "medical_emergency"
	DangerCrime               DangerType = "crime"
	DangerNaturalDisaster     DangerType = "natural_disaster"
	DangerInfrastructureIssue DangerType = "infrastructure_issue"
	DangerEnvironmentalHazard DangerType = "environmental_hazard"
	DangerOther               DangerType = "other"
)

// DangerTypes lists every category in declaration order
var DangerTypes = []DangerType{
	DangerTrafficAccident,
	DangerFire,
	DangerMedicalEmergency,
	DangerCrime,
	DangerNaturalDisaster,
	DangerInfrastructureIssue,
	DangerEnvironmentalHazard,
	DangerOther,
}

// Valid reports whether d is one of the known categories
func (d DangerType) Valid() bool {
	for _, known := range DangerTypes {
		if d == known {
			return true
		}
	}
	return false
}

// Severity is the ordered urgency level of a report
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every level from least to most urgent
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the position of s in the severity order, or -1 when unknown
func (s Severity) Rank() int {
	for i, known := range Severities {
		if s == known {
			return i
		}
	}
	return -1
}

// Valid reports whether s is one of the known levels
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// AtLeast reports whether s is as urgent as other
func (s Severity) AtLeast(other Severity) bool {
	return s.Valid() && s.Rank() >= other.Rank()
}
