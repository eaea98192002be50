package models

import "time"

// ReportStatus is the moderation state of a report
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusConfirmed  ReportStatus = "confirmed"
	StatusResolved   ReportStatus = "resolved"
	StatusFalseAlarm ReportStatus = "false_alarm"
	StatusExpired    ReportStatus = "expired"
)

// Valid reports whether s is a known status
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusResolved, StatusFalseAlarm, StatusExpired:
		return true
	}
	return false
}

// Location is where a hazard was observed
type Location struct {
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	Address   string  `json:"address,omitempty" db:"address"`
	Commune   string  `json:"commune,omitempty" db:"commune"`
}

// Report represents a community hazard report
type Report struct {
	ID            string       `json:"id" db:"id"`
	UserID        string       `json:"userId" db:"user_id"`
	DangerType    DangerType   `json:"dangerType" db:"danger_type"`
	Severity      Severity     `json:"severity" db:"severity"`
	Status        ReportStatus `json:"status" db:"status"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description" db:"description"`
	Location      Location     `json:"location"`
	Images        []string     `json:"images" db:"images"`
	Upvotes       int          `json:"upvotes" db:"upvotes"`
	Downvotes     int          `json:"downvotes" db:"downvotes"`
	Confirmations int          `json:"confirmations" db:"confirmations"`
	Analysis      *Analysis    `json:"analysis,omitempty" db:"analysis"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
	ResolvedAt    *time.Time   `json:"resolvedAt,omitempty" db:"resolved_at"`
	ResolvedBy    string       `json:"resolvedBy,omitempty" db:"resolved_by"`
}

// VoteType is the kind of feedback a user leaves on a report
type VoteType string

const (
	VoteUp      VoteType = "upvote"
	VoteDown    VoteType = "downvote"
	VoteConfirm VoteType = "confirm"
)

// Valid reports whether v is a known vote type
func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown || v == VoteConfirm
}

// Vote is a single user's feedback on a report
type Vote struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	ReportID  string    `json:"reportId" db:"report_id"`
	VoteType  VoteType  `json:"voteType" db:"vote_type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// ApplyVote adjusts the report counters for a vote being added (delta=1)
// or withdrawn (delta=-1)
func (r *Report) ApplyVote(v VoteType, delta int) {
	switch v {
	case VoteUp:
		r.Upvotes += delta
	case VoteDown:
		r.Downvotes += delta
	case VoteConfirm:
		r.Confirmations += delta
	}
}

// ReportQuery represents query parameters for filtering reports
type ReportQuery struct {
	DangerTypes []DangerType   `json:"dangerTypes"`
	Severities  []Severity     `json:"severities"`
	Statuses    []ReportStatus `json:"statuses"`
	Communes    []string       `json:"communes"`
	UserID      string         `json:"userId"`
	Since       time.Time      `json:"since"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
}

// Matches checks if a report matches the query criteria
func (q ReportQuery) Matches(r Report) bool {
	if len(q.DangerTypes) > 0 && !contains(q.DangerTypes, r.DangerType) {
		return false
	}
	if len(q.Severities) > 0 && !contains(q.Severities, r.Severity) {
		return false
	}
	if len(q.Statuses) > 0 && !contains(q.Statuses, r.Status) {
		return false
	}
	if len(q.Communes) > 0 && !contains(q.Communes, r.Location.Commune) {
		return false
	}
	if q.UserID != "" && q.UserID != r.UserID {
		return false
	}
	if !q.Since.IsZero() && r.CreatedAt.Before(q.Since) {
		return false
	}
	return true
}

func contains[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
