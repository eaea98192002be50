package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"

	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// Store defines the interface for report storage. Lookups of unknown ids
// return an error matching apperrors.ErrNotFound.
type Store interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus, moderator string) (*models.Report, error)
	// TransitionStatus changes the status only while the report is still in
	// from, failing with apperrors.ErrConflict otherwise
	TransitionStatus(ctx context.Context, id string, from, to models.ReportStatus, moderator string) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error

	// CastVote records a user's vote. Repeating the same vote type fails with
	// apperrors.ErrConflict; a different type replaces the previous vote.
	CastVote(ctx context.Context, reportID, userID string, voteType models.VoteType) (*VoteResult, error)
	// RemoveVote withdraws a user's vote, failing with ErrNotFound if none exists
	RemoveVote(ctx context.Context, reportID, userID string) (*VoteResult, error)

	Health(ctx context.Context) error
}

// VoteResult is the report after a vote change
type VoteResult struct {
	Report *models.Report
	// Previous is the vote type that was replaced or removed, empty for a
	// first vote
	Previous models.VoteType
}

// Database interface for dependency injection
type Database interface {
	Exec(ctx context.Context, sql string, args ...any) error
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	Health(ctx context.Context) error
	IsConfigured() bool
}

// New creates a new store instance
func New(db Database) Store {
	if db.IsConfigured() {
		return NewPostgresStore(db)
	}
	// Fallback to in-memory store if no database
	return NewInMemoryStore()
}

// prepareReport fills the server-assigned fields of a new report
func prepareReport(r *models.Report, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	r.Upvotes, r.Downvotes, r.Confirmations = 0, 0, 0
	r.CreatedAt, r.UpdatedAt = now, now
	r.ResolvedAt, r.ResolvedBy = nil, ""
}

// resolution returns the resolvedAt/resolvedBy values for a status change.
// Only the resolved status carries them.
func resolution(status models.ReportStatus, moderator string, now time.Time) (*time.Time, string) {
	if status != models.StatusResolved {
		return nil, ""
	}
	return &now, moderator
}
