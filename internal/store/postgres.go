package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

// schema is applied statement by statement by EnsureSchema
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reports (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		danger_type   TEXT NOT NULL,
		severity      TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'pending',
		title         TEXT NOT NULL,
		description   TEXT NOT NULL,
		latitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude     DOUBLE PRECISION NOT NULL DEFAULT 0,
		address       TEXT NOT NULL DEFAULT '',
		commune       TEXT NOT NULL DEFAULT '',
		images        TEXT[] NOT NULL DEFAULT '{}',
		upvotes       INTEGER NOT NULL DEFAULT 0,
		downvotes     INTEGER NOT NULL DEFAULT 0,
		confirmations INTEGER NOT NULL DEFAULT 0,
		analysis      JSONB,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at   TIMESTAMPTZ,
		resolved_by   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_status ON reports (status)`,
	`CREATE INDEX IF NOT EXISTS idx_reports_commune ON reports (commune)`,
	`CREATE TABLE IF NOT EXISTS report_votes (
		id         TEXT PRIMARY KEY,
		report_id  TEXT NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		user_id    TEXT NOT NULL,
		vote_type  TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (report_id, user_id)
	)`,
}

const reportColumns = `id, user_id, danger_type, severity, status, title, description,
	latitude, longitude, address, commune, images, upvotes, downvotes, confirmations,
	analysis, created_at, updated_at, resolved_at, resolved_by`

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db Database
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(db Database) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables and indexes if they are missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if err := s.db.Exec(ctx, stmt); err != nil {
			return apperrors.DatabaseError{Operation: "ensure schema", Err: err}
		}
	}
	return nil
}

// CreateReport inserts a new report
func (s *PostgresStore) CreateReport(ctx context.Context, r *models.Report) error {
	prepareReport(r, time.Now().UTC())

	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	err := s.db.Exec(ctx, query,
		r.ID, r.UserID, string(r.DangerType), string(r.Severity), string(r.Status),
		r.Title, r.Description, r.Location.Latitude, r.Location.Longitude,
		r.Location.Address, r.Location.Commune, r.Images,
		r.Upvotes, r.Downvotes, r.Confirmations, r.Analysis,
		r.CreatedAt, r.UpdatedAt, r.ResolvedAt, r.ResolvedBy,
	)
	if err != nil {
		return apperrors.DatabaseError{Operation: "create report", Err: err}
	}
	return nil
}

// GetReport retrieves a single report by ID
func (s *PostgresStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row := s.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id)
	return scanReportRow(row, "get report", id)
}

// QueryReports retrieves reports based on query parameters
func (s *PostgresStore) QueryReports(ctx context.Context, q models.ReportQuery) ([]models.Report, error) {
	query, args := buildReportQuery(q)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.DatabaseError{Operation: "query reports", Err: err}
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, apperrors.DatabaseError{Operation: "scan report", Err: err}
		}
		reports = append(reports, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError{Operation: "query reports", Err: err}
	}

	return reports, nil
}

// buildReportQuery translates q into SQL with positional arguments
func buildReportQuery(q models.ReportQuery) (string, []any) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE 1=1`

	var args []any
	argIndex := 1

	if len(q.DangerTypes) > 0 {
		query += fmt.Sprintf(" AND danger_type = ANY($%d)", argIndex)
		args = append(args, toStrings(q.DangerTypes))
		argIndex++
	}

	if len(q.Severities) > 0 {
		query += fmt.Sprintf(" AND severity = ANY($%d)", argIndex)
		args = append(args, toStrings(q.Severities))
		argIndex++
	}

	if len(q.Statuses) > 0 {
		query += fmt.Sprintf(" AND status = ANY($%d)", argIndex)
		args = append(args, toStrings(q.Statuses))
		argIndex++
	}

	if len(q.Communes) > 0 {
		query += fmt.Sprintf(" AND commune = ANY($%d)", argIndex)
		args = append(args, q.Communes)
		argIndex++
	}

	if q.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, q.UserID)
		argIndex++
	}

	if !q.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, q.Since)
		argIndex++
	}

	query += " ORDER BY created_at DESC, id ASC"

	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, q.Limit)
		argIndex++
	}

	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, q.Offset)
	}

	return query, args
}

// UpdateStatus changes the moderation status of a report
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.ReportStatus, moderator string) (*models.Report, error) {
	now := time.Now().UTC()
	resolvedAt, resolvedBy := resolution(status, moderator, now)

	row := s.db.QueryRow(ctx, `
		UPDATE reports
		SET status = $2, updated_at = $3, resolved_at = $4, resolved_by = $5
		WHERE id = $1
		RETURNING `+reportColumns,
		id, string(status), now, resolvedAt, resolvedBy,
	)
	return scanReportRow(row, "update status", id)
}

// TransitionStatus changes the status only while the report is still in from
func (s *PostgresStore) TransitionStatus(ctx context.Context, id string, from, to models.ReportStatus, moderator string) (*models.Report, error) {
	now := time.Now().UTC()
	resolvedAt, resolvedBy := resolution(to, moderator, now)

	row := s.db.QueryRow(ctx, `
		UPDATE reports
		SET status = $2, updated_at = $3, resolved_at = $4, resolved_by = $5
		WHERE id = $1 AND status = $6
		RETURNING `+reportColumns,
		id, string(to), now, resolvedAt, resolvedBy, string(from),
	)
	r, err := scanReportRow(row, "transition status", id)
	if !errors.Is(err, apperrors.ErrNotFound) {
		return r, err
	}

	// Nothing updated: tell a missing report apart from one that moved on
	var current string
	switch err := s.db.QueryRow(ctx, `SELECT status FROM reports WHERE id = $1`, id).Scan(&current); {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	case err != nil:
		return nil, apperrors.DatabaseError{Operation: "transition status", Err: err}
	}
	return nil, fmt.Errorf("report %s is %s, not %s: %w", id, current, from, apperrors.ErrConflict)
}

// DeleteReport removes a report; its votes are removed by cascade
func (s *PostgresStore) DeleteReport(ctx context.Context, id string) error {
	var deleted string
	err := s.db.QueryRow(ctx, `DELETE FROM reports WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return apperrors.DatabaseError{Operation: "delete report", Err: err}
	}
	return nil
}

// CastVote records or replaces a user's vote inside one transaction
func (s *PostgresStore) CastVote(ctx context.Context, reportID, userID string, voteType models.VoteType) (*VoteResult, error) {
	var result *VoteResult

	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockReport(ctx, tx, reportID); err != nil {
			return err
		}

		prev, err := currentVote(ctx, tx, reportID, userID)
		if err != nil {
			return err
		}
		if prev == voteType {
			return fmt.Errorf("user already voted %s: %w", voteType, apperrors.ErrConflict)
		}

		if prev == "" {
			_, err = tx.Exec(ctx, `
				INSERT INTO report_votes (id, report_id, user_id, vote_type, created_at)
				VALUES ($1, $2, $3, $4, NOW())`,
				uuid.NewString(), reportID, userID, string(voteType),
			)
		} else {
			_, err = tx.Exec(ctx, `
				UPDATE report_votes SET vote_type = $3, created_at = NOW()
				WHERE report_id = $1 AND user_id = $2`,
				reportID, userID, string(voteType),
			)
		}
		if err != nil {
			return fmt.Errorf("save vote: %w", err)
		}

		var delta models.Report
		delta.ApplyVote(prev, -1)
		delta.ApplyVote(voteType, 1)

		report, err := applyCounters(ctx, tx, reportID, delta)
		if err != nil {
			return err
		}
		result = &VoteResult{Report: report, Previous: prev}
		return nil
	})
	if err != nil {
		return nil, wrapTxError("cast vote", err)
	}
	return result, nil
}

// RemoveVote withdraws a user's vote inside one transaction
func (s *PostgresStore) RemoveVote(ctx context.Context, reportID, userID string) (*VoteResult, error) {
	var result *VoteResult

	err := s.db.InTx(ctx, func(tx pgx.Tx) error {
		if err := lockReport(ctx, tx, reportID); err != nil {
			return err
		}

		var prev string
		err := tx.QueryRow(ctx, `
			DELETE FROM report_votes WHERE report_id = $1 AND user_id = $2
			RETURNING vote_type`,
			reportID, userID,
		).Scan(&prev)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("vote by %s: %w", userID, apperrors.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("delete vote: %w", err)
		}

		var delta models.Report
		delta.ApplyVote(models.VoteType(prev), -1)

		report, err := applyCounters(ctx, tx, reportID, delta)
		if err != nil {
			return err
		}
		result = &VoteResult{Report: report, Previous: models.VoteType(prev)}
		return nil
	})
	if err != nil {
		return nil, wrapTxError("remove vote", err)
	}
	return result, nil
}

// Health checks the database connection
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.Health(ctx)
}

func lockReport(ctx context.Context, tx pgx.Tx, reportID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM reports WHERE id = $1 FOR UPDATE`, reportID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("report %s: %w", reportID, apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock report: %w", err)
	}
	return nil
}

func currentVote(ctx context.Context, tx pgx.Tx, reportID, userID string) (models.VoteType, error) {
	var vt string
	err := tx.QueryRow(ctx,
		`SELECT vote_type FROM report_votes WHERE report_id = $1 AND user_id = $2`,
		reportID, userID,
	).Scan(&vt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load vote: %w", err)
	}
	return models.VoteType(vt), nil
}

// applyCounters adds the counters of delta to the stored report
func applyCounters(ctx context.Context, tx pgx.Tx, reportID string, delta models.Report) (*models.Report, error) {
	row := tx.QueryRow(ctx, `
		UPDATE reports
		SET upvotes = upvotes + $2,
			downvotes = downvotes + $3,
			confirmations = confirmations + $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+reportColumns,
		reportID, delta.Upvotes, delta.Downvotes, delta.Confirmations,
	)
	r, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("update counters: %w", err)
	}
	return r, nil
}

// wrapTxError keeps domain errors as they are and tags everything else as a
// database failure
func wrapTxError(op string, err error) error {
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
		return err
	}
	return apperrors.DatabaseError{Operation: op, Err: err}
}

func scanReportRow(row pgx.Row, op, id string) (*models.Report, error) {
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("report %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.DatabaseError{Operation: op, Err: err}
	}
	return r, nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var (
		r                            models.Report
		dangerType, severity, status string
	)
	err := row.Scan(
		&r.ID, &r.UserID, &dangerType, &severity, &status, &r.Title, &r.Description,
		&r.Location.Latitude, &r.Location.Longitude, &r.Location.Address, &r.Location.Commune,
		&r.Images, &r.Upvotes, &r.Downvotes, &r.Confirmations,
		&r.Analysis, &r.CreatedAt, &r.UpdatedAt, &r.ResolvedAt, &r.ResolvedBy,
	)
	if err != nil {
		return nil, err
	}
	r.DangerType = models.DangerType(dangerType)
	r.Severity = models.Severity(severity)
	r.Status = models.ReportStatus(status)
	return &r, nil
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
