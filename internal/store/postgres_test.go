package store

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/rajasatyajit/ProtectLife/internal/errors"
	"github.com/rajasatyajit/ProtectLife/internal/models"
)

type mockDB struct {
	ExecFn         func(ctx context.Context, sql string, args ...any) error
	QueryFn        func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRowFn     func(ctx context.Context, sql string, args ...any) pgx.Row
	InTxFn         func(ctx context.Context, fn func(tx pgx.Tx) error) error
	HealthFn       func(ctx context.Context) error
	IsConfiguredFn func() bool
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) error {
	if m.ExecFn != nil {
		return m.ExecFn(ctx, sql, args...)
	}
	return nil
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFn != nil {
		return m.QueryFn(ctx, sql, args...)
	}
	return nil, errors.New("no query")
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.QueryRowFn != nil {
		return m.QueryRowFn(ctx, sql, args...)
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (m *mockDB) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if m.InTxFn != nil {
		return m.InTxFn(ctx, fn)
	}
	return nil
}

func (m *mockDB) Health(ctx context.Context) error {
	if m.HealthFn != nil {
		return m.HealthFn(ctx)
	}
	return nil
}

func (m *mockDB) IsConfigured() bool {
	if m.IsConfiguredFn != nil {
		return m.IsConfiguredFn()
	}
	return true
}

type fakeRow struct{ err error }

func (r fakeRow) Scan(dest ...any) error { return r.err }

// statusRow scans a single status column
type statusRow string

func (r statusRow) Scan(dest ...any) error {
	*(dest[0].(*string)) = string(r)
	return nil
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	var statements []string
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) error {
		statements = append(statements, sql)
		return nil
	}}

	if err := NewPostgresStore(db).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(statements) != len(schema) {
		t.Fatalf("expected %d statements, got %d", len(schema), len(statements))
	}
	if !strings.Contains(statements[0], "CREATE TABLE IF NOT EXISTS reports") {
		t.Errorf("unexpected first statement: %s", statements[0])
	}
}

func TestPostgresStore_EnsureSchema_StopsOnError(t *testing.T) {
	calls := 0
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) error {
		calls++
		return errors.New("permission denied")
	}}

	err := NewPostgresStore(db).EnsureSchema(context.Background())
	var dbErr apperrors.DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected to stop after first failure, got %d calls", calls)
	}
}

func TestPostgresStore_CreateReport(t *testing.T) {
	var gotSQL string
	var gotArgs []any
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) error {
		gotSQL, gotArgs = sql, args
		return nil
	}}

	r := &models.Report{UserID: "u1", DangerType: models.DangerFire, Severity: models.SeverityHigh, Title: "Feu"}
	if err := NewPostgresStore(db).CreateReport(context.Background(), r); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if !strings.Contains(gotSQL, "INSERT INTO reports") {
		t.Errorf("unexpected SQL: %s", gotSQL)
	}
	if len(gotArgs) != 20 {
		t.Fatalf("expected 20 args, got %d", len(gotArgs))
	}
	if gotArgs[0] != r.ID || gotArgs[2] != "fire" || gotArgs[4] != "pending" {
		t.Errorf("unexpected args: %v", gotArgs[:5])
	}
}

func TestPostgresStore_CreateReport_PropagatesError(t *testing.T) {
	db := &mockDB{ExecFn: func(ctx context.Context, sql string, args ...any) error {
		return errors.New("exec failure")
	}}

	err := NewPostgresStore(db).CreateReport(context.Background(), &models.Report{})
	var dbErr apperrors.DatabaseError
	if !errors.As(err, &dbErr) || dbErr.Operation != "create report" {
		t.Errorf("expected create report DatabaseError, got %v", err)
	}
}

func TestPostgresStore_NotFound(t *testing.T) {
	s := NewPostgresStore(&mockDB{})
	ctx := context.Background()

	if _, err := s.GetReport(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("GetReport: expected ErrNotFound, got %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "missing", models.StatusConfirmed, "mod"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("UpdateStatus: expected ErrNotFound, got %v", err)
	}
	if err := s.DeleteReport(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("DeleteReport: expected ErrNotFound, got %v", err)
	}
}

func TestPostgresStore_TransitionStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("conditional update", func(t *testing.T) {
		var gotSQL string
		var gotArgs []any
		db := &mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if gotSQL == "" {
				gotSQL, gotArgs = sql, args
			}
			return fakeRow{err: pgx.ErrNoRows}
		}}
		_, _ = NewPostgresStore(db).TransitionStatus(ctx, "r1", models.StatusPending, models.StatusExpired, "system")

		if !strings.Contains(gotSQL, "WHERE id = $1 AND status = $6") {
			t.Errorf("expected status guard, got SQL: %s", gotSQL)
		}
		if len(gotArgs) != 6 || gotArgs[1] != "expired" || gotArgs[5] != "pending" {
			t.Errorf("unexpected args: %v", gotArgs)
		}
	})

	t.Run("status moved on", func(t *testing.T) {
		db := &mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			if strings.Contains(sql, "SELECT status") {
				return statusRow("confirmed")
			}
			return fakeRow{err: pgx.ErrNoRows}
		}}
		_, err := NewPostgresStore(db).TransitionStatus(ctx, "r1", models.StatusPending, models.StatusExpired, "system")
		if !errors.Is(err, apperrors.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("missing report", func(t *testing.T) {
		_, err := NewPostgresStore(&mockDB{}).TransitionStatus(ctx, "r1", models.StatusPending, models.StatusExpired, "system")
		if !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPostgresStore_GetReport_ScanError(t *testing.T) {
	db := &mockDB{QueryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
		return fakeRow{err: errors.New("conn reset")}
	}}

	_, err := NewPostgresStore(db).GetReport(context.Background(), "id")
	if errors.Is(err, apperrors.ErrNotFound) {
		t.Fatal("scan failure must not look like not found")
	}
	var dbErr apperrors.DatabaseError
	if !errors.As(err, &dbErr) {
		t.Errorf("expected DatabaseError, got %v", err)
	}
}

func TestPostgresStore_QueryReports_PropagatesError(t *testing.T) {
	db := &mockDB{QueryFn: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return nil, errors.New("query failure")
	}}

	_, err := NewPostgresStore(db).QueryReports(context.Background(), models.ReportQuery{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestPostgresStore_VoteTxErrors(t *testing.T) {
	tests := []struct {
		name     string
		txErr    error
		expected error
	}{
		{"not found passes through", apperrors.ErrNotFound, apperrors.ErrNotFound},
		{"conflict passes through", apperrors.ErrConflict, apperrors.ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &mockDB{InTxFn: func(ctx context.Context, fn func(tx pgx.Tx) error) error {
				return tt.txErr
			}}
			s := NewPostgresStore(db)

			if _, err := s.CastVote(context.Background(), "r", "u", models.VoteUp); !errors.Is(err, tt.expected) {
				t.Errorf("CastVote: expected %v, got %v", tt.expected, err)
			}
			if _, err := s.RemoveVote(context.Background(), "r", "u"); !errors.Is(err, tt.expected) {
				t.Errorf("RemoveVote: expected %v, got %v", tt.expected, err)
			}
		})
	}

	db := &mockDB{InTxFn: func(ctx context.Context, fn func(tx pgx.Tx) error) error {
		return errors.New("serialization failure")
	}}
	_, err := NewPostgresStore(db).CastVote(context.Background(), "r", "u", models.VoteUp)
	var dbErr apperrors.DatabaseError
	if !errors.As(err, &dbErr) || dbErr.Operation != "cast vote" {
		t.Errorf("expected cast vote DatabaseError, got %v", err)
	}
}

func TestBuildReportQuery(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		query    models.ReportQuery
		contains []string
		args     []any
	}{
		{
			name:     "Empty query",
			query:    models.ReportQuery{},
			contains: []string{"WHERE 1=1 ORDER BY created_at DESC, id ASC"},
			args:     nil,
		},
		{
			name: "All filters",
			query: models.ReportQuery{
				DangerTypes: []models.DangerType{models.DangerFire},
				Severities:  []models.Severity{models.SeverityHigh},
				Statuses:    []models.ReportStatus{models.StatusPending},
				Communes:    []string{"Cocody"},
				UserID:      "u1",
				Since:       since,
				Limit:       10,
				Offset:      20,
			},
			contains: []string{
				"danger_type = ANY($1)",
				"severity = ANY($2)",
				"status = ANY($3)",
				"commune = ANY($4)",
				"user_id = $5",
				"created_at >= $6",
				"LIMIT $7",
				"OFFSET $8",
			},
			args: []any{[]string{"fire"}, []string{"high"}, []string{"pending"}, []string{"Cocody"}, "u1", since, 10, 20},
		},
		{
			name:     "Offset only",
			query:    models.ReportQuery{Offset: 5},
			contains: []string{"OFFSET $1"},
			args:     []any{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildReportQuery(tt.query)
			for _, want := range tt.contains {
				if !strings.Contains(sql, want) {
					t.Errorf("expected SQL to contain %q, got %s", want, sql)
				}
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("expected args %v, got %v", tt.args, args)
			}
		})
	}
}
