package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rajasatyajit/ProtectLife/config"
	"github.com/rajasatyajit/ProtectLife/internal/logger"
	"github.com/rajasatyajit/ProtectLife/internal/metrics"
)

const (
	statementTimeout = 30 * time.Second
	pingTimeout      = 5 * time.Second
)

// ErrNotConfigured is returned by query methods when no DATABASE_URL is set
var ErrNotConfigured = errors.New("database not configured")

// DB represents a database connection
type DB struct {
	pool *pgxpool.Pool
	cfg  config.DatabaseConfig
}

// New creates a new database connection
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	if cfg.URL == "" {
		logger.Info("DATABASE_URL not set; using in-memory store only")
		return &DB{pool: nil, cfg: cfg}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug("Database connection established")
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db := &DB{pool: pool, cfg: cfg}

	// ctx outlives connectCtx; metrics stop when the caller's context ends
	go db.collectMetrics(ctx)

	logger.Info("Database connection established",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	return db, nil
}

// Close closes the database connection
func (d *DB) Close() {
	if d.pool != nil {
		d.pool.Close()
		logger.Info("Database connection closed")
	}
}

// collectMetrics periodically collects database metrics
func (d *DB) collectMetrics(ctx context.Context) {
	if d.pool == nil {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stat := d.pool.Stat()
			metrics.SetDBConnectionsActive(float64(stat.AcquiredConns()))
		}
	}
}

// Exec executes a statement
func (d *DB) Exec(ctx context.Context, sql string, args ...any) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	_, err := d.pool.Exec(ctx, sql, args...)
	d.observe("exec", sql, start, err)
	return err
}

// Query executes a query and returns rows. The caller must close the rows;
// cancel ctx to bound the time spent reading them.
func (d *DB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if d.pool == nil {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	rows, err := d.pool.Query(ctx, sql, args...)
	d.observe("query", sql, start, err)
	return rows, err
}

// QueryRow executes a query that returns a single row
func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.pool == nil {
		return errRow{ErrNotConfigured}
	}
	return d.pool.QueryRow(ctx, sql, args...)
}

// InTx runs fn inside a transaction, committing when fn returns nil
func (d *DB) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	err := pgx.BeginFunc(ctx, d.pool, fn)
	d.observe("tx", "", start, err)
	return err
}

func (d *DB) observe(op, sql string, start time.Time, err error) {
	status := "success"
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		status = "error"
		logger.Error("Database "+op+" failed", "error", err, "sql", sql)
	}
	logger.Debug("Database "+op,
		"sql", sql,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	metrics.RecordDBQuery(op, status)
}

// Health checks database connectivity
func (d *DB) Health(ctx context.Context) error {
	if d.pool == nil {
		return ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	return d.pool.Ping(ctx)
}

// IsConfigured returns true if database is configured
func (d *DB) IsConfigured() bool {
	return d.pool != nil
}

// errRow is returned by QueryRow when there is no pool
type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }
