package jobs

import (
	"context"
	"fmt"
	"time"
)

const usageSchema = `CREATE TABLE IF NOT EXISTS ai_usage_daily (
	day        DATE NOT NULL,
	route      TEXT NOT NULL,
	requests   INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (day, route)
)`

const upsertUsage = `
	INSERT INTO ai_usage_daily (day, route, requests, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (day, route)
	DO UPDATE SET requests = EXCLUDED.requests, updated_at = EXCLUDED.updated_at`

// UsageSource provides the per-route AI counters for a day
type UsageSource interface {
	DailyUsage(ctx context.Context, day time.Time) (map[string]int, error)
}

// Execer runs a statement without returning rows
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) error
}

// UsageFlush copies the Redis AI usage counters into Postgres so they
// outlive the Redis key TTL
type UsageFlush struct {
	source   UsageSource
	db       Execer
	interval time.Duration
	now      func() time.Time
}

// NewUsageFlush creates the usage flush job
func NewUsageFlush(source UsageSource, db Execer, interval time.Duration) *UsageFlush {
	return &UsageFlush{source: source, db: db, interval: interval, now: time.Now}
}

func (j *UsageFlush) Name() string            { return "flush_ai_usage" }
func (j *UsageFlush) Interval() time.Duration { return j.interval }

// EnsureSchema creates the ai_usage_daily table
func (j *UsageFlush) EnsureSchema(ctx context.Context) error {
	if err := j.db.Exec(ctx, usageSchema); err != nil {
		return fmt.Errorf("create ai_usage_daily: %w", err)
	}
	return nil
}

// Run writes today's counters. Yesterday is flushed too so the last minutes
// before midnight are not lost.
func (j *UsageFlush) Run(ctx context.Context) error {
	today := j.now().UTC()
	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		counts, err := j.source.DailyUsage(ctx, day)
		if err != nil {
			return fmt.Errorf("read usage for %s: %w", day.Format(time.DateOnly), err)
		}
		date := day.Format(time.DateOnly)
		for route, n := range counts {
			if err := j.db.Exec(ctx, upsertUsage, date, route, n); err != nil {
				return fmt.Errorf("store usage for %s/%s: %w", date, route, err)
			}
		}
	}
	return nil
}
