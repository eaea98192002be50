package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/rajasatyajit/ProtectLife/pkg/utils"
)

// usageTTL keeps yesterday's counters readable for a day after rollover
const usageTTL = 48 * time.Hour

// Options configures the Redis connection
type Options struct {
	URL      string
	Password string
	DB       int
}

// Manager provides Redis-backed rate limiting and daily usage accounting
type Manager struct {
	redis *redis.Client
	now   func() time.Time
}

// NewManager connects to Redis and verifies the connection
func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	opt, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Password != "" {
		opt.Password = opts.Password
	}
	if opts.DB != 0 {
		opt.DB = opts.DB
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewManagerWithClient(client), nil
}

// NewManagerWithClient wraps an existing client
func NewManagerWithClient(client *redis.Client) *Manager {
	return &Manager{redis: client, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Manager) Close() error { return m.redis.Close() }

// Health pings Redis
func (m *Manager) Health(ctx context.Context) error {
	return m.redis.Ping(ctx).Err()
}

// Decision is the outcome of a rate check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetSec is the number of seconds until the current window ends
	ResetSec int
}

// CheckRate counts one request for client in bucket against a per-minute
// limit. Client identifiers are hashed before they reach Redis.
func (m *Manager) CheckRate(ctx context.Context, bucket, client string, limit int) (Decision, error) {
	now := m.now()
	window := now.Unix() / 60
	rk := fmt.Sprintf("rl:%s:%s:%d", bucket, utils.HashString(client), window)

	pipe := m.redis.TxPipeline()
	incr := pipe.Incr(ctx, rk)
	pipe.Expire(ctx, rk, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incr.Val())
	d := Decision{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: limit - count,
		ResetSec:  60 - int(now.Unix()%60),
	}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	return d, nil
}

func dayKey(t time.Time) string { return t.UTC().Format("20060102") }

// IncUsage increments today's counter for an AI route
func (m *Manager) IncUsage(ctx context.Context, route string) error {
	k := fmt.Sprintf("usage:%s:%s", dayKey(m.now()), route)
	pipe := m.redis.TxPipeline()
	pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, usageTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// DailyUsage returns the per-route counters for the given day
func (m *Manager) DailyUsage(ctx context.Context, day time.Time) (map[string]int, error) {
	res := make(map[string]int)
	prefix := fmt.Sprintf("usage:%s:", dayKey(day))

	var cursor uint64
	for {
		keys, cur, err := m.redis.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		cursor = cur
		for _, k := range keys {
			raw, err := m.redis.Get(ctx, k).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, err
			}
			v, err := strconv.Atoi(raw)
			if err != nil {
				continue
			}
			res[strings.TrimPrefix(k, prefix)] = v
		}
		if cursor == 0 {
			break
		}
	}
	return res, nil
}
