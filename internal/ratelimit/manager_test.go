package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	m, err := NewManager(context.Background(), Options{URL: "redis://" + s.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m, s
}

func TestNewManager_BadURL(t *testing.T) {
	_, err := NewManager(context.Background(), Options{URL: "not-a-url"})
	assert.Error(t, err)
}

func TestNewManager_Unreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()

	_, err := NewManager(context.Background(), Options{URL: "redis://" + addr})
	assert.Error(t, err)
}

func TestCheckRate(t *testing.T) {
	m, _ := newTestManager(t)
	m.now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 15, 0, time.UTC) }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := m.CheckRate(ctx, "ai", "10.0.0.1", 3)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "request %d", i)
		assert.Equal(t, 3-i, d.Remaining)
		assert.Equal(t, 45, d.ResetSec)
	}

	d, err := m.CheckRate(ctx, "ai", "10.0.0.1", 3)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	// other clients and buckets are independent
	d, err = m.CheckRate(ctx, "ai", "10.0.0.2", 3)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = m.CheckRate(ctx, "reports", "10.0.0.1", 3)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckRate_NewWindow(t *testing.T) {
	m, _ := newTestManager(t)
	now := time.Date(2024, 6, 15, 10, 0, 59, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	d, err := m.CheckRate(ctx, "ai", "client", 1)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = m.CheckRate(ctx, "ai", "client", 1)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	now = now.Add(2 * time.Second)
	d, err = m.CheckRate(ctx, "ai", "client", 1)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestCheckRate_HashesClient(t *testing.T) {
	m, s := newTestManager(t)
	_, err := m.CheckRate(context.Background(), "ai", "secret-client", 5)
	require.NoError(t, err)

	for _, k := range s.Keys() {
		assert.NotContains(t, k, "secret-client")
	}
	assert.Len(t, s.Keys(), 1)
}

func TestUsage(t *testing.T) {
	m, s := newTestManager(t)
	day := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return day }
	ctx := context.Background()

	require.NoError(t, m.IncUsage(ctx, "analyze-report"))
	require.NoError(t, m.IncUsage(ctx, "analyze-report"))
	require.NoError(t, m.IncUsage(ctx, "safety-advice"))

	usage, err := m.DailyUsage(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"analyze-report": 2, "safety-advice": 1}, usage)

	ttl := s.TTL("usage:20240615:analyze-report")
	assert.Equal(t, usageTTL, ttl)

	other, err := m.DailyUsage(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestHealth(t *testing.T) {
	m, s := newTestManager(t)
	assert.NoError(t, m.Health(context.Background()))

	s.Close()
	assert.Error(t, m.Health(context.Background()))
}
