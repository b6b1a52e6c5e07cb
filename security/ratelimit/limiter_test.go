package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayflow/gatekeeper/adapters/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRules(window time.Duration, limit int64) map[Category]Rule {
	rules := DefaultRules()
	rules[CategoryAuth] = Rule{Window: window, Limit: limit}
	return rules
}

func TestCheck_AllowsUpToLimit(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(store.NewMemoryStore(), discardLogger(), WithRules(testRules(time.Minute, 3)))

	for i := range 3 {
		result := l.Check(ctx, CategoryAuth, "ip:1.2.3.4")
		assert.False(t, result.Limited, "request %d should be allowed", i+1)
		assert.Equal(t, int64(3), result.Limit)
		assert.Equal(t, int64(3-(i+1)), result.Remaining)
	}

	result := l.Check(ctx, CategoryAuth, "ip:1.2.3.4")
	assert.True(t, result.Limited)
	assert.Zero(t, result.Remaining)
	assert.Greater(t, result.RetryAfter, time.Duration(0))
}

func TestCheck_WindowSlides(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(store.NewMemoryStore(), discardLogger(), WithRules(testRules(30*time.Millisecond, 1)))

	require.False(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)
	require.True(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)

	time.Sleep(50 * time.Millisecond)

	assert.False(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited, "a new request succeeds after the window elapses")
}

func TestCheck_RejectedRequestsNotRecorded(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(store.NewMemoryStore(), discardLogger(), WithRules(testRules(50*time.Millisecond, 2)))

	require.False(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)
	require.False(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)

	// Retries while limited must not consume window budget.
	require.True(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)
	require.True(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)

	time.Sleep(70 * time.Millisecond)

	assert.False(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited,
		"a request after the accepted entries aged out should be allowed")
}

func TestCheck_UnknownCategoryFallsBack(t *testing.T) {
	ctx := context.Background()

	// Rules without a global entry still resolve to a usable rule.
	l := NewLimiter(store.NewMemoryStore(), discardLogger(),
		WithRules(map[Category]Rule{CategoryAuth: {Window: time.Minute, Limit: 1}}))

	result := l.Check(ctx, Category("unknown"), "ip:1.2.3.4")
	assert.False(t, result.Limited)
	assert.Equal(t, int64(1000), result.Limit)

	l = NewLimiter(store.NewMemoryStore(), discardLogger(),
		WithRules(map[Category]Rule{CategoryAuth: {Window: time.Minute, Limit: 1}}),
		WithWhitelist([]string{"10.0.0.1"}))

	result = l.CheckRequest(ctx, Category("unknown"), "10.0.0.1", "")
	assert.False(t, result.Limited)
	assert.Equal(t, int64(1000), result.Limit)
}

func TestCheck_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(store.NewMemoryStore(), discardLogger(), WithRules(testRules(time.Minute, 1)))

	require.False(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)
	require.True(t, l.Check(ctx, CategoryAuth, "ip:1.2.3.4").Limited)

	assert.False(t, l.Check(ctx, CategoryAuth, "ip:5.6.7.8").Limited)
	assert.False(t, l.Check(ctx, CategoryAPI, "ip:1.2.3.4").Limited, "categories have separate windows")
}

type downStore struct{}

func (downStore) Window(ctx context.Context, key string, windowStart time.Time) (int64, time.Time, error) {
	return 0, time.Time{}, errors.New("connection refused")
}

func (downStore) Record(ctx context.Context, key string, now time.Time, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (downStore) Count(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestCheck_FailsOpenOnStoreError(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(downStore{}, discardLogger(), WithRules(testRules(time.Minute, 1)))

	for range 10 {
		result := l.Check(ctx, CategoryAuth, "ip:1.2.3.4")
		assert.False(t, result.Limited, "limiter must fail open when the store is unreachable")
	}
}

func TestCheckRequest_WhitelistBypasses(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(store.NewMemoryStore(), discardLogger(),
		WithRules(testRules(time.Minute, 1)),
		WithWhitelist([]string{"10.0.0.1"}))

	for range 5 {
		result := l.CheckRequest(ctx, CategoryAuth, "10.0.0.1", "")
		assert.False(t, result.Limited)
	}

	require.False(t, l.CheckRequest(ctx, CategoryAuth, "10.0.0.2", "").Limited)
	assert.True(t, l.CheckRequest(ctx, CategoryAuth, "10.0.0.2", "").Limited)
}

func TestCheckRequest_UserDimension(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(store.NewMemoryStore(), discardLogger(), WithRules(testRules(time.Minute, 2)))

	// The same wallet from two different IPs still shares the user
	// budget: either dimension tripping blocks the request.
	const wallet = "GABCWALLET"
	require.False(t, l.CheckRequest(ctx, CategoryAuth, "1.1.1.1", wallet).Limited)
	require.False(t, l.CheckRequest(ctx, CategoryAuth, "2.2.2.2", wallet).Limited)

	result := l.CheckRequest(ctx, CategoryAuth, "3.3.3.3", wallet)
	assert.True(t, result.Limited)
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	assert.Equal(t, Rule{Window: 5 * time.Minute, Limit: 5}, rules[CategoryAuth])
	assert.Equal(t, Rule{Window: time.Minute, Limit: 100}, rules[CategoryAPI])
	assert.Less(t, rules[CategoryAuth].Limit, rules[CategoryAPI].Limit,
		"auth endpoints get a tighter budget than general API traffic")
}
