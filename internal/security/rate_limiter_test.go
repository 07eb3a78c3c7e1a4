package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/raaihank/literal-sentinel/internal/config"
)

func newTestLimiter(cfg config.RateLimitConfig) (*RateLimiter, *time.Time) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRateLimiter(cfg)
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestRateLimiter_Burst(t *testing.T) {
	r, clock := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 2})

	assert.True(t, r.Allow("10.0.0.1"))
	assert.True(t, r.Allow("10.0.0.1"))
	assert.False(t, r.Allow("10.0.0.1"))
	assert.Equal(t, time.Second, r.RetryAfter("10.0.0.1"))

	// other clients have their own bucket
	assert.True(t, r.Allow("10.0.0.2"))

	*clock = clock.Add(time.Second)
	assert.True(t, r.Allow("10.0.0.1"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	r, _ := newTestLimiter(config.RateLimitConfig{Enabled: false, RequestsPerSecond: 1, Burst: 1})
	for i := 0; i < 10; i++ {
		assert.True(t, r.Allow("10.0.0.1"))
	}
	assert.Equal(t, 0, r.Clients())
}

func TestRateLimiter_CleanupIdleClients(t *testing.T) {
	r, clock := newTestLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 5})

	r.Allow("old")
	*clock = clock.Add(2 * time.Hour)
	r.Allow("new")

	assert.Equal(t, 1, r.CleanupIdleClients(time.Hour))
	assert.Equal(t, 1, r.Clients())
	assert.Equal(t, time.Duration(0), r.RetryAfter("old"))
}

func TestRateLimiter_CleanupRoutineStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 5, Burst: 5})
	ctx, cancel := context.WithCancel(context.Background())
	r.StartCleanupRoutine(ctx, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	cancel()
	time.Sleep(5 * time.Millisecond)
}
