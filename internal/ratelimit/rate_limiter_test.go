package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerMinuteDisabled(t *testing.T) {
	rl := PerMinute(0)
	assert.Nil(t, rl)
	assert.NoError(t, rl.Wait(context.Background()))
	assert.Equal(t, 0, rl.Available())
}

func TestPerMinuteBurst(t *testing.T) {
	rl := PerMinute(60)
	require.NotNil(t, rl)
	assert.Equal(t, 60, rl.Available())
}

func TestRateLimiterBurstThenWait(t *testing.T) {
	rl := NewRateLimiter(2, 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, rl.Wait(ctx))
	require.NoError(t, rl.Wait(ctx))
	assert.Equal(t, 0, rl.Available())

	start := time.Now()
	require.NoError(t, rl.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestRateLimiterContextCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx))
}

func TestRateLimiterRefillCapped(t *testing.T) {
	rl := NewRateLimiter(3, time.Millisecond)
	require.NoError(t, rl.Wait(context.Background()))

	assert.InDelta(t, 3.0, rl.limiter.TokensAt(time.Now().Add(time.Second)), 0.001)
}
