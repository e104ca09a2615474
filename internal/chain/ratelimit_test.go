package chain_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/opentab/internal/chain"
)

func TestRateLimiter_AllowWithinBurst(t *testing.T) {
	t.Parallel()

	limiter := chain.NewRateLimiter(1, 3)
	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("validate"), "request %d within burst", i)
	}
	assert.False(t, limiter.Allow("validate"), "burst exhausted")
}

func TestRateLimiter_EndpointsAreIndependent(t *testing.T) {
	t.Parallel()

	limiter := chain.NewRateLimiter(1, 1)
	assert.True(t, limiter.Allow("validate"))
	assert.False(t, limiter.Allow("validate"))
	assert.True(t, limiter.Allow("broadcast"), "separate endpoint has its own bucket")
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	t.Parallel()

	limiter := chain.NewRateLimiter(0.1, 1)
	require.NoError(t, limiter.Wait(context.Background(), "validate"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := limiter.Wait(ctx, "validate")
	assert.Error(t, err)
}
