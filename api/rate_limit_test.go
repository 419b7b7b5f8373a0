package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterConsumesTokens(t *testing.T) {
	limiter := NewRateLimiter(3, time.Hour)

	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())

	// Bucket drained, nothing refilled within the hour
	require.False(t, limiter.Allow())
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := NewRateLimiter(1, 10*time.Millisecond)

	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())

	time.Sleep(20 * time.Millisecond)
	require.True(t, limiter.Allow())
}
