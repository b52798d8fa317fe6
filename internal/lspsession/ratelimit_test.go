package lspsession

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	r := newRateLimiter(2, 60000)
	require.True(t, r.allow(0))
	require.True(t, r.allow(100))
	require.False(t, r.allow(200))
}

func TestRateLimiterResetsOnNewWindow(t *testing.T) {
	r := newRateLimiter(1, 1000)
	require.True(t, r.allow(0))
	require.False(t, r.allow(500))
	require.True(t, r.allow(1500))
}
