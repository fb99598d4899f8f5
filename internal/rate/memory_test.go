package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	l := NewMemoryLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}

	res, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Zero(t, res.Remaining)
	require.GreaterOrEqual(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, time.Minute)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Minute)
	ctx := context.Background()

	res, err := l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	res, err = l.Allow(ctx, "alice")
	require.NoError(t, err)
	require.False(t, res.Allowed)

	res, err = l.Allow(ctx, "bob")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}
