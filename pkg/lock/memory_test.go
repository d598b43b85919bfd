package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryLocker().WithClock(func() time.Time { return now })

	token, ok, err := m.TryLock(ctx, "import", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = m.TryLock(ctx, "import", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = m.TryLock(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, m.Unlock(ctx, "import", "someone-else"), ErrNotHeld)
	require.NoError(t, m.Unlock(ctx, "import", token))

	_, ok, err = m.TryLock(ctx, "import", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryLocker().WithClock(func() time.Time { return now })

	stale, ok, err := m.TryLock(ctx, "import", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	fresh, ok, err := m.TryLock(ctx, "import", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, m.Unlock(ctx, "import", stale), ErrNotHeld)
	assert.NoError(t, m.Unlock(ctx, "import", fresh))
}
