package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestMemoryGuard(t *testing.T) (*MemoryGuard, *testClock) {
	t.Helper()
	g, err := NewMemoryGuard()
	require.NoError(t, err)
	clock := &testClock{now: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)}
	g.now = clock.Now
	return g, clock
}

func TestMemoryGuard_AcquireIsExclusive(t *testing.T) {
	g, clock := newTestMemoryGuard(t)
	ctx := context.Background()

	lease, err := g.Acquire(ctx, "k", 10*time.Second)
	require.NoError(t, err)

	_, err = g.Acquire(ctx, "k", 10*time.Second)
	require.ErrorIs(t, err, ErrBusy)
	retry, ok := RetryAfter(err)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, retry)

	_, err = g.Acquire(ctx, "other", 10*time.Second)
	assert.NoError(t, err, "keys are independent")

	clock.now = clock.now.Add(4 * time.Second)
	_, err = g.Acquire(ctx, "k", 10*time.Second)
	retry, _ = RetryAfter(err)
	assert.Equal(t, 6*time.Second, retry)

	require.NoError(t, lease.Finish(ctx, 0))
	_, err = g.Acquire(ctx, "k", 10*time.Second)
	assert.NoError(t, err)
}

func TestMemoryGuard_FinishKeepsCooldown(t *testing.T) {
	g, clock := newTestMemoryGuard(t)
	ctx := context.Background()

	lease, err := g.Acquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Finish(ctx, time.Second))

	_, err = g.Acquire(ctx, "k", 30*time.Second)
	retry, busy := RetryAfter(err)
	require.True(t, busy)
	assert.Equal(t, time.Second, retry)

	clock.now = clock.now.Add(time.Second)
	_, err = g.Acquire(ctx, "k", 30*time.Second)
	assert.NoError(t, err)
}

func TestMemoryGuard_StaleLeaseDoesNotTouchNewHolder(t *testing.T) {
	g, clock := newTestMemoryGuard(t)
	ctx := context.Background()

	stale, err := g.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	clock.now = clock.now.Add(2 * time.Second)
	_, err = g.Acquire(ctx, "k", 10*time.Second)
	require.NoError(t, err)

	require.NoError(t, stale.Finish(ctx, 0))

	_, err = g.Acquire(ctx, "k", 10*time.Second)
	assert.True(t, errors.Is(err, ErrBusy), "new holder must keep the key")
}

func TestMemoryGuard_ExpiredEntriesAreSwept(t *testing.T) {
	g, clock := newTestMemoryGuard(t)
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		_, err := g.Acquire(ctx, k, time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, g.Len())

	clock.now = clock.now.Add(time.Second)
	assert.Equal(t, 0, g.Len())
}

func TestKey(t *testing.T) {
	tests := []struct {
		owner, action, target string
		want                  string
	}{
		{"u1", "update", "t1", "guard:u1:update:t1"},
		{"u1", "create", "", "guard:u1:create:-"},
	}
	for _, tt := range tests {
		if got := Key(tt.owner, tt.action, tt.target); got != tt.want {
			t.Errorf("Key(%q, %q, %q) = %q, want %q", tt.owner, tt.action, tt.target, got, tt.want)
		}
	}
}
