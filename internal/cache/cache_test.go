package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGet(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("context pack"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("context pack"), got)
}

func TestMemoryClient_MissOnAbsentKey(t *testing.T) {
	c := NewMemoryClient()
	_, err := c.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryClient_TTLExpiry(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 30*time.Second))

	_, err := c.Get(ctx, "k")
	assert.NoError(t, err)

	clock = clock.Add(31 * time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryClient_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	clock = clock.Add(24 * 365 * time.Hour)

	_, err := c.Get(ctx, "k")
	assert.NoError(t, err)
}

func TestMemoryClient_Delete(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryClient_GetReturnsCopy(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("abc"), 0))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	got[0] = 'x'

	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
