package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// redisClient starts a throwaway Redis container. Tests calling it are
// skipped in short mode and when Docker is absent.
func redisClient(t *testing.T, prefix string) *RedisClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if !redisDockerAvailable() {
		t.Skip("Docker not available")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7.4-alpine")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	addr := strings.TrimPrefix(uri, "redis://")

	client := NewRedisClient(addr, "", prefix, 0)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx))
	return client
}

func redisDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	_, err = provider.Client().Ping(ctx)
	return err == nil
}

func TestRedisClient_SetGetDelete(t *testing.T) {
	client := redisClient(t, "pe")
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "ctx:abc", []byte(`{"chunks":[]}`), time.Minute))

	got, err := client.Get(ctx, "ctx:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"chunks":[]}`), got)

	require.NoError(t, client.Delete(ctx, "ctx:abc"))
	_, err = client.Get(ctx, "ctx:abc")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisClient_MissOnAbsentKey(t *testing.T) {
	client := redisClient(t, "pe")
	_, err := client.Get(context.Background(), "never-set")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisClient_TTLExpiry(t *testing.T) {
	client := redisClient(t, "pe")
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "short-lived", []byte("v"), 100*time.Millisecond))
	_, err := client.Get(ctx, "short-lived")
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	_, err = client.Get(ctx, "short-lived")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisClient_PrefixIsolation(t *testing.T) {
	client := redisClient(t, "a")
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k", []byte("v"), time.Minute))

	// A differently prefixed client over the same server sees its own namespace.
	other := NewRedisClient(client.rdb.Options().Addr, "", "b", 0)
	t.Cleanup(func() { other.Close() })
	_, err := other.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
