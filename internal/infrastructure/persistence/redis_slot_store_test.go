package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startRedis runs a disposable Redis container and returns its address
func startRedis(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping Redis container test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Docker unavailable, skipping Redis container test: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisSlotStore(t *testing.T) {
	addr := startRedis(t)

	store, err := NewRedisSlotStore(context.Background(), RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	exerciseSlotStore(t, store)
}

func TestRedisSlotStore_KeyPrefixAndTTL(t *testing.T) {
	addr := startRedis(t)
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSlotStoreWithClient(client, "shop:", time.Hour)
	require.NoError(t, store.Put(ctx, "@RocketShoes:cart", []byte("[]")))

	raw, err := client.Get(ctx, "shop:@RocketShoes:cart").Result()
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)

	ttl, err := client.TTL(ctx, "shop:@RocketShoes:cart").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestNewRedisSlotStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisSlotStore(ctx, RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestNewRedisSlotStoreWithClient_DefaultPrefix(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer client.Close()

	store := NewRedisSlotStoreWithClient(client, "", 0)
	assert.Equal(t, defaultRedisKeyPrefix, store.keyPrefix)
	assert.Zero(t, store.ttl)
}
