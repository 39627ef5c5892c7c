package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKeyPrefix = "storefront:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisSlotStore keeps slots as plain Redis strings.
// Suitable when several processes share one cart.
type RedisSlotStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisSlotStore connects to Redis and verifies the connection
func NewRedisSlotStore(ctx context.Context, cfg RedisConfig) (*RedisSlotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSlotStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisSlotStoreWithClient creates a store with an existing Redis client
func NewRedisSlotStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSlotStore {
	if keyPrefix == "" {
		keyPrefix = defaultRedisKeyPrefix
	}
	return &RedisSlotStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// Get reads the payload stored under key
func (s *RedisSlotStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read slot %q: %w", key, err)
	}
	return payload, true, nil
}

// Put overwrites the payload stored under key. A zero TTL never expires.
func (s *RedisSlotStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, s.keyPrefix+key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write slot %q: %w", key, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSlotStore) Close() error {
	return s.client.Close()
}

var _ SlotStore = (*RedisSlotStore)(nil)
