package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func unreachableRedisConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: config.StorageDriverRedis},
		Redis:   config.RedisConfig{Host: "127.0.0.1", Port: 1},
	}
}

func TestSlotStoreFactory_Drivers(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, err := NewSlotStore(context.Background(), &config.Config{
			Storage: config.StorageConfig{Driver: config.StorageDriverMemory},
		}, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &MemorySlotStore{}, store)
	})

	t.Run("sqlite file", func(t *testing.T) {
		cfg := &config.Config{
			Storage:  config.StorageConfig{Driver: config.StorageDriverSQLite},
			Database: config.DatabaseConfig{SQLitePath: filepath.Join(t.TempDir(), "cart.db")},
		}
		store, err := NewSlotStore(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)

		gormStore, ok := store.(*GormSlotStore)
		require.True(t, ok)
		t.Cleanup(func() { _ = gormStore.Close() })

		exerciseSlotStore(t, store)
	})

	t.Run("sqlite with query tracing", func(t *testing.T) {
		cfg := &config.Config{
			Storage:  config.StorageConfig{Driver: config.StorageDriverSQLite},
			Database: config.DatabaseConfig{SQLitePath: ":memory:"},
			Telemetry: config.TelemetryConfig{
				DBTracingEnabled:   true,
				SlowQueryThreshold: time.Second,
			},
		}
		store, err := NewSlotStore(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.(*GormSlotStore).Close() })

		exerciseSlotStore(t, store)
	})

	t.Run("empty driver defaults to sqlite", func(t *testing.T) {
		cfg := &config.Config{
			Database: config.DatabaseConfig{SQLitePath: ":memory:"},
		}
		store, err := NewSlotStore(context.Background(), cfg, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "sqlite", DriverName(store))
		_ = store.(*GormSlotStore).Close()
	})

	t.Run("unknown driver is not masked by fallback", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		store, err := NewSlotStoreFactory(&config.Config{
			Storage: config.StorageConfig{Driver: "floppy"},
		}, WithMemoryFallback(true), WithLogger(zap.New(core))).CreateStore(context.Background())

		require.ErrorIs(t, err, ErrUnknownDriver)
		assert.Contains(t, err.Error(), `"floppy"`)
		assert.Nil(t, store)
		assert.Zero(t, logs.FilterMessageSnippet("falling back to in-memory").Len())
	})
}

func TestSlotStoreFactory_Fallback(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("falls back to memory with a warning", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		factory := NewSlotStoreFactory(unreachableRedisConfig(),
			WithLogger(zap.New(core)),
			WithMemoryFallback(true),
		)

		store, err := factory.CreateStore(ctx)
		require.NoError(t, err)
		assert.IsType(t, &MemorySlotStore{}, store)

		entries := logs.FilterMessageSnippet("falling back to in-memory").All()
		require.Len(t, entries, 1)
		assert.Equal(t, "redis", entries[0].ContextMap()["driver"])
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewSlotStoreFactory(unreachableRedisConfig()).CreateStore(ctx)
		assert.Error(t, err)
	})

	t.Run("fallback read from configuration", func(t *testing.T) {
		cfg := unreachableRedisConfig()
		cfg.Storage.AllowMemoryFallback = true

		store, err := NewSlotStore(ctx, cfg, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &MemorySlotStore{}, store)
	})
}
