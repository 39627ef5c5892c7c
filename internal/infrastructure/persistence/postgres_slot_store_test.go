package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

// startPostgres runs a disposable PostgreSQL container and returns database
// settings pointing at it
func startPostgres(t *testing.T) config.DatabaseConfig {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL container test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("storefront_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("cart-test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Docker unavailable, skipping PostgreSQL container test: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		User:     "postgres",
		Password: "cart-test",
		DBName:   "storefront_test",
		SSLMode:  "disable",
	}
}

func TestGormSlotStore_PostgresContainer(t *testing.T) {
	cfg := &config.Config{
		Storage:  config.StorageConfig{Driver: config.StorageDriverPostgres},
		Database: startPostgres(t),
		Telemetry: config.TelemetryConfig{
			DBTracingEnabled:   true,
			SlowQueryThreshold: time.Second,
		},
	}

	store, err := NewSlotStore(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	gormStore, ok := store.(*GormSlotStore)
	require.True(t, ok)
	t.Cleanup(func() { _ = gormStore.Close() })

	assert.Equal(t, "postgres", DriverName(store))
	exerciseSlotStore(t, store)

	// Migrating an existing table is a no-op
	assert.NoError(t, gormStore.Migrate(context.Background()))
}
