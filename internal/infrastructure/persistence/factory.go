package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/storefront/cart/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrUnknownDriver is returned for a storage driver the factory cannot build
var ErrUnknownDriver = errors.New("unknown storage driver")

// SlotStoreFactory creates the slot store selected by configuration
type SlotStoreFactory struct {
	cfg                 *config.Config
	logger              *zap.Logger
	allowMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*SlotStoreFactory)

// WithLogger sets the logger for the factory and the stores it creates
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *SlotStoreFactory) {
		f.logger = logger
	}
}

// WithMemoryFallback controls whether an unreachable backend degrades to an
// in-memory store. Defaults to storage.allow_memory_fallback.
func WithMemoryFallback(allow bool) FactoryOption {
	return func(f *SlotStoreFactory) {
		f.allowMemoryFallback = allow
	}
}

// NewSlotStoreFactory creates a new factory
func NewSlotStoreFactory(cfg *config.Config, opts ...FactoryOption) *SlotStoreFactory {
	f := &SlotStoreFactory{
		cfg:                 cfg,
		logger:              zap.NewNop(),
		allowMemoryFallback: cfg.Storage.AllowMemoryFallback,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewSlotStore builds the configured slot store
func NewSlotStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (SlotStore, error) {
	return NewSlotStoreFactory(cfg, WithLogger(logger)).CreateStore(ctx)
}

// CreateStore opens the configured backend. When it cannot be reached and
// fallback is allowed, an in-memory store is returned instead. An unknown
// driver is always an error.
func (f *SlotStoreFactory) CreateStore(ctx context.Context) (SlotStore, error) {
	driver := f.cfg.Storage.Driver
	if driver == "" {
		driver = config.StorageDriverSQLite
	}
	if !config.IsStorageDriver(driver) {
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, driver)
	}

	store, err := f.createDriverStore(ctx, driver)
	if err == nil {
		f.logger.Info("Cart storage ready", zap.String("driver", driver))
		return store, nil
	}
	if !f.allowMemoryFallback || driver == config.StorageDriverMemory {
		return nil, err
	}

	f.logger.Warn("Cart storage unavailable, falling back to in-memory store. "+
		"The cart will not survive a restart.",
		zap.String("driver", driver),
		zap.Error(err),
	)
	return NewMemorySlotStore(), nil
}

func (f *SlotStoreFactory) createDriverStore(ctx context.Context, driver string) (SlotStore, error) {
	switch driver {
	case config.StorageDriverMemory:
		f.logger.Warn("Using in-memory cart storage; contents are lost on restart")
		return NewMemorySlotStore(), nil

	case config.StorageDriverSQLite:
		db, err := OpenSQLite(f.cfg.Database.SQLitePath, f.logger, f.cfg.Database.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite cart storage: %w", err)
		}
		return f.migrated(ctx, db)

	case config.StorageDriverPostgres:
		db, err := OpenPostgres(f.cfg.Database.DSN(), f.logger, f.cfg.Database.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres cart storage: %w", err)
		}
		return f.migrated(ctx, db)

	case config.StorageDriverRedis:
		store, err := NewRedisSlotStore(ctx, RedisConfig{
			Addr:      f.cfg.Redis.Addr(),
			Password:  f.cfg.Redis.Password,
			DB:        f.cfg.Redis.DB,
			KeyPrefix: f.cfg.Redis.KeyPrefix,
			TTL:       f.cfg.Redis.TTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis cart storage: %w", err)
		}
		return store, nil

	case config.StorageDriverS3:
		store, err := NewS3SlotStore(ctx, &f.cfg.S3, WithS3Logger(f.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open s3 cart storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to open s3 cart storage: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, driver)
	}
}

func (f *SlotStoreFactory) migrated(ctx context.Context, db *Database) (SlotStore, error) {
	tracer := telemetry.NewDBTracer(telemetry.DBTracingConfig{
		Enabled:            f.cfg.Telemetry.DBTracingEnabled,
		SlowQueryThreshold: f.cfg.Telemetry.SlowQueryThreshold,
	}, f.logger)
	if err := tracer.Register(db.DB); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to register storage tracing: %w", err)
	}

	store := NewGormSlotStore(db.DB)
	store.owned = db
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}
