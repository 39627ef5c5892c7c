// Package app wires configuration, storage, the remote catalog and telemetry
// into a ready-to-use cart Store.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	cartapp "github.com/storefront/cart/internal/application/cart"
	"github.com/storefront/cart/internal/infrastructure/catalog"
	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/storefront/cart/internal/infrastructure/event"
	"github.com/storefront/cart/internal/infrastructure/logger"
	"github.com/storefront/cart/internal/infrastructure/persistence"
	"github.com/storefront/cart/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// App holds the wired cart store and everything it depends on
type App struct {
	Store   *cartapp.Store
	Catalog *catalog.HTTPClient
	Bus     *event.InMemoryEventBus

	logger  *zap.Logger
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// NewLogger builds the application logger from configuration. When log
// export is enabled, entries are also shipped over OTLP; the returned
// provider must be shut down after the logger's last use.
func NewLogger(ctx context.Context, cfg *config.Config) (*zap.Logger, *telemetry.LoggerProvider, error) {
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, zap.NewNop())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize log export: %w", err)
	}

	logCfg := &logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}
	log, err := logger.New(logCfg, lp.Core(logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		_ = lp.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, lp, nil
}

// New builds the store and loads the persisted cart. On error everything
// opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (_ *App, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{logger: log}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	log.Info("Starting storefront cart",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.onClose("meter provider", meterProvider.Shutdown)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Enabled:           cfg.Telemetry.TracingEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.onClose("tracer provider", tracerProvider.Shutdown)

	a.Catalog, err = catalog.NewHTTPClient(catalog.Config{
		BaseURL:          cfg.Catalog.BaseURL,
		Timeout:          cfg.Catalog.Timeout,
		MaxResponseBytes: cfg.Catalog.MaxResponseBytes,
	},
		catalog.WithLogger(log.Named("catalog")),
		catalog.WithMeter(meterProvider.Meter("storefront-cart/catalog")),
	)
	if err != nil {
		return nil, err
	}

	slotStore, err := persistence.NewSlotStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if c, ok := slotStore.(io.Closer); ok {
		a.onClose("cart storage", func(context.Context) error { return c.Close() })
	}
	repo := persistence.NewSlotRepository(slotStore, cfg.Storage.SlotKey, log)

	a.Bus = event.NewInMemoryEventBus(log)
	cartMetrics, err := telemetry.NewCartMetrics(telemetry.CartMetricsConfig{
		Meter:  meterProvider.Meter("storefront-cart/cart"),
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cart metrics: %w", err)
	}
	a.Bus.Subscribe(cartMetrics)
	if err := a.Bus.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start event bus: %w", err)
	}
	a.onClose("event bus", a.Bus.Stop)

	a.Store = cartapp.NewStore(a.Catalog, a.Catalog, repo, cartapp.WithLogger(log))
	a.Store.SetEventPublisher(a.Bus)
	if err := a.Store.Load(ctx); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases resources in reverse order of creation
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(ctx); err != nil {
			a.logger.Error("Error closing "+c.name, zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
