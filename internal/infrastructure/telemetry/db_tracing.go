package telemetry

import (
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "storage_timing:start"

// DBTracingConfig controls spans for gorm-backed cart storage.
type DBTracingConfig struct {
	Enabled bool
	// SlowQueryThreshold marks queries at or above it as slow. Zero disables detection.
	SlowQueryThreshold time.Duration
	// IncludeQueryVariables puts bound values into db.statement. Snapshots hold
	// product data only, but keep it off outside development.
	IncludeQueryVariables bool
	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// DBTracer registers otelgorm spans and slow query detection on a gorm DB.
type DBTracer struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracer creates a DBTracer
func NewDBTracer(cfg DBTracingConfig, logger *zap.Logger) *DBTracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracer{config: cfg, logger: logger}
}

// Register installs the otelgorm plugin and the timing callbacks.
// Does nothing when tracing is disabled.
func (t *DBTracer) Register(db *gorm.DB) error {
	if !t.config.Enabled {
		return nil
	}

	dbSystem := db.Dialector.Name()
	opts := []otelgorm.Option{
		otelgorm.WithDBName(dbSystem),
		otelgorm.WithAttributes(attribute.String(SpanAttrDriver, dbSystem)),
	}
	if !t.config.IncludeQueryVariables {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if t.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(t.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if t.config.SlowQueryThreshold > 0 {
		if err := t.registerTiming(db); err != nil {
			return err
		}
	}

	t.logger.Info("Storage query tracing enabled",
		zap.String("db_system", dbSystem),
		zap.Duration("slow_query_threshold", t.config.SlowQueryThreshold),
	)
	return nil
}

func (t *DBTracer) registerTiming(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("storage_timing:before_create", markQueryStart),
		cb.Create().After("gorm:create").Register("storage_timing:after_create", t.checkSlow("create")),
		cb.Query().Before("gorm:query").Register("storage_timing:before_query", markQueryStart),
		cb.Query().After("gorm:query").Register("storage_timing:after_query", t.checkSlow("query")),
		cb.Update().Before("gorm:update").Register("storage_timing:before_update", markQueryStart),
		cb.Update().After("gorm:update").Register("storage_timing:after_update", t.checkSlow("update")),
		cb.Delete().Before("gorm:delete").Register("storage_timing:before_delete", markQueryStart),
		cb.Delete().After("gorm:delete").Register("storage_timing:after_delete", t.checkSlow("delete")),
		cb.Row().Before("gorm:row").Register("storage_timing:before_row", markQueryStart),
		cb.Row().After("gorm:row").Register("storage_timing:after_row", t.checkSlow("row")),
		cb.Raw().Before("gorm:raw").Register("storage_timing:before_raw", markQueryStart),
		cb.Raw().After("gorm:raw").Register("storage_timing:after_raw", t.checkSlow("raw")),
	)
}

func markQueryStart(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (t *DBTracer) checkSlow(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		elapsed := time.Since(start)
		if elapsed < t.config.SlowQueryThreshold {
			return
		}

		t.logger.Warn("Slow cart storage query",
			zap.String("operation", operation),
			zap.String("table", db.Statement.Table),
			zap.Duration("elapsed", elapsed),
			zap.Int64("rows_affected", db.RowsAffected),
		)
		if db.Statement.Context != nil {
			if span := trace.SpanFromContext(db.Statement.Context); span.IsRecording() {
				span.SetAttributes(attribute.Bool("db.slow_query", true))
			}
		}
	}
}
