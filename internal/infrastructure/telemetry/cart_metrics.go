package telemetry

import (
	"context"

	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Outcome attribute values
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
)

// CartMetrics turns cart events into operation counters and cart size gauges.
// It is subscribed to the event bus as a regular handler.
type CartMetrics struct {
	logger *zap.Logger

	operationsTotal *Counter
	lines           *Gauge
	units           *Gauge
	totalValue      *FloatGauge
}

// CartMetricsConfig holds configuration for cart metrics.
type CartMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewCartMetrics creates the cart instruments on the given meter.
func NewCartMetrics(cfg CartMetricsConfig) (*CartMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CartMetrics{logger: logger}

	var err error
	cm.operationsTotal, err = NewCounter(cfg.Meter,
		"cart_operations_total",
		"Cart operations by operation and outcome",
		"{operations}",
	)
	if err != nil {
		return nil, err
	}

	cm.lines, err = NewGauge(cfg.Meter,
		"cart_lines",
		"Distinct products currently in the cart",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	cm.units, err = NewGauge(cfg.Meter,
		"cart_units",
		"Total units currently in the cart",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	cm.totalValue, err = NewFloatGauge(cfg.Meter,
		"cart_total_value",
		"Sum of line subtotals currently in the cart",
		"{currency}",
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// EventTypes returns the cart events this handler records.
func (m *CartMetrics) EventTypes() []string {
	return []string{
		cart.EventTypeCartItemAdded,
		cart.EventTypeCartItemIncremented,
		cart.EventTypeCartItemRemoved,
		cart.EventTypeCartItemAmountUpdated,
		cart.EventTypeCartOperationRejected,
	}
}

// Handle records one cart event.
func (m *CartMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *cart.CartItemAddedEvent:
		m.recordSuccess(ctx, cart.OperationAdd, e.Totals)
	case *cart.CartItemIncrementedEvent:
		m.recordSuccess(ctx, cart.OperationAdd, e.Totals)
	case *cart.CartItemRemovedEvent:
		m.recordSuccess(ctx, cart.OperationRemove, e.Totals)
	case *cart.CartItemAmountUpdatedEvent:
		m.recordSuccess(ctx, cart.OperationUpdateAmount, e.Totals)
	case *cart.CartOperationRejectedEvent:
		m.operationsTotal.Inc(ctx,
			AttrOperation.String(e.Operation),
			AttrOutcome.String(OutcomeRejected),
			AttrErrorCode.String(e.Code),
		)
	default:
		m.logger.Debug("ignoring unexpected event", zap.String("event_type", event.EventType()))
	}
	return nil
}

func (m *CartMetrics) recordSuccess(ctx context.Context, operation string, totals cart.CartTotals) {
	m.operationsTotal.Inc(ctx,
		AttrOperation.String(operation),
		AttrOutcome.String(OutcomeSuccess),
	)
	m.lines.Record(ctx, int64(totals.Lines))
	m.units.Record(ctx, int64(totals.Units))
	m.totalValue.Record(ctx, totals.Total.InexactFloat64())
}

// Ensure CartMetrics implements EventHandler
var _ shared.EventHandler = (*CartMetrics)(nil)
