package persistence

import (
	"context"
	"fmt"

	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/storefront/cart/internal/infrastructure/logger"
	"github.com/storefront/cart/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SlotRepository stores the whole cart as one encoded snapshot in a slot
type SlotRepository struct {
	store   SlotStore
	slotKey string
	codec   JSONCodec
	logger  *zap.Logger
}

// NewSlotRepository creates a repository writing to slotKey.
// An empty slotKey uses config.DefaultSlotKey.
func NewSlotRepository(store SlotStore, slotKey string, logger *zap.Logger) *SlotRepository {
	if slotKey == "" {
		slotKey = config.DefaultSlotKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotRepository{
		store:   store,
		slotKey: slotKey,
		logger:  logger.Named("cart_repository"),
	}
}

// Load returns the stored cart or an empty cart when the slot is unset.
// A payload that does not decode to a valid cart yields ErrCorruptSnapshot.
func (r *SlotRepository) Load(ctx context.Context) (cart.Cart, error) {
	ctx, span := r.startSpan(ctx, "cart_repository.load")
	defer span.End()

	payload, found, err := r.store.Get(ctx, r.slotKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return cart.Empty(), err
	}
	if !found {
		logger.L(ctx, r.logger).Debug("No stored cart, starting empty", zap.String("slot_key", r.slotKey))
		return cart.Empty(), nil
	}

	c, err := r.codec.Decode(payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return cart.Empty(), fmt.Errorf("slot %q: %w", r.slotKey, err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrLines, c.Len())
	return c, nil
}

// Save overwrites the slot with c
func (r *SlotRepository) Save(ctx context.Context, c cart.Cart) error {
	ctx, span := r.startSpan(ctx, "cart_repository.save")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrLines, c.Len())

	payload, err := r.codec.Encode(c)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := r.store.Put(ctx, r.slotKey, payload); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (r *SlotRepository) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, name,
		telemetry.WithAttribute(telemetry.SpanAttrSlotKey, r.slotKey),
		telemetry.WithAttribute(telemetry.SpanAttrDriver, DriverName(r.store)),
	)
}

// DriverName reports the storage driver backing store
func DriverName(store SlotStore) string {
	switch s := store.(type) {
	case *MemorySlotStore:
		return config.StorageDriverMemory
	case *GormSlotStore:
		return s.db.Dialector.Name()
	case *RedisSlotStore:
		return config.StorageDriverRedis
	case *S3SlotStore:
		return config.StorageDriverS3
	default:
		return fmt.Sprintf("%T", store)
	}
}

var _ cart.SnapshotRepository = (*SlotRepository)(nil)
