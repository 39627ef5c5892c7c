// Package cart holds the cart store: the single owner of the shopper's cart
// state, validating every change against remote stock and persisting the
// resulting snapshot.
package cart

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/im7mortal/kmutex"
	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/domain/shared"
	"github.com/storefront/cart/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// User-facing messages for fetch failures, per operation
const (
	msgAddFailed    = "Error adding product"
	msgUpdateFailed = "Error updating product amount"
)

// mutation derives the next snapshot from the current one.
// A nil event means nothing changed and nothing is persisted.
type mutation func(current cart.Cart) (next cart.Cart, event shared.DomainEvent, err error)

// Store owns the cart. Operations on the same product are serialized;
// operations on different products fetch concurrently and commit one at a time.
type Store struct {
	catalog   cart.ProductCatalog
	stock     cart.StockService
	repo      cart.SnapshotRepository
	notifier  Notifier
	publisher shared.EventPublisher
	logger    *zap.Logger

	productLocks *kmutex.Kmutex
	commitMu     sync.Mutex

	stateMu sync.RWMutex
	current cart.Cart

	listenersMu  sync.Mutex
	listeners    map[uint64]func(cart.Cart)
	nextListener uint64
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNotifier sets where rejected operations are reported.
// Defaults to a LogNotifier on the store's logger.
func WithNotifier(notifier Notifier) Option {
	return func(s *Store) {
		s.notifier = notifier
	}
}

// WithInitialCart starts the store from c instead of an empty cart
func WithInitialCart(c cart.Cart) Option {
	return func(s *Store) {
		s.current = c
	}
}

// NewStore creates a store with an empty cart. Call Load to restore the
// persisted snapshot.
func NewStore(catalog cart.ProductCatalog, stock cart.StockService, repo cart.SnapshotRepository, opts ...Option) *Store {
	s := &Store{
		catalog:      catalog,
		stock:        stock,
		repo:         repo,
		logger:       zap.NewNop(),
		productLocks: kmutex.New(),
		current:      cart.Empty(),
		listeners:    make(map[uint64]func(cart.Cart)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("cart_store")
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger)
	}
	return s
}

// SetEventPublisher sets the event publisher for cart events
func (s *Store) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Load replaces the current cart with the persisted snapshot.
// A corrupt snapshot is logged and the store starts empty; other repository
// errors are returned and leave the current cart untouched.
func (s *Store) Load(ctx context.Context) error {
	loaded, err := s.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, cart.ErrCorruptSnapshot) {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		s.logger.Error("Stored cart is corrupt, starting with an empty cart", zap.Error(err))
		loaded = cart.Empty()
	}

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.swap(loaded)
	s.logger.Info("Cart loaded", zap.Int("lines", loaded.Len()), zap.Int("units", loaded.TotalUnits()))
	return nil
}

// Cart returns the current snapshot
func (s *Store) Cart() cart.Cart {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.current
}

// Subscribe registers fn to receive every committed snapshot in commit order.
// fn runs while the commit lock is held and must not call the store's
// mutating operations. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(cart.Cart)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// AddProduct adds one unit of productID, appending a new line with the
// catalog's product data when the product is not yet in the cart.
func (s *Store) AddProduct(ctx context.Context, productID int) error {
	ctx, span := telemetry.StartSpan(ctx, "cart.add_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID),
	)
	defer span.End()

	s.productLocks.Lock(productID)
	defer s.productLocks.Unlock(productID)

	stock, err := s.stock.GetStock(ctx, productID)
	if err != nil {
		return s.reject(ctx, span, cart.OperationAdd, productID, fetchFailure(msgAddFailed, err))
	}

	current := s.Cart().AmountOf(productID)
	if err := cart.EnsureCanIncrement(current, stock); err != nil {
		return s.reject(ctx, span, cart.OperationAdd, productID, err)
	}

	var product cart.Product
	if current == 0 {
		product, err = s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return s.reject(ctx, span, cart.OperationAdd, productID, fetchFailure(msgAddFailed, err))
		}
	}

	err = s.commit(ctx, cart.OperationAdd, productID, func(c cart.Cart) (cart.Cart, shared.DomainEvent, error) {
		if item, ok := c.Find(productID); ok {
			next, err := c.Incremented(productID)
			if err != nil {
				return c, nil, err
			}
			return next, cart.NewCartItemIncrementedEvent(productID, item.Amount+1, next), nil
		}

		next, err := c.WithProduct(product)
		if err != nil {
			return c, nil, err
		}
		item, _ := next.Find(productID)
		return next, cart.NewCartItemAddedEvent(item, next), nil
	})
	if err != nil {
		return s.reject(ctx, span, cart.OperationAdd, productID, err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, telemetry.OutcomeSuccess)
	return nil
}

// RemoveProduct drops the line for productID. Removing a product that is not
// in the cart does nothing. A panic raised while removing is recovered and
// reported as REMOVE_FAILED.
func (s *Store) RemoveProduct(ctx context.Context, productID int) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "cart.remove_product",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, productID),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while removing product",
				zap.Int("product_id", productID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			cause := fmt.Errorf("panic: %v", r)
			err = s.reject(ctx, span, cart.OperationRemove, productID,
				shared.WrapDomainError(shared.CodeRemoveFailed, shared.ErrRemoveFailed.Message, cause))
		}
	}()

	s.productLocks.Lock(productID)
	defer s.productLocks.Unlock(productID)

	err = s.commit(ctx, cart.OperationRemove, productID, func(c cart.Cart) (cart.Cart, shared.DomainEvent, error) {
		removed, ok := c.Find(productID)
		if !ok {
			return c, nil, nil
		}
		next, _ := c.Without(productID)
		return next, cart.NewCartItemRemovedEvent(removed, next), nil
	})
	if err != nil {
		return s.reject(ctx, span, cart.OperationRemove, productID,
			shared.WrapDomainError(shared.CodeRemoveFailed, shared.ErrRemoveFailed.Message, err))
	}
	return nil
}

// UpdateProductAmount sets the amount of a product already in the cart.
// Amounts of zero or less are ignored.
func (s *Store) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) error {
	if req.Amount <= 0 {
		return nil
	}

	ctx, span := telemetry.StartSpan(ctx, "cart.update_product_amount",
		telemetry.WithAttribute(telemetry.SpanAttrProductID, req.ProductID),
		telemetry.WithAttribute(telemetry.SpanAttrAmount, req.Amount),
	)
	defer span.End()

	s.productLocks.Lock(req.ProductID)
	defer s.productLocks.Unlock(req.ProductID)

	if _, ok := s.Cart().Find(req.ProductID); !ok {
		return s.reject(ctx, span, cart.OperationUpdateAmount, req.ProductID, shared.ErrNotInCart)
	}

	stock, err := s.stock.GetStock(ctx, req.ProductID)
	if err != nil {
		return s.reject(ctx, span, cart.OperationUpdateAmount, req.ProductID, fetchFailure(msgUpdateFailed, err))
	}
	if err := cart.EnsureAmountAvailable(req.Amount, stock); err != nil {
		return s.reject(ctx, span, cart.OperationUpdateAmount, req.ProductID, err)
	}

	err = s.commit(ctx, cart.OperationUpdateAmount, req.ProductID, func(c cart.Cart) (cart.Cart, shared.DomainEvent, error) {
		previous := c.AmountOf(req.ProductID)
		next, err := c.WithAmount(req.ProductID, req.Amount)
		if err != nil {
			return c, nil, err
		}
		return next, cart.NewCartItemAmountUpdatedEvent(req.ProductID, previous, req.Amount, next), nil
	})
	if err != nil {
		return s.reject(ctx, span, cart.OperationUpdateAmount, req.ProductID, err)
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, telemetry.OutcomeSuccess)
	return nil
}

// commit applies mutate to the latest snapshot, persists the result and
// publishes it. A persistence failure is reported as a warning; the new
// snapshot is kept in memory either way.
func (s *Store) commit(ctx context.Context, operation string, productID int, mutate mutation) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	next, event, err := mutate(s.Cart())
	if err != nil {
		return err
	}
	if event == nil {
		return nil
	}

	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error("Failed to persist cart",
			zap.String("operation", operation),
			zap.Int("product_id", productID),
			zap.Error(err),
		)
		s.notifier.Notify(ctx, Notification{
			Severity:  SeverityWarning,
			Code:      shared.CodePersistenceFailure,
			Message:   shared.ErrPersistenceFailure.Message,
			Operation: operation,
			ProductID: productID,
			Err:       err,
		})
	}

	s.swap(next)
	s.publish(ctx, event)
	return nil
}

// swap installs next as the current snapshot and notifies listeners in
// subscription order.
// Callers hold commitMu.
func (s *Store) swap(next cart.Cart) {
	s.stateMu.Lock()
	s.current = next
	s.stateMu.Unlock()

	s.listenersMu.Lock()
	listeners := make([]func(cart.Cart), 0, len(s.listeners))
	for _, id := range slices.Sorted(maps.Keys(s.listeners)) {
		listeners = append(listeners, s.listeners[id])
	}
	s.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

// reject reports err to the notifier and event subscribers and returns it
func (s *Store) reject(ctx context.Context, span trace.Span, operation string, productID int, err error) error {
	code := "UNKNOWN"
	message := err.Error()
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
		message = domainErr.Message
	}

	telemetry.RecordError(span, err)
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, telemetry.OutcomeRejected)
	s.logger.Info("Cart operation rejected",
		zap.String("operation", operation),
		zap.Int("product_id", productID),
		zap.String("code", code),
		zap.Error(err),
	)

	s.notifier.Notify(ctx, Notification{
		Severity:  SeverityError,
		Code:      code,
		Message:   message,
		Operation: operation,
		ProductID: productID,
		Err:       err,
	})
	s.publish(ctx, cart.NewCartOperationRejectedEvent(operation, productID, code))
	return err
}

func (s *Store) publish(ctx context.Context, event shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish cart event",
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	}
}

// fetchFailure turns any catalog or stock error into a RemoteFetchFailure
// carrying the operation's message
func fetchFailure(message string, err error) error {
	return shared.WrapDomainError(shared.CodeRemoteFetchFailure, message, err)
}
