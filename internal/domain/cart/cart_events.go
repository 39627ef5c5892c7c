package cart

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/cart/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeCart = "Cart"

// Event type constants
const (
	EventTypeCartItemAdded         = "CartItemAdded"
	EventTypeCartItemIncremented   = "CartItemIncremented"
	EventTypeCartItemRemoved       = "CartItemRemoved"
	EventTypeCartItemAmountUpdated = "CartItemAmountUpdated"
	EventTypeCartOperationRejected = "CartOperationRejected"
)

// Operation names carried by events
const (
	OperationAdd          = "add"
	OperationRemove       = "remove"
	OperationUpdateAmount = "update_amount"
)

// CartTotals describes the cart right after a committed change
type CartTotals struct {
	Lines int             `json:"lines"`
	Units int             `json:"units"`
	Total decimal.Decimal `json:"total"`
}

func totalsOf(c Cart) CartTotals {
	return CartTotals{
		Lines: c.Len(),
		Units: c.TotalUnits(),
		Total: c.Total(),
	}
}

// CartItemAddedEvent is raised when a product enters the cart with amount 1
type CartItemAddedEvent struct {
	shared.BaseDomainEvent
	ProductID int             `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Totals    CartTotals      `json:"totals"`
}

// NewCartItemAddedEvent creates a new CartItemAddedEvent
func NewCartItemAddedEvent(item LineItem, after Cart) *CartItemAddedEvent {
	return &CartItemAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemAdded, AggregateTypeCart),
		ProductID:       item.ProductID,
		Title:           item.Title,
		Price:           item.Price,
		Totals:          totalsOf(after),
	}
}

// EventType returns the event type name
func (e *CartItemAddedEvent) EventType() string {
	return EventTypeCartItemAdded
}

// CartItemIncrementedEvent is raised when an existing line gains one unit
type CartItemIncrementedEvent struct {
	shared.BaseDomainEvent
	ProductID int        `json:"product_id"`
	Amount    int        `json:"amount"`
	Totals    CartTotals `json:"totals"`
}

// NewCartItemIncrementedEvent creates a new CartItemIncrementedEvent
func NewCartItemIncrementedEvent(productID, amount int, after Cart) *CartItemIncrementedEvent {
	return &CartItemIncrementedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemIncremented, AggregateTypeCart),
		ProductID:       productID,
		Amount:          amount,
		Totals:          totalsOf(after),
	}
}

// EventType returns the event type name
func (e *CartItemIncrementedEvent) EventType() string {
	return EventTypeCartItemIncremented
}

// CartItemRemovedEvent is raised when a line leaves the cart
type CartItemRemovedEvent struct {
	shared.BaseDomainEvent
	ProductID int        `json:"product_id"`
	Amount    int        `json:"amount"`
	Totals    CartTotals `json:"totals"`
}

// NewCartItemRemovedEvent creates a new CartItemRemovedEvent
func NewCartItemRemovedEvent(removed LineItem, after Cart) *CartItemRemovedEvent {
	return &CartItemRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemRemoved, AggregateTypeCart),
		ProductID:       removed.ProductID,
		Amount:          removed.Amount,
		Totals:          totalsOf(after),
	}
}

// EventType returns the event type name
func (e *CartItemRemovedEvent) EventType() string {
	return EventTypeCartItemRemoved
}

// CartItemAmountUpdatedEvent is raised when a line's amount is set explicitly
type CartItemAmountUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID      int        `json:"product_id"`
	PreviousAmount int        `json:"previous_amount"`
	Amount         int        `json:"amount"`
	Totals         CartTotals `json:"totals"`
}

// NewCartItemAmountUpdatedEvent creates a new CartItemAmountUpdatedEvent
func NewCartItemAmountUpdatedEvent(productID, previous, amount int, after Cart) *CartItemAmountUpdatedEvent {
	return &CartItemAmountUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartItemAmountUpdated, AggregateTypeCart),
		ProductID:       productID,
		PreviousAmount:  previous,
		Amount:          amount,
		Totals:          totalsOf(after),
	}
}

// EventType returns the event type name
func (e *CartItemAmountUpdatedEvent) EventType() string {
	return EventTypeCartItemAmountUpdated
}

// CartOperationRejectedEvent is raised when an operation fails and leaves the cart untouched
type CartOperationRejectedEvent struct {
	shared.BaseDomainEvent
	Operation string `json:"operation"`
	ProductID int    `json:"product_id"`
	Code      string `json:"code"`
}

// NewCartOperationRejectedEvent creates a new CartOperationRejectedEvent
func NewCartOperationRejectedEvent(operation string, productID int, code string) *CartOperationRejectedEvent {
	return &CartOperationRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartOperationRejected, AggregateTypeCart),
		Operation:       operation,
		ProductID:       productID,
		Code:            code,
	}
}

// EventType returns the event type name
func (e *CartOperationRejectedEvent) EventType() string {
	return EventTypeCartOperationRejected
}
