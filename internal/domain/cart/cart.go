package cart

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/cart/internal/domain/shared"
)

// Product is the catalog view of a sellable product
type Product struct {
	ID    int             `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
}

// LineItem is one product in the cart together with the selected amount
type LineItem struct {
	ProductID int
	Title     string
	Price     decimal.Decimal
	Image     string
	Amount    int
}

// Subtotal returns price multiplied by amount
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Amount)))
}

// Cart is an immutable snapshot of the shopper's selection.
// Every mutating method returns a new Cart backed by a freshly allocated
// slice, so a snapshot handed out earlier never observes later changes.
type Cart struct {
	items []LineItem
}

// Empty returns a cart with no items
func Empty() Cart {
	return Cart{}
}

// FromItems builds a cart from stored line items, validating that product ids
// are positive and unique and that every amount is at least one.
func FromItems(items []LineItem) (Cart, error) {
	seen := make(map[int]struct{}, len(items))
	copied := make([]LineItem, 0, len(items))
	for _, item := range items {
		if item.ProductID <= 0 {
			return Cart{}, shared.ErrInvalidProductID
		}
		if item.Amount < 1 {
			return Cart{}, shared.ErrInvalidAmount
		}
		if _, dup := seen[item.ProductID]; dup {
			return Cart{}, shared.NewDomainError(shared.CodeDuplicateProduct, "Product appears more than once in the cart")
		}
		seen[item.ProductID] = struct{}{}
		copied = append(copied, item)
	}
	return Cart{items: copied}, nil
}

// Items returns a copy of the line items in insertion order
func (c Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct products in the cart
func (c Cart) Len() int {
	return len(c.items)
}

// IsEmpty reports whether the cart holds no items
func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Find returns the line for productID
func (c Cart) Find(productID int) (LineItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.items[idx], true
}

// AmountOf returns the amount held for productID, or zero when absent
func (c Cart) AmountOf(productID int) int {
	if item, ok := c.Find(productID); ok {
		return item.Amount
	}
	return 0
}

// WithProduct appends a new line with amount 1 for the given product
func (c Cart) WithProduct(p Product) (Cart, error) {
	if p.ID <= 0 {
		return c, shared.ErrInvalidProductID
	}
	if c.indexOf(p.ID) >= 0 {
		return c, shared.NewDomainError(shared.CodeDuplicateProduct, "Product already in cart, increment it instead")
	}

	items := make([]LineItem, len(c.items), len(c.items)+1)
	copy(items, c.items)
	items = append(items, LineItem{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Image:     p.Image,
		Amount:    1,
	})
	return Cart{items: items}, nil
}

// Incremented returns a cart where the line for productID holds one more unit
func (c Cart) Incremented(productID int) (Cart, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c, shared.ErrNotInCart
	}
	items := c.Items()
	items[idx].Amount++
	return Cart{items: items}, nil
}

// WithAmount returns a cart where the line for productID holds exactly amount units
func (c Cart) WithAmount(productID, amount int) (Cart, error) {
	if amount < 1 {
		return c, shared.ErrInvalidAmount
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return c, shared.ErrNotInCart
	}
	items := c.Items()
	items[idx].Amount = amount
	return Cart{items: items}, nil
}

// Without returns a cart lacking the line for productID.
// The boolean is false when the product was not in the cart, in which case
// the receiver is returned unchanged.
func (c Cart) Without(productID int) (Cart, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return c, false
	}
	items := make([]LineItem, 0, len(c.items)-1)
	items = append(items, c.items[:idx]...)
	items = append(items, c.items[idx+1:]...)
	return Cart{items: items}, true
}

// AmountByProduct maps each product id in the cart to its amount
func (c Cart) AmountByProduct() map[int]int {
	out := make(map[int]int, len(c.items))
	for _, item := range c.items {
		out[item.ProductID] = item.Amount
	}
	return out
}

// TotalUnits sums the amounts of all lines
func (c Cart) TotalUnits() int {
	total := 0
	for _, item := range c.items {
		total += item.Amount
	}
	return total
}

// Total sums the subtotals of all lines
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c Cart) indexOf(productID int) int {
	for i, item := range c.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
