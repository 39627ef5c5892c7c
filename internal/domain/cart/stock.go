package cart

import "github.com/storefront/cart/internal/domain/shared"

// Stock is the available quantity of a product as reported by the stock service
type Stock struct {
	ProductID int
	Amount    int
}

// EnsureCanIncrement fails only when current equals the available stock,
// which includes a stock of zero for a product not yet in the cart. A line
// already above a stock that has since dropped may still grow by one.
func EnsureCanIncrement(current int, stock Stock) error {
	if max(current, 0) == stock.Amount {
		return shared.ErrStockExceeded
	}
	return nil
}

// EnsureAmountAvailable checks that requested units are covered by stock
func EnsureAmountAvailable(requested int, stock Stock) error {
	if max(requested, 1) > stock.Amount {
		return shared.ErrStockExceeded
	}
	return nil
}
