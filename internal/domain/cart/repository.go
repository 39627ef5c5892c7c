package cart

import (
	"context"

	"github.com/storefront/cart/internal/domain/shared"
)

// ErrCorruptSnapshot is returned by SnapshotRepository.Load when the stored
// snapshot cannot be turned into a valid cart
var ErrCorruptSnapshot = shared.NewDomainError("CORRUPT_SNAPSHOT", "Stored cart snapshot is corrupt")

// ProductCatalog reads product metadata from the remote product service
type ProductCatalog interface {
	// GetProduct fetches a single product by id
	GetProduct(ctx context.Context, productID int) (Product, error)
	// ListProducts fetches every product offered by the storefront
	ListProducts(ctx context.Context) ([]Product, error)
}

// StockService reads available quantities from the remote stock service
type StockService interface {
	// GetStock fetches the available amount for a product
	GetStock(ctx context.Context, productID int) (Stock, error)
}

// SnapshotRepository persists the cart as a single snapshot
type SnapshotRepository interface {
	// Load returns the stored cart, or an empty cart when nothing was stored
	Load(ctx context.Context) (Cart, error)
	// Save overwrites the stored cart
	Save(ctx context.Context, c Cart) error
}
