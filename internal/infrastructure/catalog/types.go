package catalog

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/cart/internal/domain/cart"
)

// productPayload is the JSON shape of /products entries
type productPayload struct {
	ID    int             `json:"id" validate:"gt=0"`
	Title string          `json:"title" validate:"required"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image" validate:"omitempty,url"`
}

func (p productPayload) toDomain() cart.Product {
	return cart.Product{
		ID:    p.ID,
		Title: p.Title,
		Price: p.Price,
		Image: p.Image,
	}
}

// stockPayload is the JSON shape of /stock/{id}
type stockPayload struct {
	ID     int  `json:"id"`
	Amount *int `json:"amount"`
}
