package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/storefront/cart/internal/domain/cart"
)

// ErrCorruptSnapshot is returned when a stored snapshot cannot be decoded
// into a valid cart
var ErrCorruptSnapshot = cart.ErrCorruptSnapshot

// snapshotItem is one element of the stored array.
// Price is kept as a JSON number so snapshots written by other clients load as-is.
type snapshotItem struct {
	ID     int         `json:"id"`
	Title  string      `json:"title"`
	Price  json.Number `json:"price"`
	Amount int         `json:"amount"`
	Image  string      `json:"image"`
}

// JSONCodec converts carts to and from the JSON array stored in a slot
type JSONCodec struct{}

// Encode serializes the cart in line order
func (JSONCodec) Encode(c cart.Cart) ([]byte, error) {
	items := c.Items()
	out := make([]snapshotItem, 0, len(items))
	for _, item := range items {
		out = append(out, snapshotItem{
			ID:     item.ProductID,
			Title:  item.Title,
			Price:  json.Number(item.Price.String()),
			Amount: item.Amount,
			Image:  item.Image,
		})
	}
	return json.Marshal(out)
}

// Decode parses a stored snapshot. An empty payload or JSON null decodes to
// an empty cart.
func (JSONCodec) Decode(data []byte) (cart.Cart, error) {
	if len(data) == 0 {
		return cart.Empty(), nil
	}

	var stored []snapshotItem
	if err := json.Unmarshal(data, &stored); err != nil {
		return cart.Empty(), fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}

	items := make([]cart.LineItem, 0, len(stored))
	for _, s := range stored {
		price := decimal.Zero
		if s.Price != "" {
			p, err := decimal.NewFromString(s.Price.String())
			if err != nil {
				return cart.Empty(), fmt.Errorf("%w: product %d price: %v", ErrCorruptSnapshot, s.ID, err)
			}
			price = p
		}
		items = append(items, cart.LineItem{
			ProductID: s.ID,
			Title:     s.Title,
			Price:     price,
			Image:     s.Image,
			Amount:    s.Amount,
		})
	}

	c, err := cart.FromItems(items)
	if err != nil {
		return cart.Empty(), fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return c, nil
}
