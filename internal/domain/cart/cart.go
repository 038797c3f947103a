package cart

import (
	"errors"
	"time"
)

// HoldTTL is the stock-hold window granted to a cart item when it is added
// or extended.
const HoldTTL = 5 * time.Minute

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
)

// Item is a cart line with a time-boxed soft reservation of stock. An item
// whose quantity would drop to zero is removed instead of persisted.
type Item struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	AddedAt    time.Time `json:"added_at"`
	HoldExpiry time.Time `json:"hold_expiry"`
}

// Expired reports whether the item's stock hold has lapsed at now.
func (i Item) Expired(now time.Time) bool {
	return i.HoldExpiry.Before(now) || i.HoldExpiry.Equal(now)
}
