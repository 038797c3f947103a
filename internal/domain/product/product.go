package product

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidName       = errors.New("product name is required")
	ErrInvalidQuantity   = errors.New("quantity cannot be negative")
	ErrInvalidPrice      = errors.New("price cannot be negative")
)

// Product is an inventory item. Quantity is the on-hand stock count and is
// mutated only through conditional adjustments at the repository, including
// restorations driven by order cancellations and returns.
type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Quantity      int       `json:"quantity"`
	Cost          int       `json:"cost"`
	Price         int       `json:"price"`
	ShelfLocation string    `json:"shelf_location,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// New validates fields and builds a product with a fresh id.
func New(name string, quantity, cost, price int, shelfLocation, imageURL string, now time.Time) (Product, error) {
	if name == "" {
		return Product{}, ErrInvalidName
	}
	if quantity < 0 {
		return Product{}, ErrInvalidQuantity
	}
	if cost < 0 || price < 0 {
		return Product{}, ErrInvalidPrice
	}

	return Product{
		ID:            uuid.New().String(),
		Name:          name,
		Quantity:      quantity,
		Cost:          cost,
		Price:         price,
		ShelfLocation: shelfLocation,
		ImageURL:      imageURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
