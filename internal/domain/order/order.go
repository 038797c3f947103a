package order

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/shop-backend/internal/permission"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyOrder        = errors.New("order must have at least one item")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrPermissionDenied  = permission.ErrDenied
	ErrIllegalTransition = errors.New("illegal order status transition")
)

// validTransitions defines allowed state transitions. The lifecycle runs
// PENDING through DELIVERED in order; CANCELLED and RETURNED are terminal
// deviations reachable from every non-terminal state, and RETURNED is also
// reachable from DELIVERED.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled, StatusReturned},
	StatusConfirmed:  {StatusProcessing, StatusCancelled, StatusReturned},
	StatusProcessing: {StatusShipped, StatusCancelled, StatusReturned},
	StatusShipped:    {StatusDelivered, StatusCancelled, StatusReturned},
	StatusDelivered:  {StatusReturned},
	StatusCancelled:  {},
	StatusReturned:   {},
}

// CanTransition checks whether an order in status from may move to target.
func CanTransition(from, target Status) bool {
	allowed, exists := validTransitions[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s admits no further transitions.
// DELIVERED is terminal in the completed sense but still accepts RETURNED.
func IsTerminal(s Status) bool {
	return len(validTransitions[s]) == 0
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// LineItem is a snapshot of a product at order time. Line items are never
// edited after the order is created.
type LineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	LineTotal int    `json:"line_total"`
}

type Order struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	Items           []LineItem `json:"items"`
	Total           int        `json:"total"`
	Status          Status     `json:"status"`
	PaymentMethod   string     `json:"payment_method"`
	ShippingAddress string     `json:"shipping_address"`
	TrackingNumber  string     `json:"tracking_number,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// New builds a PENDING order from snapshotted line items. Line totals and
// the aggregate total are computed here and fixed for the order's lifetime.
func New(customerID string, items []LineItem, paymentMethod, shippingAddress string, now time.Time) (Order, error) {
	if len(items) == 0 {
		return Order{}, ErrEmptyOrder
	}

	var total int
	snapshot := make([]LineItem, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return Order{}, ErrInvalidQuantity
		}
		item.LineTotal = item.UnitPrice * item.Quantity
		snapshot[i] = item
		total += item.LineTotal
	}

	return Order{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		Items:           snapshot,
		Total:           total,
		Status:          StatusPending,
		PaymentMethod:   paymentMethod,
		ShippingAddress: shippingAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}
