// Package event defines the envelopes published to the bus after an order
// mutation commits. Consumers (the notifier, the in-process order feed)
// receive these with at-least-once delivery, so handlers must tolerate
// replays.
package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/example/shop-backend/internal/domain/order"
)

type Type string

const (
	TypeOrderCreated       Type = "OrderCreated"
	TypeOrderStatusChanged Type = "OrderStatusChanged"
)

// Envelope wraps a typed payload for transport.
type Envelope struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// OrderCreated is published when checkout commits a new order.
type OrderCreated struct {
	OrderID    string           `json:"order_id"`
	CustomerID string           `json:"customer_id"`
	Items      []order.LineItem `json:"items"`
	Total      int              `json:"total"`
	PlacedAt   time.Time        `json:"placed_at"`
}

// OrderStatusChanged is published when a status transition commits.
type OrderStatusChanged struct {
	OrderID    string       `json:"order_id"`
	CustomerID string       `json:"customer_id"`
	From       order.Status `json:"from"`
	To         order.Status `json:"to"`
	ChangedAt  time.Time    `json:"changed_at"`
}

// New marshals payload into a fresh envelope.
func New(t Type, occurredAt time.Time, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.New().String(),
		Type:       t,
		OccurredAt: occurredAt,
		Data:       data,
	}, nil
}
