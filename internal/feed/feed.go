// Package feed bridges the event bus to in-process subscribers. It gives
// UI-facing code an explicit subscribe/unsubscribe lifecycle over order
// changes instead of a transport-specific callback.
package feed

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/event"
)

// Update is one order change delivered to subscribers.
type Update struct {
	Event      event.Type   `json:"event"`
	OrderID    string       `json:"order_id"`
	CustomerID string       `json:"customer_id"`
	Status     order.Status `json:"status"`
}

// Filter restricts which updates a subscriber receives. The zero filter
// matches everything.
type Filter struct {
	CustomerID string
}

func (f Filter) matches(u Update) bool {
	return f.CustomerID == "" || f.CustomerID == u.CustomerID
}

type subscriber struct {
	ch     chan Update
	filter Filter
}

// Hub fans order updates out to subscribers. Slow subscribers drop
// updates rather than block the rest.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]subscriber
	nextID int
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]subscriber),
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the owning context is torn down or the channel leaks.
func (h *Hub) Subscribe(filter Filter, buffer int) (<-chan Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	sub := subscriber{ch: make(chan Update, buffer), filter: filter}
	h.subs[id] = sub

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if s, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Broadcast delivers an update to every matching subscriber.
func (h *Hub) Broadcast(u Update) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		if !sub.filter.matches(u) {
			continue
		}
		select {
		case sub.ch <- u:
		default:
			h.logger.Warn("subscriber buffer full, dropping update",
				zap.String("order_id", u.OrderID))
		}
	}
}

// HandleEvent adapts the hub to the bus consumer. Unknown event types are
// ignored.
func (h *Hub) HandleEvent(_ context.Context, _, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}

	switch env.Type {
	case event.TypeOrderCreated:
		var e event.OrderCreated
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		h.Broadcast(Update{
			Event:      env.Type,
			OrderID:    e.OrderID,
			CustomerID: e.CustomerID,
			Status:     order.StatusPending,
		})
	case event.TypeOrderStatusChanged:
		var e event.OrderStatusChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		h.Broadcast(Update{
			Event:      env.Type,
			OrderID:    e.OrderID,
			CustomerID: e.CustomerID,
			Status:     e.To,
		})
	}
	return nil
}
