package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/shop-backend/internal/domain/order"
)

// UpdateStatusCall records parameters passed to UpdateStatus
type UpdateStatusCall struct {
	OrderID string
	From    order.Status
	To      order.Status
}

// MockOrderRepository is an in-memory OrderRepository for testing
type MockOrderRepository struct {
	mu     sync.RWMutex
	Orders map[string]order.Order

	UpdateStatusCalls []UpdateStatusCall
	UpdateStatusErr   error
	// ForceCASFailure makes UpdateStatus report a lost race without
	// touching stored state.
	ForceCASFailure bool
	// GetQueue, when non-empty, overrides GetByID responses in order.
	// Lets a test serve different snapshots across reloads.
	GetQueue []order.Order
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{Orders: make(map[string]order.Order)}
}

func (m *MockOrderRepository) Create(_ context.Context, o order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Orders[o.ID] = o
	return nil
}

func (m *MockOrderRepository) GetByID(_ context.Context, id string) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.GetQueue) > 0 {
		next := m.GetQueue[0]
		m.GetQueue = m.GetQueue[1:]
		return next, nil
	}
	o, ok := m.Orders[id]
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o, nil
}

func (m *MockOrderRepository) ListByCustomer(_ context.Context, customerID string) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []order.Order
	for _, o := range m.Orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) ListAll(_ context.Context) ([]order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]order.Order, 0, len(m.Orders))
	for _, o := range m.Orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *MockOrderRepository) UpdateStatus(_ context.Context, id string, from, to order.Status, updatedAt time.Time, trackingNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateStatusCalls = append(m.UpdateStatusCalls, UpdateStatusCall{OrderID: id, From: from, To: to})

	if m.UpdateStatusErr != nil {
		return false, m.UpdateStatusErr
	}
	if m.ForceCASFailure {
		return false, nil
	}

	o, ok := m.Orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = updatedAt
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	m.Orders[id] = o
	return true, nil
}
