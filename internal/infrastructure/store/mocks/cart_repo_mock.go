package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/shop-backend/internal/domain/cart"
)

// MockCartRepository is an in-memory cart.Repository for testing
type MockCartRepository struct {
	mu    sync.RWMutex
	Items map[string]cart.Item
}

func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{Items: make(map[string]cart.Item)}
}

func (m *MockCartRepository) Get(_ context.Context, id string) (cart.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.Items[id]
	if !ok {
		return cart.Item{}, cart.ErrItemNotFound
	}
	return item, nil
}

func (m *MockCartRepository) ListByUser(_ context.Context, userID string) ([]cart.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []cart.Item
	for _, item := range m.Items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockCartRepository) ListExpired(_ context.Context, now time.Time) ([]cart.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []cart.Item
	for _, item := range m.Items {
		if item.Expired(now) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *MockCartRepository) HoldTotal(_ context.Context, productID string, now time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, item := range m.Items {
		if item.ProductID == productID && !item.Expired(now) {
			total += item.Quantity
		}
	}
	return total, nil
}

func (m *MockCartRepository) Upsert(_ context.Context, item cart.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[item.ID] = item
	return nil
}

func (m *MockCartRepository) UpdateQuantity(_ context.Context, id string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.Items[id]
	if !ok {
		return cart.ErrItemNotFound
	}
	item.Quantity = quantity
	m.Items[id] = item
	return nil
}

func (m *MockCartRepository) UpdateExpiry(_ context.Context, id string, expiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.Items[id]
	if !ok {
		return cart.ErrItemNotFound
	}
	item.HoldExpiry = expiry
	m.Items[id] = item
	return nil
}

func (m *MockCartRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Items[id]; !ok {
		return cart.ErrItemNotFound
	}
	delete(m.Items, id)
	return nil
}

func (m *MockCartRepository) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.Items {
		if item.UserID == userID {
			delete(m.Items, id)
		}
	}
	return nil
}
