package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/shop-backend/internal/domain/product"
)

// AdjustCall records parameters passed to AdjustQuantity
type AdjustCall struct {
	ProductID string
	Delta     int
}

// MockProductRepository is an in-memory ProductRepository for testing
type MockProductRepository struct {
	mu       sync.RWMutex
	Products map[string]product.Product

	AdjustCalls []AdjustCall
	AdjustErr   map[string]error
}

func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		Products:  make(map[string]product.Product),
		AdjustErr: make(map[string]error),
	}
}

func (m *MockProductRepository) Create(_ context.Context, p product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Products[p.ID] = p
	return nil
}

func (m *MockProductRepository) Update(_ context.Context, p product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Products[p.ID]; !ok {
		return product.ErrProductNotFound
	}
	p.UpdatedAt = time.Now()
	m.Products[p.ID] = p
	return nil
}

func (m *MockProductRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Products[id]; !ok {
		return product.ErrProductNotFound
	}
	delete(m.Products, id)
	return nil
}

func (m *MockProductRepository) GetByID(_ context.Context, id string) (product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.Products[id]
	if !ok {
		return product.Product{}, product.ErrProductNotFound
	}
	return p, nil
}

func (m *MockProductRepository) List(_ context.Context) ([]product.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]product.Product, 0, len(m.Products))
	for _, p := range m.Products {
		out = append(out, p)
	}
	return out, nil
}

func (m *MockProductRepository) AdjustQuantity(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.AdjustCalls = append(m.AdjustCalls, AdjustCall{ProductID: id, Delta: delta})

	if err := m.AdjustErr[id]; err != nil {
		return err
	}

	p, ok := m.Products[id]
	if !ok {
		return product.ErrProductNotFound
	}
	if p.Quantity+delta < 0 {
		return product.ErrInsufficientStock
	}
	p.Quantity += delta
	m.Products[id] = p
	return nil
}
