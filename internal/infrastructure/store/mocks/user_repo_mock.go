package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/shop-backend/internal/domain/user"
	"github.com/example/shop-backend/internal/permission"
)

// MockUserRepository is an in-memory UserRepository for testing
type MockUserRepository struct {
	mu    sync.RWMutex
	Users map[string]user.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[string]user.User)}
}

func (m *MockUserRepository) Create(_ context.Context, u user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.Users {
		if existing.Email == u.Email {
			return user.ErrEmailTaken
		}
	}
	m.Users[u.ID] = u
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.Users[id]
	if !ok {
		return user.User{}, user.ErrUserNotFound
	}
	return u, nil
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, user.ErrUserNotFound
}

func (m *MockUserRepository) List(_ context.Context) ([]user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]user.User, 0, len(m.Users))
	for _, u := range m.Users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MockUserRepository) UpdateRole(_ context.Context, id string, role string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Role = permission.Role(role)
	u.UpdatedAt = updatedAt
	m.Users[id] = u
	return nil
}

func (m *MockUserRepository) UpdatePassword(_ context.Context, id string, passwordHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = updatedAt
	m.Users[id] = u
	return nil
}

func (m *MockUserRepository) Deactivate(_ context.Context, id string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return user.ErrUserNotFound
	}
	u.Active = false
	u.UpdatedAt = updatedAt
	m.Users[id] = u
	return nil
}
