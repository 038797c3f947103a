package user

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/shop-backend/internal/permission"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email is already registered")
	ErrInvalidEmail = errors.New("email is required")
	ErrInvalidRole  = errors.New("unknown role")
)

// User is an account. Accounts are never hard-deleted; deactivation flips
// Active off. Role changes go through the admin-only update path.
type User struct {
	ID           string          `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone,omitempty"`
	Role         permission.Role `json:"role"`
	Active       bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// New builds an active user with the given role.
func New(email, passwordHash, name, phone string, role permission.Role, now time.Time) (User, error) {
	if email == "" {
		return User{}, ErrInvalidEmail
	}
	if !role.Valid() {
		return User{}, ErrInvalidRole
	}

	return User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		Phone:        phone,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
