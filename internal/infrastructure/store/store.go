// Package store holds the repository implementations backing the domain:
// PostgreSQL for products, orders, carts and users, DynamoDB for the push
// device-token registry. The store is the arbiter of consistency; every
// stock or status mutation is a conditional update so concurrent actors
// cannot lose each other's writes.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/domain/product"
	"github.com/example/shop-backend/internal/domain/user"
)

// ProductRepository persists products and applies stock adjustments.
type ProductRepository interface {
	Create(ctx context.Context, p product.Product) error
	Update(ctx context.Context, p product.Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (product.Product, error)
	List(ctx context.Context) ([]product.Product, error)
	// AdjustQuantity applies delta to the stock count. A negative delta
	// that would drive the count below zero fails with
	// product.ErrInsufficientStock and writes nothing.
	AdjustQuantity(ctx context.Context, id string, delta int) error
}

// OrderRepository persists orders. Status is the only mutable field after
// creation, changed exclusively through the compare-and-set UpdateStatus.
type OrderRepository interface {
	Create(ctx context.Context, o order.Order) error
	GetByID(ctx context.Context, id string) (order.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error)
	ListAll(ctx context.Context) ([]order.Order, error)
	// UpdateStatus moves the order from one status to another only if it
	// is still in the from status, reporting whether the write applied.
	UpdateStatus(ctx context.Context, id string, from, to order.Status, updatedAt time.Time, trackingNumber string) (bool, error)
}

// UserRepository persists accounts. Accounts are deactivated, never
// deleted.
type UserRepository interface {
	Create(ctx context.Context, u user.User) error
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	UpdateRole(ctx context.Context, id string, role string, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, updatedAt time.Time) error
	Deactivate(ctx context.Context, id string, updatedAt time.Time) error
}

// ConnectPostgres opens a connection pool and verifies it.
func ConnectPostgres(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS products (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity >= 0),
	cost INTEGER NOT NULL DEFAULT 0,
	price INTEGER NOT NULL DEFAULT 0,
	shelf_location TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS orders (
	id UUID PRIMARY KEY,
	customer_id UUID NOT NULL,
	items JSONB NOT NULL,
	total INTEGER NOT NULL,
	status TEXT NOT NULL,
	payment_method TEXT NOT NULL DEFAULT '',
	shipping_address TEXT NOT NULL DEFAULT '',
	tracking_number TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders (customer_id);

CREATE TABLE IF NOT EXISTS cart_items (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	product_id UUID NOT NULL,
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	added_at TIMESTAMPTZ NOT NULL,
	hold_expiry TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, product_id)
);
CREATE INDEX IF NOT EXISTS idx_cart_items_expiry ON cart_items (hold_expiry);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}
