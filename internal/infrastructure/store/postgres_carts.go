package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/shop-backend/internal/domain/cart"
)

// PostgresCartRepository implements cart.Repository on PostgreSQL.
type PostgresCartRepository struct {
	db *sql.DB
}

func NewPostgresCartRepository(db *sql.DB) *PostgresCartRepository {
	return &PostgresCartRepository{db: db}
}

const cartColumns = `id, user_id, product_id, quantity, added_at, hold_expiry`

func (r *PostgresCartRepository) Get(ctx context.Context, id string) (cart.Item, error) {
	var item cart.Item
	err := r.db.QueryRowContext(ctx,
		`SELECT `+cartColumns+` FROM cart_items WHERE id = $1`, id,
	).Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt, &item.HoldExpiry)
	if errors.Is(err, sql.ErrNoRows) {
		return cart.Item{}, cart.ErrItemNotFound
	}
	if err != nil {
		return cart.Item{}, fmt.Errorf("select cart item: %w", err)
	}
	return item, nil
}

func (r *PostgresCartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Item, error) {
	return r.list(ctx,
		`SELECT `+cartColumns+` FROM cart_items WHERE user_id = $1 ORDER BY added_at`, userID)
}

func (r *PostgresCartRepository) ListExpired(ctx context.Context, now time.Time) ([]cart.Item, error) {
	return r.list(ctx,
		`SELECT `+cartColumns+` FROM cart_items WHERE hold_expiry <= $1`, now)
}

func (r *PostgresCartRepository) HoldTotal(ctx context.Context, productID string, now time.Time) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE product_id = $1 AND hold_expiry > $2`,
		productID, now,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum holds: %w", err)
	}
	return total, nil
}

func (r *PostgresCartRepository) Upsert(ctx context.Context, item cart.Item) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cart_items (id, user_id, product_id, quantity, added_at, hold_expiry)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, product_id)
		 DO UPDATE SET quantity = EXCLUDED.quantity, hold_expiry = EXCLUDED.hold_expiry`,
		item.ID, item.UserID, item.ProductID, item.Quantity, item.AddedAt, item.HoldExpiry,
	)
	if err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

func (r *PostgresCartRepository) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $2 WHERE id = $1`, id, quantity)
	if err != nil {
		return fmt.Errorf("update cart quantity: %w", err)
	}
	return requireRow(res, cart.ErrItemNotFound)
}

func (r *PostgresCartRepository) UpdateExpiry(ctx context.Context, id string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET hold_expiry = $2 WHERE id = $1`, id, expiry)
	if err != nil {
		return fmt.Errorf("update cart expiry: %w", err)
	}
	return requireRow(res, cart.ErrItemNotFound)
}

func (r *PostgresCartRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

func (r *PostgresCartRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *PostgresCartRepository) list(ctx context.Context, query string, args ...any) ([]cart.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	var items []cart.Item
	for rows.Next() {
		var item cart.Item
		if err := rows.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.AddedAt, &item.HoldExpiry); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
