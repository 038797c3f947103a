package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/shop-backend/internal/domain/order"
)

// PostgresOrderRepository implements OrderRepository on PostgreSQL. Line
// items are stored as a JSONB snapshot since they are immutable after
// checkout.
type PostgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db}
}

func (r *PostgresOrderRepository) Create(ctx context.Context, o order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO orders (id, customer_id, items, total, status, payment_method, shipping_address, tracking_number, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.CustomerID, items, o.Total, o.Status, o.PaymentMethod, o.ShippingAddress, o.TrackingNumber, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) GetByID(ctx context.Context, id string) (order.Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, items, total, status, payment_method, shipping_address, tracking_number, created_at, updated_at
		 FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o, err
}

func (r *PostgresOrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	return r.list(ctx,
		`SELECT id, customer_id, items, total, status, payment_method, shipping_address, tracking_number, created_at, updated_at
		 FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
}

func (r *PostgresOrderRepository) ListAll(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx,
		`SELECT id, customer_id, items, total, status, payment_method, shipping_address, tracking_number, created_at, updated_at
		 FROM orders ORDER BY created_at DESC`)
}

// UpdateStatus is a compare-and-set on the status column. Returning false
// means another actor moved the order first; the caller re-reads and
// re-validates against the lifecycle graph.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status, updatedAt time.Time, trackingNumber string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders
		 SET status = $3, updated_at = $4,
		     tracking_number = CASE WHEN $5 <> '' THEN $5 ELSE tracking_number END
		 WHERE id = $1 AND status = $2`,
		id, from, to, updatedAt, trackingNumber,
	)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PostgresOrderRepository) list(ctx context.Context, query string, args ...any) ([]order.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (order.Order, error) {
	var o order.Order
	var items []byte
	err := row.Scan(&o.ID, &o.CustomerID, &items, &o.Total, &o.Status, &o.PaymentMethod, &o.ShippingAddress, &o.TrackingNumber, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshal items: %w", err)
	}
	return o, nil
}
