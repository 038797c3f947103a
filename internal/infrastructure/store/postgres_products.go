package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/shop-backend/internal/domain/product"
)

// PostgresProductRepository implements ProductRepository on PostgreSQL.
type PostgresProductRepository struct {
	db *sql.DB
}

func NewPostgresProductRepository(db *sql.DB) *PostgresProductRepository {
	return &PostgresProductRepository{db: db}
}

func (r *PostgresProductRepository) Create(ctx context.Context, p product.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, name, quantity, cost, price, shelf_location, image_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.Name, p.Quantity, p.Cost, p.Price, p.ShelfLocation, p.ImageURL, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *PostgresProductRepository) Update(ctx context.Context, p product.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET name = $2, cost = $3, price = $4, shelf_location = $5, image_url = $6, updated_at = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.Cost, p.Price, p.ShelfLocation, p.ImageURL, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return requireRow(res, product.ErrProductNotFound)
}

func (r *PostgresProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return requireRow(res, product.ErrProductNotFound)
}

func (r *PostgresProductRepository) GetByID(ctx context.Context, id string) (product.Product, error) {
	var p product.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, quantity, cost, price, shelf_location, image_url, created_at, updated_at
		 FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Quantity, &p.Cost, &p.Price, &p.ShelfLocation, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return product.Product{}, product.ErrProductNotFound
	}
	if err != nil {
		return product.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *PostgresProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, quantity, cost, price, shelf_location, image_url, created_at, updated_at
		 FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []product.Product
	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Quantity, &p.Cost, &p.Price, &p.ShelfLocation, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// AdjustQuantity applies delta as a single conditional update. The WHERE
// guard makes the decrement atomic: two concurrent checkouts cannot both
// take the last unit.
func (r *PostgresProductRepository) AdjustQuantity(ctx context.Context, id string, delta int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products
		 SET quantity = quantity + $2, updated_at = $3
		 WHERE id = $1 AND quantity + $2 >= 0`,
		id, delta, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("adjust quantity: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the product is gone or the decrement would go negative.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return product.ErrInsufficientStock
	}
	return nil
}

func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
