// Package query serves reads. Queries go straight to the repositories;
// the only logic here is scoping results to what the actor is allowed
// to see.
package query

import (
	"context"
	"fmt"

	"github.com/example/shop-backend/internal/domain/cart"
	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/domain/product"
	"github.com/example/shop-backend/internal/domain/user"
	"github.com/example/shop-backend/internal/infrastructure/store"
	"github.com/example/shop-backend/internal/permission"
)

// CartItems is the slice of the cart service reads need.
type CartItems interface {
	Items(ctx context.Context, userID string) ([]cart.Item, error)
}

type Handler struct {
	products store.ProductRepository
	orders   store.OrderRepository
	users    store.UserRepository
	carts    CartItems
}

func NewHandler(
	products store.ProductRepository,
	orders store.OrderRepository,
	users store.UserRepository,
	carts CartItems,
) *Handler {
	return &Handler{products: products, orders: orders, users: users, carts: carts}
}

// Products

func (h *Handler) GetProduct(ctx context.Context, id string) (product.Product, error) {
	return h.products.GetByID(ctx, id)
}

func (h *Handler) ListProducts(ctx context.Context) ([]product.Product, error) {
	return h.products.List(ctx)
}

// Orders

// Orders returns the orders the actor may see: staff see every order,
// customers only their own.
func (h *Handler) Orders(ctx context.Context, actorID string, actor permission.Role) ([]order.Order, error) {
	if permission.IsAllowed(actor, permission.ActionManageOrders) {
		return h.orders.ListAll(ctx)
	}
	return h.orders.ListByCustomer(ctx, actorID)
}

// GetOrder fetches one order, hiding other customers' orders behind
// not-found rather than forbidden.
func (h *Handler) GetOrder(ctx context.Context, id, actorID string, actor permission.Role) (order.Order, error) {
	o, err := h.orders.GetByID(ctx, id)
	if err != nil {
		return order.Order{}, err
	}
	if !permission.IsAllowed(actor, permission.ActionManageOrders) && o.CustomerID != actorID {
		return order.Order{}, fmt.Errorf("%w: %s", order.ErrOrderNotFound, id)
	}
	return o, nil
}

// Cart

func (h *Handler) GetCart(ctx context.Context, userID string) ([]cart.Item, error) {
	items, err := h.carts.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []cart.Item{}
	}
	return items, nil
}

// Users

// ListUsers is admin only.
func (h *Handler) ListUsers(ctx context.Context, actor permission.Role) ([]user.User, error) {
	if !permission.IsAllowed(actor, permission.ActionManageUsers) {
		return nil, fmt.Errorf("%w: role %q cannot list users", permission.ErrDenied, actor)
	}
	return h.users.List(ctx)
}

func (h *Handler) GetUser(ctx context.Context, id string) (user.User, error) {
	return h.users.GetByID(ctx, id)
}
