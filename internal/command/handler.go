package command

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/domain/cart"
	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/domain/product"
	"github.com/example/shop-backend/internal/domain/user"
	"github.com/example/shop-backend/internal/event"
	"github.com/example/shop-backend/internal/infrastructure/store"
	"github.com/example/shop-backend/internal/permission"
)

// Carts is the slice of the cart service checkout needs.
type Carts interface {
	Items(ctx context.Context, userID string) ([]cart.Item, error)
	Clear(ctx context.Context, userID string) error
}

// Publisher emits events to the bus after a mutation commits. Publishing
// is best-effort; a bus outage never rolls back a committed write.
type Publisher interface {
	Publish(ctx context.Context, key string, payload any) error
}

type Handler struct {
	products store.ProductRepository
	orders   store.OrderRepository
	users    store.UserRepository
	carts    Carts
	bus      Publisher
	logger   *zap.Logger
}

func NewHandler(
	products store.ProductRepository,
	orders store.OrderRepository,
	users store.UserRepository,
	carts Carts,
	bus Publisher,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		users:    users,
		carts:    carts,
		bus:      bus,
		logger:   logger,
	}
}

// Checkout turns the user's cart into a PENDING order. Stock is claimed
// with one conditional decrement per line; if any line fails, the
// decrements already applied are put back and no order is written.
func (h *Handler) Checkout(ctx context.Context, actor permission.Role, cmd Checkout) (order.Order, error) {
	if !permission.IsAllowed(actor, permission.ActionCreateOrder) {
		return order.Order{}, fmt.Errorf("%w: role %q cannot place orders", permission.ErrDenied, actor)
	}

	lines, err := h.carts.Items(ctx, cmd.UserID)
	if err != nil {
		return order.Order{}, err
	}
	if len(lines) == 0 {
		return order.Order{}, order.ErrEmptyOrder
	}

	items := make([]order.LineItem, 0, len(lines))
	for _, line := range lines {
		p, err := h.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return order.Order{}, err
		}
		items = append(items, order.LineItem{
			ProductID: p.ID,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
	}

	claimed := make([]order.LineItem, 0, len(items))
	for _, item := range items {
		if err := h.products.AdjustQuantity(ctx, item.ProductID, -item.Quantity); err != nil {
			h.releaseStock(ctx, claimed)
			return order.Order{}, err
		}
		claimed = append(claimed, item)
	}

	o, err := order.New(cmd.UserID, items, cmd.PaymentMethod, cmd.ShippingAddress, time.Now())
	if err != nil {
		h.releaseStock(ctx, claimed)
		return order.Order{}, err
	}
	if err := h.orders.Create(ctx, o); err != nil {
		h.releaseStock(ctx, claimed)
		return order.Order{}, err
	}

	if err := h.carts.Clear(ctx, cmd.UserID); err != nil {
		h.logger.Warn("clearing cart after checkout failed",
			zap.String("user_id", cmd.UserID), zap.Error(err))
	}

	h.publish(ctx, o.ID, event.TypeOrderCreated, o.CreatedAt, event.OrderCreated{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Items:      o.Items,
		Total:      o.Total,
		PlacedAt:   o.CreatedAt,
	})
	return o, nil
}

// UpdateOrderStatus moves an order through its lifecycle. The write is a
// compare-and-set on the status read here; when a concurrent actor wins
// the race, a reload decides between idempotent success (the order is
// already where we wanted it) and a transition conflict.
func (h *Handler) UpdateOrderStatus(ctx context.Context, actor permission.Role, cmd UpdateOrderStatus) (order.Order, error) {
	target := order.Status(cmd.Status)
	if !target.Valid() {
		return order.Order{}, fmt.Errorf("%w: unknown status %q", order.ErrIllegalTransition, cmd.Status)
	}

	o, err := h.orders.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return order.Order{}, err
	}

	now := time.Now()
	res, err := order.Transition(o, target, actor, now)
	if err != nil {
		return order.Order{}, err
	}
	if !res.Applied {
		return res.Order, nil
	}

	applied, err := h.orders.UpdateStatus(ctx, o.ID, o.Status, target, now, cmd.TrackingNumber)
	if err != nil {
		return order.Order{}, err
	}
	if !applied {
		current, err := h.orders.GetByID(ctx, cmd.OrderID)
		if err != nil {
			return order.Order{}, err
		}
		if current.Status == target {
			return current, nil
		}
		return order.Order{}, fmt.Errorf("%w: order moved to %s concurrently", order.ErrIllegalTransition, current.Status)
	}

	for _, restore := range res.StockRestores {
		if err := h.products.AdjustQuantity(ctx, restore.ProductID, restore.Delta); err != nil {
			h.logger.Error("restoring stock failed",
				zap.String("order_id", o.ID),
				zap.String("product_id", restore.ProductID),
				zap.Int("delta", restore.Delta),
				zap.Error(err))
		}
	}

	updated := res.Order
	if cmd.TrackingNumber != "" {
		updated.TrackingNumber = cmd.TrackingNumber
	}
	h.publish(ctx, o.ID, event.TypeOrderStatusChanged, now, event.OrderStatusChanged{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		From:       o.Status,
		To:         target,
		ChangedAt:  now,
	})
	return updated, nil
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(ctx context.Context, actor permission.Role, cmd CreateProduct) (product.Product, error) {
	if !permission.IsAllowed(actor, permission.ActionEditProducts) {
		return product.Product{}, fmt.Errorf("%w: role %q cannot edit products", permission.ErrDenied, actor)
	}

	p, err := product.New(cmd.Name, cmd.Quantity, cmd.Cost, cmd.Price, cmd.ShelfLocation, cmd.ImageURL, time.Now())
	if err != nil {
		return product.Product{}, err
	}
	if err := h.products.Create(ctx, p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// UpdateProduct rewrites the catalog fields of a product. Stock is not
// touched here; quantity moves only through adjustments.
func (h *Handler) UpdateProduct(ctx context.Context, actor permission.Role, cmd UpdateProduct) (product.Product, error) {
	if !permission.IsAllowed(actor, permission.ActionEditProducts) {
		return product.Product{}, fmt.Errorf("%w: role %q cannot edit products", permission.ErrDenied, actor)
	}

	p, err := h.products.GetByID(ctx, cmd.ProductID)
	if err != nil {
		return product.Product{}, err
	}
	if cmd.Name == "" {
		return product.Product{}, product.ErrInvalidName
	}
	if cmd.Cost < 0 || cmd.Price < 0 {
		return product.Product{}, product.ErrInvalidPrice
	}

	p.Name = cmd.Name
	p.Cost = cmd.Cost
	p.Price = cmd.Price
	p.ShelfLocation = cmd.ShelfLocation
	p.ImageURL = cmd.ImageURL
	p.UpdatedAt = time.Now()

	if err := h.products.Update(ctx, p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes a product from the catalog. Admin only.
func (h *Handler) DeleteProduct(ctx context.Context, actor permission.Role, cmd DeleteProduct) error {
	if !permission.IsAllowed(actor, permission.ActionDeleteProducts) {
		return fmt.Errorf("%w: role %q cannot delete products", permission.ErrDenied, actor)
	}
	return h.products.Delete(ctx, cmd.ProductID)
}

// ProcessSale decrements stock for an in-person sale.
func (h *Handler) ProcessSale(ctx context.Context, actor permission.Role, cmd ProcessSale) error {
	if !permission.IsAllowed(actor, permission.ActionProcessSales) {
		return fmt.Errorf("%w: role %q cannot process sales", permission.ErrDenied, actor)
	}
	if cmd.Quantity <= 0 {
		return product.ErrInvalidQuantity
	}
	return h.products.AdjustQuantity(ctx, cmd.ProductID, -cmd.Quantity)
}

// UpdateUserRole changes an account's role. Admin only.
func (h *Handler) UpdateUserRole(ctx context.Context, actor permission.Role, cmd UpdateUserRole) error {
	if !permission.IsAllowed(actor, permission.ActionManageUsers) {
		return fmt.Errorf("%w: role %q cannot manage users", permission.ErrDenied, actor)
	}
	if !permission.Role(cmd.Role).Valid() {
		return user.ErrInvalidRole
	}
	return h.users.UpdateRole(ctx, cmd.UserID, cmd.Role, time.Now())
}

// DeactivateUser turns an account off without deleting it. Admin only.
func (h *Handler) DeactivateUser(ctx context.Context, actor permission.Role, cmd DeactivateUser) error {
	if !permission.IsAllowed(actor, permission.ActionManageUsers) {
		return fmt.Errorf("%w: role %q cannot manage users", permission.ErrDenied, actor)
	}
	return h.users.Deactivate(ctx, cmd.UserID, time.Now())
}

// releaseStock puts back decrements claimed by a checkout that failed
// partway. Failures are logged; there is nothing further to unwind.
func (h *Handler) releaseStock(ctx context.Context, claimed []order.LineItem) {
	for _, item := range claimed {
		if err := h.products.AdjustQuantity(ctx, item.ProductID, item.Quantity); err != nil {
			h.logger.Error("releasing claimed stock failed",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}
}

func (h *Handler) publish(ctx context.Context, key string, t event.Type, at time.Time, payload any) {
	env, err := event.New(t, at, payload)
	if err != nil {
		h.logger.Error("encoding event failed", zap.String("type", string(t)), zap.Error(err))
		return
	}
	if err := h.bus.Publish(ctx, key, env); err != nil {
		h.logger.Error("publishing event failed",
			zap.String("type", string(t)), zap.String("key", key), zap.Error(err))
	}
}
