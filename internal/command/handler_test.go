package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/domain/cart"
	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/domain/product"
	"github.com/example/shop-backend/internal/domain/user"
	"github.com/example/shop-backend/internal/event"
	"github.com/example/shop-backend/internal/infrastructure/store/mocks"
	"github.com/example/shop-backend/internal/permission"
)

type fakeCarts struct {
	items      map[string][]cart.Item
	clearCalls []string
}

func (f *fakeCarts) Items(_ context.Context, userID string) ([]cart.Item, error) {
	return f.items[userID], nil
}

func (f *fakeCarts) Clear(_ context.Context, userID string) error {
	f.clearCalls = append(f.clearCalls, userID)
	delete(f.items, userID)
	return nil
}

type fakeBus struct {
	events []event.Envelope
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload any) error {
	f.events = append(f.events, payload.(event.Envelope))
	return nil
}

type testEnv struct {
	handler  *Handler
	products *mocks.MockProductRepository
	orders   *mocks.MockOrderRepository
	users    *mocks.MockUserRepository
	carts    *fakeCarts
	bus      *fakeBus
}

func newTestEnv() *testEnv {
	products := mocks.NewMockProductRepository()
	orders := mocks.NewMockOrderRepository()
	users := mocks.NewMockUserRepository()
	carts := &fakeCarts{items: make(map[string][]cart.Item)}
	bus := &fakeBus{}

	return &testEnv{
		handler:  NewHandler(products, orders, users, carts, bus, zap.NewNop()),
		products: products,
		orders:   orders,
		users:    users,
		carts:    carts,
		bus:      bus,
	}
}

func (e *testEnv) addProduct(t *testing.T, name string, quantity, price int) product.Product {
	t.Helper()
	p, err := product.New(name, quantity, 0, price, "", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func (e *testEnv) addOrder(t *testing.T, customerID string, status order.Status, items []order.LineItem) order.Order {
	t.Helper()
	o, err := order.New(customerID, items, "card", "1 Main St", time.Now())
	require.NoError(t, err)
	o.Status = status
	require.NoError(t, e.orders.Create(context.Background(), o))
	return o
}

// ============================================
// Checkout Tests
// ============================================

func TestHandler_Checkout_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p1 := env.addProduct(t, "Keyboard", 10, 500)
	p2 := env.addProduct(t, "Mouse", 3, 200)
	env.carts.items["user-1"] = []cart.Item{
		{ID: "c1", UserID: "user-1", ProductID: p1.ID, Quantity: 2},
		{ID: "c2", UserID: "user-1", ProductID: p2.ID, Quantity: 1},
	}

	o, err := env.handler.Checkout(ctx, permission.RoleCustomer, Checkout{
		UserID:          "user-1",
		PaymentMethod:   "card",
		ShippingAddress: "1 Main St",
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, 1200, o.Total)
	assert.Len(t, o.Items, 2)

	stored, err := env.products.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.Quantity)
	stored, err = env.products.GetByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Quantity)

	assert.Equal(t, []string{"user-1"}, env.carts.clearCalls)
	require.Len(t, env.bus.events, 1)
	assert.Equal(t, event.TypeOrderCreated, env.bus.events[0].Type)
}

func TestHandler_Checkout_EmptyCart(t *testing.T) {
	env := newTestEnv()

	_, err := env.handler.Checkout(context.Background(), permission.RoleCustomer, Checkout{UserID: "user-1"})

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
	assert.Empty(t, env.bus.events)
}

func TestHandler_Checkout_InsufficientStockRollsBack(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p1 := env.addProduct(t, "Keyboard", 5, 500)
	p2 := env.addProduct(t, "Mouse", 1, 200)
	env.carts.items["user-1"] = []cart.Item{
		{ID: "c1", UserID: "user-1", ProductID: p1.ID, Quantity: 2},
		{ID: "c2", UserID: "user-1", ProductID: p2.ID, Quantity: 3},
	}

	_, err := env.handler.Checkout(ctx, permission.RoleCustomer, Checkout{UserID: "user-1"})

	assert.ErrorIs(t, err, product.ErrInsufficientStock)

	// first claim is put back
	stored, err := env.products.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Quantity)

	assert.Empty(t, env.orders.Orders)
	assert.Empty(t, env.carts.clearCalls)
	assert.Empty(t, env.bus.events)
}

func TestHandler_Checkout_PermissionDenied(t *testing.T) {
	env := newTestEnv()

	_, err := env.handler.Checkout(context.Background(), permission.RoleEmployee, Checkout{UserID: "user-1"})

	assert.ErrorIs(t, err, permission.ErrDenied)
	assert.Empty(t, env.products.AdjustCalls)
}

// ============================================
// Update Order Status Tests
// ============================================

func TestHandler_UpdateOrderStatus_Ship(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	o := env.addOrder(t, "cust-1", order.StatusProcessing, []order.LineItem{
		{ProductID: "p1", Quantity: 2, UnitPrice: 500},
	})

	updated, err := env.handler.UpdateOrderStatus(ctx, permission.RoleEmployee, UpdateOrderStatus{
		OrderID:        o.ID,
		Status:         "shipped",
		TrackingNumber: "TRK-123",
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, updated.Status)
	assert.Equal(t, "TRK-123", updated.TrackingNumber)

	stored := env.orders.Orders[o.ID]
	assert.Equal(t, order.StatusShipped, stored.Status)
	assert.Equal(t, "TRK-123", stored.TrackingNumber)

	assert.Empty(t, env.products.AdjustCalls)
	require.Len(t, env.bus.events, 1)
	assert.Equal(t, event.TypeOrderStatusChanged, env.bus.events[0].Type)
}

func TestHandler_UpdateOrderStatus_CancelRestoresStock(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p1 := env.addProduct(t, "Keyboard", 8, 500)
	p2 := env.addProduct(t, "Mouse", 2, 200)
	o := env.addOrder(t, "cust-1", order.StatusConfirmed, []order.LineItem{
		{ProductID: p1.ID, Quantity: 2, UnitPrice: 500},
		{ProductID: p2.ID, Quantity: 1, UnitPrice: 200},
	})

	updated, err := env.handler.UpdateOrderStatus(ctx, permission.RoleAdmin, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  "cancelled",
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, updated.Status)

	stored, err := env.products.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Quantity)
	stored, err = env.products.GetByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Quantity)
}

func TestHandler_UpdateOrderStatus_SameStatusNoOp(t *testing.T) {
	env := newTestEnv()

	o := env.addOrder(t, "cust-1", order.StatusProcessing, []order.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})

	updated, err := env.handler.UpdateOrderStatus(context.Background(), permission.RoleEmployee, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  "processing",
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, updated.Status)
	assert.Empty(t, env.orders.UpdateStatusCalls)
	assert.Empty(t, env.bus.events)
}

func TestHandler_UpdateOrderStatus_CustomerDenied(t *testing.T) {
	env := newTestEnv()

	o := env.addOrder(t, "cust-1", order.StatusDelivered, []order.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})

	_, err := env.handler.UpdateOrderStatus(context.Background(), permission.RoleCustomer, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  "returned",
	})

	assert.ErrorIs(t, err, order.ErrPermissionDenied)
	assert.Empty(t, env.orders.UpdateStatusCalls)
}

func TestHandler_UpdateOrderStatus_IllegalJump(t *testing.T) {
	env := newTestEnv()

	o := env.addOrder(t, "cust-1", order.StatusPending, []order.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})

	_, err := env.handler.UpdateOrderStatus(context.Background(), permission.RoleEmployee, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  "shipped",
	})

	assert.ErrorIs(t, err, order.ErrIllegalTransition)
}

func TestHandler_UpdateOrderStatus_UnknownStatus(t *testing.T) {
	env := newTestEnv()

	_, err := env.handler.UpdateOrderStatus(context.Background(), permission.RoleEmployee, UpdateOrderStatus{
		OrderID: "any",
		Status:  "teleported",
	})

	assert.ErrorIs(t, err, order.ErrIllegalTransition)
}

func TestHandler_UpdateOrderStatus_LostRaceAlreadyThere(t *testing.T) {
	env := newTestEnv()

	o := env.addOrder(t, "cust-1", order.StatusProcessing, []order.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})

	// Another actor commits the same transition between our read and write.
	winner := o
	winner.Status = order.StatusShipped
	env.orders.ForceCASFailure = true
	env.orders.GetQueue = []order.Order{o, winner}

	updated, err := env.handler.UpdateOrderStatus(context.Background(), permission.RoleEmployee, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  "shipped",
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, updated.Status)
	// the winning write already published
	assert.Empty(t, env.bus.events)
}

func TestHandler_UpdateOrderStatus_LostRaceConflict(t *testing.T) {
	env := newTestEnv()

	o := env.addOrder(t, "cust-1", order.StatusProcessing, []order.LineItem{
		{ProductID: "p1", Quantity: 1, UnitPrice: 100},
	})

	winner := o
	winner.Status = order.StatusCancelled
	env.orders.ForceCASFailure = true
	env.orders.GetQueue = []order.Order{o, winner}

	_, err := env.handler.UpdateOrderStatus(context.Background(), permission.RoleEmployee, UpdateOrderStatus{
		OrderID: o.ID,
		Status:  "shipped",
	})

	assert.ErrorIs(t, err, order.ErrIllegalTransition)
	assert.Empty(t, env.bus.events)
}

// ============================================
// Product Command Tests
// ============================================

func TestHandler_CreateProduct_Success(t *testing.T) {
	env := newTestEnv()

	p, err := env.handler.CreateProduct(context.Background(), permission.RoleEmployee, CreateProduct{
		Name:     "Monitor",
		Quantity: 4,
		Cost:     9000,
		Price:    15000,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 4, p.Quantity)
	assert.Contains(t, env.products.Products, p.ID)
}

func TestHandler_CreateProduct_CustomerDenied(t *testing.T) {
	env := newTestEnv()

	_, err := env.handler.CreateProduct(context.Background(), permission.RoleCustomer, CreateProduct{
		Name: "Monitor",
	})

	assert.ErrorIs(t, err, permission.ErrDenied)
}

func TestHandler_UpdateProduct_Success(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p := env.addProduct(t, "Monitor", 4, 15000)

	updated, err := env.handler.UpdateProduct(ctx, permission.RoleAdmin, UpdateProduct{
		ProductID:     p.ID,
		Name:          "Monitor 27in",
		Price:         17000,
		ShelfLocation: "B-2",
	})

	require.NoError(t, err)
	assert.Equal(t, "Monitor 27in", updated.Name)
	assert.Equal(t, 17000, updated.Price)
	// stock untouched
	assert.Equal(t, 4, updated.Quantity)
}

func TestHandler_DeleteProduct_EmployeeDenied(t *testing.T) {
	env := newTestEnv()

	p := env.addProduct(t, "Monitor", 4, 15000)

	err := env.handler.DeleteProduct(context.Background(), permission.RoleEmployee, DeleteProduct{ProductID: p.ID})

	assert.ErrorIs(t, err, permission.ErrDenied)
	assert.Contains(t, env.products.Products, p.ID)
}

func TestHandler_ProcessSale(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	p := env.addProduct(t, "Monitor", 4, 15000)

	require.NoError(t, env.handler.ProcessSale(ctx, permission.RoleEmployee, ProcessSale{ProductID: p.ID, Quantity: 3}))

	stored, err := env.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Quantity)

	err = env.handler.ProcessSale(ctx, permission.RoleEmployee, ProcessSale{ProductID: p.ID, Quantity: 2})
	assert.ErrorIs(t, err, product.ErrInsufficientStock)
}

// ============================================
// User Command Tests
// ============================================

func TestHandler_UpdateUserRole(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	u, err := user.New("emp@shop.test", "hash", "Sam", "", permission.RoleCustomer, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.users.Create(ctx, u))

	require.NoError(t, env.handler.UpdateUserRole(ctx, permission.RoleAdmin, UpdateUserRole{
		UserID: u.ID,
		Role:   "employee",
	}))
	assert.Equal(t, permission.RoleEmployee, env.users.Users[u.ID].Role)

	err = env.handler.UpdateUserRole(ctx, permission.RoleEmployee, UpdateUserRole{UserID: u.ID, Role: "admin"})
	assert.ErrorIs(t, err, permission.ErrDenied)

	err = env.handler.UpdateUserRole(ctx, permission.RoleAdmin, UpdateUserRole{UserID: u.ID, Role: "superuser"})
	assert.ErrorIs(t, err, user.ErrInvalidRole)
}

func TestHandler_DeactivateUser(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	u, err := user.New("cust@shop.test", "hash", "Kim", "", permission.RoleCustomer, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.users.Create(ctx, u))

	require.NoError(t, env.handler.DeactivateUser(ctx, permission.RoleAdmin, DeactivateUser{UserID: u.ID}))
	assert.False(t, env.users.Users[u.ID].Active)

	err = env.handler.DeactivateUser(ctx, permission.RoleCustomer, DeactivateUser{UserID: u.ID})
	assert.ErrorIs(t, err, permission.ErrDenied)
}
