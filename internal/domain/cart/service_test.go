package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/domain/product"
)

// fakeRepo is an in-memory Repository with injectable failures.
type fakeRepo struct {
	items           map[string]Item
	getErr          map[string]error
	deleteErr       map[string]error
	expiredOverride []Item
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:     make(map[string]Item),
		getErr:    make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (r *fakeRepo) Get(_ context.Context, id string) (Item, error) {
	if err := r.getErr[id]; err != nil {
		return Item{}, err
	}
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (r *fakeRepo) ListByUser(_ context.Context, userID string) ([]Item, error) {
	var out []Item
	for _, item := range r.items {
		if item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListExpired(_ context.Context, now time.Time) ([]Item, error) {
	if r.expiredOverride != nil {
		return r.expiredOverride, nil
	}
	var out []Item
	for _, item := range r.items {
		if item.Expired(now) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeRepo) HoldTotal(_ context.Context, productID string, now time.Time) (int, error) {
	total := 0
	for _, item := range r.items {
		if item.ProductID == productID && !item.Expired(now) {
			total += item.Quantity
		}
	}
	return total, nil
}

func (r *fakeRepo) Upsert(_ context.Context, item Item) error {
	r.items[item.ID] = item
	return nil
}

func (r *fakeRepo) UpdateQuantity(_ context.Context, id string, quantity int) error {
	item, ok := r.items[id]
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	r.items[id] = item
	return nil
}

func (r *fakeRepo) UpdateExpiry(_ context.Context, id string, expiry time.Time) error {
	item, ok := r.items[id]
	if !ok {
		return ErrItemNotFound
	}
	item.HoldExpiry = expiry
	r.items[id] = item
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	if err := r.deleteErr[id]; err != nil {
		return err
	}
	delete(r.items, id)
	return nil
}

func (r *fakeRepo) DeleteByUser(_ context.Context, userID string) error {
	for id, item := range r.items {
		if item.UserID == userID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeProducts struct {
	products map[string]product.Product
}

func (f *fakeProducts) GetByID(_ context.Context, id string) (product.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return product.Product{}, product.ErrProductNotFound
	}
	return p, nil
}

func newTestService(stock int) (*Service, *fakeRepo) {
	repo := newFakeRepo()
	products := &fakeProducts{products: map[string]product.Product{
		"prod-1": {ID: "prod-1", Name: "Widget", Quantity: stock, Price: 1000},
	}}
	return NewService(repo, products, zap.NewNop()), repo
}

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// ============================================
// AddHold Tests
// ============================================

func TestService_AddHold_Success(t *testing.T) {
	svc, repo := newTestService(10)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 3, testNow)

	require.NoError(t, err)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, testNow, item.AddedAt)
	assert.Equal(t, testNow.Add(HoldTTL), item.HoldExpiry)
	assert.Len(t, repo.items, 1)
}

func TestService_AddHold_InvalidInput(t *testing.T) {
	svc, _ := newTestService(10)

	_, err := svc.AddHold(context.Background(), "user-1", "", 1, testNow)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.AddHold(context.Background(), "user-1", "prod-1", 0, testNow)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestService_AddHold_UnknownProduct(t *testing.T) {
	svc, _ := newTestService(10)

	_, err := svc.AddHold(context.Background(), "user-1", "prod-404", 1, testNow)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestService_AddHold_InsufficientAgainstActiveHolds(t *testing.T) {
	svc, _ := newTestService(5)

	_, err := svc.AddHold(context.Background(), "user-1", "prod-1", 3, testNow)
	require.NoError(t, err)

	// 5 in stock, 3 already held by another cart
	_, err = svc.AddHold(context.Background(), "user-2", "prod-1", 3, testNow)
	assert.ErrorIs(t, err, product.ErrInsufficientStock)
}

func TestService_AddHold_ExpiredHoldsDoNotCount(t *testing.T) {
	svc, repo := newTestService(5)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 3, testNow)
	require.NoError(t, err)

	// past the first hold's expiry, its reservation is released
	later := item.HoldExpiry.Add(time.Second)
	_, err = svc.AddHold(context.Background(), "user-2", "prod-1", 3, later)
	require.NoError(t, err)
	assert.Len(t, repo.items, 2)
}

func TestService_AddHold_TopsUpExistingLine(t *testing.T) {
	svc, repo := newTestService(10)

	first, err := svc.AddHold(context.Background(), "user-1", "prod-1", 2, testNow)
	require.NoError(t, err)

	second, err := svc.AddHold(context.Background(), "user-1", "prod-1", 3, testNow.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.Equal(t, first.AddedAt, second.AddedAt)
	assert.Equal(t, testNow.Add(time.Minute).Add(HoldTTL), second.HoldExpiry)
	assert.Len(t, repo.items, 1)
}

// ============================================
// ExtendHold Tests
// ============================================

func TestService_ExtendHold_ResetsExpiry(t *testing.T) {
	svc, _ := newTestService(10)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)

	later := testNow.Add(4 * time.Minute)
	extended, err := svc.ExtendHold(context.Background(), item.ID, later)

	require.NoError(t, err)
	assert.Equal(t, later.Add(HoldTTL), extended.HoldExpiry)
}

func TestService_ExtendHold_NotFound(t *testing.T) {
	svc, _ := newTestService(10)

	_, err := svc.ExtendHold(context.Background(), "missing", testNow)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// ============================================
// SetQuantity Tests
// ============================================

func TestService_SetQuantity_UpdatesWithoutTouchingExpiry(t *testing.T) {
	svc, repo := newTestService(10)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)

	require.NoError(t, svc.SetQuantity(context.Background(), item.ID, 3))

	got := repo.items[item.ID]
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, item.HoldExpiry, got.HoldExpiry)
}

func TestService_SetQuantity_ZeroRemovesItem(t *testing.T) {
	svc, repo := newTestService(10)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 2, testNow)
	require.NoError(t, err)

	require.NoError(t, svc.SetQuantity(context.Background(), item.ID, 0))
	assert.Empty(t, repo.items)

	err = svc.SetQuantity(context.Background(), item.ID, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// ============================================
// SweepExpired Tests
// ============================================

func TestService_SweepExpired_BeforeExpiryKeepsHold(t *testing.T) {
	svc, repo := newTestService(10)

	_, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)

	removed := svc.SweepExpired(context.Background(), testNow.Add(HoldTTL-time.Second))

	assert.Empty(t, removed)
	assert.Len(t, repo.items, 1)
}

func TestService_SweepExpired_RemovesExactlyLapsedHold(t *testing.T) {
	svc, repo := newTestService(10)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)

	removed := svc.SweepExpired(context.Background(), item.HoldExpiry)

	assert.Equal(t, []string{item.ID}, removed)
	assert.Empty(t, repo.items)
}

func TestService_SweepExpired_SkipsJustExtendedHold(t *testing.T) {
	svc, repo := newTestService(10)

	item, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)

	// simulate an extension landing between the expired listing and the
	// delete: the listing still reports the stale expiry while the stored
	// item is fresh by the time it is re-read
	repo.expiredOverride = []Item{item}
	fresh := item
	fresh.HoldExpiry = testNow.Add(time.Hour)
	repo.items[item.ID] = fresh

	removed := svc.SweepExpired(context.Background(), item.HoldExpiry.Add(time.Second))

	assert.Empty(t, removed)
	assert.Len(t, repo.items, 1)
}

func TestService_SweepExpired_IsolatesPerItemFailures(t *testing.T) {
	svc, repo := newTestService(10)

	a, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)
	b, err := svc.AddHold(context.Background(), "user-2", "prod-1", 1, testNow)
	require.NoError(t, err)

	repo.deleteErr[a.ID] = errors.New("connection reset")

	removed := svc.SweepExpired(context.Background(), testNow.Add(HoldTTL))

	assert.Equal(t, []string{b.ID}, removed)
	assert.Contains(t, repo.items, a.ID)
}

// ============================================
// Clear Tests
// ============================================

func TestService_Clear_RemovesOnlyUsersItems(t *testing.T) {
	svc, repo := newTestService(10)

	_, err := svc.AddHold(context.Background(), "user-1", "prod-1", 1, testNow)
	require.NoError(t, err)
	other, err := svc.AddHold(context.Background(), "user-2", "prod-1", 1, testNow)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "user-1"))

	assert.Len(t, repo.items, 1)
	assert.Contains(t, repo.items, other.ID)
}
