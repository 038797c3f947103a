package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/domain/product"
)

// Repository persists cart items. Implemented by the Postgres store and by
// test mocks.
type Repository interface {
	Get(ctx context.Context, id string) (Item, error)
	ListByUser(ctx context.Context, userID string) ([]Item, error)
	ListExpired(ctx context.Context, now time.Time) ([]Item, error)
	// HoldTotal sums quantities across active (non-expired) holds on a product.
	HoldTotal(ctx context.Context, productID string, now time.Time) (int, error)
	Upsert(ctx context.Context, item Item) error
	UpdateQuantity(ctx context.Context, id string, quantity int) error
	UpdateExpiry(ctx context.Context, id string, expiry time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) error
}

// ProductSource exposes the product lookup the hold check needs.
type ProductSource interface {
	GetByID(ctx context.Context, id string) (product.Product, error)
}

// Service manages cart items and their stock holds. Holds on the same
// product are independent; the available-stock check here and the
// conditional decrement at checkout are the only serialization points.
type Service struct {
	repo     Repository
	products ProductSource
	logger   *zap.Logger
}

func NewService(repo Repository, products ProductSource, logger *zap.Logger) *Service {
	return &Service{repo: repo, products: products, logger: logger}
}

// AddHold puts quantity units of a product in the user's cart with a fresh
// hold window. Stock already claimed by other active holds counts against
// availability. An existing line for the same product is topped up and its
// hold renewed.
func (s *Service) AddHold(ctx context.Context, userID, productID string, quantity int, now time.Time) (Item, error) {
	if productID == "" {
		return Item{}, ErrInvalidProduct
	}
	if quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return Item{}, err
	}

	held, err := s.repo.HoldTotal(ctx, productID, now)
	if err != nil {
		return Item{}, err
	}
	if p.Quantity-held < quantity {
		return Item{}, product.ErrInsufficientStock
	}

	item := Item{
		ID:         uuid.New().String(),
		UserID:     userID,
		ProductID:  productID,
		Quantity:   quantity,
		AddedAt:    now,
		HoldExpiry: now.Add(HoldTTL),
	}

	existing, err := s.findByProduct(ctx, userID, productID)
	if err == nil {
		item.ID = existing.ID
		item.Quantity = existing.Quantity + quantity
		item.AddedAt = existing.AddedAt
	} else if !errors.Is(err, ErrItemNotFound) {
		return Item{}, err
	}

	if err := s.repo.Upsert(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// ExtendHold resets the item's hold window to a full TTL from now.
func (s *Service) ExtendHold(ctx context.Context, itemID string, now time.Time) (Item, error) {
	item, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return Item{}, err
	}

	item.HoldExpiry = now.Add(HoldTTL)
	if err := s.repo.UpdateExpiry(ctx, itemID, item.HoldExpiry); err != nil {
		return Item{}, err
	}
	return item, nil
}

// SetQuantity updates the line quantity without touching the hold expiry.
// A quantity of zero or less removes the item.
func (s *Service) SetQuantity(ctx context.Context, itemID string, quantity int) error {
	if _, err := s.repo.Get(ctx, itemID); err != nil {
		return err
	}
	if quantity <= 0 {
		return s.repo.Delete(ctx, itemID)
	}
	return s.repo.UpdateQuantity(ctx, itemID, quantity)
}

// Items returns the user's cart lines.
func (s *Service) Items(ctx context.Context, userID string) ([]Item, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Clear removes every cart line for the user. Called after checkout.
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.DeleteByUser(ctx, userID)
}

// SweepExpired removes cart items whose hold lapsed before now and returns
// the removed ids. Expiry is re-read right before deletion so a hold that
// was extended between listing and deletion survives. A failure on one
// item never aborts the sweep of the rest.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) []string {
	expired, err := s.repo.ListExpired(ctx, now)
	if err != nil {
		s.logger.Error("listing expired holds failed", zap.Error(err))
		return nil
	}

	removed := make([]string, 0, len(expired))
	for _, stale := range expired {
		item, err := s.repo.Get(ctx, stale.ID)
		if errors.Is(err, ErrItemNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn("re-reading hold failed, skipping",
				zap.String("item_id", stale.ID), zap.Error(err))
			continue
		}
		if !item.Expired(now) {
			// extended since the listing
			continue
		}
		if err := s.repo.Delete(ctx, item.ID); err != nil {
			s.logger.Warn("removing expired hold failed",
				zap.String("item_id", item.ID), zap.Error(err))
			continue
		}
		removed = append(removed, item.ID)
	}
	return removed
}

// Run sweeps expired holds on the given interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.SweepExpired(ctx, time.Now()); len(removed) > 0 {
				s.logger.Info("swept expired cart holds", zap.Int("removed", len(removed)))
			}
		}
	}
}

func (s *Service) findByProduct(ctx context.Context, userID, productID string) (Item, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Item{}, err
	}
	for _, item := range items {
		if item.ProductID == productID {
			return item, nil
		}
	}
	return Item{}, ErrItemNotFound
}
