package order

import (
	"fmt"
	"time"

	"github.com/example/shop-backend/internal/permission"
)

// StockRestore is an intent to put Delta units of a product back in stock.
// Produced when an order moves to CANCELLED or RETURNED; applied by the
// product repository, not here.
type StockRestore struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
}

// Notification is an intent to push a message to a user or to every user
// holding one of the target roles. Dispatch is best-effort and happens
// outside the lifecycle manager.
type Notification struct {
	TargetUserID string            `json:"target_user_id,omitempty"`
	TargetRoles  []permission.Role `json:"target_roles,omitempty"`
	Title        string            `json:"title"`
	Body         string            `json:"body"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// TransitionResult carries the updated order and the side effects the
// caller must apply. Applied is false when the order was already in the
// target status and nothing changed.
type TransitionResult struct {
	Order         Order
	StockRestores []StockRestore
	Notifications []Notification
	Applied       bool
}

// Transition validates and applies a status change. The permission gate
// runs before lifecycle legality, so a customer asking for a perfectly
// legal transition is still rejected. Re-requesting the current status is
// an accepted no-op with no side effects, which makes at-least-once event
// delivery safe to replay.
func Transition(o Order, target Status, actor permission.Role, now time.Time) (TransitionResult, error) {
	if !permission.IsAllowed(actor, permission.ActionManageOrders) {
		return TransitionResult{}, fmt.Errorf("%w: role %q cannot update order status", ErrPermissionDenied, actor)
	}

	if target == o.Status {
		return TransitionResult{Order: o}, nil
	}

	if !CanTransition(o.Status, target) {
		return TransitionResult{}, fmt.Errorf("%w: cannot transition from %s to %s", ErrIllegalTransition, o.Status, target)
	}

	updated := o
	updated.Status = target
	updated.UpdatedAt = now

	result := TransitionResult{
		Order:         updated,
		Notifications: []Notification{StatusNotification(o.ID, o.CustomerID, target)},
		Applied:       true,
	}

	if target == StatusCancelled || target == StatusReturned {
		result.StockRestores = make([]StockRestore, 0, len(o.Items))
		for _, item := range o.Items {
			result.StockRestores = append(result.StockRestores, StockRestore{
				ProductID: item.ProductID,
				Delta:     item.Quantity,
			})
		}
	}

	return result, nil
}

// StatusNotification builds the customer-facing intent for a status change.
func StatusNotification(orderID, customerID string, status Status) Notification {
	return Notification{
		TargetUserID: customerID,
		Title:        "Order update",
		Body:         fmt.Sprintf("Your order %s is now %s", shortID(orderID), status),
		Metadata: map[string]string{
			"order_id": orderID,
			"status":   string(status),
		},
	}
}

// PlacedNotification builds the staff-facing intent for a newly placed
// order. Emitted at checkout, not by Transition.
func PlacedNotification(orderID string, total int) Notification {
	return Notification{
		TargetRoles: []permission.Role{permission.RoleAdmin, permission.RoleEmployee},
		Title:       "New order",
		Body:        fmt.Sprintf("Order %s placed, total %d", shortID(orderID), total),
		Metadata: map[string]string{
			"order_id": orderID,
		},
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
