// Package notification turns notification intents into push deliveries.
// Dispatch is fire-and-forget: failures are logged and never propagate to
// the transition that produced the intent.
package notification

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/example/shop-backend/internal/domain/order"
	"github.com/example/shop-backend/internal/event"
	"github.com/example/shop-backend/internal/permission"
)

// TokenSource resolves intent targets to device tokens.
type TokenSource interface {
	TokensForUser(ctx context.Context, userID string) ([]string, error)
	TokensForRoles(ctx context.Context, roles []permission.Role) ([]string, error)
}

// Sender delivers one message to one device token.
type Sender interface {
	Send(ctx context.Context, token, title, body string, metadata map[string]string) error
}

type Dispatcher struct {
	tokens TokenSource
	sender Sender
	logger *zap.Logger
}

func NewDispatcher(tokens TokenSource, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{tokens: tokens, sender: sender, logger: logger}
}

// Dispatch resolves the intent's targets and pushes to each token. Partial
// failures are logged per token; the rest still go out.
func (d *Dispatcher) Dispatch(ctx context.Context, n order.Notification) {
	tokens, err := d.resolve(ctx, n)
	if err != nil {
		d.logger.Error("resolving notification targets failed",
			zap.String("user_id", n.TargetUserID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		d.logger.Debug("no device tokens for notification target",
			zap.String("user_id", n.TargetUserID))
		return
	}

	for _, token := range tokens {
		if err := d.sender.Send(ctx, token, n.Title, n.Body, n.Metadata); err != nil {
			d.logger.Warn("push delivery failed",
				zap.String("token", token), zap.Error(err))
		}
	}
}

// HandleEvent adapts the dispatcher to the bus consumer: order events are
// translated back into the intents the lifecycle would produce.
func (d *Dispatcher) HandleEvent(ctx context.Context, _, value []byte) error {
	var env event.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}

	switch env.Type {
	case event.TypeOrderCreated:
		var e event.OrderCreated
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		d.Dispatch(ctx, order.PlacedNotification(e.OrderID, e.Total))
	case event.TypeOrderStatusChanged:
		var e event.OrderStatusChanged
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return err
		}
		d.Dispatch(ctx, order.StatusNotification(e.OrderID, e.CustomerID, e.To))
	}
	return nil
}

func (d *Dispatcher) resolve(ctx context.Context, n order.Notification) ([]string, error) {
	if n.TargetUserID != "" {
		return d.tokens.TokensForUser(ctx, n.TargetUserID)
	}
	return d.tokens.TokensForRoles(ctx, n.TargetRoles)
}
