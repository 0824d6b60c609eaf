package notifications

import (
	"context"
	"fmt"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

// Notifier delivers customer-facing messages for order lifecycle events.
// Delivery is best-effort: callers never fail an order because an email
// bounced.
type Notifier interface {
	OrderConfirmed(ctx context.Context, order *models.Order)
	PaymentReceived(ctx context.Context, order *models.Order)
	PaymentFailed(ctx context.Context, order *models.Order, reason string)
	OrderRefunded(ctx context.Context, order *models.Order)
}

// LogNotifier writes notification intents to the structured log. It stands in
// until a mail provider is wired; the interface is the integration point.
type LogNotifier struct {
	logg *logger.Logger
}

// NewLogNotifier builds a log-backed notifier.
func NewLogNotifier(logg *logger.Logger) (*LogNotifier, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogNotifier{logg: logg}, nil
}

func (n *LogNotifier) emit(ctx context.Context, order *models.Order, kind string, extra map[string]any) {
	fields := map[string]any{
		"notification": kind,
		"order_id":     order.ID.String(),
		"recipient":    order.CustomerEmail,
		"total_cents":  order.TotalCents,
	}
	for k, v := range extra {
		fields[k] = v
	}
	n.logg.Info(n.logg.WithFields(ctx, fields), "queueing customer notification")
}

func (n *LogNotifier) OrderConfirmed(ctx context.Context, order *models.Order) {
	n.emit(ctx, order, "order_confirmed", nil)
}

func (n *LogNotifier) PaymentReceived(ctx context.Context, order *models.Order) {
	n.emit(ctx, order, "payment_received", nil)
}

func (n *LogNotifier) PaymentFailed(ctx context.Context, order *models.Order, reason string) {
	n.emit(ctx, order, "payment_failed", map[string]any{"reason": reason})
}

func (n *LogNotifier) OrderRefunded(ctx context.Context, order *models.Order) {
	n.emit(ctx, order, "order_refunded", nil)
}
