package paystackwebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/internal/orders"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

// ServiceParams wires the dependencies the webhook service needs.
type ServiceParams struct {
	Repo   Repository
	Orders orders.Service
	Logger *logger.Logger
}

// Service reconciles Paystack events against orders. Every delivery is
// durably logged before dispatch; processing is idempotent so provider
// retries are safe.
type Service struct {
	repo   Repository
	orders orders.Service
	logg   *logger.Logger
}

// NewService validates and assembles the webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("webhook repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: params.Repo, orders: params.Orders, logg: params.Logger}, nil
}

// RecordDelivery persists one verified webhook delivery before anything else
// happens to it. The raw body is stored verbatim; the row is the recovery
// path if dispatch ever drops a payment, so it must exist before any
// dedupe mark is set.
func (s *Service) RecordDelivery(ctx context.Context, raw json.RawMessage, event *Event) (*models.WebhookLog, error) {
	if event == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	entry := &models.WebhookLog{
		EventType:     event.Kind.String(),
		Reference:     event.ChargeReference(),
		AmountCents:   event.Data.Amount,
		CustomerEmail: event.Data.Customer.Email,
		Payload:       raw,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "log webhook event")
	}
	return entry, nil
}

// SkipDuplicate retires the log row for a delivery the dedupe guard already
// saw. The row stays behind so repeated deliveries remain auditable.
func (s *Service) SkipDuplicate(ctx context.Context, entry *models.WebhookLog) error {
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook log entry required")
	}
	return s.markProcessed(ctx, entry, nil, "duplicate delivery")
}

// HandleEvent dispatches one recorded delivery against the matching order.
// Processing is idempotent so provider retries are safe.
func (s *Service) HandleEvent(ctx context.Context, entry *models.WebhookLog, event *Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}
	if entry == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook log entry required")
	}

	ectx := s.logg.WithEventRef(ctx, entry.Reference)

	if !event.Kind.IsValid() {
		s.logg.Info(ectx, "ignoring unhandled webhook event type")
		return s.markProcessed(ctx, entry, nil, "ignored: unhandled event type")
	}

	order, err := s.orders.FindForPayment(ctx, event.ChargeReference(), event.MetadataOrderID())
	if err != nil {
		return err
	}
	if order == nil {
		// Duplicate delivery for a deleted order, or a sandbox test event.
		// Acknowledged so the provider stops retrying; the log row keeps
		// the payload for manual reconciliation.
		s.logg.Warn(ectx, "webhook event matched no order")
		return s.markProcessed(ctx, entry, nil, "order not found")
	}

	octx := s.logg.WithOrderID(ectx, order.ID.String())

	switch event.Kind {
	case EventChargeSuccess:
		err = s.orders.MarkPaid(ctx, order.ID, event.Data.Reference)
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDuplicateEvent {
			s.logg.Info(octx, "duplicate charge.success delivery")
			return s.markProcessed(ctx, entry, &order.ID, "duplicate delivery")
		}
	case EventChargeFailed:
		err = s.orders.MarkFailed(ctx, order.ID, event.Data.GatewayResponse)
	case EventRefundProcessed:
		err = s.orders.MarkRefunded(ctx, order.ID, event.Data.Reference)
	}
	if err != nil {
		return err
	}

	return s.markProcessed(ctx, entry, &order.ID, "")
}

func (s *Service) markProcessed(ctx context.Context, entry *models.WebhookLog, orderID *uuid.UUID, notes string) error {
	if err := s.repo.MarkProcessed(ctx, entry.ID, orderID, notes); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark webhook processed")
	}
	return nil
}
