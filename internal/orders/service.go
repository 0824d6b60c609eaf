package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/internal/audit"
	"github.com/veldastudio/storefront-backend/internal/coupons"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/internal/notifications"
	"github.com/veldastudio/storefront-backend/internal/payments"
	"github.com/veldastudio/storefront-backend/internal/products"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns the order lifecycle: checkout creation and every payment or
// fulfillment state transition.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, int64, error)
	FindForPayment(ctx context.Context, reference string, metadataOrderID uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, reference string) error
	MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error
	MarkRefunded(ctx context.Context, orderID uuid.UUID, refundReference string) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor string) error
	ReleaseStock(ctx context.Context, orderID uuid.UUID, actor string) (int, error)
}

// CheckoutItem is one requested line in a checkout.
type CheckoutItem struct {
	ProductID  uuid.UUID
	VariantKey string
	Qty        int
}

// CheckoutInput carries the checkout payload after transport-level
// validation. Prices are not trusted from the client; they are re-read from
// the catalog.
type CheckoutInput struct {
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress types.Address
	Items           []CheckoutItem
	ShippingCents   int
	CouponCode      string
	PaymentMethod   enums.PaymentMethod
	CallbackURL     string
}

// CheckoutResult is the created order plus the hosted payment redirect when
// the method requires one.
type CheckoutResult struct {
	Order            *models.Order
	AuthorizationURL string
}

// ServiceParams wires the dependencies an orders service needs.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Inventory      inventory.Service
	Coupons        coupons.Service
	Products       products.Service
	Provider       payments.Provider
	Notifier       notifications.Notifier
	Audit          audit.Recorder
	Logger         *logger.Logger
	ReservationTTL time.Duration
}

type service struct {
	repo      Repository
	tx        txRunner
	inventory inventory.Service
	coupons   coupons.Service
	products  products.Service
	provider  payments.Provider
	notifier  notifications.Notifier
	audit     audit.Recorder
	logg      *logger.Logger
	ttl       time.Duration
}

// NewService validates and assembles an orders service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupons service required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("products service required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.ReservationTTL <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		inventory: params.Inventory,
		coupons:   params.Coupons,
		products:  params.Products,
		provider:  params.Provider,
		notifier:  params.Notifier,
		audit:     params.Audit,
		logg:      params.Logger,
		ttl:       params.ReservationTTL,
	}, nil
}

func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := validateCheckout(input); err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	catalog, err := s.products.ActiveByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	lines := make(types.OrderItems, 0, len(input.Items))
	subtotal := 0
	for _, item := range input.Items {
		product := catalog[item.ProductID]
		lines = append(lines, types.OrderItem{
			ProductID:      item.ProductID,
			VariantKey:     item.VariantKey,
			Name:           product.Name,
			Qty:            item.Qty,
			UnitPriceCents: product.PriceCents,
		})
		subtotal += product.PriceCents * item.Qty
	}

	shipping := input.ShippingCents
	discount := 0
	var coupon *models.Coupon
	if input.CouponCode != "" {
		result, err := s.coupons.Validate(ctx, coupons.ValidateInput{
			Code:           input.CouponCode,
			CartTotalCents: subtotal,
			Items:          lines,
			CustomerEmail:  input.CustomerEmail,
		})
		if err != nil {
			return nil, err
		}
		coupon = result.Coupon
		discount = result.Discount
		if result.FreeShipping {
			shipping = 0
		}
	}

	total := subtotal + shipping - discount
	if total < 0 {
		total = 0
	}

	order := &models.Order{
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		ShippingAddress: input.ShippingAddress,
		Items:           lines,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		DiscountCents:   discount,
		TotalCents:      total,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusPending,
	}
	if coupon != nil {
		code := coupon.Code
		order.CouponCode = &code
	}

	// Order row, stock holds and coupon usage commit or roll back together.
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		reserveItems := make([]inventory.ReserveItem, 0, len(input.Items))
		for _, item := range input.Items {
			reserveItems = append(reserveItems, inventory.ReserveItem{
				ProductID:  item.ProductID,
				VariantKey: item.VariantKey,
				Qty:        item.Qty,
			})
		}
		if _, err := s.inventory.Reserve(ctx, tx, inventory.ReserveInput{
			OrderID: order.ID,
			Items:   reserveItems,
			TTL:     s.ttl,
		}); err != nil {
			return err
		}

		if coupon != nil {
			if err := s.coupons.RecordUsage(ctx, tx, coupons.RecordUsageInput{
				CouponID:      coupon.ID,
				OrderID:       order.ID,
				CustomerEmail: input.CustomerEmail,
				DiscountCents: discount,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout transaction")
	}

	octx := s.logg.WithOrderID(ctx, order.ID.String())
	result := &CheckoutResult{Order: order}

	if input.PaymentMethod.IsHosted() {
		if s.provider == nil {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
		}
		init, err := s.provider.InitializeTransaction(ctx, payments.InitializeInput{
			Email:       input.CustomerEmail,
			AmountCents: total,
			CallbackURL: input.CallbackURL,
			Metadata:    map[string]any{"order_id": order.ID.String()},
		})
		if err != nil {
			// The order and its holds stay; the expiry sweep reclaims the
			// stock if the customer never retries payment.
			s.logg.Error(octx, "payment initialization failed after order creation", err)
			return nil, err
		}
		if err := s.repo.SetPaymentReference(ctx, order.ID, init.Reference); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment reference")
		}
		order.PaymentReference = &init.Reference
		result.AuthorizationURL = init.AuthorizationURL
	}

	s.notifier.OrderConfirmed(octx, order)
	s.logg.Info(octx, "order created")
	return result, nil
}

func validateCheckout(input CheckoutInput) error {
	if input.CustomerName == "" || input.CustomerEmail == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name and email are required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil || item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "every item needs a product id and a positive quantity")
		}
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment method %q", input.PaymentMethod))
	}
	if input.ShippingCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping cannot be negative")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, total, nil
}

// FindForPayment resolves the order a provider event refers to: by payment
// reference first, then by the order id carried in event metadata. A nil
// order without error means the event matched nothing.
func (s *service) FindForPayment(ctx context.Context, reference string, metadataOrderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.GetByPaymentReference(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by reference")
	}
	if order != nil {
		return order, nil
	}
	if metadataOrderID == uuid.Nil {
		return nil, nil
	}
	order, err = s.repo.GetByID(ctx, metadataOrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup order by metadata id")
	}
	return order, nil
}

func (s *service) MarkPaid(ctx context.Context, orderID uuid.UUID, reference string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	octx := s.logg.WithOrderID(ctx, orderID.String())
	var order *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		changed, err := repo.MarkPaid(ctx, orderID, reference)
		if err != nil {
			return err
		}
		if !changed {
			current, err := repo.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			if current.PaymentStatus == enums.PaymentStatusPaid {
				return pkgerrors.New(pkgerrors.CodeDuplicateEvent, "order already paid")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot mark order paid from payment status %q", current.PaymentStatus))
		}

		// Does not downgrade a status an admin already advanced.
		if _, err := repo.AdvanceOrderStatus(ctx, orderID, enums.OrderStatusPending, enums.OrderStatusProcessing); err != nil {
			return err
		}

		if _, err := s.inventory.ConfirmReservations(ctx, tx, orderID); err != nil {
			return err
		}

		if err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Entity:   "order",
			EntityID: orderID,
			Action:   "payment.paid",
			OldValue: enums.PaymentStatusPending,
			NewValue: enums.PaymentStatusPaid,
			Actor:    "webhook",
		}); err != nil {
			return err
		}

		order, err = repo.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
	}

	s.notifier.PaymentReceived(octx, order)
	s.logg.Info(octx, "order marked paid")
	return nil
}

func (s *service) MarkFailed(ctx context.Context, orderID uuid.UUID, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	octx := s.logg.WithOrderID(ctx, orderID.String())
	var order *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		changed, err := repo.MarkFailed(ctx, orderID)
		if err != nil {
			return err
		}
		if !changed {
			current, err := repo.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			// Repeated failure events are part of the provider's retry
			// contract; nothing left to do.
			return nil
		}

		if _, err := s.inventory.ReleaseReservations(ctx, tx, orderID, "payment failed"); err != nil {
			return err
		}

		if err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Entity:   "order",
			EntityID: orderID,
			Action:   "payment.failed",
			OldValue: enums.PaymentStatusPending,
			NewValue: enums.PaymentStatusFailed,
			Actor:    "webhook",
		}); err != nil {
			return err
		}

		order, err = repo.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order failed")
	}

	if order != nil {
		s.notifier.PaymentFailed(octx, order, reason)
	}
	s.logg.Warn(octx, "order payment failed")
	return nil
}

// MarkRefunded records a processed refund as a fulfillment status. The
// payment status keeps the historical fact that money was received.
func (s *service) MarkRefunded(ctx context.Context, orderID uuid.UUID, refundReference string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	octx := s.logg.WithOrderID(ctx, orderID.String())
	var order *models.Order

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if current.OrderStatus == enums.OrderStatusRefunded {
			return nil
		}

		if err := repo.SetOrderStatus(ctx, orderID, enums.OrderStatusRefunded); err != nil {
			return err
		}
		if err := repo.AppendNote(ctx, orderID, fmt.Sprintf("refund processed: %s", refundReference)); err != nil {
			return err
		}

		if err := s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Entity:   "order",
			EntityID: orderID,
			Action:   "order.refunded",
			OldValue: current.OrderStatus,
			NewValue: enums.OrderStatusRefunded,
			Actor:    "webhook",
		}); err != nil {
			return err
		}

		order, err = repo.GetByID(ctx, orderID)
		return err
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return typed
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order refunded")
	}

	if order != nil {
		s.notifier.OrderRefunded(octx, order)
	}
	s.logg.Info(octx, "order refunded")
	return nil
}

// UpdateStatus applies an admin status change. The forward ordering is not
// strictly enforced, but every change lands in the audit log with old and
// new values.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, actor string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", status))
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.GetByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if current.OrderStatus == status {
			return nil
		}

		if err := repo.SetOrderStatus(ctx, orderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Entity:   "order",
			EntityID: orderID,
			Action:   "status.updated",
			OldValue: current.OrderStatus,
			NewValue: status,
			Actor:    actor,
		})
	})
}

// ReleaseStock force-releases an order's holds on operator request.
func (s *service) ReleaseStock(ctx context.Context, orderID uuid.UUID, actor string) (int, error) {
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	released := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := s.inventory.ReleaseReservations(ctx, tx, orderID, fmt.Sprintf("released by %s", actor))
		if err != nil {
			return err
		}
		released = count
		if count == 0 {
			return nil
		}
		return s.audit.WithTx(tx).Record(ctx, audit.RecordInput{
			Entity:   "order",
			EntityID: orderID,
			Action:   "inventory.released",
			NewValue: map[string]any{"released": count},
			Actor:    actor,
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return 0, typed
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release order stock")
	}
	return released, nil
}
