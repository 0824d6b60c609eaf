package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/internal/movements"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines stock counter and reservation operations. Reserve, Confirm
// and Release run inside a caller-provided transaction so order writes and
// stock writes commit atomically.
type Service interface {
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) ([]models.StockReservation, error)
	ConfirmReservations(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error)
	ReleaseReservations(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (int, error)
	CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int, error)
	GetStock(ctx context.Context, productID uuid.UUID) ([]models.ProductStock, error)
	GetVariant(ctx context.Context, productID uuid.UUID, variantKey string) (*models.ProductStock, error)
	SetStock(ctx context.Context, input SetStockInput) (*models.ProductStock, error)
	LowStock(ctx context.Context, threshold int) ([]models.ProductStock, error)
}

// ReserveItem is a single variant hold request within a checkout.
type ReserveItem struct {
	ProductID  uuid.UUID
	VariantKey string
	Qty        int
}

// ReserveInput captures the holds a pending order needs.
type ReserveInput struct {
	OrderID uuid.UUID
	Items   []ReserveItem
	TTL     time.Duration
}

// SetStockInput captures an absolute stock adjustment made by an operator.
type SetStockInput struct {
	ProductID  uuid.UUID
	VariantKey string
	Qty        int
	Actor      string
}

// ServiceParams wires the dependencies an inventory service needs.
type ServiceParams struct {
	Repo      Repository
	Movements movements.Service
	Tx        txRunner
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	movements movements.Service
	tx        txRunner
	logg      *logger.Logger
}

// NewService validates and assembles an inventory service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Movements == nil {
		return nil, fmt.Errorf("movements service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		movements: params.Movements,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) ([]models.StockReservation, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("invalid quantity %d for product %s", item.Qty, item.ProductID))
		}
	}

	repo := s.repo.WithTx(tx)
	recorder := s.movements.WithTx(tx)
	expiresAt := time.Now().UTC().Add(input.TTL)

	holds := make([]models.StockReservation, 0, len(input.Items))
	for _, item := range input.Items {
		reserved, err := repo.DecrementStock(ctx, item.ProductID, item.VariantKey, item.Qty)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !reserved {
			stock, err := repo.GetStock(ctx, item.ProductID, item.VariantKey)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock row")
			}
			if stock == nil {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("stock is not tracked for product %s variant %q", item.ProductID, item.VariantKey))
			}
			return nil, pkgerrors.New(pkgerrors.CodeOutOfStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id":  item.ProductID.String(),
					"variant_key": item.VariantKey,
					"requested":   item.Qty,
					"available":   stock.AvailableQty,
				})
		}

		stock, err := repo.GetStock(ctx, item.ProductID, item.VariantKey)
		if err != nil || stock == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload stock row")
		}

		hold := models.StockReservation{
			ProductID:  item.ProductID,
			VariantKey: item.VariantKey,
			Qty:        item.Qty,
			OrderID:    input.OrderID,
			ExpiresAt:  expiresAt,
		}
		if err := repo.CreateReservation(ctx, &hold); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}

		refID := hold.ID
		if _, err := recorder.Record(ctx, movements.RecordMovementInput{
			ProductID:     item.ProductID,
			VariantKey:    item.VariantKey,
			Type:          enums.MovementTypeReserve,
			QtyChange:     -item.Qty,
			QtyBefore:     stock.AvailableQty + item.Qty,
			QtyAfter:      stock.AvailableQty,
			ReferenceID:   &refID,
			ReferenceType: enums.ReferenceTypeReservation,
		}); err != nil {
			return nil, err
		}

		holds = append(holds, hold)
	}

	return holds, nil
}

func (s *service) ConfirmReservations(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required to confirm reservations")
	}
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	repo := s.repo.WithTx(tx)
	recorder := s.movements.WithTx(tx)

	holds, err := repo.DeleteByOrderID(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reservations")
	}

	// The available counter was already decremented at reserve time, so a
	// confirm only retires the hold.
	for _, hold := range holds {
		stock, err := repo.GetStock(ctx, hold.ProductID, hold.VariantKey)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock row")
		}
		available := 0
		if stock != nil {
			available = stock.AvailableQty
		}
		refID := orderID
		if _, err := recorder.Record(ctx, movements.RecordMovementInput{
			ProductID:     hold.ProductID,
			VariantKey:    hold.VariantKey,
			Type:          enums.MovementTypeConfirm,
			QtyChange:     0,
			QtyBefore:     available,
			QtyAfter:      available,
			ReferenceID:   &refID,
			ReferenceType: enums.ReferenceTypeOrder,
		}); err != nil {
			return 0, err
		}
	}

	return len(holds), nil
}

func (s *service) ReleaseReservations(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) (int, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "transaction required to release reservations")
	}
	if orderID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	repo := s.repo.WithTx(tx)
	recorder := s.movements.WithTx(tx)

	holds, err := repo.DeleteByOrderID(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reservations")
	}

	for _, hold := range holds {
		if err := s.restock(ctx, repo, recorder, hold, enums.ReferenceTypeOrder, orderID, reason); err != nil {
			return 0, err
		}
	}

	return len(holds), nil
}

// CleanupExpired releases holds whose TTL has lapsed. Each hold is handled in
// its own transaction so one poisoned row cannot stall the whole sweep. The
// order's payment status is re-checked inside the transaction: a hold whose
// order got paid between the expiry query and the release is left for the
// confirm path.
func (s *service) CleanupExpired(ctx context.Context, now time.Time, batchSize int) (int, error) {
	expired, err := s.repo.ListExpired(ctx, now, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired reservations")
	}

	released := 0
	var errs []error
	for _, hold := range expired {
		hold := hold
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			recorder := s.movements.WithTx(tx)

			status, err := repo.OrderPaymentStatus(ctx, hold.OrderID)
			if err == nil && status == enums.PaymentStatusPaid {
				return nil
			}

			deleted, err := repo.DeleteReservation(ctx, hold.ID)
			if err != nil {
				return err
			}
			if !deleted {
				// Confirmed or released concurrently.
				return nil
			}

			if err := s.restock(ctx, repo, recorder, hold, enums.ReferenceTypeReservation, hold.ID, "reservation expired"); err != nil {
				return err
			}
			released++
			return nil
		})
		if err != nil {
			octx := s.logg.WithOrderID(ctx, hold.OrderID.String())
			s.logg.Error(octx, "failed to release expired reservation", err)
			errs = append(errs, err)
		}
	}

	return released, multierr.Combine(errs...)
}

func (s *service) restock(ctx context.Context, repo Repository, recorder movements.Service, hold models.StockReservation, refType enums.ReferenceType, refID uuid.UUID, reason string) error {
	before, err := repo.GetStock(ctx, hold.ProductID, hold.VariantKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock row")
	}
	beforeQty := 0
	if before != nil {
		beforeQty = before.AvailableQty
	}

	if err := repo.IncrementStock(ctx, hold.ProductID, hold.VariantKey, hold.Qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	}

	var notes *string
	if reason != "" {
		notes = &reason
	}
	ref := refID
	_, err = recorder.Record(ctx, movements.RecordMovementInput{
		ProductID:     hold.ProductID,
		VariantKey:    hold.VariantKey,
		Type:          enums.MovementTypeRelease,
		QtyChange:     hold.Qty,
		QtyBefore:     beforeQty,
		QtyAfter:      beforeQty + hold.Qty,
		ReferenceID:   &ref,
		ReferenceType: refType,
		Notes:         notes,
	})
	return err
}

func (s *service) GetStock(ctx context.Context, productID uuid.UUID) ([]models.ProductStock, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	rows, err := s.repo.ListStock(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock")
	}
	return rows, nil
}

func (s *service) GetVariant(ctx context.Context, productID uuid.UUID, variantKey string) (*models.ProductStock, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	stock, err := s.repo.GetStock(ctx, productID, variantKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stock row")
	}
	if stock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound,
			fmt.Sprintf("stock is not tracked for product %s variant %q", productID, variantKey))
	}
	return stock, nil
}

func (s *service) SetStock(ctx context.Context, input SetStockInput) (*models.ProductStock, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Qty < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}

	var updated *models.ProductStock
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		recorder := s.movements.WithTx(tx)

		existing, err := repo.GetStock(ctx, input.ProductID, input.VariantKey)
		if err != nil {
			return err
		}
		beforeQty := 0
		if existing != nil {
			beforeQty = existing.AvailableQty
		}

		stock := &models.ProductStock{
			ProductID:    input.ProductID,
			VariantKey:   input.VariantKey,
			AvailableQty: input.Qty,
		}
		if err := repo.UpsertStock(ctx, stock); err != nil {
			return err
		}

		var notes *string
		if input.Actor != "" {
			n := fmt.Sprintf("set by %s", input.Actor)
			notes = &n
		}
		if _, err := recorder.Record(ctx, movements.RecordMovementInput{
			ProductID:     input.ProductID,
			VariantKey:    input.VariantKey,
			Type:          enums.MovementTypeAdjustment,
			QtyChange:     input.Qty - beforeQty,
			QtyBefore:     beforeQty,
			QtyAfter:      input.Qty,
			ReferenceType: enums.ReferenceTypeAdmin,
			Notes:         notes,
		}); err != nil {
			return err
		}

		updated = stock
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set stock")
	}
	return updated, nil
}

func (s *service) LowStock(ctx context.Context, threshold int) ([]models.ProductStock, error) {
	if threshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold cannot be negative")
	}
	rows, err := s.repo.ListLowStock(ctx, threshold)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	return rows, nil
}
