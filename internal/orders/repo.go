package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
)

// ListParams filters the admin order listing.
type ListParams struct {
	PaymentStatus *enums.PaymentStatus
	OrderStatus   *enums.OrderStatus
	CustomerEmail string
	Limit         int
	Offset        int
}

// Repository manages persistence for orders. State transitions are expressed
// as conditional updates so concurrent writers cannot double-apply them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, int64, error)

	SetPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error
	// MarkPaid flips payment_status pending->paid and reports whether this
	// call performed the flip.
	MarkPaid(ctx context.Context, orderID uuid.UUID, reference string) (bool, error)
	// MarkFailed flips payment_status pending->failed.
	MarkFailed(ctx context.Context, orderID uuid.UUID) (bool, error)
	// AdvanceOrderStatus moves order_status from one value to another only
	// if it still holds the expected value.
	AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error)
	SetOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	AppendNote(ctx context.Context, orderID uuid.UUID, note string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetByPaymentReference(ctx context.Context, reference string) (*models.Order, error) {
	if reference == "" {
		return nil, nil
	}
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("payment_reference = ?", reference).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if params.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *params.PaymentStatus)
	}
	if params.OrderStatus != nil {
		query = query.Where("order_status = ?", *params.OrderStatus)
	}
	if params.CustomerEmail != "" {
		query = query.Where("customer_email = ?", params.CustomerEmail)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var rows []models.Order
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(params.Offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) SetPaymentReference(ctx context.Context, orderID uuid.UUID, reference string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_reference", reference).Error
}

func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, reference string) (bool, error) {
	updates := map[string]any{"payment_status": enums.PaymentStatusPaid}
	if reference != "" {
		updates["payment_reference"] = reference
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		Update("payment_status", enums.PaymentStatusFailed)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", orderID, from).
		Update("order_status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("order_status", status).Error
}

func (r *repository) AppendNote(ctx context.Context, orderID uuid.UUID, note string) error {
	order, err := r.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return gorm.ErrRecordNotFound
	}
	combined := note
	if order.Notes != nil && *order.Notes != "" {
		combined = *order.Notes + "\n" + note
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("notes", combined).Error
}
