package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
)

// Repository manages persistence for stock counters and reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetStock(ctx context.Context, productID uuid.UUID, variantKey string) (*models.ProductStock, error)
	ListStock(ctx context.Context, productID uuid.UUID) ([]models.ProductStock, error)
	ListLowStock(ctx context.Context, threshold int) ([]models.ProductStock, error)
	UpsertStock(ctx context.Context, stock *models.ProductStock) error

	// DecrementStock conditionally subtracts qty from the available counter.
	// It reports false when the row exists but holds less than qty.
	DecrementStock(ctx context.Context, productID uuid.UUID, variantKey string, qty int) (bool, error)
	IncrementStock(ctx context.Context, productID uuid.UUID, variantKey string, qty int) error

	CreateReservation(ctx context.Context, reservation *models.StockReservation) error
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error)
	// DeleteReservation removes a single hold and reports whether the row
	// was still present.
	DeleteReservation(ctx context.Context, reservationID uuid.UUID) (bool, error)
	DeleteByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error)

	OrderPaymentStatus(ctx context.Context, orderID uuid.UUID) (enums.PaymentStatus, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetStock(ctx context.Context, productID uuid.UUID, variantKey string) (*models.ProductStock, error) {
	var stock models.ProductStock
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND variant_key = ?", productID, variantKey).
		First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &stock, nil
}

func (r *repository) ListStock(ctx context.Context, productID uuid.UUID) ([]models.ProductStock, error) {
	var rows []models.ProductStock
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("variant_key ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListLowStock(ctx context.Context, threshold int) ([]models.ProductStock, error) {
	var rows []models.ProductStock
	if err := r.db.WithContext(ctx).
		Where("available_qty <= ?", threshold).
		Order("available_qty ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpsertStock(ctx context.Context, stock *models.ProductStock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "variant_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"available_qty", "updated_at"}),
		}).
		Create(stock).Error
}

func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, variantKey string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE product_stock
		SET available_qty = available_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND variant_key = ? AND available_qty >= ?
	`, qty, productID, variantKey, qty)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) IncrementStock(ctx context.Context, productID uuid.UUID, variantKey string, qty int) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE product_stock
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND variant_key = ?
	`, qty, productID, variantKey).Error
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error) {
	var rows []models.StockReservation
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error) {
	query := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.StockReservation
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteReservation(ctx context.Context, reservationID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ?", reservationID).
		Delete(&models.StockReservation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.StockReservation, error) {
	rows, err := r.ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Delete row by row and report only the holds this caller actually
	// removed. The expiry sweep races confirm and release on the same
	// holds; whoever loses the per-row delete must not restock or write a
	// movement for it.
	deleted := make([]models.StockReservation, 0, len(rows))
	for _, row := range rows {
		res := r.db.WithContext(ctx).
			Where("id = ?", row.ID).
			Delete(&models.StockReservation{})
		if res.Error != nil {
			return deleted, res.Error
		}
		if res.RowsAffected > 0 {
			deleted = append(deleted, row)
		}
	}
	if len(deleted) == 0 {
		return nil, nil
	}
	return deleted, nil
}

func (r *repository) OrderPaymentStatus(ctx context.Context, orderID uuid.UUID) (enums.PaymentStatus, error) {
	query := r.db.WithContext(ctx).
		Select("payment_status").
		Where("id = ?", orderID)
	// Hold the order row until the surrounding transaction commits so a
	// concurrent payment confirm serializes against the sweep's re-check.
	// sqlite has no FOR UPDATE and is single-writer anyway.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var order models.Order
	err := query.First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", gorm.ErrRecordNotFound
		}
		return "", err
	}
	return order.PaymentStatus, nil
}
