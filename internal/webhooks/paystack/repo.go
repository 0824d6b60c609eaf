package paystackwebhook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
)

// Repository persists the durable webhook event log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *models.WebhookLog) error
	MarkProcessed(ctx context.Context, logID uuid.UUID, orderID *uuid.UUID, notes string) error
	ListByReference(ctx context.Context, reference string) ([]models.WebhookLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a webhook log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, log *models.WebhookLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *repository) MarkProcessed(ctx context.Context, logID uuid.UUID, orderID *uuid.UUID, notes string) error {
	updates := map[string]any{"processed": true}
	if orderID != nil {
		updates["order_id"] = *orderID
	}
	if notes != "" {
		updates["notes"] = notes
	}
	return r.db.WithContext(ctx).
		Model(&models.WebhookLog{}).
		Where("id = ?", logID).
		Updates(updates).Error
}

func (r *repository) ListByReference(ctx context.Context, reference string) ([]models.WebhookLog, error) {
	var rows []models.WebhookLog
	if err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.WebhookLog{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
