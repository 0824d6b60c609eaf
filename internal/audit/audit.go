package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
)

// Recorder appends audit entries for admin-visible state changes.
type Recorder interface {
	WithTx(tx *gorm.DB) Recorder
	Record(ctx context.Context, input RecordInput) error
	ListByEntity(ctx context.Context, entity string, entityID uuid.UUID) ([]models.AuditLog, error)
}

// RecordInput captures one state transition. OldValue and NewValue are
// marshalled as-is into the log row.
type RecordInput struct {
	Entity   string
	EntityID uuid.UUID
	Action   string
	OldValue any
	NewValue any
	Actor    string
}

type recorder struct {
	db *gorm.DB
}

// NewRecorder returns an audit recorder bound to the provided database.
func NewRecorder(db *gorm.DB) Recorder {
	return &recorder{db: db}
}

func (r *recorder) WithTx(tx *gorm.DB) Recorder {
	if tx == nil {
		return r
	}
	return &recorder{db: tx}
}

func (r *recorder) Record(ctx context.Context, input RecordInput) error {
	if input.Entity == "" || input.EntityID == uuid.Nil {
		return fmt.Errorf("audit entity and entity id are required")
	}
	if input.Action == "" {
		return fmt.Errorf("audit action is required")
	}

	oldValue, err := marshalValue(input.OldValue)
	if err != nil {
		return fmt.Errorf("marshal old value: %w", err)
	}
	newValue, err := marshalValue(input.NewValue)
	if err != nil {
		return fmt.Errorf("marshal new value: %w", err)
	}

	return r.db.WithContext(ctx).Create(&models.AuditLog{
		Entity:   input.Entity,
		EntityID: input.EntityID,
		Action:   input.Action,
		OldValue: oldValue,
		NewValue: newValue,
		Actor:    input.Actor,
	}).Error
}

func (r *recorder) ListByEntity(ctx context.Context, entity string, entityID uuid.UUID) ([]models.AuditLog, error) {
	var rows []models.AuditLog
	if err := r.db.WithContext(ctx).
		Where("entity = ? AND entity_id = ?", entity, entityID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func marshalValue(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	if raw, ok := value.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(value)
}
