package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog captures old/new values for every admin-visible state change.
type AuditLog struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Entity    string          `gorm:"column:entity;not null;index:idx_audit_entity"`
	EntityID  uuid.UUID       `gorm:"column:entity_id;type:uuid;not null;index:idx_audit_entity"`
	Action    string          `gorm:"column:action;not null"`
	OldValue  json.RawMessage `gorm:"column:old_value;type:jsonb"`
	NewValue  json.RawMessage `gorm:"column:new_value;type:jsonb"`
	Actor     string          `gorm:"column:actor"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
