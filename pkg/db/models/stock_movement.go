package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/pkg/enums"
)

// StockMovement is an immutable audit record of a stock quantity change.
type StockMovement struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID           `gorm:"column:product_id;type:uuid;not null;index"`
	VariantKey    string              `gorm:"column:variant_key;not null"`
	Type          enums.MovementType  `gorm:"column:movement_type;type:text;not null"`
	QtyChange     int                 `gorm:"column:qty_change;not null"`
	QtyBefore     int                 `gorm:"column:qty_before;not null"`
	QtyAfter      int                 `gorm:"column:qty_after;not null"`
	ReferenceID   *uuid.UUID          `gorm:"column:reference_id;type:uuid"`
	ReferenceType enums.ReferenceType `gorm:"column:reference_type;type:text"`
	Notes         *string             `gorm:"column:notes"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
}
