package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductStock is the sellable quantity counter per product variant. The
// counter is pre-decremented by reservations, so the row value is always the
// available-to-sell quantity.
type ProductStock struct {
	ProductID    uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	VariantKey   string    `gorm:"column:variant_key;primaryKey"`
	AvailableQty int       `gorm:"column:available_qty;not null;default:0"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the singular table name.
func (ProductStock) TableName() string { return "product_stock" }
