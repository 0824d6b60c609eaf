package models

import (
	"time"

	"github.com/google/uuid"
)

// StockReservation is a time-bounded hold on a variant's stock tied to an
// in-flight order. Rows are only ever inserted and deleted, never updated.
type StockReservation struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;index:idx_reservations_variant"`
	VariantKey string    `gorm:"column:variant_key;not null;index:idx_reservations_variant"`
	Qty        int       `gorm:"column:qty;not null"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"column:expires_at;not null;index"`
}
