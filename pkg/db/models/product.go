package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the slice of the catalog the checkout core needs. Catalog CRUD
// lives elsewhere; this service only reads it.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	SKU        string    `gorm:"column:sku;not null;uniqueIndex"`
	PriceCents int       `gorm:"column:price_cents;not null"`
	Category   string    `gorm:"column:category"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
