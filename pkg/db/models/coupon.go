package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/pkg/enums"
)

// Coupon is a discount code. Read-mostly from the checkout core's
// perspective; usage counts move through CouponUsage rows.
type Coupon struct {
	ID                   uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code                 string           `gorm:"column:code;not null;uniqueIndex"`
	Type                 enums.CouponType `gorm:"column:type;type:text;not null"`
	Value                int              `gorm:"column:value;not null"`
	MinOrderCents        int              `gorm:"column:min_order_cents;not null;default:0"`
	MaxDiscountCents     *int             `gorm:"column:max_discount_cents"`
	UsageLimit           *int             `gorm:"column:usage_limit"`
	UsageCount           int              `gorm:"column:usage_count;not null;default:0"`
	PerCustomerLimit     int              `gorm:"column:per_customer_limit;not null;default:0"`
	StartDate            *time.Time       `gorm:"column:start_date"`
	EndDate              *time.Time       `gorm:"column:end_date"`
	ApplicableCategories []string         `gorm:"column:applicable_categories;type:jsonb;serializer:json"`
	ApplicableProducts   []uuid.UUID      `gorm:"column:applicable_products;type:jsonb;serializer:json"`
	IsActive             bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt            time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
