package models

import (
	"time"

	"github.com/google/uuid"
)

// CouponUsage records one redemption of a coupon against an order. Written
// only at order-creation time, never during validation.
type CouponUsage struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CouponID      uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;index;uniqueIndex:uq_coupon_usages_coupon_order"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_coupon_usages_coupon_order"`
	CustomerEmail string    `gorm:"column:customer_email;not null;index"`
	DiscountCents int       `gorm:"column:discount_cents;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
