package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/pkg/enums"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

// Order is the customer order created at checkout. Orders are never deleted;
// cancellation and refunds are status values.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerName     string              `gorm:"column:customer_name;not null"`
	CustomerEmail    string              `gorm:"column:customer_email;not null;index"`
	CustomerPhone    string              `gorm:"column:customer_phone"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Items            types.OrderItems    `gorm:"column:items;type:jsonb;serializer:json"`
	SubtotalCents    int                 `gorm:"column:subtotal_cents;not null"`
	ShippingCents    int                 `gorm:"column:shipping_cents;not null;default:0"`
	DiscountCents    int                 `gorm:"column:discount_cents;not null;default:0"`
	TotalCents       int                 `gorm:"column:total_cents;not null"`
	CouponCode       *string             `gorm:"column:coupon_code"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus    enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending';index"`
	PaymentReference *string             `gorm:"column:payment_reference;index"`
	OrderStatus      enums.OrderStatus   `gorm:"column:order_status;type:text;not null;default:'pending';index"`
	Notes            *string             `gorm:"column:notes"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
