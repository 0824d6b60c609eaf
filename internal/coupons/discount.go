package coupons

import (
	"github.com/shopspring/decimal"

	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
)

// Discount is the outcome of applying a coupon to a cart total.
type Discount struct {
	AmountCents  int
	FreeShipping bool
}

// ComputeDiscount derives the discount a coupon grants on a cart total. It is
// pure: no clock, no storage. Eligibility is the caller's concern.
func ComputeDiscount(coupon *models.Coupon, cartTotalCents int) Discount {
	switch coupon.Type {
	case enums.CouponTypePercentage:
		// Rounded half away from zero on the cent.
		amount := int(decimal.NewFromInt(int64(cartTotalCents)).
			Mul(decimal.NewFromInt(int64(coupon.Value))).
			Div(decimal.NewFromInt(100)).
			Round(0).IntPart())
		if coupon.MaxDiscountCents != nil && amount > *coupon.MaxDiscountCents {
			amount = *coupon.MaxDiscountCents
		}
		return Discount{AmountCents: amount}
	case enums.CouponTypeFixed:
		amount := coupon.Value
		if amount > cartTotalCents {
			amount = cartTotalCents
		}
		return Discount{AmountCents: amount}
	case enums.CouponTypeFreeShipping:
		// Shipping is zeroed by the caller; the cart subtotal is untouched.
		return Discount{FreeShipping: true}
	default:
		return Discount{}
	}
}
