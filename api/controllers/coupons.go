package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/api/responses"
	"github.com/veldastudio/storefront-backend/api/validators"
	"github.com/veldastudio/storefront-backend/internal/coupons"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

type couponItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

type validateCouponRequest struct {
	Code           string              `json:"code" validate:"required,max=64"`
	CartTotalCents int                 `json:"cart_total_cents" validate:"required,gt=0"`
	Items          []couponItemRequest `json:"items" validate:"dive"`
	CustomerEmail  string              `json:"customer_email" validate:"omitempty,email"`
}

type validateCouponResponse struct {
	Valid         bool   `json:"valid"`
	Code          string `json:"code"`
	Type          string `json:"type"`
	DiscountCents int    `json:"discount_cents"`
	FreeShipping  bool   `json:"free_shipping"`
}

// ValidateCoupon checks a code against the cart without consuming usage.
func ValidateCoupon(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req validateCouponRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make(types.OrderItems, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").WithDetails(map[string]any{"product_id": item.ProductID}))
				return
			}
			items = append(items, types.OrderItem{
				ProductID:  productID,
				VariantKey: inventory.VariantKey(item.Color, item.Size),
				Qty:        item.Qty,
			})
		}

		result, err := svc.Validate(ctx, coupons.ValidateInput{
			Code:           req.Code,
			CartTotalCents: req.CartTotalCents,
			Items:          items,
			CustomerEmail:  req.CustomerEmail,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, validateCouponResponse{
			Valid:         true,
			Code:          result.Coupon.Code,
			Type:          result.Coupon.Type.String(),
			DiscountCents: result.Discount,
			FreeShipping:  result.FreeShipping,
		})
	}
}
