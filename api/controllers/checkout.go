package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/api/responses"
	"github.com/veldastudio/storefront-backend/api/validators"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/internal/orders"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/enums"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
	"github.com/veldastudio/storefront-backend/pkg/types"
)

type checkoutItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
}

type checkoutAddressRequest struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" validate:"required"`
}

type checkoutRequest struct {
	CustomerName    string                 `json:"customer_name" validate:"required,max=200"`
	CustomerEmail   string                 `json:"customer_email" validate:"required,email"`
	CustomerPhone   string                 `json:"customer_phone"`
	ShippingAddress checkoutAddressRequest `json:"shipping_address" validate:"required"`
	Items           []checkoutItemRequest  `json:"items" validate:"required,min=1,max=50,dive"`
	ShippingCents   int                    `json:"shipping_cents" validate:"gte=0"`
	CouponCode      string                 `json:"coupon_code"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`
	CallbackURL     string                 `json:"callback_url"`
}

type orderView struct {
	ID               uuid.UUID        `json:"id"`
	CustomerName     string           `json:"customer_name"`
	CustomerEmail    string           `json:"customer_email"`
	Items            types.OrderItems `json:"items"`
	SubtotalCents    int              `json:"subtotal_cents"`
	ShippingCents    int              `json:"shipping_cents"`
	DiscountCents    int              `json:"discount_cents"`
	TotalCents       int              `json:"total_cents"`
	CouponCode       *string          `json:"coupon_code,omitempty"`
	PaymentMethod    string           `json:"payment_method"`
	PaymentStatus    string           `json:"payment_status"`
	PaymentReference *string          `json:"payment_reference,omitempty"`
	OrderStatus      string           `json:"order_status"`
	Notes            *string          `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type checkoutResponse struct {
	Order            orderView `json:"order"`
	AuthorizationURL string    `json:"authorization_url,omitempty"`
}

func newOrderView(order *models.Order) orderView {
	return orderView{
		ID:               order.ID,
		CustomerName:     order.CustomerName,
		CustomerEmail:    order.CustomerEmail,
		Items:            order.Items,
		SubtotalCents:    order.SubtotalCents,
		ShippingCents:    order.ShippingCents,
		DiscountCents:    order.DiscountCents,
		TotalCents:       order.TotalCents,
		CouponCode:       order.CouponCode,
		PaymentMethod:    order.PaymentMethod.String(),
		PaymentStatus:    order.PaymentStatus.String(),
		PaymentReference: order.PaymentReference,
		OrderStatus:      order.OrderStatus.String(),
		Notes:            order.Notes,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}
}

// Checkout accepts a cart submission, reserves stock and creates the order.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req checkoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment method").WithDetails(map[string]any{"payment_method": req.PaymentMethod}))
			return
		}

		items := make([]orders.CheckoutItem, 0, len(req.Items))
		for _, item := range req.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id").WithDetails(map[string]any{"product_id": item.ProductID}))
				return
			}
			items = append(items, orders.CheckoutItem{
				ProductID:  productID,
				VariantKey: inventory.VariantKey(item.Color, item.Size),
				Qty:        item.Qty,
			})
		}

		result, err := svc.Checkout(ctx, orders.CheckoutInput{
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
			ShippingAddress: types.Address{
				Line1:      req.ShippingAddress.Line1,
				Line2:      req.ShippingAddress.Line2,
				City:       req.ShippingAddress.City,
				State:      req.ShippingAddress.State,
				PostalCode: req.ShippingAddress.PostalCode,
				Country:    req.ShippingAddress.Country,
			},
			Items:         items,
			ShippingCents: req.ShippingCents,
			CouponCode:    req.CouponCode,
			PaymentMethod: method,
			CallbackURL:   req.CallbackURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkoutResponse{
			Order:            newOrderView(result.Order),
			AuthorizationURL: result.AuthorizationURL,
		})
	}
}
