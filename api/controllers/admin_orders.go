package controllers

import (
	"net/http"
	"strings"

	"github.com/veldastudio/storefront-backend/api/middleware"
	"github.com/veldastudio/storefront-backend/api/responses"
	"github.com/veldastudio/storefront-backend/api/validators"
	"github.com/veldastudio/storefront-backend/internal/orders"
	"github.com/veldastudio/storefront-backend/pkg/enums"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

type orderListResponse struct {
	Orders []orderView `json:"orders"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// AdminListOrders returns a filtered page of orders for the back office.
func AdminListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := orders.ListParams{
			CustomerEmail: strings.TrimSpace(r.URL.Query().Get("customer_email")),
			Limit:         limit,
			Offset:        offset,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").WithDetails(map[string]any{"payment_status": raw}))
				return
			}
			params.PaymentStatus = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("order_status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"order_status": raw}))
				return
			}
			params.OrderStatus = &status
		}

		rows, total, err := svc.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]orderView, 0, len(rows))
		for i := range rows {
			views = append(views, newOrderView(&rows[i]))
		}
		responses.WriteSuccess(w, orderListResponse{
			Orders: views,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		})
	}
}

// AdminGetOrder returns a single order.
func AdminGetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.GetByID(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}

// AdminUpdateOrderStatus moves an order's fulfillment status and records who
// did it.
func AdminUpdateOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseURLUUID(r, "id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": req.Status}))
			return
		}

		actor := middleware.AdminSubjectFromContext(ctx)
		if err := svc.UpdateStatus(ctx, orderID, status, actor); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.GetByID(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(order))
	}
}
