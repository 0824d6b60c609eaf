package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/veldastudio/storefront-backend/api/middleware"
	"github.com/veldastudio/storefront-backend/api/responses"
	"github.com/veldastudio/storefront-backend/api/validators"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	"github.com/veldastudio/storefront-backend/internal/movements"
	"github.com/veldastudio/storefront-backend/internal/orders"
	"github.com/veldastudio/storefront-backend/pkg/db/models"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

type stockView struct {
	ProductID    uuid.UUID `json:"product_id"`
	VariantKey   string    `json:"variant_key"`
	AvailableQty int       `json:"available_qty"`
}

func newStockViews(rows []models.ProductStock) []stockView {
	views := make([]stockView, 0, len(rows))
	for _, row := range rows {
		views = append(views, stockView{
			ProductID:    row.ProductID,
			VariantKey:   row.VariantKey,
			AvailableQty: row.AvailableQty,
		})
	}
	return views
}

type setStockRequest struct {
	Color string `json:"color"`
	Size  string `json:"size"`
	Qty   int    `json:"qty" validate:"gte=0"`
}

// AdminLowStock lists variants at or below the requested threshold.
func AdminLowStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		threshold, err := validators.ParseQueryInt(r, "threshold", 5, 0, 10_000)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.LowStock(ctx, threshold)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"threshold": threshold,
			"variants":  newStockViews(rows),
		})
	}
}

// AdminSetStock sets the absolute quantity for a variant and records the
// adjustment in the movement log.
func AdminSetStock(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req setStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stock, err := svc.SetStock(ctx, inventory.SetStockInput{
			ProductID:  productID,
			VariantKey: inventory.VariantKey(req.Color, req.Size),
			Qty:        req.Qty,
			Actor:      middleware.AdminSubjectFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockView{
			ProductID:    stock.ProductID,
			VariantKey:   stock.VariantKey,
			AvailableQty: stock.AvailableQty,
		})
	}
}

// AdminReleaseOrderStock force-releases every active hold for an order.
func AdminReleaseOrderStock(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		released, err := svc.ReleaseStock(ctx, orderID, middleware.AdminSubjectFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_id": orderID,
			"released": released,
		})
	}
}

type movementView struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	VariantKey    string    `json:"variant_key"`
	Type          string    `json:"type"`
	QtyChange     int       `json:"qty_change"`
	QtyBefore     int       `json:"qty_before"`
	QtyAfter      int       `json:"qty_after"`
	ReferenceType string    `json:"reference_type,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
}

// AdminStockMovements returns the movement history for a product variant.
func AdminStockMovements(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variantKey := inventory.VariantKey(r.URL.Query().Get("color"), r.URL.Query().Get("size"))
		rows, err := svc.History(ctx, productID, variantKey, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]movementView, 0, len(rows))
		for _, row := range rows {
			views = append(views, movementView{
				ID:            row.ID,
				ProductID:     row.ProductID,
				VariantKey:    row.VariantKey,
				Type:          row.Type.String(),
				QtyChange:     row.QtyChange,
				QtyBefore:     row.QtyBefore,
				QtyAfter:      row.QtyAfter,
				ReferenceType: row.ReferenceType.String(),
				Notes:         row.Notes,
			})
		}
		responses.WriteSuccess(w, map[string]any{"movements": views})
	}
}
