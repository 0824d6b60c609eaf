package controllers

import (
	"net/http"

	"github.com/veldastudio/storefront-backend/api/responses"
	"github.com/veldastudio/storefront-backend/api/validators"
	"github.com/veldastudio/storefront-backend/internal/inventory"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

type inventoryCheckResponse struct {
	Available int  `json:"available"`
	InStock   bool `json:"in_stock"`
}

// InventoryCheck reports the sellable quantity for one product variant.
// Unknown variants read as zero rather than an error so the storefront can
// render an out-of-stock state.
func InventoryCheck(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		variantKey := inventory.VariantKey(r.URL.Query().Get("color"), r.URL.Query().Get("size"))

		available := 0
		stock, err := svc.GetVariant(ctx, productID, variantKey)
		switch {
		case err == nil:
			available = stock.AvailableQty
		case pkgerrors.As(err) != nil && pkgerrors.As(err).Code() == pkgerrors.CodeNotFound:
			// untracked variant reads as zero
		default:
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, inventoryCheckResponse{
			Available: available,
			InStock:   available > 0,
		})
	}
}
