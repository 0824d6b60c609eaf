package middleware

import (
	"net/http"
	"strings"

	"github.com/veldastudio/storefront-backend/api/responses"
	pkgerrors "github.com/veldastudio/storefront-backend/pkg/errors"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

const csrfHeader = "X-Requested-With"

// CSRFHeader rejects state-changing browser requests that lack the custom
// header the storefront client always sends. Webhook routes must not be
// wrapped with this; the provider is server-to-server and sends no such
// header.
func CSRFHeader(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			if strings.TrimSpace(r.Header.Get(csrfHeader)) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "missing csrf header"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
