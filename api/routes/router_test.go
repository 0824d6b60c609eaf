package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	webhookcontrollers "github.com/veldastudio/storefront-backend/api/controllers/webhooks"
	"github.com/veldastudio/storefront-backend/pkg/config"
	"github.com/veldastudio/storefront-backend/pkg/logger"
)

type staticSigningClient struct{}

func (staticSigningClient) SigningSecret() string { return "router-test-secret" }

var _ webhookcontrollers.PaystackClient = staticSigningClient{}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.JWT = config.JWTConfig{
		Secret:            "router-test",
		Issuer:            "storefront-test",
		ExpirationMinutes: 5,
	}
	cfg.RateLimit.CheckoutWindow = time.Minute
	cfg.RateLimit.CheckoutIPLimit = 0 // disabled; no redis in this test

	return NewRouter(RouterParams{
		Config:         cfg,
		Logger:         logger.New(logger.Options{ServiceName: "router-test"}),
		PaystackClient: staticSigningClient{},
	})
}

func TestRouterHealthLive(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterAdminRoutesRequireBearer(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	for _, path := range []string{
		"/api/admin/v1/orders",
		"/api/admin/v1/inventory/low-stock",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", path, rec.Code)
		}
	}
}

func TestRouterCheckoutRequiresCSRFHeader(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf header, got %d", rec.Code)
	}
}

func TestRouterWebhookSkipsCSRFButVerifiesSignature(t *testing.T) {
	t.Parallel()

	router := testRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// no CSRF rejection; the unsigned body is refused by signature
	// verification instead
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unsigned webhook, got %d", rec.Code)
	}
}
