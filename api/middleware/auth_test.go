package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/veldastudio/storefront-backend/pkg/auth"
	"github.com/veldastudio/storefront-backend/pkg/config"
)

func adminTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 30,
	}
}

func TestAdminAuthAcceptsValidBearer(t *testing.T) {
	t.Parallel()

	cfg := adminTestConfig()
	token, err := pkgauth.MintAdminToken(cfg, time.Now(), "ops@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var subject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = AdminSubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AdminAuth(cfg, nil)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if subject != "ops@example.com" {
		t.Fatalf("expected subject in context, got %q", subject)
	}
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	t.Parallel()

	handler := AdminAuth(adminTestConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminAuthRejectsForgedToken(t *testing.T) {
	t.Parallel()

	forged := adminTestConfig()
	forged.Secret = "attacker-secret"
	token, err := pkgauth.MintAdminToken(forged, time.Now(), "ops@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler := AdminAuth(adminTestConfig(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for forged token, got %d", rec.Code)
	}
}

func TestCSRFHeaderBlocksBareWrites(t *testing.T) {
	t.Parallel()

	handler := CSRFHeader(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, post)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf header, got %d", rec.Code)
	}

	post = httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
	post.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, post)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with csrf header, got %d", rec.Code)
	}

	get := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/check/abc", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected GET to pass without header, got %d", rec.Code)
	}
}
