package auth

import (
	"testing"
	"time"

	"github.com/veldastudio/storefront-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 30,
	}
}

func TestMintAndParseAdminToken(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	signed, err := MintAdminToken(cfg, time.Now(), "ops@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	claims, err := ParseAdminToken(cfg, signed)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "ops@example.com" {
		t.Fatalf("expected subject ops@example.com, got %q", claims.Subject)
	}
	if claims.Role != "admin" {
		t.Fatalf("expected role admin, got %q", claims.Role)
	}
}

func TestParseAdminTokenRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	signed, err := MintAdminToken(cfg, time.Now(), "ops@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	other := cfg
	other.Secret = "different-secret"
	if _, err := ParseAdminToken(other, signed); err == nil {
		t.Fatal("expected parse to fail with wrong secret")
	}
}

func TestParseAdminTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	signed, err := MintAdminToken(cfg, time.Now().Add(-2*time.Hour), "ops@example.com")
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if _, err := ParseAdminToken(cfg, signed); err == nil {
		t.Fatal("expected parse to fail for expired token")
	}
}

func TestMintAdminTokenRequiresSubject(t *testing.T) {
	t.Parallel()

	if _, err := MintAdminToken(testJWTConfig(), time.Now(), "  "); err == nil {
		t.Fatal("expected mint to fail without subject")
	}
}
