package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()

	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	authenticator, err := NewAuthenticator("admin@example.com", hash, testSecret, zap.NewNop())
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	return authenticator
}

func TestNewAuthenticatorValidation(t *testing.T) {
	t.Parallel()

	hash, _ := HashPassword("pw")

	if _, err := NewAuthenticator("", hash, testSecret, nil); err == nil {
		t.Error("expected error for missing admin email")
	}
	if _, err := NewAuthenticator("admin@example.com", "", testSecret, nil); err == nil {
		t.Error("expected error for missing password hash")
	}
	if _, err := NewAuthenticator("admin@example.com", hash, "short", nil); err == nil {
		t.Error("expected error for weak secret")
	}
}

func TestLoginAndVerify(t *testing.T) {
	t.Parallel()

	authenticator := newTestAuthenticator(t)

	pair, err := authenticator.Login("Admin@Example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if pair.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d", pair.ExpiresIn)
	}

	claims, err := authenticator.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess() error = %v", err)
	}
	if claims.Subject != "admin@example.com" {
		t.Errorf("subject = %q", claims.Subject)
	}

	// Refresh tokens must not pass as access tokens.
	if _, err := authenticator.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("VerifyAccess(refresh) error = %v, want ErrUnauthorized", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()

	authenticator := newTestAuthenticator(t)

	if _, err := authenticator.Login("admin@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
	if _, err := authenticator.Login("other@example.com", "correct horse"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	authenticator := newTestAuthenticator(t)

	pair, err := authenticator.Login("admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	refreshed, err := authenticator.Refresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected fresh access token")
	}

	// Access tokens must not be usable for refresh.
	if _, err := authenticator.Refresh(pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Refresh(access) error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyAccessExpired(t *testing.T) {
	t.Parallel()

	authenticator := newTestAuthenticator(t)

	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	authenticator.now = func() time.Time { return issued }

	pair, err := authenticator.Login("admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	authenticator.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := authenticator.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("VerifyAccess() error = %v, want ErrUnauthorized after expiry", err)
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	authenticator := newTestAuthenticator(t)

	app := fiber.New()
	app.Get("/protected", Middleware(authenticator), func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromCtx(c)
		if !ok {
			return fiber.NewError(fiber.StatusInternalServerError, "claims missing")
		}
		return c.SendString(claims.Subject)
	})

	// No token.
	resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	// Garbage token.
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not-a-token")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}

	// Valid token.
	pair, err := authenticator.Login("admin@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+pair.AccessToken)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
