package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "helpdesk-channel", 5)
	token, expiresAt, err := tm.GenerateToken("teams")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiry should be in the future, got %v", expiresAt)
	}

	claims, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.ChannelID != "teams" || claims.Issuer != "helpdesk-channel" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	tm := NewTokenManager("secret", "helpdesk-channel", 5)
	good, _, _ := tm.GenerateToken("teams")

	otherIssuer, _, _ := NewTokenManager("secret", "someone-else", 5).GenerateToken("teams")
	otherSecret, _, _ := NewTokenManager("nope", "helpdesk-channel", 5).GenerateToken("teams")

	expiring := NewTokenManager("secret", "helpdesk-channel", 5)
	expiring.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, _ := expiring.GenerateToken("teams")

	tests := map[string]string{
		"wrong issuer": otherIssuer,
		"wrong secret": otherSecret,
		"expired":      expired,
		"garbage":      "not-a-token",
		"truncated":    good[:len(good)-4],
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := tm.ParseToken(token); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestGenerateToken_RequiresChannel(t *testing.T) {
	if _, _, err := NewTokenManager("secret", "", 0).GenerateToken(""); err == nil {
		t.Fatal("expected error for empty channel id")
	}
}

func newProtectedApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		},
	})
	handlers = append(handlers, func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/", handlers...)
	return app
}

func TestChannelAuth(t *testing.T) {
	tm := NewTokenManager("secret", "helpdesk-channel", 5)
	token, _, _ := tm.GenerateToken("teams")

	var seen string
	app := newProtectedApp(NewChannelAuth(tm).Handle, func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromContext(c)
		if ok {
			seen = claims.ChannelID
		}
		return c.Next()
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"lower case scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
	if seen != "teams" {
		t.Errorf("claims not stored on context, got %q", seen)
	}
}

func TestRequireAdminKey(t *testing.T) {
	hash, err := HashAdminKey("s3cret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashAdminKey() error = %v", err)
	}
	app := newProtectedApp(RequireAdminKey(hash))
	disabled := newProtectedApp(RequireAdminKey(""))

	tests := []struct {
		name string
		app  *fiber.App
		key  string
		want int
	}{
		{"valid", app, "s3cret", http.StatusOK},
		{"wrong", app, "guess", http.StatusUnauthorized},
		{"missing", app, "", http.StatusUnauthorized},
		{"disabled", disabled, "s3cret", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.key != "" {
				req.Header.Set(AdminKeyHeader, tt.key)
			}
			resp, err := tt.app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
