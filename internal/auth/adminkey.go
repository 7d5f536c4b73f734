package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

// AdminKeyHeader carries the operator key on admin routes.
const AdminKeyHeader = "X-Admin-Key"

// HashAdminKey hashes an operator key with the configured cost.
func HashAdminKey(key string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareAdminKey verifies a key against its hashed value.
func CompareAdminKey(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// RequireAdminKey guards operator routes. With no configured hash every
// request is refused.
func RequireAdminKey(hash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if hash == "" {
			return apperrors.NewForbidden("admin api disabled")
		}
		key := c.Get(AdminKeyHeader)
		if key == "" {
			return apperrors.NewUnauthorized("missing admin key")
		}
		if err := CompareAdminKey(hash, key); err != nil {
			return apperrors.NewUnauthorized("invalid admin key")
		}
		return c.Next()
	}
}
