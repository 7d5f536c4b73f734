package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/helpdesk-bot/pkg/util/errorutil"
)

const claimsKey = "auth_channel_claims"

// ChannelAuth validates the bearer token on inbound chat activities.
type ChannelAuth struct {
	tokens *TokenManager
}

// NewChannelAuth constructs middleware.
func NewChannelAuth(tokens *TokenManager) *ChannelAuth {
	return &ChannelAuth{tokens: tokens}
}

// Handle enforces authentication for protected routes.
func (m *ChannelAuth) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// ClaimsFromContext retrieves the authenticated channel.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
