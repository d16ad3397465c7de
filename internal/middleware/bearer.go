package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/apperr"
	"github.com/moovi-app/moovi_auth/internal/identity"
)

const accountLocal = "account"

// Authenticator resolves bearer tokens to accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (identity.Account, error)
}

// BearerAuth validates the access token and stores the account in Locals.
func BearerAuth(ids Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return apperr.Respond(c, apperr.Token("Unauthorized", nil), "")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		acc, err := ids.Authenticate(c.UserContext(), tokenStr)
		if err != nil {
			return apperr.Respond(c, apperr.Token("Unauthorized", err), "")
		}

		c.Locals(accountLocal, acc)
		return c.Next()
	}
}

// AccountFrom returns the account stored by BearerAuth.
func AccountFrom(c *fiber.Ctx) (identity.Account, bool) {
	acc, ok := c.Locals(accountLocal).(identity.Account)
	return acc, ok
}
