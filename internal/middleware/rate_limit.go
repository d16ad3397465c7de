package middleware

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/apperr"
	"github.com/moovi-app/moovi_auth/internal/logging"
	"github.com/moovi-app/moovi_auth/internal/ratelimit"
)

// KeyFunc picks the rate-limit key of a request. An empty key skips limiting.
type KeyFunc func(c *fiber.Ctx) string

// MessageFunc renders the 429 message for the remaining wait.
type MessageFunc func(minutes, seconds int) string

// ClientIP keys requests by client address.
func ClientIP(c *fiber.Ctx) string { return c.IP() }

// AccountKey keys requests by the account set by BearerAuth.
func AccountKey(c *fiber.Ctx) string {
	if acc, ok := AccountFrom(c); ok {
		return acc.ID
	}
	return ""
}

// TooManyAttempts is the default 429 message.
func TooManyAttempts(minutes, _ int) string {
	return fmt.Sprintf("Muitas tentativas. Tente novamente em %d minutos.", minutes)
}

// TooManyVerifications is the 429 message of verify-code.
func TooManyVerifications(minutes, _ int) string {
	return fmt.Sprintf("Muitas tentativas de verificação. Tente novamente em %d minutos.", minutes)
}

// TooManyRequests is the 429 message of short per-account windows.
func TooManyRequests(_, seconds int) string {
	return fmt.Sprintf("Muitas requisições. Aguarde %d segundos.", seconds)
}

// RateLimit enforces policy before the handler runs. Rejected requests get a
// 429 with Retry-After and never reach the handler.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy, key KeyFunc, msg MessageFunc, logger *slog.Logger) fiber.Handler {
	if msg == nil {
		msg = TooManyAttempts
	}
	return func(c *fiber.Ctx) error {
		k := key(c)
		if k == "" {
			return c.Next()
		}
		d := limiter.Check(c.UserContext(), k, policy)
		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.UnixMilli(), 10))
		if d.Allowed {
			return c.Next()
		}

		retry := d.RetryAfter(limiter.Now())
		seconds := int(retry.Seconds())
		minutes := int(math.Ceil(retry.Minutes()))
		logger.Warn("[SECURITY] rate limit exceeded",
			slog.String("bucket", policy.Name),
			slog.String("key", logging.MaskIP(k)),
			slog.String("req", logging.ShortRequestID(c.UserContext())))
		return apperr.Respond(c, apperr.RateLimited(msg(minutes, seconds), retry), "")
	}
}
