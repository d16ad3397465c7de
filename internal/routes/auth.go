package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/auth"
	"github.com/moovi-app/moovi_auth/internal/middleware"
	"github.com/moovi-app/moovi_auth/internal/ratelimit"
)

// RegisterAuthRoutes wires the phone authentication endpoints. Each one is
// rate limited per client address before the handler runs.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, limiter *ratelimit.Limiter, logger *slog.Logger) {
	limit := func(p ratelimit.Policy, msg middleware.MessageFunc) fiber.Handler {
		return middleware.RateLimit(limiter, p, middleware.ClientIP, msg, logger)
	}
	r.Post("/send-verification-code", limit(ratelimit.SendCode, middleware.TooManyAttempts), h.SendVerificationCode)
	r.Post("/verify-code", limit(ratelimit.VerifyCode, middleware.TooManyVerifications), h.VerifyCode)
	r.Post("/check-user-has-password", limit(ratelimit.CheckPassword, middleware.TooManyAttempts), h.CheckUserHasPassword)
	r.Post("/login-with-password", limit(ratelimit.Login, middleware.TooManyAttempts), h.LoginWithPassword)
	r.Post("/set-user-password", limit(ratelimit.SetPassword, middleware.TooManyAttempts), h.SetUserPassword)
}
