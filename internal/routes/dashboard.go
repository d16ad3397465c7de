package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/dashboard"
	"github.com/moovi-app/moovi_auth/internal/middleware"
	"github.com/moovi-app/moovi_auth/internal/ratelimit"
)

// RegisterDashboardRoutes wires the authenticated dashboard proxy, limited per
// account.
func RegisterDashboardRoutes(r fiber.Router, h *dashboard.Handler, ids middleware.Authenticator, limiter *ratelimit.Limiter, logger *slog.Logger) {
	r.Get("/get-dashboard-data",
		middleware.BearerAuth(ids),
		middleware.RateLimit(limiter, ratelimit.DashboardData, middleware.AccountKey, middleware.TooManyRequests, logger),
		h.Get)
}
