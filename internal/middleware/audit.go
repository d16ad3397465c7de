package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/logging"
)

// Audit emits structured logs for each request/response lifecycle event.
// Client addresses are masked.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		duration := time.Since(start)
		requestID := GetRequestID(c)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("ip", logging.MaskIP(c.IP())),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}

		if status >= fiber.StatusInternalServerError {
			logger.Warn("request completed", attrs...)
			return nil
		}
		logger.Info("request completed", attrs...)
		return nil
	}
}
