// Package dashboard proxies the per-user dashboard payload from the upstream
// webhook to authenticated clients.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/apperr"
	"github.com/moovi-app/moovi_auth/internal/channel"
	"github.com/moovi-app/moovi_auth/internal/logging"
	"github.com/moovi-app/moovi_auth/internal/middleware"
)

const (
	msgDataNotFound = "Data not found"
	msgFetchFailed  = "Erro ao carregar dados"
)

// Source fetches raw dashboard data for a phone identity.
type Source interface {
	DashboardData(ctx context.Context, phone string) (json.RawMessage, error)
}

type Handler struct {
	source Source
	logger *slog.Logger
}

func NewHandler(source Source, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{source: source, logger: logger}
}

// Get handles GET get-dashboard-data. It must run behind middleware.BearerAuth.
func (h *Handler) Get(c *fiber.Ctx) error {
	acc, ok := middleware.AccountFrom(c)
	if !ok {
		return apperr.Respond(c, apperr.Token("Unauthorized", nil), "")
	}
	reqID := logging.ShortRequestID(c.UserContext())
	phone := acc.Metadata.PhoneNumber
	if phone == "" {
		h.logger.Error("account without phone metadata", slog.String("req", reqID))
		return apperr.Respond(c, apperr.New(apperr.KindInternal, msgFetchFailed), "")
	}

	data, err := h.source.DashboardData(c.UserContext(), phone)
	if errors.Is(err, channel.ErrNotFound) {
		return apperr.Respond(c, apperr.Wrap(apperr.KindNotFound, msgDataNotFound, err), "")
	}
	if err != nil {
		h.logger.Error("fetch dashboard data failed",
			slog.String("req", reqID),
			slog.String("phone", logging.MaskPhone(phone)),
			slog.Any("error", err))
		return apperr.Respond(c, apperr.Wrap(apperr.KindInternal, msgFetchFailed, err), "")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(data)
}
