package channel

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/moovi-app/moovi_auth/internal/logging"
)

// DevCode is the only code DevChannel accepts.
const DevCode = "000000"

// DevChannel writes codes to the logger instead of delivering them. It is
// wired only in the dev environment when no webhook is configured.
type DevChannel struct {
	logger *slog.Logger
}

func NewDevChannel(logger *slog.Logger) *DevChannel {
	return &DevChannel{logger: logger}
}

func (d *DevChannel) SendCode(_ context.Context, phone string) error {
	if d == nil || d.logger == nil {
		return nil
	}
	d.logger.Info("dev verification code", "phone", logging.MaskPhone(phone), "code", DevCode)
	return nil
}

func (d *DevChannel) VerifyCode(_ context.Context, phone, code string) (string, error) {
	if code != DevCode {
		return "", ErrInvalidCode
	}
	return FallbackJID(phone), nil
}

func (d *DevChannel) DashboardData(_ context.Context, _ string) (json.RawMessage, error) {
	return json.RawMessage(`{"transactions":[],"summary":{}}`), nil
}
