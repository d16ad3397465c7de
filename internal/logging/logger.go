package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a JSON slog logger configured at the provided level. If the
// level string is invalid it defaults to info.
func New(level string) *slog.Logger {
	lvl := new(slog.LevelVar)
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

// Discard returns a logger that drops all output. Useful for tests.
func Discard() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// MaskPhone keeps the first four digits of a phone identity and hides the rest.
// Full phone numbers never reach the logs.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:4] + "****"
}

// MaskIP keeps a short prefix of the client address.
func MaskIP(ip string) string {
	if len(ip) <= 8 {
		return ip + "***"
	}
	return ip[:8] + "***"
}

type requestIDKey struct{}

// ContextWithRequestID attaches a request id to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// ShortRequestID returns the first 8 characters of the request id in ctx, the
// opaque correlation id used in security logs.
func ShortRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	if len(id) > 8 {
		return id[:8]
	}
	if id == "" {
		return "--------"
	}
	return id
}
