// Package channel talks to the upstream workflow that delivers verification
// codes over WhatsApp and serves dashboard data.
package channel

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrInvalidCode means the upstream rejected the code as wrong or expired.
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrNotFound means the upstream holds no data for the phone.
	ErrNotFound = errors.New("no data for phone")
	// ErrNotConfigured means the channel base URL or API key is missing.
	ErrNotConfigured = errors.New("verification channel not configured")
)

// Channel is the verification code and dashboard data collaborator.
type Channel interface {
	SendCode(ctx context.Context, phone string) error
	// VerifyCode returns the WhatsApp JID reported upstream. It may be empty.
	VerifyCode(ctx context.Context, phone, code string) (jid string, err error)
	DashboardData(ctx context.Context, phone string) (json.RawMessage, error)
}

// FallbackJID is the JID used when the upstream reports none.
func FallbackJID(phone string) string {
	return phone + "@s.whatsapp.net"
}
