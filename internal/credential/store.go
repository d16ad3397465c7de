// Package credential persists password hashes and the public profile flags
// derived from them.
//
// Hashes live only in the credentials table. The profile table carries a
// has_password flag and nothing else about the password, so a broader read
// grant on profiles cannot leak hashes.
package credential

import (
	"context"
	"time"
)

// Status is what the public check endpoint may learn about a phone identity.
type Status struct {
	Exists      bool `json:"exists"`
	HasPassword bool `json:"hasPassword"`
}

// Record is a credential row. PasswordHash is empty while no password is set.
type Record struct {
	Phone        string
	AccountID    string
	PasswordHash string
	UpdatedAt    time.Time
}

// Profile is a profile row.
type Profile struct {
	Phone       string
	AccountID   string
	HasPassword bool
	UpdatedAt   time.Time
}

// ProfileStore reads and writes the public has_password flag.
type ProfileStore interface {
	// Lookup never fails on a missing row; it returns the zero Status.
	Lookup(ctx context.Context, phone string) (Status, error)
	Ensure(ctx context.Context, phone, accountID string) error
	MarkPassword(ctx context.Context, phone, accountID string) error
}

// CredentialStore is the single place password hashes are persisted.
type CredentialStore interface {
	// Ensure inserts a row with a null hash when none exists.
	Ensure(ctx context.Context, phone, accountID string) error
	// SetPasswordHash upserts the hash keyed by phone.
	SetPasswordHash(ctx context.Context, phone, accountID, hash string) error
	// PasswordHash returns found=false when there is no row and an empty hash
	// when the row exists without a password.
	PasswordHash(ctx context.Context, phone string) (hash string, found bool, err error)
}
