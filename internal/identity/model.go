package identity

import (
	"errors"
	"time"
)

var (
	// ErrAlreadyRegistered is returned by Backend.CreateUser when the email is
	// taken. Callers treat it as a normal branch.
	ErrAlreadyRegistered = errors.New("account already registered")
	// ErrAccountNotFound is returned when no account matches.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidToken covers missing, malformed, expired and revoked tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidSecret is returned by Backend.SignIn on a secret mismatch.
	ErrInvalidSecret = errors.New("invalid provider secret")
)

// Metadata is stored alongside the account at the identity provider.
type Metadata struct {
	PhoneNumber string `json:"phone_number"`
	JID         string `json:"jid,omitempty"`
}

// Account is an identity provider user.
type Account struct {
	ID        string
	Email     string
	Metadata  Metadata
	CreatedAt time.Time
}

// Session is the opaque token pair handed to clients.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Provisioned is the result of FindOrCreateAccount. It carries the freshly
// rotated provider secret so MintSession can sign in without another rotation.
type Provisioned struct {
	Account Account
	IsNew   bool
	secret  string
}
