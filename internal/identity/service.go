package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	defaultEmailDomain = "moovi.app"
	secretBytes        = 32
)

// Backend is an identity provider.
type Backend interface {
	CreateUser(ctx context.Context, email, secret string, meta Metadata) (Account, error)
	FindUserByEmail(ctx context.Context, email string) (Account, error)
	UpdateUser(ctx context.Context, id, secret string, meta Metadata) (Account, error)
	SignIn(ctx context.Context, email, secret string) (Session, error)
	UserFromToken(ctx context.Context, token string) (Account, error)
}

// Service maps phone identities onto provider accounts and mints sessions.
//
// The provider password of every account is a random secret that is rotated
// on each verification or login and never shown to anyone. It only exists so
// the provider's password grant can mint sessions.
type Service struct {
	backend     Backend
	emailDomain string
	random      io.Reader
}

// NewService creates an identity service. An empty emailDomain means moovi.app.
func NewService(backend Backend, emailDomain string) *Service {
	emailDomain = strings.TrimPrefix(strings.TrimSpace(emailDomain), "@")
	if emailDomain == "" {
		emailDomain = defaultEmailDomain
	}
	return &Service{backend: backend, emailDomain: emailDomain, random: rand.Reader}
}

// EmailFor returns the synthetic provider email of a phone identity.
func (s *Service) EmailFor(phone string) string {
	return phone + "@" + s.emailDomain
}

// FindOrCreateAccount creates the account for phone, or rotates the secret and
// refreshes the metadata of the existing one. Concurrent creations for the
// same phone resolve through the provider's uniqueness on email.
func (s *Service) FindOrCreateAccount(ctx context.Context, phone, jid string) (Provisioned, error) {
	secret, err := s.rotateProviderSecret()
	if err != nil {
		return Provisioned{}, err
	}
	email := s.EmailFor(phone)
	meta := Metadata{PhoneNumber: phone, JID: jid}

	acc, err := s.backend.CreateUser(ctx, email, secret, meta)
	if err == nil {
		return Provisioned{Account: acc, IsNew: true, secret: secret}, nil
	}
	if !errors.Is(err, ErrAlreadyRegistered) {
		return Provisioned{}, fmt.Errorf("create account: %w", err)
	}

	existing, err := s.backend.FindUserByEmail(ctx, email)
	if err != nil {
		return Provisioned{}, fmt.Errorf("find account: %w", err)
	}
	if meta.JID == "" {
		meta.JID = existing.Metadata.JID
	}
	acc, err = s.backend.UpdateUser(ctx, existing.ID, secret, meta)
	if err != nil {
		return Provisioned{}, fmt.Errorf("update account: %w", err)
	}
	return Provisioned{Account: acc, secret: secret}, nil
}

// MintSession signs in with the secret set by FindOrCreateAccount.
func (s *Service) MintSession(ctx context.Context, p Provisioned) (Session, error) {
	if p.secret == "" {
		return Session{}, errors.New("mint session: account was not provisioned")
	}
	sess, err := s.backend.SignIn(ctx, p.Account.Email, p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("mint session: %w", err)
	}
	return sess, nil
}

// Reauthenticate mints a session for an existing account after the caller has
// verified the user's own password. It never creates accounts.
func (s *Service) Reauthenticate(ctx context.Context, phone string) (Account, Session, error) {
	acc, err := s.backend.FindUserByEmail(ctx, s.EmailFor(phone))
	if err != nil {
		return Account{}, Session{}, err
	}
	secret, err := s.rotateProviderSecret()
	if err != nil {
		return Account{}, Session{}, err
	}
	meta := acc.Metadata
	if meta.PhoneNumber == "" {
		meta.PhoneNumber = phone
	}
	acc, err = s.backend.UpdateUser(ctx, acc.ID, secret, meta)
	if err != nil {
		return Account{}, Session{}, fmt.Errorf("rotate secret: %w", err)
	}
	sess, err := s.backend.SignIn(ctx, acc.Email, secret)
	if err != nil {
		return Account{}, Session{}, fmt.Errorf("sign in: %w", err)
	}
	return acc, sess, nil
}

// Authenticate resolves a bearer access token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Account{}, ErrInvalidToken
	}
	acc, err := s.backend.UserFromToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return Account{}, err
		}
		return Account{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return acc, nil
}

func (s *Service) rotateProviderSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(s.random, buf); err != nil {
		return "", fmt.Errorf("generate provider secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
