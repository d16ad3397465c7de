package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/moovi-app/moovi_auth/internal/apperr"
	"github.com/moovi-app/moovi_auth/internal/channel"
	"github.com/moovi-app/moovi_auth/internal/credential"
	"github.com/moovi-app/moovi_auth/internal/identity"
	"github.com/moovi-app/moovi_auth/internal/logging"
	"github.com/moovi-app/moovi_auth/internal/password"
	"github.com/moovi-app/moovi_auth/internal/validate"
)

// Client-facing messages.
const (
	MsgInvalidCredentials = "Credenciais inválidas"
	MsgInvalidCode        = "Código inválido ou expirado"
	MsgTokenRequired      = "Token de autenticação necessário"
	MsgTokenInvalid       = "Token inválido ou expirado"
	MsgNoPhoneOnAccount   = "Usuário sem telefone associado"
	MsgPasswordSet        = "Senha cadastrada com sucesso"

	MsgSendFailed   = "Erro ao enviar código de verificação"
	MsgVerifyFailed = "Erro ao verificar código"
	MsgCheckFailed  = "Erro ao verificar usuário"
	MsgLoginFailed  = "Erro ao processar login"
	MsgSetFailed    = "Erro ao cadastrar senha"
)

// Identity is the part of identity.Service the flows depend on.
type Identity interface {
	FindOrCreateAccount(ctx context.Context, phone, jid string) (identity.Provisioned, error)
	MintSession(ctx context.Context, p identity.Provisioned) (identity.Session, error)
	Reauthenticate(ctx context.Context, phone string) (identity.Account, identity.Session, error)
	Authenticate(ctx context.Context, token string) (identity.Account, error)
}

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	VerifyDummy(plaintext string) bool
}

// Service runs the five phone authentication flows. Every error it returns is
// an *apperr.Error.
type Service struct {
	channel  channel.Channel
	identity Identity
	creds    credential.CredentialStore
	profiles credential.ProfileStore
	hasher   Hasher
	logger   *slog.Logger
}

// Deps groups the collaborators of Service.
type Deps struct {
	Channel     channel.Channel
	Identity    Identity
	Credentials credential.CredentialStore
	Profiles    credential.ProfileStore
	Hasher      Hasher
	Logger      *slog.Logger
}

func NewService(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		channel:  d.Channel,
		identity: d.Identity,
		creds:    d.Credentials,
		profiles: d.Profiles,
		hasher:   d.Hasher,
		logger:   logger,
	}
}

// VerifyResult is returned by VerifyCode.
type VerifyResult struct {
	JID                string
	Session            identity.Session
	NeedsPasswordSetup bool
	IsNew              bool
}

// LoginResult is returned by LoginWithPassword.
type LoginResult struct {
	JID     string
	Session identity.Session
}

func fieldMessage(err error) string {
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}

// SendCode asks the channel to deliver a verification code to phone.
func (s *Service) SendCode(ctx context.Context, rawPhone string) error {
	phone, err := validate.ValidatePhone(rawPhone)
	if err != nil {
		return apperr.Validation(fieldMessage(err))
	}
	if err := s.channel.SendCode(ctx, phone); err != nil {
		s.logger.Error("send verification code failed",
			slog.String("req", logging.ShortRequestID(ctx)),
			slog.String("phone", logging.MaskPhone(phone)),
			slog.Any("error", err))
		return apperr.Wrap(apperr.KindAuthChannel, MsgSendFailed, err)
	}
	s.logger.Info("verification code sent",
		slog.String("req", logging.ShortRequestID(ctx)),
		slog.String("phone", logging.MaskPhone(phone)))
	return nil
}

// VerifyCode checks code, provisions the account and mints a session.
// Re-verifying an account that already has a password leaves the password in
// place; NeedsPasswordSetup then reports false. It is read from the credential
// store, not the profile flag.
func (s *Service) VerifyCode(ctx context.Context, rawPhone, rawCode string) (VerifyResult, error) {
	phone, err := validate.ValidatePhone(rawPhone)
	if err != nil {
		return VerifyResult{}, apperr.Validation(fieldMessage(err))
	}
	code, err := validate.ValidateCode(rawCode)
	if err != nil {
		return VerifyResult{}, apperr.Validation(fieldMessage(err))
	}
	reqID := logging.ShortRequestID(ctx)

	jid, err := s.channel.VerifyCode(ctx, phone, code)
	if errors.Is(err, channel.ErrInvalidCode) {
		s.logger.Warn("[SECURITY] verification code rejected", slog.String("req", reqID))
		return VerifyResult{}, apperr.Wrap(apperr.KindInvalidCode, MsgInvalidCode, err)
	}
	if err != nil {
		s.logger.Error("verify code upstream failed", slog.String("req", reqID), slog.Any("error", err))
		return VerifyResult{}, apperr.Wrap(apperr.KindAuthChannel, MsgVerifyFailed, err)
	}
	if jid == "" {
		jid = channel.FallbackJID(phone)
	}

	prov, err := s.identity.FindOrCreateAccount(ctx, phone, jid)
	if err != nil {
		s.logger.Error("provision account failed", slog.String("req", reqID), slog.Any("error", err))
		return VerifyResult{}, apperr.Wrap(apperr.KindIdentityProvider, MsgVerifyFailed, err)
	}
	accountID := prov.Account.ID

	if err := s.creds.Ensure(ctx, phone, accountID); err != nil {
		s.logger.Error("ensure credential row failed", slog.String("req", reqID), slog.Any("error", err))
		return VerifyResult{}, apperr.Wrap(apperr.KindInternal, MsgVerifyFailed, err)
	}
	if err := s.profiles.Ensure(ctx, phone, accountID); err != nil {
		s.logger.Error("ensure profile row failed", slog.String("req", reqID), slog.Any("error", err))
		return VerifyResult{}, apperr.Wrap(apperr.KindInternal, MsgVerifyFailed, err)
	}
	hash, found, err := s.creds.PasswordHash(ctx, phone)
	if err != nil {
		s.logger.Error("load credential failed", slog.String("req", reqID), slog.Any("error", err))
		return VerifyResult{}, apperr.Wrap(apperr.KindInternal, MsgVerifyFailed, err)
	}
	status := credential.Status{Exists: found, HasPassword: found && hash != ""}

	sess, err := s.identity.MintSession(ctx, prov)
	if err != nil {
		s.logger.Error("mint session failed", slog.String("req", reqID), slog.Any("error", err))
		return VerifyResult{}, apperr.Wrap(apperr.KindIdentityProvider, MsgVerifyFailed, err)
	}

	s.logger.Info("[SECURITY] code verified",
		slog.String("req", reqID),
		slog.Bool("new_account", prov.IsNew),
		slog.String("state", string(StateOf(status))))
	return VerifyResult{
		JID:                jid,
		Session:            sess,
		NeedsPasswordSetup: !status.HasPassword,
		IsNew:              prov.IsNew,
	}, nil
}

// CheckUserHasPassword reports the public onboarding flags of phone.
func (s *Service) CheckUserHasPassword(ctx context.Context, rawPhone string) (credential.Status, error) {
	phone, err := validate.ValidatePhone(rawPhone)
	if err != nil {
		return credential.Status{}, apperr.Validation(fieldMessage(err))
	}
	st, err := s.profiles.Lookup(ctx, phone)
	if err != nil {
		s.logger.Error("profile lookup failed", slog.String("req", logging.ShortRequestID(ctx)), slog.Any("error", err))
		return credential.Status{}, apperr.Wrap(apperr.KindInternal, MsgCheckFailed, err)
	}
	return st, nil
}

// LoginWithPassword verifies the user's own password and mints a session.
//
// Unknown phones and phones without a password produce the same error. The
// unknown case skips the hash comparison; that timing difference is accepted.
func (s *Service) LoginWithPassword(ctx context.Context, rawPhone, plaintext string) (LoginResult, error) {
	reqID := logging.ShortRequestID(ctx)
	invalid := apperr.New(apperr.KindInvalidCredentials, MsgInvalidCredentials)
	needsWhatsApp := &apperr.Error{Kind: apperr.KindNotFoundOrNoPassword, Message: MsgInvalidCredentials, NeedsWhatsApp: true}

	phone, err := validate.ValidatePhone(rawPhone)
	if err != nil || validate.PasswordLength(plaintext) < validate.MinPasswordLength {
		s.logger.Warn("[SECURITY] login rejected by input validation", slog.String("req", reqID))
		return LoginResult{}, invalid
	}

	hash, found, err := s.creds.PasswordHash(ctx, phone)
	if err != nil {
		s.logger.Error("load credential failed", slog.String("req", reqID), slog.Any("error", err))
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, MsgLoginFailed, err)
	}
	if !found {
		s.logger.Warn("[SECURITY] login failed", slog.String("req", reqID), slog.String("reason", "no_credential"))
		return LoginResult{}, needsWhatsApp
	}
	if hash == "" {
		s.hasher.VerifyDummy(plaintext)
		s.logger.Warn("[SECURITY] login failed", slog.String("req", reqID), slog.String("reason", "no_password"))
		return LoginResult{}, needsWhatsApp
	}
	if !s.hasher.Verify(plaintext, hash) {
		s.logger.Warn("[SECURITY] login failed", slog.String("req", reqID), slog.String("reason", "bad_password"))
		return LoginResult{}, invalid
	}

	acc, sess, err := s.identity.Reauthenticate(ctx, phone)
	if errors.Is(err, identity.ErrAccountNotFound) {
		s.logger.Error("credential without identity account", slog.String("req", reqID))
		return LoginResult{}, invalid
	}
	if err != nil {
		s.logger.Error("identity sign-in failed", slog.String("req", reqID), slog.Any("error", err))
		return LoginResult{}, apperr.Wrap(apperr.KindIdentityProvider, MsgLoginFailed, err)
	}

	jid := acc.Metadata.JID
	if jid == "" {
		jid = channel.FallbackJID(phone)
	}
	s.logger.Info("[SECURITY] password login successful", slog.String("req", reqID))
	return LoginResult{JID: jid, Session: sess}, nil
}

// SetUserPassword stores a new password for the account behind token.
func (s *Service) SetUserPassword(ctx context.Context, token, plaintext string) error {
	reqID := logging.ShortRequestID(ctx)
	if token == "" {
		return apperr.Token(MsgTokenRequired, nil)
	}
	if _, err := validate.ValidatePassword(plaintext); err != nil {
		return apperr.Validation(fieldMessage(err))
	}

	acc, err := s.identity.Authenticate(ctx, token)
	if err != nil {
		s.logger.Warn("[SECURITY] set password with invalid token", slog.String("req", reqID))
		return apperr.Token(MsgTokenInvalid, err)
	}
	phone := acc.Metadata.PhoneNumber
	if phone == "" {
		return apperr.Validation(MsgNoPhoneOnAccount)
	}

	hash, err := s.hasher.Hash(plaintext)
	if errors.Is(err, password.ErrTooLong) {
		return apperr.Validation("Senha deve ter no máximo 72 caracteres")
	}
	if err != nil {
		s.logger.Error("hash password failed", slog.String("req", reqID), slog.Any("error", err))
		return apperr.Wrap(apperr.KindInternal, MsgSetFailed, err)
	}
	if err := s.creds.SetPasswordHash(ctx, phone, acc.ID, hash); err != nil {
		s.logger.Error("save credential failed", slog.String("req", reqID), slog.Any("error", err))
		return apperr.Wrap(apperr.KindInternal, MsgSetFailed, err)
	}
	if err := s.profiles.MarkPassword(ctx, phone, acc.ID); err != nil {
		s.logger.Error("update profile flag failed", slog.String("req", reqID), slog.Any("error", err))
	}

	s.logger.Info("[SECURITY] password set", slog.String("req", reqID))
	return nil
}
