package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/moovi-app/moovi_auth/internal/apperr"
	"github.com/moovi-app/moovi_auth/internal/validate"
)

const (
	msgPhoneAndCodeRequired     = "Telefone e código são obrigatórios"
	msgPhoneAndPasswordRequired = "Telefone e senha são obrigatórios"
)

// Handler exposes the phone authentication endpoints.
type Handler struct {
	svc       *Service
	validator *validate.Validator
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, validator: validate.NewValidator()}
}

type verifyResponse struct {
	Success            bool   `json:"success"`
	JID                string `json:"jid"`
	AccessToken        string `json:"access_token"`
	RefreshToken       string `json:"refresh_token"`
	NeedsPasswordSetup bool   `json:"needsPasswordSetup"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	JID          string `json:"jid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func schemaError(err error) *apperr.Error {
	var fe *validate.FieldError
	if errors.As(err, &fe) {
		return apperr.Validation(fe.Message)
	}
	return apperr.Validation(err.Error())
}

// SendVerificationCode handles POST send-verification-code.
func (h *Handler) SendVerificationCode(c *fiber.Ctx) error {
	var req validate.SendCodeRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PhoneNumber) == "" {
		return apperr.Respond(c, apperr.Validation(validate.MsgPhoneRequired), "")
	}
	if err := h.validator.Struct(req); err != nil {
		return apperr.Respond(c, schemaError(err), "")
	}
	if err := h.svc.SendCode(c.UserContext(), req.PhoneNumber); err != nil {
		return apperr.Respond(c, err, MsgSendFailed)
	}
	return c.JSON(messageResponse{Success: true})
}

// VerifyCode handles POST verify-code.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	var req validate.VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.Code) == "" {
		return apperr.Respond(c, apperr.Validation(msgPhoneAndCodeRequired), "")
	}
	if err := h.validator.Struct(req); err != nil {
		return apperr.Respond(c, schemaError(err), "")
	}
	res, err := h.svc.VerifyCode(c.UserContext(), req.PhoneNumber, req.Code)
	if err != nil {
		return apperr.Respond(c, err, MsgVerifyFailed)
	}
	return c.JSON(verifyResponse{
		Success:            true,
		JID:                res.JID,
		AccessToken:        res.Session.AccessToken,
		RefreshToken:       res.Session.RefreshToken,
		NeedsPasswordSetup: res.NeedsPasswordSetup,
	})
}

// CheckUserHasPassword handles POST check-user-has-password.
func (h *Handler) CheckUserHasPassword(c *fiber.Ctx) error {
	var req validate.PhoneRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PhoneNumber) == "" {
		return apperr.Respond(c, apperr.Validation(validate.MsgPhoneRequired), "")
	}
	if err := h.validator.Struct(req); err != nil {
		return apperr.Respond(c, schemaError(err), "")
	}
	st, err := h.svc.CheckUserHasPassword(c.UserContext(), req.PhoneNumber)
	if err != nil {
		return apperr.Respond(c, err, MsgCheckFailed)
	}
	return c.JSON(st)
}

// LoginWithPassword handles POST login-with-password. Schema failures are
// reported as invalid credentials.
func (h *Handler) LoginWithPassword(c *fiber.Ctx) error {
	var req validate.LoginRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.PhoneNumber) == "" || req.Password == "" {
		return apperr.Respond(c, apperr.Validation(msgPhoneAndPasswordRequired), "")
	}
	if err := h.validator.Struct(req); err != nil {
		return apperr.Respond(c, apperr.New(apperr.KindInvalidCredentials, MsgInvalidCredentials), "")
	}
	res, err := h.svc.LoginWithPassword(c.UserContext(), req.PhoneNumber, req.Password)
	if err != nil {
		return apperr.Respond(c, err, MsgLoginFailed)
	}
	return c.JSON(loginResponse{
		Success:      true,
		JID:          res.JID,
		AccessToken:  res.Session.AccessToken,
		RefreshToken: res.Session.RefreshToken,
	})
}

// SetUserPassword handles POST set-user-password. It requires a bearer token.
func (h *Handler) SetUserPassword(c *fiber.Ctx) error {
	token, ok := BearerToken(c)
	if !ok {
		return apperr.Respond(c, apperr.Token(MsgTokenRequired, nil), "")
	}
	var req validate.SetPasswordRequest
	if err := c.BodyParser(&req); err != nil || req.Password == "" {
		return apperr.Respond(c, apperr.Validation(validate.MsgPasswordRequired), "")
	}
	if err := h.validator.Struct(req); err != nil {
		return apperr.Respond(c, schemaError(err), "")
	}
	if err := h.svc.SetUserPassword(c.UserContext(), token, req.Password); err != nil {
		return apperr.Respond(c, err, MsgSetFailed)
	}
	return c.JSON(messageResponse{Success: true, Message: MsgPasswordSet})
}

// BearerToken extracts the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) < len("Bearer ") || !strings.EqualFold(authz[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(authz[len("Bearer "):])
	return token, token != ""
}
