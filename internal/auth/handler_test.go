package auth

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/moovi-app/moovi_auth/internal/channel"
	"github.com/moovi-app/moovi_auth/internal/credential"
	"github.com/moovi-app/moovi_auth/internal/identity"
	"github.com/moovi-app/moovi_auth/internal/logging"
	"github.com/moovi-app/moovi_auth/internal/middleware"
	"github.com/moovi-app/moovi_auth/internal/password"
	"github.com/moovi-app/moovi_auth/internal/ratelimit"
)

const (
	testPhone    = "5511999998888"
	testCode     = "123456"
	testPassword = "Segura@2024"
)

type fakeChannel struct {
	mu       sync.Mutex
	sends    int
	verifies int
	jid      string
	sendErr  error
}

func (f *fakeChannel) SendCode(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends++
	return f.sendErr
}

func (f *fakeChannel) VerifyCode(_ context.Context, _ string, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifies++
	if code != testCode {
		return "", channel.ErrInvalidCode
	}
	return f.jid, nil
}

func (f *fakeChannel) DashboardData(_ context.Context, _ string) (json.RawMessage, error) {
	return nil, channel.ErrNotFound
}

func (f *fakeChannel) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends, f.verifies
}

// flakyProfiles fails MarkPassword on demand.
type flakyProfiles struct {
	*credential.MemoryProfileStore
	markErr error
}

func (f *flakyProfiles) MarkPassword(ctx context.Context, phone, accountID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	return f.MemoryProfileStore.MarkPassword(ctx, phone, accountID)
}

type harness struct {
	app      *fiber.App
	channel  *fakeChannel
	creds    *credential.MemoryCredentialStore
	profiles *flakyProfiles
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend, err := identity.NewLocalBackend(identity.NewMemoryAccountRepository(), "test-secret-0123456789", 0, 0)
	require.NoError(t, err)

	h := &harness{
		channel:  &fakeChannel{jid: testPhone + "@s.whatsapp.net"},
		creds:    credential.NewMemoryCredentialStore(),
		profiles: &flakyProfiles{MemoryProfileStore: credential.NewMemoryProfileStore()},
	}
	logger := logging.Discard()
	svc := NewService(Deps{
		Channel:     h.channel,
		Identity:    identity.NewService(backend, "moovi.app"),
		Credentials: h.creds,
		Profiles:    h.profiles,
		Hasher:      password.NewTestHasher(),
		Logger:      logger,
	})
	handler := NewHandler(svc)
	limiter := ratelimit.NewLimiter(ratelimit.NewMemoryStore(), logger)
	limit := func(p ratelimit.Policy, msg middleware.MessageFunc) fiber.Handler {
		return middleware.RateLimit(limiter, p, middleware.ClientIP, msg, logger)
	}

	app := fiber.New()
	app.Use(middleware.RequestID())
	app.Post("/send-verification-code", limit(ratelimit.SendCode, middleware.TooManyAttempts), handler.SendVerificationCode)
	app.Post("/verify-code", limit(ratelimit.VerifyCode, middleware.TooManyVerifications), handler.VerifyCode)
	app.Post("/check-user-has-password", limit(ratelimit.CheckPassword, middleware.TooManyAttempts), handler.CheckUserHasPassword)
	app.Post("/login-with-password", limit(ratelimit.Login, middleware.TooManyAttempts), handler.LoginWithPassword)
	app.Post("/set-user-password", limit(ratelimit.SetPassword, middleware.TooManyAttempts), handler.SetUserPassword)
	h.app = app
	return h
}

func (h *harness) post(t *testing.T, path, body, bearer string) (int, string) {
	t.Helper()
	status, raw, _ := h.send(t, path, body, bearer)
	return status, raw
}

func (h *harness) send(t *testing.T, path, body, bearer string) (int, string, http.Header) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(raw), resp.Header
}

type verifyReply struct {
	Success            bool   `json:"success"`
	JID                string `json:"jid"`
	AccessToken        string `json:"access_token"`
	RefreshToken       string `json:"refresh_token"`
	NeedsPasswordSetup bool   `json:"needsPasswordSetup"`
}

func (h *harness) verify(t *testing.T) verifyReply {
	t.Helper()
	status, body := h.post(t, "/verify-code", `{"phoneNumber":"+`+testPhone+`","code":"`+testCode+`"}`, "")
	require.Equal(t, http.StatusOK, status, body)
	var out verifyReply
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestFirstTimeUserFlow(t *testing.T) {
	h := newHarness(t)

	status, body := h.post(t, "/send-verification-code", `{"phoneNumber":"+5511999998888"}`, "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"success":true}`, body)

	v := h.verify(t)
	require.True(t, v.Success)
	require.True(t, v.NeedsPasswordSetup)
	require.Equal(t, testPhone+"@s.whatsapp.net", v.JID)
	require.NotEmpty(t, v.AccessToken)
	require.NotEmpty(t, v.RefreshToken)

	status, body = h.post(t, "/check-user-has-password", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"exists":true,"hasPassword":false}`, body)

	status, body = h.post(t, "/set-user-password", `{"password":"`+testPassword+`"}`, v.AccessToken)
	require.Equal(t, http.StatusOK, status, body)
	require.JSONEq(t, `{"success":true,"message":"Senha cadastrada com sucesso"}`, body)

	status, body = h.post(t, "/check-user-has-password", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"exists":true,"hasPassword":true}`, body)

	status, body = h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusOK, status, body)
	var login loginResponse
	require.NoError(t, json.Unmarshal([]byte(body), &login))
	require.True(t, login.Success)
	require.Equal(t, testPhone+"@s.whatsapp.net", login.JID)
	require.NotEmpty(t, login.AccessToken)
	require.NotContains(t, body, testPassword)
}

func TestLoginWithoutPasswordNeedsWhatsApp(t *testing.T) {
	h := newHarness(t)
	h.verify(t)

	status, body := h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"error":"Credenciais inválidas","needsWhatsApp":true}`, body)
}

func TestLoginUnknownAndPasswordlessAreIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.verify(t)

	_, withRow := h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"`+testPassword+`"}`, "")
	status, noRow := h.post(t, "/login-with-password", `{"phoneNumber":"5511000001111","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, withRow, noRow)
}

func TestLoginWrongPassword(t *testing.T) {
	h := newHarness(t)
	v := h.verify(t)
	status, _ := h.post(t, "/set-user-password", `{"password":"`+testPassword+`"}`, v.AccessToken)
	require.Equal(t, http.StatusOK, status)

	status, body := h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"Errada@2024"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"error":"Credenciais inválidas"}`, body)

	status, body = h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"curta"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"error":"Credenciais inválidas"}`, body)

	status, body = h.post(t, "/login-with-password", `{"phoneNumber":"12","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusUnauthorized, status)
	require.JSONEq(t, `{"error":"Credenciais inválidas"}`, body)
}

func TestPasswordLengthUsesUTF16Units(t *testing.T) {
	h := newHarness(t)
	v := h.verify(t)
	const emoji = "ab1!😀😀X"

	status, body := h.post(t, "/set-user-password", `{"password":"`+emoji+`"}`, v.AccessToken)
	require.Equal(t, http.StatusOK, status, body)

	status, body = h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"`+emoji+`"}`, "")
	require.Equal(t, http.StatusOK, status, body)
}

func TestReverificationKeepsPassword(t *testing.T) {
	h := newHarness(t)
	v := h.verify(t)
	status, _ := h.post(t, "/set-user-password", `{"password":"`+testPassword+`"}`, v.AccessToken)
	require.Equal(t, http.StatusOK, status)
	hashBefore, _, err := h.creds.PasswordHash(context.Background(), testPhone)
	require.NoError(t, err)

	again := h.verify(t)
	require.False(t, again.NeedsPasswordSetup)

	hashAfter, found, err := h.creds.PasswordHash(context.Background(), testPhone)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, hashBefore, hashAfter)

	status, _ = h.post(t, "/login-with-password", `{"phoneNumber":"`+testPhone+`","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusOK, status)
}

func TestVerifyCodeErrors(t *testing.T) {
	h := newHarness(t)

	cases := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"missing fields", `{"phoneNumber":"` + testPhone + `"}`, http.StatusBadRequest, `{"error":"Telefone e código são obrigatórios"}`},
		{"short code", `{"phoneNumber":"` + testPhone + `","code":"12345"}`, http.StatusBadRequest, `{"error":"Código deve ter 6 dígitos"}`},
		{"bad phone", `{"phoneNumber":"abc","code":"123456"}`, http.StatusBadRequest, `{"error":"Formato de telefone inválido"}`},
		{"wrong code", `{"phoneNumber":"` + testPhone + `","code":"654321"}`, http.StatusUnauthorized, `{"error":"Código inválido ou expirado"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := h.post(t, "/verify-code", tc.body, "")
			require.Equal(t, tc.status, status)
			require.JSONEq(t, tc.want, body)
		})
	}

	status, _ := h.post(t, "/check-user-has-password", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	_, verifies := h.channel.counts()
	require.Equal(t, 1, verifies)
}

func TestSendCodeValidationAndFailure(t *testing.T) {
	h := newHarness(t)

	status, body := h.post(t, "/send-verification-code", `{}`, "")
	require.Equal(t, http.StatusBadRequest, status)
	require.JSONEq(t, `{"error":"Telefone é obrigatório"}`, body)

	status, body = h.post(t, "/send-verification-code", `{"phoneNumber":"1234567"}`, "")
	require.Equal(t, http.StatusBadRequest, status)
	require.JSONEq(t, `{"error":"Formato de telefone inválido"}`, body)

	h.channel.sendErr = errors.New("upstream 502")
	status, body = h.post(t, "/send-verification-code", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusInternalServerError, status)
	require.JSONEq(t, `{"error":"Erro ao enviar código de verificação"}`, body)
	require.NotContains(t, body, "502")
}

func TestSendCodeRateLimit(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 3; i++ {
		status, _ := h.post(t, "/send-verification-code", `{"phoneNumber":"`+testPhone+`"}`, "")
		require.Equal(t, http.StatusOK, status)
	}

	status, body, header := h.send(t, "/send-verification-code", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Contains(t, body, "Muitas tentativas")
	requirePositiveRetryAfter(t, header)
	sends, _ := h.channel.counts()
	require.Equal(t, 3, sends)
}

func TestVerifyCodeRateLimit(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		status, _ := h.post(t, "/verify-code", `{"phoneNumber":"`+testPhone+`","code":"654321"}`, "")
		require.Equal(t, http.StatusUnauthorized, status)
	}

	status, body, header := h.send(t, "/verify-code", `{"phoneNumber":"`+testPhone+`","code":"`+testCode+`"}`, "")
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Contains(t, body, "Muitas tentativas de verificação")
	requirePositiveRetryAfter(t, header)
	_, verifies := h.channel.counts()
	require.Equal(t, 5, verifies)
}

func requirePositiveRetryAfter(t *testing.T, header http.Header) {
	t.Helper()
	seconds, err := strconv.Atoi(header.Get(fiber.HeaderRetryAfter))
	require.NoError(t, err)
	require.Positive(t, seconds)
}

func TestCheckUserHasPasswordIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.verify(t)

	status, first := h.post(t, "/check-user-has-password", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	status, second := h.post(t, "/check-user-has-password", `{"phoneNumber":"`+testPhone+`"}`, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, first, second)
	require.JSONEq(t, `{"exists":true,"hasPassword":false}`, second)
}

func TestReverificationReadsPasswordFromCredentials(t *testing.T) {
	h := newHarness(t)
	v := h.verify(t)
	h.profiles.markErr = errors.New("profiles unavailable")

	status, _ := h.post(t, "/set-user-password", `{"password":"`+testPassword+`"}`, v.AccessToken)
	require.Equal(t, http.StatusOK, status)
	st, err := h.profiles.Lookup(context.Background(), testPhone)
	require.NoError(t, err)
	require.False(t, st.HasPassword)

	again := h.verify(t)
	require.False(t, again.NeedsPasswordSetup)
}

func TestSetPasswordErrors(t *testing.T) {
	h := newHarness(t)
	v := h.verify(t)

	cases := []struct {
		name   string
		body   string
		bearer string
		status int
		want   string
	}{
		{"no token", `{"password":"` + testPassword + `"}`, "", http.StatusUnauthorized, `{"error":"Token de autenticação necessário"}`},
		{"bad token", `{"password":"` + testPassword + `"}`, "not-a-jwt", http.StatusUnauthorized, `{"error":"Token inválido ou expirado"}`},
		{"refresh token", `{"password":"` + testPassword + `"}`, v.RefreshToken, http.StatusUnauthorized, `{"error":"Token inválido ou expirado"}`},
		{"weak password", `{"password":"semnumero"}`, v.AccessToken, http.StatusBadRequest, `{"error":"Senha deve conter pelo menos 1 número"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := h.post(t, "/set-user-password", tc.body, tc.bearer)
			require.Equal(t, tc.status, status)
			require.JSONEq(t, tc.want, body)
		})
	}

	st, err := h.profiles.Lookup(context.Background(), testPhone)
	require.NoError(t, err)
	require.False(t, st.HasPassword)
}

func TestCheckUserHasPasswordUnknownPhone(t *testing.T) {
	h := newHarness(t)
	status, body := h.post(t, "/check-user-has-password", `{"phoneNumber":"5511000001111"}`, "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"exists":false,"hasPassword":false}`, body)
}
