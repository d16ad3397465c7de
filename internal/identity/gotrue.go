package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// GoTrueBackend drives a GoTrue (Supabase Auth) server through its admin and
// password-grant endpoints.
type GoTrueBackend struct {
	baseURL    string
	serviceKey string
	anonKey    string
	httpClient *http.Client
}

// NewGoTrueBackend builds a backend for the project at baseURL. anonKey falls
// back to serviceKey when empty.
func NewGoTrueBackend(baseURL, serviceKey, anonKey string, timeout time.Duration) *GoTrueBackend {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if anonKey == "" {
		anonKey = serviceKey
	}
	return &GoTrueBackend{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		serviceKey: serviceKey,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type gotrueUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	UserMetadata Metadata  `json:"user_metadata"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u gotrueUser) account() Account {
	return Account{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata, CreatedAt: u.CreatedAt}
}

type gotrueError struct {
	Code      any    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
	ErrorDesc string `json:"error_description"`
}

func (e gotrueError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDesc} {
		if s != "" {
			return s
		}
	}
	return ""
}

type apiError struct {
	status int
	body   gotrueError
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gotrue: status %d: %s", e.status, e.body.text())
}

func (b *GoTrueBackend) CreateUser(ctx context.Context, email, secret string, meta Metadata) (Account, error) {
	payload := map[string]any{
		"email":         email,
		"password":      secret,
		"email_confirm": true,
		"user_metadata": meta,
	}
	var user gotrueUser
	err := b.do(ctx, http.MethodPost, "/admin/users", b.serviceKey, b.serviceKey, payload, &user)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && isAlreadyRegistered(ae) {
			return Account{}, ErrAlreadyRegistered
		}
		return Account{}, err
	}
	return user.account(), nil
}

func isAlreadyRegistered(e *apiError) bool {
	if e.body.ErrorCode == "email_exists" || e.body.ErrorCode == "user_already_exists" {
		return true
	}
	if e.status != http.StatusUnprocessableEntity && e.status != http.StatusBadRequest && e.status != http.StatusConflict {
		return false
	}
	return strings.Contains(strings.ToLower(e.body.text()), "already")
}

func (b *GoTrueBackend) FindUserByEmail(ctx context.Context, email string) (Account, error) {
	var page struct {
		Users []gotrueUser `json:"users"`
	}
	q := url.Values{"filter": {email}, "per_page": {"50"}}
	if err := b.do(ctx, http.MethodGet, "/admin/users?"+q.Encode(), b.serviceKey, b.serviceKey, nil, &page); err != nil {
		return Account{}, err
	}
	for _, u := range page.Users {
		if strings.EqualFold(u.Email, email) {
			return u.account(), nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (b *GoTrueBackend) UpdateUser(ctx context.Context, id, secret string, meta Metadata) (Account, error) {
	payload := map[string]any{
		"password":      secret,
		"user_metadata": meta,
	}
	var user gotrueUser
	err := b.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id), b.serviceKey, b.serviceKey, payload, &user)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.status == http.StatusNotFound {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return user.account(), nil
}

func (b *GoTrueBackend) SignIn(ctx context.Context, email, secret string) (Session, error) {
	payload := map[string]string{"email": email, "password": secret}
	var sess Session
	err := b.do(ctx, http.MethodPost, "/token?grant_type=password", b.anonKey, b.anonKey, payload, &sess)
	if err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.status == http.StatusBadRequest {
			return Session{}, ErrInvalidSecret
		}
		return Session{}, err
	}
	if sess.AccessToken == "" {
		return Session{}, errors.New("gotrue: token grant returned no access token")
	}
	return sess, nil
}

func (b *GoTrueBackend) UserFromToken(ctx context.Context, token string) (Account, error) {
	var user gotrueUser
	if err := b.do(ctx, http.MethodGet, "/user", b.anonKey, token, nil, &user); err != nil {
		var ae *apiError
		if errors.As(err, &ae) && ae.status >= 400 && ae.status < 500 {
			return Account{}, ErrInvalidToken
		}
		return Account{}, err
	}
	if user.ID == "" {
		return Account{}, ErrInvalidToken
	}
	return user.account(), nil
}

func (b *GoTrueBackend) do(ctx context.Context, method, path, apiKey, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.WithStack(err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("apikey", apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "gotrue %s %s", method, strings.SplitN(path, "?", 2)[0])
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		ae := &apiError{status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&ae.body)
		return ae
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode gotrue response")
	}
	return nil
}
