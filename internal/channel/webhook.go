package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/moovi-app/moovi_auth/internal/logging"
)

const maxErrorBody = 200

// WebhookChannel calls the workflow webhooks over HTTP.
type WebhookChannel struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookChannel builds a channel for baseURL. A zero timeout means 10s.
func NewWebhookChannel(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type sendCodeBody struct {
	Telefone string `json:"telefone"`
}

type verifyCodeBody struct {
	Telefone string `json:"telefone"`
	Code     string `json:"code"`
}

type verifyCodeReply struct {
	JID string `json:"jid"`
}

func (w *WebhookChannel) configured() error {
	if w.baseURL == "" || w.apiKey == "" {
		return ErrNotConfigured
	}
	return nil
}

// SendCode asks the workflow to deliver a code to phone.
func (w *WebhookChannel) SendCode(ctx context.Context, phone string) error {
	if err := w.configured(); err != nil {
		return err
	}
	body, err := json.Marshal(sendCodeBody{Telefone: phone})
	if err != nil {
		return errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/webhook/auth/send-code", bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-N8N-API-KEY", w.apiKey)

	w.logger.Info("sending verification code", slog.String("phone", logging.MaskPhone(phone)))
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "send-code webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("send-code webhook returned %d: %s", resp.StatusCode, snippet(resp.Body))
	}
	return nil
}

// VerifyCode checks code with the workflow. A 401 reply maps to ErrInvalidCode.
func (w *WebhookChannel) VerifyCode(ctx context.Context, phone, code string) (string, error) {
	if err := w.configured(); err != nil {
		return "", err
	}
	body, err := json.Marshal(verifyCodeBody{Telefone: phone, Code: code})
	if err != nil {
		return "", errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/webhook/auth/verify-code", bytes.NewReader(body))
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "verify-code webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrInvalidCode
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("verify-code webhook returned %d: %s", resp.StatusCode, snippet(resp.Body))
	}

	var reply verifyCodeReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "decode verify-code reply")
	}
	return strings.TrimSpace(reply.JID), nil
}

// DashboardData fetches the dashboard document for phone. A 404 reply maps to
// ErrNotFound.
func (w *WebhookChannel) DashboardData(ctx context.Context, phone string) (json.RawMessage, error) {
	if err := w.configured(); err != nil {
		return nil, err
	}
	endpoint := w.baseURL + "/webhook/dashboard-data?telefone=" + url.QueryEscape(phone)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "dashboard-data webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("dashboard-data webhook returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read dashboard-data reply")
	}
	if !json.Valid(raw) {
		return nil, errors.New("dashboard-data webhook returned invalid JSON")
	}
	return json.RawMessage(raw), nil
}

func snippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}
