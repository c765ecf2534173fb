package botcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Action tags scope issued tokens to the operation they protect.
const (
	ActionSignup     = "signup"
	ActionResendCode = "resend_code"
)

var ErrUnavailable = errors.New("bot check provider unavailable")

// Provider issues a short-lived token asserting the session is likely human.
// The token is forwarded to the directory as-is; this service performs no
// independent scoring of it.
type Provider interface {
	Token(ctx context.Context, action string) (string, error)
}

// HTTPProvider fetches tokens from the configured challenge endpoint.
type HTTPProvider struct {
	endpoint string
	siteKey  string
	client   *http.Client
}

func NewHTTPProvider(endpoint, siteKey string) *HTTPProvider {
	return &HTTPProvider{
		endpoint: endpoint,
		siteKey:  siteKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type tokenRequest struct {
	SiteKey string `json:"site_key"`
	Action  string `json:"action"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (p *HTTPProvider) Token(ctx context.Context, action string) (string, error) {
	if p.endpoint == "" || p.siteKey == "" {
		return "", fmt.Errorf("%w: endpoint or site key not configured", ErrUnavailable)
	}

	body, err := json.Marshal(tokenRequest{SiteKey: p.siteKey, Action: action})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// An empty token is a rejection, not an outage; the caller distinguishes.
	return out.Token, nil
}

// DevProvider returns a fixed token for local development and tests.
type DevProvider struct {
	token string
}

func NewDevProvider(token string) *DevProvider {
	return &DevProvider{token: token}
}

func (p *DevProvider) Token(_ context.Context, _ string) (string, error) {
	return p.token, nil
}
