// Package notify delivers login codes through the notification gateway's email webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 15 * time.Second

// ErrNotConfigured is returned by SendCode when the gateway URL or API key is missing.
var ErrNotConfigured = errors.New("notify: gateway not configured")

// EmailClient posts login code emails to the gateway.
type EmailClient struct {
	APIKey     string
	BaseURL    string
	From       string
	HTTPClient *http.Client
}

// NewEmailClient returns a client for the gateway at baseURL.
func NewEmailClient(apiKey, baseURL, from string) *EmailClient {
	return &EmailClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		From:       from,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type emailRequest struct {
	Template  string            `json:"template"`
	From      string            `json:"from"`
	To        string            `json:"to"`
	Variables map[string]string `json:"variables"`
}

// SendCode sends code to email. The code is never included in returned errors.
func (c *EmailClient) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if c.APIKey == "" || c.BaseURL == "" {
		return ErrNotConfigured
	}
	raw, err := json.Marshal(emailRequest{
		Template: "login_code",
		From:     c.From,
		To:       email,
		Variables: map[string]string{
			"code":       code,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: request failed status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
