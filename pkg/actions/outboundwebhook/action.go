// Package outboundwebhook implements the webhook action: a JSON POST of a
// templated payload to an external endpoint, optionally signed.
package outboundwebhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeoutSeconds = 15

// ErrURLRequired is returned when the action configuration has no url.
var ErrURLRequired = errors.New("webhook action requires a 'url'")

// Action delivers one outbound webhook. The payload map was interpolated
// before the action was built.
type Action struct {
	URL     string
	Payload map[string]any
	Headers map[string]string
	Secret  string
	Timeout time.Duration

	client *http.Client
}

// NewAction builds the action from its interpolated params.
func NewAction(params map[string]any) (*Action, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	payload, _ := params["payload"].(map[string]any)
	secret, _ := params["secret"].(string)

	headers := make(map[string]string)

	if headersConfig, ok := params["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second

	return &Action{
		URL:     url,
		Payload: payload,
		Headers: headers,
		Secret:  secret,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Execute posts the payload as JSON. When a secret is configured the body is
// signed with HMAC-SHA256 and the digest sent in X-Signature-256, so the
// receiver can verify origin.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "webhook_action")

	body, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	if a.Secret != "" {
		req.Header.Set("X-Signature-256", "sha256="+signPayload(a.Secret, body))
	}

	logger.InfoContext(ctx, "Delivering outbound webhook", "url", a.URL, "payload_bytes", len(body))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook delivery failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("webhook receiver returned status %d", resp.StatusCode)
	}

	logger.InfoContext(ctx, "Outbound webhook delivered", "status_code", resp.StatusCode)

	return map[string]any{
		"status_code": resp.StatusCode,
		"response":    string(respBody),
	}, nil
}

func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}
