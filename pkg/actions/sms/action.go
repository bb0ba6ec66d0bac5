// Package sms implements the sms action, delivered through an HTTP SMS
// gateway with a Twilio-style form API.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeoutSeconds = 10

var (
	// ErrRecipientRequired is returned when the action has no recipient.
	ErrRecipientRequired = errors.New("sms action requires a 'to' number")

	// ErrMessageRequired is returned when the action has no message.
	ErrMessageRequired = errors.New("sms action requires a 'message'")

	// ErrGatewayNotConfigured is returned when no gateway URL is configured.
	ErrGatewayNotConfigured = errors.New("sms gateway is not configured")
)

// GatewayConfig holds the SMS provider settings shared by all sms actions.
type GatewayConfig struct {
	URL       string
	AccountID string
	AuthToken string
	From      string
}

// Action sends one text message through the configured gateway.
type Action struct {
	To      string
	From    string
	Message string

	gateway GatewayConfig
	client  *http.Client
}

// NewAction builds the action from its interpolated params.
func NewAction(gateway GatewayConfig, params map[string]any) (*Action, error) {
	to, _ := params["to"].(string)
	if to == "" {
		return nil, ErrRecipientRequired
	}

	message, _ := params["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	from, _ := params["from"].(string)
	if from == "" {
		from = gateway.From
	}

	return &Action{
		To:      to,
		From:    from,
		Message: message,
		gateway: gateway,
		client:  &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
	}, nil
}

// Execute posts the message to the gateway as a form submission.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "sms_action")

	if a.gateway.URL == "" {
		return nil, ErrGatewayNotConfigured
	}

	form := url.Values{}
	form.Set("To", a.To)
	form.Set("From", a.From)
	form.Set("Body", a.Message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.gateway.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create sms request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if a.gateway.AccountID != "" {
		req.SetBasicAuth(a.gateway.AccountID, a.gateway.AuthToken)
	}

	logger.InfoContext(ctx, "Sending SMS", "to", a.To)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sms gateway request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, string(respBody))
	}

	result := map[string]any{
		"to":          a.To,
		"status_code": resp.StatusCode,
	}

	// Gateways typically return a message sid as JSON.
	var gatewayResponse map[string]any
	if err := json.Unmarshal(respBody, &gatewayResponse); err == nil {
		if sid, ok := gatewayResponse["sid"]; ok {
			result["message_id"] = sid
		}
	}

	logger.InfoContext(ctx, "SMS accepted by gateway", "status_code", resp.StatusCode)

	return result, nil
}
