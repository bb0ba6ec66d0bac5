// Package chat implements the slack, discord and teams actions. All three
// providers accept incoming-webhook JSON posts and differ only in the
// message envelope, so one action serves them all.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const defaultTimeoutSeconds = 10

// Provider selects the message envelope format.
type Provider string

const (
	ProviderSlack   Provider = "slack"
	ProviderDiscord Provider = "discord"
	ProviderTeams   Provider = "teams"
)

var (
	// ErrWebhookURLRequired is returned when the action has no webhook_url.
	ErrWebhookURLRequired = errors.New("chat action requires a 'webhook_url'")

	// ErrMessageRequired is returned when the action has no message.
	ErrMessageRequired = errors.New("chat action requires a 'message'")
)

// Action posts one message to a chat provider's incoming webhook.
type Action struct {
	Provider   Provider
	WebhookURL string
	Message    string
	Title      string
	Channel    string
	Username   string

	client *http.Client
}

// NewAction builds the action for a provider from its interpolated params.
func NewAction(provider Provider, params map[string]any) (*Action, error) {
	webhookURL, _ := params["webhook_url"].(string)
	if webhookURL == "" {
		return nil, ErrWebhookURLRequired
	}

	message, _ := params["message"].(string)
	if message == "" {
		return nil, ErrMessageRequired
	}

	title, _ := params["title"].(string)
	channel, _ := params["channel"].(string)
	username, _ := params["username"].(string)

	return &Action{
		Provider:   provider,
		WebhookURL: webhookURL,
		Message:    message,
		Title:      title,
		Channel:    channel,
		Username:   username,
		client:     &http.Client{Timeout: defaultTimeoutSeconds * time.Second},
	}, nil
}

// Execute posts the provider-specific envelope to the incoming webhook.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "chat_action", "provider", string(a.Provider))

	body, err := json.Marshal(a.envelope())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	logger.InfoContext(ctx, "Posting chat message", "message_length", len(a.Message))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat webhook post failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%s webhook returned status %d: %s", a.Provider, resp.StatusCode, string(respBody))
	}

	logger.InfoContext(ctx, "Chat message delivered", "status_code", resp.StatusCode)

	return map[string]any{
		"provider":    string(a.Provider),
		"status_code": resp.StatusCode,
	}, nil
}

// envelope builds the provider's incoming-webhook JSON shape.
func (a *Action) envelope() map[string]any {
	switch a.Provider {
	case ProviderDiscord:
		envelope := map[string]any{"content": a.Message}
		if a.Username != "" {
			envelope["username"] = a.Username
		}

		return envelope

	case ProviderTeams:
		title := a.Title
		if title == "" {
			title = "Workflow notification"
		}

		return map[string]any{
			"@type":    "MessageCard",
			"@context": "http://schema.org/extensions",
			"summary":  title,
			"title":    title,
			"text":     a.Message,
		}

	default: // slack
		envelope := map[string]any{"text": a.Message}
		if a.Channel != "" {
			envelope["channel"] = a.Channel
		}

		if a.Username != "" {
			envelope["username"] = a.Username
		}

		return envelope
	}
}
