// Package httprequest implements the http_request action: an arbitrary HTTP
// call with optional headers, body and retry on server errors.
package httprequest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeoutSeconds = 30

var (
	// ErrURLRequired is returned when the action configuration has no url.
	ErrURLRequired = errors.New("http_request action requires a 'url'")

	// ErrServerError marks a 5xx response that triggered a retry.
	ErrServerError = errors.New("server error during http request")
)

// Action performs one HTTP request. Params were interpolated before the
// action was built, so URL, headers and body hold concrete values.
type Action struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Timeout time.Duration
	Retry   RetryConfig

	client *http.Client
}

// RetryConfig defines retry behavior for failed requests.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// NewAction builds the action from its interpolated params.
func NewAction(params map[string]any) (*Action, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	body, _ := params["body"].(string)

	headers := make(map[string]string)

	if headersConfig, ok := params["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	retry := RetryConfig{Attempts: 1}

	if retryConfig, ok := params["retry"].(map[string]any); ok {
		if attempts, ok := retryConfig["attempts"].(float64); ok && attempts >= 1 {
			retry.Attempts = int(attempts)
		}

		if delay, ok := retryConfig["delay"].(float64); ok && delay >= 0 {
			retry.Delay = time.Duration(delay) * time.Millisecond
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := params["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &Action{
		Method:  strings.ToUpper(method),
		URL:     url,
		Headers: headers,
		Body:    body,
		Timeout: timeout,
		Retry:   retry,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Execute performs the request, retrying on transport errors and 5xx
// responses up to the configured attempts.
func (a *Action) Execute(ctx context.Context, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "http_request_action")
	logger.InfoContext(ctx, "Executing HTTP request", "method", a.Method, "url", a.URL)

	var (
		lastErr error
		resp    *http.Response
	)

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Retrying HTTP request",
				"attempt", attempt,
				"max_attempts", a.Retry.Attempts)

			select {
			case <-time.After(a.Retry.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := a.buildRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err = a.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request failed: %w", err)

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < a.Retry.Attempts {
			if err := resp.Body.Close(); err != nil {
				logger.ErrorContext(ctx, "Failed to close response body", "error", err)
			}

			lastErr = fmt.Errorf("status %d: %w", resp.StatusCode, ErrServerError)
			resp = nil

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all retry attempts failed, last error: %w", lastErr)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context) (*http.Request, error) {
	var bodyReader io.Reader
	if a.Body != "" {
		bodyReader = strings.NewReader(a.Body)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (map[string]any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var body any

	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		// Non-JSON responses are passed through verbatim.
		body = string(bodyBytes)
	}

	logger.InfoContext(ctx, "HTTP request completed",
		"status_code", resp.StatusCode,
		"body_length", len(bodyBytes))

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("request returned status %d: %w", resp.StatusCode, ErrServerError)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     flattenHeaders(resp.Header),
	}, nil
}

func flattenHeaders(header http.Header) map[string]any {
	out := make(map[string]any, len(header))
	for key := range header {
		out[key] = header.Get(key)
	}

	return out
}
