// Package httprequest provides the built-in HTTP request tool.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeoutSeconds = 30

// Tool performs an HTTP request described by the resolved task input.
// Retries are the engine's concern; one call is one attempt.
type Tool struct {
	client *http.Client
}

func NewTool() *Tool {
	return &Tool{client: &http.Client{}}
}

func (t *Tool) ID() string   { return "http_request" }
func (t *Tool) Name() string { return "HTTP Request" }

func (t *Tool) Description() string {
	return "Performs an HTTP request and returns status code, headers and parsed body"
}

func (t *Tool) InputSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"url"},
		"properties": map[string]any{
			"url":             map[string]any{"type": "string", "minLength": 1},
			"method":          map[string]any{"type": "string"},
			"headers":         map[string]any{"type": "object"},
			"body":            map[string]any{"type": "string"},
			"timeout_seconds": map[string]any{"type": "number", "minimum": 0},
		},
	}
}

func (t *Tool) Execute(ctx context.Context, input map[string]any, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "http_request_tool")

	url, _ := input["url"].(string)

	method, _ := input["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	method = strings.ToUpper(method)

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := input["timeout_seconds"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds * float64(time.Second))
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader

	if body, ok := input["body"].(string); ok && body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	if headers, ok := input["headers"].(map[string]any); ok {
		for key, value := range headers {
			if strVal, ok := value.(string); ok {
				req.Header.Set(key, strVal)
			}
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// Prefer structured bodies; fall back to the raw string.
	var body any
	if err := json.Unmarshal(bodyBytes, &body); err != nil {
		body = string(bodyBytes)
	}

	logger.Info("Request completed", "method", method, "url", url, "status_code", resp.StatusCode)

	return map[string]any{
		"status_code": resp.StatusCode,
		"body":        body,
		"headers":     headerMap(resp.Header),
	}, nil
}

func headerMap(header http.Header) map[string]any {
	out := make(map[string]any, len(header))
	for key := range header {
		out[key] = header.Get(key)
	}

	return out
}
