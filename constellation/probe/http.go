package probe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProbe performs HTTP requests on behalf of a star.
//
// Input parameters:
//   - url (string, required)
//   - method (string, "GET" or "POST", default "GET")
//   - body (string, optional request body)
//   - headers (map of string to string, optional)
//
// Output: status_code (int), headers (map), body (string).
type HTTPProbe struct {
	client *http.Client
}

// NewHTTPProbe creates an HTTPProbe with a 30 second request timeout.
func NewHTTPProbe() *HTTPProbe {
	return &HTTPProbe{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name implements Probe.
func (h *HTTPProbe) Name() string { return "http_request" }

// Description implements Probe.
func (h *HTTPProbe) Description() string {
	return "Perform an HTTP GET or POST request and return the response"
}

// Call implements Probe.
func (h *HTTPProbe) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	urlStr, ok := input["url"].(string)
	if !ok || urlStr == "" {
		return nil, fmt.Errorf("url parameter required (string)")
	}

	method := http.MethodGet
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported HTTP method: %s (supported: GET, POST)", method)
	}

	var body io.Reader
	if bodyStr, ok := input["body"].(string); ok && bodyStr != "" {
		body = bytes.NewBufferString(bodyStr)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if headers, ok := input["headers"].(map[string]any); ok {
		for key, value := range headers {
			if s, ok := value.(string); ok {
				req.Header.Set(key, s)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for key, values := range resp.Header {
		if len(values) == 1 {
			respHeaders[key] = values[0]
		} else {
			respHeaders[key] = values
		}
	}
	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}, nil
}
