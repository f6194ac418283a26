// Package httpjson contains the JSON-over-HTTP plumbing shared by the
// provider adapters. Every adapter in this repository talks to its backend
// with a single POST carrying a JSON body and expects a JSON reply.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxErrorPreview caps how much of a failed response body ends up in error
// messages and logs.
const maxErrorPreview = 512

// Post performs a synchronous HTTP POST with a JSON body and decodes the
// response into OutputStruct.
//
// Error handling strategy:
//   - context errors (timeout, cancellation) are propagated immediately
//   - non-2xx statuses return the raw *http.Response alongside the error so
//     callers can map the status code to their own error taxonomy
//   - decode errors include a body preview for debugging
//
// The response body is always closed; close errors are logged, never returned.
func Post[OutputStruct any](ctx context.Context, client *http.Client, url string, headers map[string]string, body any) (*http.Response, *OutputStruct, error) {
	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	res, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr.Error(), "url", url)
		}
	}()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return res, nil, fmt.Errorf("reading response body: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return res, nil, fmt.Errorf("unexpected status %s: %s", res.Status, preview(respBody))
	}

	var output OutputStruct
	if err := json.Unmarshal(respBody, &output); err != nil {
		return res, nil, fmt.Errorf("decoding response: %w (body: %s)", err, preview(respBody))
	}

	return res, &output, nil
}

func preview(body []byte) string {
	if len(body) > maxErrorPreview {
		return string(body[:maxErrorPreview]) + "..."
	}
	return string(body)
}
