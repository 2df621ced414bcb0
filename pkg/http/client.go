package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/santaclaude2025/flowsync/pkg/config"
	"github.com/santaclaude2025/flowsync/pkg/utils"
)

// RequestIDHeader carries a per-request id so failures can be matched to server logs
const RequestIDHeader = "X-Request-Id"

// maxErrorBody bounds how much of an error response ends up in messages and logs
const maxErrorBody = 200

// ErrUnauthorized is returned when the server returns 401 or 403.
// This typically means the API token is invalid or expired.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx response other than 401/403
type StatusError struct {
	StatusCode int
	Body       string
	RequestID  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http request failed with status %d (request %s): %s", e.StatusCode, e.RequestID, e.Body)
}

// IsRetryable reports whether a failed request may succeed if repeated:
// transport errors, 429 and 5xx responses.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthorized) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}

	return true
}

// Client is a configured HTTP client for authenticated requests to the flow API
type Client struct {
	baseURL    string
	token      string
	compress   bool
	httpClient *http.Client
	encoder    *zstd.Encoder
}

// NewClient creates a new authenticated HTTP client
func NewClient(cfg *config.Config, timeout time.Duration) *Client {
	encoder, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))

	return &Client{
		baseURL:  strings.TrimRight(cfg.APIURL, "/"),
		token:    cfg.APIToken,
		compress: cfg.CompressRequests,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		encoder: encoder,
	}
}

// Do sends body (may be nil) and returns the response body.
// When compression is enabled, payloads of 1KB or more are sent zstd encoded.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	var contentEncoding string

	if body != nil {
		if c.compress && len(body) >= config.CompressionThreshold {
			compressed := c.encoder.EncodeAll(body, make([]byte, 0, len(body)/2))
			bodyReader = bytes.NewReader(compressed)
			contentEncoding = "zstd"
		} else {
			bodyReader = bytes.NewReader(body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		if contentEncoding != "" {
			req.Header.Set("Content-Encoding", contentEncoding)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set(RequestIDHeader, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       utils.TruncateEnd(strings.TrimSpace(string(respBody)), maxErrorBody),
			RequestID:  requestID,
		}
	}

	return respBody, nil
}

// DoJSON performs a request with a JSON body and parses a JSON response
func (c *Client) DoJSON(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var payload []byte
	if reqBody != nil {
		var err error
		payload, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	body, err := c.Do(ctx, method, path, payload)
	if err != nil {
		return err
	}

	if respBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Get performs a GET request and returns the raw body
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Put performs a PUT request with a raw JSON body
func (c *Client) Put(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}
