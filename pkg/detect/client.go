package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client submits frames to a detection service over HTTP.
type Client struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a new detection client.
func NewClient(opts ...Option) *Client {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.With("component", "detect.client"),
	}
}

// Detect submits one JPEG frame and returns the detections the service
// reported, in the order the service listed them. A non-2xx reply comes
// back as *StatusError; a body that does not parse into the detection
// shape comes back wrapping ErrDecode. Detect never retries: each call
// stands alone and the caller decides what a failure means.
func (c *Client) Detect(ctx context.Context, jpegData []byte, traceID string) ([]Detection, error) {
	start := time.Now()

	body, err := json.Marshal(Request{Image: EncodeDataURL(jpegData)})
	if err != nil {
		return nil, fmt.Errorf("detect: marshal request: %w", err)
	}

	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("detect: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID != "" {
		req.Header.Set("X-Trace-Id", traceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect: post frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if result.Detections == nil {
		return nil, fmt.Errorf("%w: missing detections field", ErrDecode)
	}

	c.logger.Debug("frame detected",
		"detections", len(result.Detections),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return result.Detections, nil
}

// Health checks service connectivity.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("detect: create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("detect: health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// parseError reads and parses an error response body.
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var errResp struct {
		Error string `json:"error"`
	}

	message := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
		message = errResp.Error
	}

	return &StatusError{
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}
