package detect

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/harborlabs/seawatch/internal/httpc"
)

// Config holds detection client configuration.
type Config struct {
	// BaseURL is the detection service root, e.g. "http://localhost:5000".
	BaseURL string

	// Timeout bounds a single detection request. It should stay below the
	// loop interval so a stalled request cannot pile up behind the ticker.
	Timeout time.Duration

	// HTTPClient is the underlying client. Defaults to the shared httpc client.
	HTTPClient *http.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithBaseURL sets the detection service root URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for a local detection service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:5000",
		Timeout:    10 * time.Second,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
