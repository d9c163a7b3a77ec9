package tablefeed

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/harborlabs/seawatch/internal/httpc"
)

// Config holds row feed poller configuration.
type Config struct {
	// BaseURL is the detection service root, e.g. "http://localhost:5000".
	BaseURL string

	// Interval is the time between polls.
	Interval time.Duration

	// HTTPClient is the underlying client. Defaults to the shared httpc client.
	HTTPClient *http.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring the poller.
type Option func(*Config)

// WithBaseURL sets the detection service root URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(c *Config) { c.Interval = d }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the standard feed configuration: one poll
// every ten seconds against a local detection service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:5000",
		Interval:   10 * time.Second,
		HTTPClient: httpc.Client,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
}
