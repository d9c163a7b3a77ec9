package watch

import "time"

// Config holds the tunable parameters of the watch loop.
type Config struct {
	// Interval is the time between detection ticks.
	Interval time.Duration

	// JPEGQuality applies to frames submitted for detection and to the
	// annotated frames handed to the publisher.
	JPEGQuality int
}

// DefaultConfig returns the recommended configuration: one detection
// per second at the capture pipeline's usual JPEG quality.
func DefaultConfig() Config {
	return Config{
		Interval:    time.Second,
		JPEGQuality: 85,
	}
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = 85
	}
	return c
}
