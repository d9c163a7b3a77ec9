package detectsvc

// Config holds the tunable parameters of the detection service.
type Config struct {
	// MaxBodyBytes caps the request body. Frames are small JPEGs;
	// anything larger is rejected before decoding.
	MaxBodyBytes int

	// TargetWidth is the width frames are downscaled to before
	// inference. Wider submissions are resized, narrower ones pass
	// through. Returned boxes are always in the submitted frame's
	// pixel space.
	TargetWidth int

	// RecentRows is how many rows GET /csv-data returns at most.
	RecentRows int
}

// DefaultConfig returns the service defaults, sized for CPU-only hosts
// fed by one-frame-per-second watch loops.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes: 2 * 1024 * 1024,
		TargetWidth:  480,
		RecentRows:   200,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if c.TargetWidth <= 0 {
		c.TargetWidth = def.TargetWidth
	}
	if c.RecentRows <= 0 {
		c.RecentRows = def.RecentRows
	}
	return c
}
