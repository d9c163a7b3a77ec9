package camera

// Settings holds the tunable capture parameters. They can be changed
// at runtime through the monitor API; sources that support it apply
// them to the underlying device.
type Settings struct {
	// Width and Height are the requested capture size in pixels.
	// Requests are best effort: the driver may pick a different mode
	// and Source.Size always reports what is actually delivered.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Framerate is the requested capture rate. The watch loop samples
	// far below this; it only bounds driver-side buffering.
	Framerate int `json:"framerate"`

	// Quality is the JPEG quality (1-100) for submitted and published
	// frames.
	Quality int `json:"quality"`
}

// DefaultSettings returns the standard watch configuration: SVGA at a
// modest rate, sized for frequent round trips to the detection service.
func DefaultSettings() Settings {
	return Settings{
		Width:     800,
		Height:    600,
		Framerate: 15,
		Quality:   85,
	}
}

// Validate checks the settings ranges. It returns a list of problems,
// or nil when the settings are usable.
func (s *Settings) Validate() []string {
	var problems []string

	if s.Width < 160 || s.Width > 4096 {
		problems = append(problems, "width must be between 160 and 4096")
	}
	if s.Height < 120 || s.Height > 2160 {
		problems = append(problems, "height must be between 120 and 2160")
	}
	if s.Framerate < 1 || s.Framerate > 60 {
		problems = append(problems, "framerate must be between 1 and 60")
	}
	if s.Quality < 1 || s.Quality > 100 {
		problems = append(problems, "quality must be between 1 and 100")
	}

	return problems
}

// Preset names for common capture modes.
const (
	PresetDefault = "default"
	PresetVGA     = "vga"
	Preset720p    = "720p"
	Preset1080p   = "1080p"
)

// Presets returns the available capture presets.
func Presets() map[string]Settings {
	return map[string]Settings{
		PresetDefault: DefaultSettings(),
		PresetVGA:     {Width: 640, Height: 480, Framerate: 15, Quality: 85},
		Preset720p:    {Width: 1280, Height: 720, Framerate: 15, Quality: 85},
		Preset1080p:   {Width: 1920, Height: 1080, Framerate: 10, Quality: 80},
	}
}

// PresetNames returns the preset names in a stable order.
func PresetNames() []string {
	return []string{PresetDefault, PresetVGA, Preset720p, Preset1080p}
}

// GetPreset returns the named preset, or nil when unknown.
func GetPreset(name string) *Settings {
	if s, ok := Presets()[name]; ok {
		return &s
	}
	return nil
}
