package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current capture settings and pushes updates to the
// source. The monitor API talks to the manager, never to the device.
type Manager struct {
	settings Settings
	mu       sync.RWMutex

	// OnApply is called with validated settings on every change.
	// Typically bound to Applier.Apply of the active source.
	OnApply func(s Settings) error
}

// Applier is implemented by sources whose capture parameters can be
// changed after opening.
type Applier interface {
	Apply(s Settings) error
}

// NewManager creates a manager seeded with the given settings.
func NewManager(initial Settings) *Manager {
	return &Manager{settings: initial}
}

// Current returns the active settings.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Set validates and applies new settings.
func (m *Manager) Set(s Settings) error {
	if problems := s.Validate(); len(problems) > 0 {
		return fmt.Errorf("camera: invalid settings: %v", problems)
	}

	m.mu.Lock()
	m.settings = s
	apply := m.OnApply
	m.mu.Unlock()

	if apply != nil {
		if err := apply(s); err != nil {
			return fmt.Errorf("camera: apply settings: %w", err)
		}
	}

	return nil
}

// Update applies a partial update from loosely typed values, the shape
// a JSON API hands over. A "preset" key loads that preset first; other
// keys then override individual fields.
func (m *Manager) Update(params map[string]any) error {
	m.mu.RLock()
	s := m.settings
	m.mu.RUnlock()

	if name, ok := params["preset"].(string); ok {
		preset := GetPreset(name)
		if preset == nil {
			return fmt.Errorf("camera: unknown preset: %s", name)
		}
		s = *preset
		delete(params, "preset")
	}

	for key, value := range params {
		v, ok := toInt(value)
		if !ok {
			return fmt.Errorf("camera: %s must be a number", key)
		}
		switch key {
		case "width":
			s.Width = v
		case "height":
			s.Height = v
		case "framerate":
			s.Framerate = v
		case "quality":
			s.Quality = v
		default:
			return fmt.Errorf("camera: unknown setting: %s", key)
		}
	}

	return m.Set(s)
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}
