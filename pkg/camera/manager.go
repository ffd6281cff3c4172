package camera

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Manager holds the current capture configuration and handles updates.
type Manager struct {
	config Config
	mu     sync.RWMutex

	// Callback when config changes (for applying to camera)
	OnConfigChange func(cfg Config) error
}

// NewManager creates a new camera manager with default config.
func NewManager() *Manager {
	return &Manager{
		config: DefaultConfig(),
	}
}

// NewManagerWithPreset creates a manager starting from a named preset.
func NewManagerWithPreset(name string) (*Manager, error) {
	preset := GetPreset(name)
	if preset == nil {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	return &Manager{config: *preset}, nil
}

// GetConfig returns the current camera configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig updates the camera configuration.
func (m *Manager) SetConfig(cfg Config) error {
	if errors := cfg.Validate(); len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}

	m.mu.Lock()
	m.config = cfg
	callback := m.OnConfigChange
	m.mu.Unlock()

	if callback != nil {
		if err := callback(cfg); err != nil {
			return fmt.Errorf("failed to apply config: %w", err)
		}
	}

	return nil
}

// Setters for UpdateConfig, keyed by JSON field name.
var (
	intFields = map[string]func(*Config, int){
		"width":   func(c *Config, v int) { c.Width = v },
		"height":  func(c *Config, v int) { c.Height = v },
		"quality": func(c *Config, v int) { c.Quality = v },
	}
	floatFields = map[string]func(*Config, float64){
		"horizontal_fov": func(c *Config, v float64) { c.HorizontalFOV = v },
		"vertical_fov":   func(c *Config, v float64) { c.VerticalFOV = v },
		"depth_scale":    func(c *Config, v float64) { c.DepthScale = v },
		"max_depth":      func(c *Config, v float64) { c.MaxDepth = v },
	}
)

// UpdateConfig applies a partial update, as decoded from a JSON body.
// "preset" replaces the whole config first; other known fields then
// override it. Unknown fields and values of the wrong type are ignored.
func (m *Manager) UpdateConfig(params map[string]interface{}) error {
	cfg := m.GetConfig()

	if name, ok := params["preset"].(string); ok {
		preset := GetPreset(name)
		if preset == nil {
			return fmt.Errorf("unknown preset: %s", name)
		}
		cfg = *preset
	}

	for key, value := range params {
		if set, ok := intFields[key]; ok {
			if v, ok := toInt(value); ok {
				set(&cfg, v)
			}
		} else if set, ok := floatFields[key]; ok {
			if v, ok := toFloat(value); ok {
				set(&cfg, v)
			}
		}
	}

	return m.SetConfig(cfg)
}

// GetConfigJSON returns the current config as a map for JSON serialization.
func (m *Manager) GetConfigJSON() map[string]interface{} {
	cfg := m.GetConfig()

	data, _ := json.Marshal(cfg)
	var result map[string]interface{}
	json.Unmarshal(data, &result)

	return result
}

// Helper functions for type conversion

func toInt(v interface{}) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}
