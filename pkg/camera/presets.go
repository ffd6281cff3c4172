package camera

// Preset names for common configurations
const (
	PresetDefault = "default"
	PresetLow     = "low"
	PresetHigh    = "high"
	PresetNarrow  = "narrow"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault: DefaultConfig(),
		PresetLow:     LowConfig(),
		PresetHigh:    HighConfig(),
		PresetNarrow:  NarrowConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLow,
		PresetHigh,
		PresetNarrow,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowConfig returns a 320x240 configuration for slow hardware.
func LowConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	cfg.Quality = 80
	return cfg
}

// HighConfig returns a 1280x720 configuration.
// Finds smaller robots at the cost of decode time.
func HighConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	cfg.VerticalFOV = cfg.HorizontalFOV * 720 / 1280
	return cfg
}

// NarrowConfig returns a telephoto-like configuration with a 40° FOV
// and a longer depth range.
func NarrowConfig() Config {
	cfg := DefaultConfig()
	cfg.HorizontalFOV = 0.698
	cfg.VerticalFOV = 0.698 * 480 / 640
	cfg.MaxDepth = 40
	cfg.DepthScale = 0.002
	return cfg
}
