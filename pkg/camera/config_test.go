package camera

import (
	"errors"
	"testing"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
}

func TestPresets_AllValid(t *testing.T) {
	presets := Presets()
	if len(presets) != len(PresetNames()) {
		t.Fatalf("got %d presets, %d names", len(presets), len(PresetNames()))
	}
	for _, name := range PresetNames() {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Errorf("preset %q missing", name)
			continue
		}
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
	if GetPreset("fisheye") != nil {
		t.Error("unknown preset should be nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errors int
	}{
		{"valid", func(c *Config) {}, 0},
		{"tiny width", func(c *Config) { c.Width = 8 }, 1},
		{"huge height", func(c *Config) { c.Height = 4000 }, 1},
		{"quality zero", func(c *Config) { c.Quality = 0 }, 1},
		{"zero fov", func(c *Config) { c.HorizontalFOV = 0 }, 1},
		{"wide fov", func(c *Config) { c.VerticalFOV = 3.1 }, 1},
		{"negative depth scale", func(c *Config) { c.DepthScale = -1 }, 1},
		{"far clip", func(c *Config) { c.MaxDepth, c.DepthScale = 61, 0.002 }, 1},
		{"depth overflow", func(c *Config) { c.DepthScale = 0.0001 }, 1},
		{"everything", func(c *Config) {
			c.Width, c.Height, c.Quality = 0, 0, 0
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			if errs := cfg.Validate(); len(errs) != tt.errors {
				t.Errorf("Validate() = %v, want %d errors", errs, tt.errors)
			}
		})
	}
}

func TestManager_SetConfig(t *testing.T) {
	m := NewManager()

	var applied *Config
	m.OnConfigChange = func(cfg Config) error {
		applied = &cfg
		return nil
	}

	cfg := LowConfig()
	if err := m.SetConfig(cfg); err != nil {
		t.Fatalf("SetConfig: %v", err)
	}
	if m.GetConfig() != cfg {
		t.Errorf("GetConfig() = %+v, want %+v", m.GetConfig(), cfg)
	}
	if applied == nil || *applied != cfg {
		t.Error("callback not invoked with new config")
	}

	bad := cfg
	bad.Width = 1
	if err := m.SetConfig(bad); err == nil {
		t.Error("expected validation error")
	}
	if m.GetConfig() != cfg {
		t.Error("invalid config must not be stored")
	}
}

func TestManager_CallbackError(t *testing.T) {
	m := NewManager()
	boom := errors.New("sensor busy")
	m.OnConfigChange = func(Config) error { return boom }

	err := m.SetConfig(HighConfig())
	if !errors.Is(err, boom) {
		t.Errorf("SetConfig() error = %v, want wrapping %v", err, boom)
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager()

	// Values as they arrive from encoding/json.
	err := m.UpdateConfig(map[string]interface{}{
		"width":          float64(800),
		"height":         float64(600),
		"horizontal_fov": 1.2,
		"ignored":        "x",
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	cfg := m.GetConfig()
	if cfg.Width != 800 || cfg.Height != 600 || cfg.HorizontalFOV != 1.2 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Quality != DefaultConfig().Quality {
		t.Error("untouched fields should keep their value")
	}
}

func TestManager_UpdateConfigPreset(t *testing.T) {
	m := NewManager()

	// The preset applies first, then individual keys override it.
	if err := m.UpdateConfig(map[string]interface{}{"preset": PresetNarrow, "quality": 50}); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	want := NarrowConfig()
	want.Quality = 50
	if got := m.GetConfig(); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	if err := m.UpdateConfig(map[string]interface{}{"preset": "fisheye"}); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestNewManagerWithPreset(t *testing.T) {
	m, err := NewManagerWithPreset(PresetLow)
	if err != nil {
		t.Fatalf("NewManagerWithPreset: %v", err)
	}
	if m.GetConfig() != LowConfig() {
		t.Errorf("got %+v", m.GetConfig())
	}

	if _, err := NewManagerWithPreset("fisheye"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestManager_GetConfigJSON(t *testing.T) {
	m := NewManager()
	data := m.GetConfigJSON()

	for _, key := range []string{"width", "height", "quality", "horizontal_fov", "vertical_fov", "depth_scale", "max_depth"} {
		if _, ok := data[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if data["width"] != float64(640) {
		t.Errorf("width = %v", data["width"])
	}
}
