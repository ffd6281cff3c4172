// Package camera models the capture side of the observer: camera ids,
// raw image buffers, decoders, frame sources and the controller that
// schedules captures and hands results back to the control loop.
package camera

import "math"

// Config holds the capture parameters of a camera.
// These can be modified via the camera API at runtime.
type Config struct {
	// === Resolution ===
	Width   int `json:"width"`   // Frame width in pixels
	Height  int `json:"height"`  // Frame height in pixels
	Quality int `json:"quality"` // JPEG quality 1-100

	// === Optics ===
	// HorizontalFOV and VerticalFOV are the full field of view in radians.
	HorizontalFOV float64 `json:"horizontal_fov"`
	VerticalFOV   float64 `json:"vertical_fov"`

	// === Depth ===
	// DepthScale converts a 16-bit depth sample to meters.
	DepthScale float64 `json:"depth_scale"`

	// MaxDepth is the far clip in meters. Samples beyond it read as zero.
	MaxDepth float64 `json:"max_depth"`
}

// Sensor limits for the simulated drone camera.
const (
	SensorMaxWidth  = 1920
	SensorMaxHeight = 1080
	SensorMaxFOV    = math.Pi * 0.9
	SensorMaxDepth  = 60.0 // meters
)

// DefaultConfig returns the recommended capture configuration.
// 640x480 keeps blob labelling cheap enough for several captures per second.
func DefaultConfig() Config {
	return Config{
		Width:   640,
		Height:  480,
		Quality: 90,

		HorizontalFOV: math.Pi / 2, // 90°
		VerticalFOV:   math.Pi / 2 * 480 / 640,

		DepthScale: 0.001, // millimeters
		MaxDepth:   20.0,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < 32 || c.Width > SensorMaxWidth {
		errors = append(errors, "width must be between 32 and 1920")
	}
	if c.Height < 32 || c.Height > SensorMaxHeight {
		errors = append(errors, "height must be between 32 and 1080")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	if c.HorizontalFOV <= 0 || c.HorizontalFOV > SensorMaxFOV {
		errors = append(errors, "horizontal_fov must be in (0, 0.9π]")
	}
	if c.VerticalFOV <= 0 || c.VerticalFOV > SensorMaxFOV {
		errors = append(errors, "vertical_fov must be in (0, 0.9π]")
	}

	if c.DepthScale <= 0 {
		errors = append(errors, "depth_scale must be positive")
	}
	if c.MaxDepth <= 0 || c.MaxDepth > SensorMaxDepth {
		errors = append(errors, "max_depth must be in (0, 60]")
	}
	// A 16-bit sample has to be able to reach the far clip.
	if c.DepthScale > 0 && c.MaxDepth/c.DepthScale > math.MaxUint16 {
		errors = append(errors, "max_depth does not fit in 16-bit samples at this depth_scale")
	}

	return errors
}
