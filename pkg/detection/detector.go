// Package detection finds the robot in a visual + depth image pair.
package detection

import (
	"errors"
	"image"
	"image/color"

	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/geom"
)

var (
	// ErrImageCount is returned when the detector is not given exactly
	// a visual and a depth image.
	ErrImageCount = errors.New("detection: need exactly two images (visual, depth)")

	// ErrNoDepth is returned when a robot is seen but the depth map has
	// no return inside it.
	ErrNoDepth = errors.New("detection: no depth samples inside blob")
)

// Result is the verdict for one image pair.
// Position is only meaningful when Found is true.
type Result struct {
	Found    bool         `json:"found"`
	Position geom.Vector3 `json:"position"`
}

// Detector is the interface for robot detection backends.
type Detector interface {
	// Detect looks for the robot in images[0] (visual) using images[1]
	// (depth), for a camera located at pos.
	Detect(images []image.Image, pos geom.Vector3) (Result, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(images []image.Image, pos geom.Vector3) (Result, error)

// Detect calls f(images, pos).
func (f DetectorFunc) Detect(images []image.Image, pos geom.Vector3) (Result, error) {
	return f(images, pos)
}

// Config holds detector configuration
type Config struct {
	TargetColor    color.RGBA // Robot paint colour
	ColorTolerance float64    // Max RGB distance to count as robot (0-441)
	MinBlobPixels  int        // Smaller blobs are noise

	HorizontalFOV float64 // Radians
	VerticalFOV   float64 // Radians
	DepthScale    float64 // Meters per depth sample unit
}

// DefaultConfig returns defaults matching camera.DefaultConfig and the
// simulated robot colour.
func DefaultConfig() Config {
	return FromCamera(camera.DefaultConfig())
}

// FromCamera builds a detector config matching a capture config.
func FromCamera(cam camera.Config) Config {
	return Config{
		TargetColor:    camera.DefaultRobotColor,
		ColorTolerance: 80,
		MinBlobPixels:  12,
		HorizontalFOV:  cam.HorizontalFOV,
		VerticalFOV:    cam.VerticalFOV,
		DepthScale:     cam.DepthScale,
	}
}

// Candidate is a blob of robot-coloured pixels.
// Coordinates are normalized to 0-1 of the visual image.
type Candidate struct {
	X, Y       float64 // Bounding box top left
	W, H       float64 // Bounding box size
	CX, CY     float64 // Pixel centroid
	Pixels     int     // Member pixel count
	Confidence float64 // Mean colour closeness (0-1)

	label int32
}

// Center returns the center of the bounding box
func (c Candidate) Center() (x, y float64) {
	return c.X + c.W/2, c.Y + c.H/2
}

// Area returns the area of the bounding box
func (c Candidate) Area() float64 {
	return c.W * c.H
}

// SelectBest picks the best candidate from several blobs.
// Priority: confidence * 0.7 + relative area * 0.3
func SelectBest(cands []Candidate) *Candidate {
	if len(cands) == 0 {
		return nil
	}

	if len(cands) == 1 {
		return &cands[0]
	}

	maxArea := 0.0
	for _, c := range cands {
		if c.Area() > maxArea {
			maxArea = c.Area()
		}
	}

	bestScore := -1.0
	var best *Candidate

	for i := range cands {
		rel := 0.0
		if maxArea > 0 {
			rel = cands[i].Area() / maxArea
		}
		score := cands[i].Confidence*0.7 + rel*0.3
		if score > bestScore {
			bestScore = score
			best = &cands[i]
		}
	}

	return best
}
