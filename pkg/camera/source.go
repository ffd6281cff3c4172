package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/drone-observer/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Source produces one frame per call.
type Source interface {
	Capture(ctx context.Context) (Frame, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context) (Frame, error)

// Capture calls f(ctx).
func (f SourceFunc) Capture(ctx context.Context) (Frame, error) {
	return f(ctx)
}

// Default look of the simulated scene.
var (
	DefaultRobotColor      = color.RGBA{R: 220, G: 30, B: 30, A: 255}
	DefaultBackgroundColor = color.RGBA{R: 90, G: 110, B: 90, A: 255}
)

// SimSource renders a visual JPEG and a 16-bit PNG depth map of a scene
// holding at most one spherical robot.
//
// The camera looks along +X from its position. Image right is -Y and
// image down is -Z. Depth samples store the distance along X in units of
// Config.DepthScale; zero means no return.
type SimSource struct {
	manager *Manager

	mu          sync.RWMutex
	pose        geom.Vector3
	robot       *geom.Vector3
	robotRadius float64
	robotColor  color.RGBA
	background  color.RGBA

	frames atomic.Uint64
}

// NewSimSource creates a simulated camera using the capture settings of m.
// A nil manager uses DefaultConfig.
func NewSimSource(m *Manager) *SimSource {
	if m == nil {
		m = NewManager()
	}
	return &SimSource{
		manager:     m,
		robotRadius: 0.3,
		robotColor:  DefaultRobotColor,
		background:  DefaultBackgroundColor,
	}
}

// SetPose moves the camera.
func (s *SimSource) SetPose(p geom.Vector3) {
	s.mu.Lock()
	s.pose = p
	s.mu.Unlock()
}

// Pose returns the camera position.
func (s *SimSource) Pose() geom.Vector3 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pose
}

// PlaceRobot puts the robot at p with the given radius in meters.
func (s *SimSource) PlaceRobot(p geom.Vector3, radius float64) {
	s.mu.Lock()
	s.robot = &p
	s.robotRadius = radius
	s.mu.Unlock()
}

// RemoveRobot empties the scene.
func (s *SimSource) RemoveRobot() {
	s.mu.Lock()
	s.robot = nil
	s.mu.Unlock()
}

// Frames returns how many frames have been rendered.
func (s *SimSource) Frames() uint64 {
	return s.frames.Load()
}

// Capture implements Source.
func (s *SimSource) Capture(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	cfg := s.manager.GetConfig()

	s.mu.RLock()
	pose := s.pose
	var robot *geom.Vector3
	if s.robot != nil {
		r := *s.robot
		robot = &r
	}
	radius := s.robotRadius
	fg, bg := s.robotColor, s.background
	s.mu.RUnlock()

	visual := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	depth := image.NewGray16(image.Rect(0, 0, cfg.Width, cfg.Height))
	for i := 0; i < len(visual.Pix); i += 4 {
		visual.Pix[i], visual.Pix[i+1], visual.Pix[i+2], visual.Pix[i+3] = bg.R, bg.G, bg.B, bg.A
	}

	visible := false
	if robot != nil {
		visible = drawRobot(cfg, pose, *robot, radius, fg, visual, depth)
	}

	var vbuf, dbuf bytes.Buffer
	if err := jpeg.Encode(&vbuf, visual, &jpeg.Options{Quality: cfg.Quality}); err != nil {
		return Frame{}, fmt.Errorf("encode visual: %w", err)
	}
	if err := png.Encode(&dbuf, depth); err != nil {
		return Frame{}, fmt.Errorf("encode depth: %w", err)
	}

	n := s.frames.Add(1)
	return Frame{
		Position: pose,
		Images: []RawImage{
			{Data: vbuf.Bytes()},
			{Data: dbuf.Bytes()},
		},
		Details: Details{
			"source":        "sim",
			"frame":         n,
			"width":         cfg.Width,
			"height":        cfg.Height,
			"robot_visible": visible,
		},
	}, nil
}

// drawRobot paints the robot disc into both images.
// Returns false when the robot is behind the camera, beyond the far clip or
// entirely out of frame.
func drawRobot(cfg Config, pose, robot geom.Vector3, radius float64, fg color.RGBA, visual *image.RGBA, depth *image.Gray16) bool {
	d := r3.Sub(robot, pose)
	if d.X <= radius || d.X > cfg.MaxDepth {
		return false
	}

	w, h := float64(cfg.Width), float64(cfg.Height)
	cx := (math.Atan(-d.Y/d.X)/cfg.HorizontalFOV + 0.5) * w
	cy := (math.Atan(-d.Z/d.X)/cfg.VerticalFOV + 0.5) * h
	rpx := math.Atan(radius/d.X) / cfg.HorizontalFOV * w
	if rpx < 1 {
		rpx = 1
	}

	sample := uint16(math.Round(d.X / cfg.DepthScale))
	drawn := false

	minX, maxX := int(math.Floor(cx-rpx)), int(math.Ceil(cx+rpx))
	minY, maxY := int(math.Floor(cy-rpx)), int(math.Ceil(cy+rpx))
	b := visual.Bounds()
	for y := max(minY, b.Min.Y); y < min(maxY+1, b.Max.Y); y++ {
		for x := max(minX, b.Min.X); x < min(maxX+1, b.Max.X); x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy > rpx*rpx {
				continue
			}
			visual.SetRGBA(x, y, fg)
			depth.SetGray16(x, y, color.Gray16{Y: sample})
			drawn = true
		}
	}
	return drawn
}
