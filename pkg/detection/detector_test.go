package detection

import (
	"testing"

	"github.com/teslashibe/drone-observer/pkg/camera"
)

func TestCandidate_Center(t *testing.T) {
	tests := []struct {
		name    string
		cand    Candidate
		expectX float64
		expectY float64
	}{
		{
			name:    "center of image",
			cand:    Candidate{X: 0.25, Y: 0.25, W: 0.5, H: 0.5},
			expectX: 0.5,
			expectY: 0.5,
		},
		{
			name:    "top left corner",
			cand:    Candidate{X: 0, Y: 0, W: 0.2, H: 0.2},
			expectX: 0.1,
			expectY: 0.1,
		},
		{
			name:    "bottom right corner",
			cand:    Candidate{X: 0.8, Y: 0.8, W: 0.2, H: 0.2},
			expectX: 0.9,
			expectY: 0.9,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, y := tc.cand.Center()
			if x != tc.expectX {
				t.Errorf("Center X: got %.2f, want %.2f", x, tc.expectX)
			}
			if y != tc.expectY {
				t.Errorf("Center Y: got %.2f, want %.2f", y, tc.expectY)
			}
		})
	}
}

func TestCandidate_Area(t *testing.T) {
	tests := []struct {
		name   string
		cand   Candidate
		expect float64
	}{
		{"quarter of image", Candidate{W: 0.5, H: 0.5}, 0.25},
		{"distant robot", Candidate{W: 0.1, H: 0.2}, 0.02},
		{"full image", Candidate{W: 1.0, H: 1.0}, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			area := tc.cand.Area()
			diff := area - tc.expect
			if diff < -0.0001 || diff > 0.0001 {
				t.Errorf("Area: got %.4f, want %.4f", area, tc.expect)
			}
		})
	}
}

func TestSelectBest(t *testing.T) {
	tests := []struct {
		name      string
		cands     []Candidate
		expectNil bool
		expectIdx int
	}{
		{
			name:      "empty list",
			cands:     []Candidate{},
			expectNil: true,
		},
		{
			name: "single blob",
			cands: []Candidate{
				{X: 0.4, Y: 0.4, W: 0.2, H: 0.2, Confidence: 0.9},
			},
			expectIdx: 0,
		},
		{
			name: "closer colour beats larger area",
			cands: []Candidate{
				{X: 0.0, Y: 0.0, W: 0.4, H: 0.4, Confidence: 0.5},
				{X: 0.3, Y: 0.3, W: 0.2, H: 0.2, Confidence: 0.95},
			},
			expectIdx: 1, // 0.95*0.7 + 0.25*0.3 = 0.74 vs 0.5*0.7 + 1.0*0.3 = 0.65
		},
		{
			name: "same colour picks larger",
			cands: []Candidate{
				{X: 0.0, Y: 0.0, W: 0.5, H: 0.5, Confidence: 0.8},
				{X: 0.3, Y: 0.3, W: 0.1, H: 0.1, Confidence: 0.8},
			},
			expectIdx: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			best := SelectBest(tc.cands)
			if tc.expectNil {
				if best != nil {
					t.Errorf("SelectBest: expected nil, got %+v", best)
				}
				return
			}
			if best == nil {
				t.Fatal("SelectBest: expected non-nil, got nil")
			}
			if best != &tc.cands[tc.expectIdx] {
				t.Errorf("SelectBest: got %+v, want %+v", best, tc.cands[tc.expectIdx])
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cam := camera.DefaultConfig()

	if cfg.TargetColor != camera.DefaultRobotColor {
		t.Errorf("TargetColor: got %v, want %v", cfg.TargetColor, camera.DefaultRobotColor)
	}
	if cfg.HorizontalFOV != cam.HorizontalFOV || cfg.VerticalFOV != cam.VerticalFOV {
		t.Error("DefaultConfig: FOV should follow the camera defaults")
	}
	if cfg.DepthScale != cam.DepthScale {
		t.Errorf("DepthScale: got %v, want %v", cfg.DepthScale, cam.DepthScale)
	}
	if cfg.MinBlobPixels <= 0 {
		t.Error("DefaultConfig: MinBlobPixels should be positive")
	}
}

func TestFromCamera(t *testing.T) {
	cam := camera.NarrowConfig()
	cfg := FromCamera(cam)

	if cfg.HorizontalFOV != cam.HorizontalFOV {
		t.Errorf("HorizontalFOV: got %v, want %v", cfg.HorizontalFOV, cam.HorizontalFOV)
	}
	if cfg.DepthScale != 0.002 {
		t.Errorf("DepthScale: got %v, want 0.002", cfg.DepthScale)
	}
}
