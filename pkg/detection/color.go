package detection

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/teslashibe/drone-observer/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// ColorDepthDetector finds the robot as the best blob of its paint colour
// and places it in the world using the depth map.
//
// The camera looks along +X from the capture position. A blob right of
// center lies towards -Y, below center towards -Z. Pixel offsets map
// linearly to angles across the field of view.
type ColorDepthDetector struct {
	config Config
}

// NewColorDepthDetector creates a detector with the given config.
func NewColorDepthDetector(cfg Config) *ColorDepthDetector {
	return &ColorDepthDetector{config: cfg}
}

// Config returns the detector configuration.
func (d *ColorDepthDetector) Config() Config {
	return d.config
}

// Detect implements Detector. It keeps no state between calls and is safe
// for concurrent use.
func (d *ColorDepthDetector) Detect(images []image.Image, pos geom.Vector3) (Result, error) {
	if len(images) != 2 || images[0] == nil || images[1] == nil {
		return Result{}, ErrImageCount
	}
	visual, depth := images[0], images[1]

	cands, labels := d.Blobs(visual)
	best := SelectBest(cands)
	if best == nil {
		return Result{Found: false}, nil
	}

	sample, err := d.blobDepth(visual.Bounds(), depth, labels, best)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Found:    true,
		Position: d.project(pos, best.CX, best.CY, float64(sample)*d.config.DepthScale),
	}, nil
}

// project turns a normalized image point at the given forward distance
// into world coordinates.
func (d *ColorDepthDetector) project(pos geom.Vector3, cx, cy, dist float64) geom.Vector3 {
	ah := (cx - 0.5) * d.config.HorizontalFOV
	av := (cy - 0.5) * d.config.VerticalFOV
	offset := r3.Vec{
		X: dist,
		Y: -dist * math.Tan(ah),
		Z: -dist * math.Tan(av),
	}
	return r3.Add(pos, offset)
}

// Blobs labels 4-connected regions of target-coloured pixels and returns
// the ones with at least MinBlobPixels members, along with the label map
// (row-major, bounds-relative, -1 for background).
func (d *ColorDepthDetector) Blobs(img image.Image) ([]Candidate, []int32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, nil
	}

	tol := d.config.ColorTolerance
	closeness := make([]float64, w*h)
	labels := make([]int32, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			labels[i] = -1
			dist := colorDistance(img.At(b.Min.X+x, b.Min.Y+y), d.config.TargetColor)
			if dist <= tol {
				closeness[i] = 1 - dist/math.Max(tol, 1)
				labels[i] = 0 // unvisited member
			}
		}
	}

	var cands []Candidate
	var stack []int
	next := int32(1)
	for start := range labels {
		if labels[start] != 0 {
			continue
		}

		label := next
		next++
		labels[start] = label
		stack = append(stack[:0], start)

		count := 0
		var sumX, sumY, sumConf float64
		minX, minY, maxX, maxY := w, h, -1, -1

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w

			count++
			sumX += float64(x) + 0.5
			sumY += float64(y) + 0.5
			sumConf += closeness[i]
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for _, n := range [4]int{i - 1, i + 1, i - w, i + w} {
				if n < 0 || n >= len(labels) || labels[n] != 0 {
					continue
				}
				// Left/right neighbours must stay on the same row.
				if (n == i-1 || n == i+1) && n/w != y {
					continue
				}
				labels[n] = label
				stack = append(stack, n)
			}
		}

		if count < d.config.MinBlobPixels {
			continue
		}
		cands = append(cands, Candidate{
			X:          float64(minX) / float64(w),
			Y:          float64(minY) / float64(h),
			W:          float64(maxX-minX+1) / float64(w),
			H:          float64(maxY-minY+1) / float64(h),
			CX:         sumX / float64(count) / float64(w),
			CY:         sumY / float64(count) / float64(h),
			Pixels:     count,
			Confidence: sumConf / float64(count),
			label:      label,
		})
	}

	return cands, labels
}

// blobDepth returns the median non-zero depth sample under the blob.
// The depth map may have a different resolution than the visual image.
func (d *ColorDepthDetector) blobDepth(vb image.Rectangle, depth image.Image, labels []int32, c *Candidate) (uint16, error) {
	vw, vh := vb.Dx(), vb.Dy()
	db := depth.Bounds()
	dw, dh := db.Dx(), db.Dy()
	if dw == 0 || dh == 0 {
		return 0, fmt.Errorf("%w: empty depth image", ErrNoDepth)
	}

	x0, y0 := int(c.X*float64(vw)), int(c.Y*float64(vh))
	x1, y1 := x0+int(math.Round(c.W*float64(vw))), y0+int(math.Round(c.H*float64(vh)))

	var samples []uint16
	for y := y0; y < y1 && y < vh; y++ {
		for x := x0; x < x1 && x < vw; x++ {
			if labels[y*vw+x] != c.label {
				continue
			}
			dx := db.Min.X + x*dw/vw
			dy := db.Min.Y + y*dh/vh
			v := color.Gray16Model.Convert(depth.At(dx, dy)).(color.Gray16).Y
			if v > 0 {
				samples = append(samples, v)
			}
		}
	}

	if len(samples) == 0 {
		return 0, ErrNoDepth
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return samples[len(samples)/2], nil
}

// colorDistance is the Euclidean distance in 8-bit RGB space.
func colorDistance(c color.Color, target color.RGBA) float64 {
	r, g, b, _ := c.RGBA()
	dr := float64(r>>8) - float64(target.R)
	dg := float64(g>>8) - float64(target.G)
	db := float64(b>>8) - float64(target.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}
