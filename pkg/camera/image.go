package camera

import (
	"bytes"
	"fmt"
	"image"
	"time"

	// Formats understood by the default decoder.
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/teslashibe/drone-observer/pkg/geom"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// RawImage is an encoded image buffer as produced by a camera.
type RawImage struct {
	Data []byte
}

// Len returns the buffer length in bytes.
func (r RawImage) Len() int {
	return len(r.Data)
}

// Details is an open key/value record travelling with a capture.
// Observers treat it as read-only.
type Details map[string]any

// Frame is what a Source produces for one capture.
type Frame struct {
	// Position is where the camera was when the images were taken.
	Position geom.Vector3

	// Images holds the visual image at index 0 and the depth image at index 1.
	Images []RawImage

	Details Details
}

// Capture is a Frame tagged with its request.
type Capture struct {
	ID     uuid.UUID
	Camera CameraID
	Time   time.Time
	Frame
}

// Decoder turns raw buffers into images.
type Decoder interface {
	Decode(raw RawImage) (image.Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(raw RawImage) (image.Image, error)

// Decode calls f(raw).
func (f DecoderFunc) Decode(raw RawImage) (image.Image, error) {
	return f(raw)
}

// StdDecoder decodes JPEG, PNG, BMP, TIFF and WebP in pure Go.
type StdDecoder struct{}

// DefaultDecoder returns the pure Go decoder.
func DefaultDecoder() Decoder {
	return StdDecoder{}
}

// Decode implements Decoder.
func (StdDecoder) Decode(raw RawImage) (image.Image, error) {
	if raw.Len() == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// DecoderByName returns "std" (default) or "gocv".
func DecoderByName(name string) (Decoder, error) {
	switch name {
	case "", "std":
		return DefaultDecoder(), nil
	case "gocv":
		return NewGocvDecoder()
	default:
		return nil, fmt.Errorf("unknown decoder: %s", name)
	}
}
