//go:build gocv

package camera

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// GocvDecoder decodes buffers with OpenCV.
// 16-bit single channel images (depth maps) come back as *image.Gray16.
type GocvDecoder struct{}

// NewGocvDecoder returns an OpenCV backed decoder.
func NewGocvDecoder() (Decoder, error) {
	return GocvDecoder{}, nil
}

// Decode implements Decoder.
func (GocvDecoder) Decode(raw RawImage) (image.Image, error) {
	if raw.Len() == 0 {
		return nil, ErrEmptyImage
	}

	mat, err := gocv.IMDecode(raw.Data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decode image: %w", ErrEmptyImage)
	}

	if mat.Type() == gocv.MatTypeCV16UC1 {
		out := image.NewGray16(image.Rect(0, 0, mat.Cols(), mat.Rows()))
		for y := 0; y < mat.Rows(); y++ {
			for x := 0; x < mat.Cols(); x++ {
				v := uint16(mat.GetShortAt(y, x))
				i := out.PixOffset(x, y)
				out.Pix[i] = uint8(v >> 8)
				out.Pix[i+1] = uint8(v)
			}
		}
		return out, nil
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert mat: %w", err)
	}
	return img, nil
}
