//go:build !gocv

package camera

// NewGocvDecoder returns ErrGocvUnavailable when built without the gocv tag.
func NewGocvDecoder() (Decoder, error) {
	return nil, ErrGocvUnavailable
}
