package camera

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for common conditions.
var (
	// ErrNilObserver is returned when registering a nil observer.
	ErrNilObserver = errors.New("camera: nil observer")

	// ErrAlreadyRegistered is returned when an observer is registered twice.
	ErrAlreadyRegistered = errors.New("camera: observer already registered")

	// ErrClosed is returned when using a controller after Close.
	ErrClosed = errors.New("camera: controller closed")

	// ErrQueueFull is reported when a capture request cannot be queued.
	ErrQueueFull = errors.New("camera: capture queue full")

	// ErrUnknownCamera is returned when no source is attached for a camera.
	ErrUnknownCamera = errors.New("camera: unknown camera")

	// ErrEmptyImage is returned when decoding an empty buffer.
	ErrEmptyImage = errors.New("camera: empty image buffer")

	// ErrGocvUnavailable is returned when the binary was built without the gocv tag.
	ErrGocvUnavailable = errors.New("camera: built without gocv support")
)

// CaptureError ties a failure to the capture it happened in.
type CaptureError struct {
	// CaptureID identifies the capture request.
	CaptureID uuid.UUID

	// Camera is the camera the images came from.
	Camera CameraID

	// Stage is "capture" or "process".
	Stage string

	Err error
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("camera %s: %s %s: %v", e.Camera, e.Stage, e.CaptureID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CaptureError) Unwrap() error {
	return e.Err
}
