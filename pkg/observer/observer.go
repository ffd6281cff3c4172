// Package observer answers one question for a control loop: has a robot
// been seen by this camera, and where?
//
// A DroneCameraObserver registers with a camera controller. The controller
// calls ProcessImages on its workers to run detection over each capture,
// then later hands the verdict to ImageProcessingComplete on the control
// loop's goroutine (camera.Controller.Update). Only that call mutates the
// found/position state, which the loop reads back with IsRobotFound and
// GetRobotPosition.
package observer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/drone-observer/internal/log"
	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/detection"
	"github.com/teslashibe/drone-observer/pkg/geom"
)

// Sentinel errors for common conditions.
var (
	// ErrNilController is returned by New without a controller.
	ErrNilController = errors.New("observer: nil camera controller")

	// ErrImageCount is returned when a capture does not carry exactly a
	// visual and a depth image.
	ErrImageCount = errors.New("observer: need exactly two images (visual, depth)")

	// ErrDecode wraps image decoding failures.
	ErrDecode = errors.New("observer: decode failed")

	// ErrDetect wraps detector failures.
	ErrDetect = errors.New("observer: detection failed")
)

// Controller is what an observer needs from its camera controller.
type Controller = camera.Registrar[detection.Result]

// Status is a point-in-time copy of the observer state.
type Status struct {
	Camera     camera.CameraID `json:"camera"`
	Found      bool            `json:"found"`
	Position   geom.Vector3    `json:"position"`
	Detections uint64          `json:"detections"`
	Completed  uint64          `json:"completed"`
	LastSeen   time.Time       `json:"last_seen"`
}

// DroneCameraObserver tracks whether its camera has seen the robot.
type DroneCameraObserver struct {
	id         camera.CameraID
	controller Controller
	detector   detection.Detector
	decoder    camera.Decoder
	logger     *slog.Logger

	mu            sync.RWMutex
	hasFoundRobot bool
	robotPosition geom.Vector3
	detections    uint64
	completed     uint64
	lastSeen      time.Time
}

// Option configures a DroneCameraObserver.
type Option func(*DroneCameraObserver)

// WithDetector sets the detection backend.
func WithDetector(d detection.Detector) Option {
	return func(o *DroneCameraObserver) { o.detector = d }
}

// WithDecoder sets the image decoder.
func WithDecoder(d camera.Decoder) Option {
	return func(o *DroneCameraObserver) { o.decoder = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *DroneCameraObserver) { o.logger = l }
}

// New creates an observer for camera id and registers it with controller.
// If registration fails no observer is returned.
func New(id camera.CameraID, controller Controller, opts ...Option) (*DroneCameraObserver, error) {
	if controller == nil {
		return nil, ErrNilController
	}

	o := &DroneCameraObserver{
		id:         id,
		controller: controller,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.detector == nil {
		o.detector = detection.NewColorDepthDetector(detection.DefaultConfig())
	}
	if o.decoder == nil {
		o.decoder = camera.DefaultDecoder()
	}
	if o.logger == nil {
		o.logger = log.L()
	}
	o.logger = o.logger.With("component", "observer", "camera", id)

	if err := controller.AddObserver(o); err != nil {
		return nil, fmt.Errorf("observer: register camera %s: %w", id, err)
	}
	o.logger.Debug("observer registered")
	return o, nil
}

// ID returns the camera this observer watches.
func (o *DroneCameraObserver) ID() camera.CameraID {
	return o.id
}

// TakePicture asks the controller for a new capture from this camera.
// It does not wait for the result.
func (o *DroneCameraObserver) TakePicture() {
	o.controller.TakePicture(o.id)
}

// ProcessImages runs detection over one capture. ok is false when the
// capture came from a camera this observer does not watch.
//
// images[0] is the visual image and images[1] the depth image. details is
// passed through untouched. Safe to call from several goroutines at once:
// it reads nothing but the immutable camera id.
func (o *DroneCameraObserver) ProcessImages(ctx context.Context, source camera.CameraID, pos geom.Vector3, images []camera.RawImage, details camera.Details) (detection.Result, bool, error) {
	if !o.id.Matches(source) {
		return detection.Result{}, false, nil
	}
	if len(images) != 2 {
		return detection.Result{}, false, fmt.Errorf("%w: got %d", ErrImageCount, len(images))
	}
	if err := ctx.Err(); err != nil {
		return detection.Result{}, false, err
	}

	decoded := make([]image.Image, len(images))
	for i, raw := range images {
		img, err := o.decoder.Decode(raw)
		if err != nil {
			return detection.Result{}, false, fmt.Errorf("%w: image %d (%d bytes): %w", ErrDecode, i, raw.Len(), err)
		}
		decoded[i] = img
	}

	if err := ctx.Err(); err != nil {
		return detection.Result{}, false, err
	}

	verdict, err := o.detector.Detect(decoded, pos)
	if err != nil {
		return detection.Result{}, false, fmt.Errorf("%w: %w", ErrDetect, err)
	}

	result := detection.Result{Found: verdict.Found}
	if verdict.Found {
		result.Position = verdict.Position
	}

	o.logger.Debug("processed capture",
		"source", source, "found", result.Found, "position", result.Position)
	return result, true, nil
}

// ImageProcessingComplete records a verdict from ProcessImages.
// A found verdict marks the robot found and overwrites its position.
// A not-found verdict changes nothing: the robot is never "lost".
func (o *DroneCameraObserver) ImageProcessingComplete(result detection.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.completed++
	if !result.Found {
		return
	}

	first := !o.hasFoundRobot
	o.hasFoundRobot = true
	o.robotPosition = result.Position
	o.detections++
	o.lastSeen = time.Now()

	if first {
		o.logger.Info("robot found", "position", result.Position)
	} else {
		o.logger.Debug("robot position updated", "position", result.Position)
	}
}

// IsRobotFound reports whether any capture has found the robot.
func (o *DroneCameraObserver) IsRobotFound() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.hasFoundRobot
}

// GetRobotPosition returns the last known robot position.
// Only meaningful when IsRobotFound is true.
func (o *DroneCameraObserver) GetRobotPosition() geom.Vector3 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.robotPosition
}

// Snapshot returns the current state in one consistent read.
func (o *DroneCameraObserver) Snapshot() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return Status{
		Camera:     o.id,
		Found:      o.hasFoundRobot,
		Position:   o.robotPosition,
		Detections: o.detections,
		Completed:  o.completed,
		LastSeen:   o.lastSeen,
	}
}

var _ camera.Observer[detection.Result] = (*DroneCameraObserver)(nil)
