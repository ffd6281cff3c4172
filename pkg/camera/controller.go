package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/drone-observer/pkg/geom"
	"golang.org/x/sync/errgroup"
)

// Observer receives captures from a Controller.
//
// ProcessImages runs on controller workers, possibly several at once, and
// must not touch state that ImageProcessingComplete mutates. It returns
// ok=false when the capture does not concern the observer.
// ImageProcessingComplete runs on whatever goroutine calls Controller.Update.
type Observer[R any] interface {
	ProcessImages(ctx context.Context, source CameraID, pos geom.Vector3, images []RawImage, details Details) (result R, ok bool, err error)
	ImageProcessingComplete(result R)
}

// Registrar is the part of a controller an observer talks to.
type Registrar[R any] interface {
	AddObserver(o Observer[R]) error
	TakePicture(id CameraID)
}

// ErrStarted is returned by Start when the workers are already running.
var ErrStarted = errors.New("camera: controller already started")

// ControllerConfig sizes the controller's queues and worker pool.
type ControllerConfig struct {
	Workers   int // Concurrent ProcessImages callers
	QueueSize int // Pending capture requests before TakePicture drops
	Pending   int // Completions buffered between workers and Update

	Logger *slog.Logger
}

// DefaultControllerConfig returns sensible defaults.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Workers:   2,
		QueueSize: 16,
		Pending:   64,
	}
}

// Stats is a snapshot of controller counters.
type Stats struct {
	Requested     uint64 `json:"requested"`
	Dropped       uint64 `json:"dropped"`
	Captured      uint64 `json:"captured"`
	Processed     uint64 `json:"processed"`
	NotApplicable uint64 `json:"not_applicable"`
	Completed     uint64 `json:"completed"`
	Failed        uint64 `json:"failed"`
	Pending       int    `json:"pending"`
}

type request struct {
	id     uuid.UUID
	camera CameraID
}

type completion[R any] struct {
	capture  uuid.UUID
	observer Observer[R]
	result   R
}

// Controller owns camera sources, schedules captures on a worker pool and
// queues observer results until the control loop collects them with Update.
//
// Results travel by value through a channel, so each one is handed to
// ImageProcessingComplete exactly once.
type Controller[R any] struct {
	cfg    ControllerConfig
	logger *slog.Logger

	mu        sync.RWMutex
	sources   map[int]Source
	observers []Observer[R]
	onCapture func(Capture)
	onError   func(*CaptureError)
	closed    bool

	requests    chan request
	completions chan completion[R]

	group  *errgroup.Group
	cancel context.CancelFunc

	requested     atomic.Uint64
	dropped       atomic.Uint64
	captured      atomic.Uint64
	processed     atomic.Uint64
	notApplicable atomic.Uint64
	completed     atomic.Uint64
	failed        atomic.Uint64
}

// NewController creates a controller. Zero config fields take defaults.
func NewController[R any](cfg ControllerConfig) *Controller[R] {
	def := DefaultControllerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.Pending <= 0 {
		cfg.Pending = def.Pending
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Controller[R]{
		cfg:         cfg,
		logger:      logger.With("component", "camera-controller"),
		sources:     make(map[int]Source),
		requests:    make(chan request, cfg.QueueSize),
		completions: make(chan completion[R], cfg.Pending),
	}
}

// AddSource attaches the source for camera id.
func (c *Controller[R]) AddSource(id int, src Source) error {
	if id < 0 {
		return fmt.Errorf("camera: source id must be non-negative, got %d", id)
	}
	if src == nil {
		return fmt.Errorf("camera: nil source for camera %d", id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, exists := c.sources[id]; exists {
		return fmt.Errorf("camera: source %d already attached", id)
	}
	c.sources[id] = src
	return nil
}

// AddObserver registers o for every future capture.
func (c *Controller[R]) AddObserver(o Observer[R]) error {
	if o == nil {
		return ErrNilObserver
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	for _, existing := range c.observers {
		if sameObserver(existing, o) {
			return ErrAlreadyRegistered
		}
	}
	c.observers = append(c.observers, o)
	c.logger.Debug("observer registered", "observers", len(c.observers))
	return nil
}

// RemoveObserver unregisters o. Results already queued for it are still
// delivered by Update. Reports whether o was registered.
func (c *Controller[R]) RemoveObserver(o Observer[R]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.observers {
		if sameObserver(existing, o) {
			c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
			return true
		}
	}
	return false
}

// sameObserver compares observers without panicking on uncomparable types.
func sameObserver[R any](a, b Observer[R]) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// OnCapture sets a callback fired on a worker after each successful capture.
func (c *Controller[R]) OnCapture(fn func(Capture)) {
	c.mu.Lock()
	c.onCapture = fn
	c.mu.Unlock()
}

// OnError sets a callback fired on a worker when a capture or observer fails.
func (c *Controller[R]) OnError(fn func(*CaptureError)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// TakePicture schedules a capture for camera id without blocking.
// AnyCamera captures every attached source. When the queue is full the
// request is dropped and logged.
func (c *Controller[R]) TakePicture(id CameraID) {
	if _, err := c.Request(id); err != nil {
		c.logger.Warn("capture request dropped", "camera", id, "error", err)
	}
}

// Request is TakePicture that reports the capture id or why it was dropped.
func (c *Controller[R]) Request(id CameraID) (uuid.UUID, error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return uuid.Nil, ErrClosed
	}

	req := request{id: uuid.New(), camera: id}
	select {
	case c.requests <- req:
		c.requested.Add(1)
		return req.id, nil
	default:
		c.dropped.Add(1)
		return uuid.Nil, ErrQueueFull
	}
}

// Start launches the worker pool. Workers stop when ctx is done or Close
// is called.
func (c *Controller[R]) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.group != nil {
		return ErrStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.Workers; i++ {
		g.Go(func() error {
			c.work(gctx)
			return nil
		})
	}
	c.group, c.cancel = g, cancel

	c.logger.Info("controller started", "workers", c.cfg.Workers, "sources", len(c.sources))
	return nil
}

// Update hands queued results to their observers on the calling goroutine.
// Call it from the control loop that reads observer state. Only results
// queued before the call are delivered, so a busy pool cannot stall the loop.
// Returns the number delivered.
func (c *Controller[R]) Update() int {
	pending := len(c.completions)
	for i := 0; i < pending; i++ {
		comp := <-c.completions
		comp.observer.ImageProcessingComplete(comp.result)
		c.completed.Add(1)
	}
	return pending
}

// Close stops the workers and waits for them to exit.
// Results still queued can be collected with Update.
func (c *Controller[R]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	g, cancel := c.group, c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if g != nil {
		return g.Wait()
	}
	return nil
}

// Stats returns current counters.
func (c *Controller[R]) Stats() Stats {
	return Stats{
		Requested:     c.requested.Load(),
		Dropped:       c.dropped.Load(),
		Captured:      c.captured.Load(),
		Processed:     c.processed.Load(),
		NotApplicable: c.notApplicable.Load(),
		Completed:     c.completed.Load(),
		Failed:        c.failed.Load(),
		Pending:       len(c.completions),
	}
}

func (c *Controller[R]) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.requests:
			c.handle(ctx, req)
		}
	}
}

// handle captures every camera the request targets and runs all observers
// over each frame.
func (c *Controller[R]) handle(ctx context.Context, req request) {
	c.mu.RLock()
	var targets []int
	if req.camera.IsAny() {
		for n := range c.sources {
			targets = append(targets, n)
		}
		sort.Ints(targets)
	} else if _, ok := c.sources[req.camera.Int()]; ok {
		targets = []int{req.camera.Int()}
	}
	sources := make([]Source, len(targets))
	for i, n := range targets {
		sources[i] = c.sources[n]
	}
	observers := append([]Observer[R](nil), c.observers...)
	onCapture := c.onCapture
	c.mu.RUnlock()

	if len(targets) == 0 {
		c.fail(&CaptureError{CaptureID: req.id, Camera: req.camera, Stage: "capture", Err: ErrUnknownCamera})
		return
	}

	for i, n := range targets {
		cam := ID(n)
		frame, err := sources[i].Capture(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.fail(&CaptureError{CaptureID: req.id, Camera: cam, Stage: "capture", Err: err})
			continue
		}
		c.captured.Add(1)

		capture := Capture{ID: req.id, Camera: cam, Time: time.Now(), Frame: frame}
		if onCapture != nil {
			onCapture(capture)
		}
		c.logger.Debug("captured", "capture", req.id, "camera", cam, "images", len(frame.Images))

		for _, o := range observers {
			result, ok, err := o.ProcessImages(ctx, cam, frame.Position, frame.Images, frame.Details)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.fail(&CaptureError{CaptureID: req.id, Camera: cam, Stage: "process", Err: err})
				continue
			}
			c.processed.Add(1)
			if !ok {
				c.notApplicable.Add(1)
				continue
			}

			select {
			case c.completions <- completion[R]{capture: req.id, observer: o, result: result}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Controller[R]) fail(err *CaptureError) {
	c.failed.Add(1)
	c.logger.Warn("capture failed",
		"capture", err.CaptureID, "camera", err.Camera, "stage", err.Stage, "error", err.Err)

	c.mu.RLock()
	onError := c.onError
	c.mu.RUnlock()
	if onError != nil {
		onError(err)
	}
}
