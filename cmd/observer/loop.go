package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/detection"
	"github.com/teslashibe/drone-observer/pkg/geom"
	"github.com/teslashibe/drone-observer/pkg/observer"
)

// Events receives control loop notifications. *web.Server implements it.
type Events interface {
	PublishDetection(st observer.Status) error
	PublishStatus() error
}

// loop is the drone's control loop: it asks for pictures, collects
// finished results and reacts to the observer state.
type loop struct {
	observer   *observer.DroneCameraObserver
	controller *camera.Controller[detection.Result]
	events     Events // may be nil
	logger     *slog.Logger

	updateEvery  time.Duration
	captureEvery time.Duration
	statusEvery  time.Duration

	lastDetections uint64
}

// run blocks until ctx is done.
func (l *loop) run(ctx context.Context) {
	update := time.NewTicker(l.updateEvery)
	defer update.Stop()
	capture := time.NewTicker(l.captureEvery)
	defer capture.Stop()
	status := time.NewTicker(l.statusEvery)
	defer status.Stop()

	l.observer.TakePicture()

	for {
		select {
		case <-ctx.Done():
			return
		case <-capture.C:
			l.observer.TakePicture()
		case <-update.C:
			l.tick()
		case <-status.C:
			if l.events != nil {
				if err := l.events.PublishStatus(); err != nil {
					l.logger.Warn("publish status", "error", err)
				}
			}
		}
	}
}

// tick delivers finished results and reports position changes.
func (l *loop) tick() {
	if l.controller.Update() == 0 {
		return
	}

	st := l.observer.Snapshot()
	if st.Detections == l.lastDetections {
		return
	}
	if l.lastDetections == 0 {
		l.logger.Info("robot located", "position", st.Position)
	}
	l.lastDetections = st.Detections

	if l.events != nil {
		if err := l.events.PublishDetection(st); err != nil {
			l.logger.Warn("publish detection", "error", err)
		}
	}
}

// parseVector parses "x,y,z".
func parseVector(s string) (geom.Vector3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geom.Vector3{}, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Vector3{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		v[i] = f
	}
	return geom.V(v[0], v[1], v[2]), nil
}
