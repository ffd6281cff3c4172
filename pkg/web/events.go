package web

import (
	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/geom"
	"github.com/teslashibe/drone-observer/pkg/hub"
	"github.com/teslashibe/drone-observer/pkg/observer"
	"github.com/teslashibe/drone-observer/pkg/protocol"
)

func position(v geom.Vector3) protocol.Position {
	return protocol.Position{X: v.X, Y: v.Y, Z: v.Z}
}

func controllerStats(st camera.Stats) protocol.ControllerStats {
	return protocol.ControllerStats{
		Requested:     st.Requested,
		Dropped:       st.Dropped,
		Captured:      st.Captured,
		Processed:     st.Processed,
		NotApplicable: st.NotApplicable,
		Completed:     st.Completed,
		Failed:        st.Failed,
		Pending:       st.Pending,
	}
}

// StatusData converts observer and controller state to its wire form.
func StatusData(st observer.Status, stats camera.Stats) protocol.StatusData {
	data := protocol.StatusData{
		Camera:     st.Camera.Int(),
		Found:      st.Found,
		Detections: st.Detections,
		Completed:  st.Completed,
		Controller: controllerStats(stats),
	}
	if st.Found {
		data.Position = position(st.Position)
	}
	if !st.LastSeen.IsZero() {
		data.LastSeen = st.LastSeen.UnixMilli()
	}
	return data
}

func (s *Server) statusMessage() (hub.Message, error) {
	msg, err := protocol.NewStatusMessage(StatusData(s.observer.Snapshot(), s.controller.Stats()))
	if err != nil {
		return hub.Message{}, err
	}
	return s.wrap(msg)
}

func (s *Server) wrap(msg *protocol.Message) (hub.Message, error) {
	data, err := msg.Bytes()
	if err != nil {
		return hub.Message{}, err
	}
	return hub.NewJSONMessage(data), nil
}

func (s *Server) publish(msg *protocol.Message, err error) error {
	if err != nil {
		return err
	}
	out, err := s.wrap(msg)
	if err != nil {
		return err
	}
	s.events.Broadcast(out)
	return nil
}

// PublishStatus broadcasts the current status.
func (s *Server) PublishStatus() error {
	return s.publish(protocol.NewStatusMessage(StatusData(s.observer.Snapshot(), s.controller.Stats())))
}

// PublishDetection broadcasts a robot fix.
func (s *Server) PublishDetection(st observer.Status) error {
	return s.publish(protocol.NewDetectionMessage(st.Camera.Int(), st.Found, position(st.Position), st.Detections))
}

// PublishCapture broadcasts a capture summary. Safe to call from
// controller workers.
func (s *Server) PublishCapture(c camera.Capture) error {
	data := protocol.CaptureData{
		CaptureID: c.ID.String(),
		Camera:    c.Camera.Int(),
		Position:  position(c.Position),
		Images:    len(c.Images),
		Details:   map[string]any(c.Details),
	}
	for _, img := range c.Images {
		data.Bytes += img.Len()
	}

	var preview []byte
	if s.cfg.Previews && len(c.Images) > 0 {
		preview = c.Images[0].Data
	}
	return s.publish(protocol.NewCaptureMessage(data, preview))
}

// PublishError broadcasts a capture failure. Safe to call from controller
// workers.
func (s *Server) PublishError(err *camera.CaptureError) error {
	return s.publish(protocol.NewErrorMessage(err.CaptureID.String(), err.Camera.Int(), err.Stage, err.Err))
}
