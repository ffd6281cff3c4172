package web

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/hub"
	"github.com/teslashibe/drone-observer/pkg/observer"
	"github.com/teslashibe/drone-observer/pkg/protocol"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Observer   observer.Status `json:"observer"`
	Controller camera.Stats    `json:"controller"`
	Clients    int             `json:"clients"`
}

// handleHealth reports liveness
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleStatus returns the observer and controller state
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{
		Observer:   s.observer.Snapshot(),
		Controller: s.controller.Stats(),
		Clients:    s.events.ClientCount(),
	})
}

// handleCapture requests a capture. ?camera=N picks a camera, -1 for all;
// the default is the observer's own camera.
func (s *Server) handleCapture(c *fiber.Ctx) error {
	id := s.observer.ID()
	if q := c.Query("camera"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "camera must be an integer",
			})
		}
		id = camera.ID(n)
	}

	captureID, err := s.controller.Request(id)
	switch {
	case errors.Is(err, camera.ErrQueueFull), errors.Is(err, camera.ErrClosed):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"capture_id": captureID.String(),
		"camera":     id,
	})
}

// handleGetCameraConfig returns the capture configuration
func (s *Server) handleGetCameraConfig(c *fiber.Ctx) error {
	if s.manager == nil {
		return fiber.ErrNotFound
	}
	return c.JSON(fiber.Map{
		"config":  s.manager.GetConfigJSON(),
		"presets": camera.PresetNames(),
	})
}

// handleUpdateCameraConfig applies a partial config update
func (s *Server) handleUpdateCameraConfig(c *fiber.Ctx) error {
	if s.manager == nil {
		return fiber.ErrNotFound
	}

	var params map[string]interface{}
	if err := c.BodyParser(&params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	if err := s.manager.UpdateConfig(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	s.logger.Info("camera config updated", "params", params)
	return c.JSON(fiber.Map{
		"config": s.manager.GetConfigJSON(),
	})
}

// handleEventsWS streams events to a dashboard. The current status is sent
// first; pings are answered with pongs.
func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	if client == nil {
		return
	}

	if msg, err := s.statusMessage(); err == nil {
		client.Send(msg)
	}

	client.Run(s.handleClientMessage)
}

func (s *Server) handleClientMessage(data []byte) (hub.Message, bool) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("ignoring client message", "error", err)
		return hub.Message{}, false
	}

	switch msg.Type {
	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return hub.Message{}, false
		}
		pong, err := protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return hub.Message{}, false
		}
		reply, err := s.wrap(pong)
		return reply, err == nil
	case protocol.TypeStatus:
		// A status message from a client asks for a fresh snapshot.
		reply, err := s.statusMessage()
		return reply, err == nil
	default:
		return hub.Message{}, false
	}
}
