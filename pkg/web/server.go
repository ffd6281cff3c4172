// Package web serves the observer's HTTP API and event stream.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/hub"
	"github.com/teslashibe/drone-observer/pkg/observer"
)

// Observer is the observer state the server reports.
type Observer interface {
	ID() camera.CameraID
	Snapshot() observer.Status
}

// Controller is the camera controller surface the server drives.
type Controller interface {
	Request(id camera.CameraID) (uuid.UUID, error)
	Stats() camera.Stats
}

// Config configures the server.
type Config struct {
	Port string

	// Previews attaches the visual JPEG to capture events.
	Previews bool

	Logger *slog.Logger
}

// Server is the observer API server
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger

	observer   Observer
	controller Controller
	manager    *camera.Manager

	events *hub.Hub

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewServer creates the server. manager may be nil, in which case the
// camera config routes answer 404.
func NewServer(cfg Config, obs Observer, ctrl Controller, manager *camera.Manager) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:        cfg,
		logger:     logger.With("component", "web"),
		observer:   obs,
		controller: ctrl,
		manager:    manager,
		events:     hub.New("events", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Drone Observer",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Post("/capture", s.handleCapture)
	api.Get("/camera/config", s.handleGetCameraConfig)
	api.Put("/camera/config", s.handleUpdateCameraConfig)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Events returns the event hub.
func (s *Server) Events() *hub.Hub {
	return s.events
}

// startHub runs the event hub until Shutdown.
func (s *Server) startHub() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.events.Run(ctx)
}

// Start listens on the configured port and blocks until Shutdown.
func (s *Server) Start() error {
	s.startHub()
	s.logger.Info("listening", "addr", ":"+s.cfg.Port)
	return s.app.Listen(":" + s.cfg.Port)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	s.startHub()
	s.logger.Info("listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("server stopped", "error", err)
		}
	}()
}

// Shutdown stops the hub, which closes event streams, then the server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-s.events.Done()
	}
	return s.app.Shutdown()
}
