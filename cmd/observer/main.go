// observer: drone camera observer service
// Captures from simulated drone cameras, looks for the robot and serves
// the result over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/teslashibe/drone-observer/internal/config"
	"github.com/teslashibe/drone-observer/internal/log"
	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/detection"
	"github.com/teslashibe/drone-observer/pkg/geom"
	"github.com/teslashibe/drone-observer/pkg/observer"
	"github.com/teslashibe/drone-observer/pkg/web"
)

var (
	version = "0.1.0"

	cameraID = flag.Int("camera", config.DefaultCameraID, "Camera to observe (-1 for any)")
	cameras  = flag.Int("cameras", 1, "Number of simulated cameras")
	port     = flag.Int("port", config.DefaultPort, "HTTP port (0 disables the server)")
	workers  = flag.Int("workers", config.DefaultWorkers, "Image processing workers")
	preset   = flag.String("preset", config.DefaultCameraPreset, "Camera preset")
	level    = flag.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	decoder  = flag.String("decoder", config.DefaultDecoder, "Image decoder (std, gocv)")
	previews = flag.Bool("previews", false, "Attach JPEG previews to capture events")
	interval = flag.Duration("capture-interval", config.DefaultCaptureInterval, "Time between capture requests")
	pose     = flag.String("pose", "0,0,2", "Drone position x,y,z in meters")
	robot    = flag.String("robot", "6,0.5,1.5", "Simulated robot position x,y,z (empty for none)")
	spacing  = flag.Float64("spacing", 1.0, "Y offset between simulated cameras in meters")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	logger := log.With("component", "main")
	logger.Info("drone observer starting", "version", version, "camera", cfg.CameraID, "preset", cfg.CameraPreset)

	if err := run(cfg); err != nil {
		logger.Error("observer failed", "error", err)
		os.Exit(1)
	}
	logger.Info("goodbye")
}

// applyFlags lets explicitly set flags override the environment.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			cfg.CameraID = *cameraID
		case "port":
			cfg.Port = *port
		case "workers":
			cfg.Workers = *workers
		case "preset":
			cfg.CameraPreset = *preset
		case "log-level":
			cfg.LogLevel = *level
		case "decoder":
			cfg.Decoder = *decoder
		case "previews":
			cfg.Previews = *previews
		case "capture-interval":
			cfg.CaptureInterval = *interval
		}
	})
}

func run(cfg config.Config) error {
	logger := log.L()

	manager, err := camera.NewManagerWithPreset(cfg.CameraPreset)
	if err != nil {
		return err
	}

	dronePose, err := parseVector(*pose)
	if err != nil {
		return fmt.Errorf("pose: %w", err)
	}

	ctrl := camera.NewController[detection.Result](camera.ControllerConfig{
		Workers:   cfg.Workers,
		QueueSize: cfg.QueueSize,
		Logger:    logger,
	})

	for i := 0; i < *cameras; i++ {
		sim := camera.NewSimSource(manager)
		sim.SetPose(geom.V(dronePose.X, dronePose.Y+float64(i)**spacing, dronePose.Z))
		if *robot != "" {
			p, err := parseVector(*robot)
			if err != nil {
				return fmt.Errorf("robot: %w", err)
			}
			sim.PlaceRobot(p, 0.3)
		}
		if err := ctrl.AddSource(i, sim); err != nil {
			return err
		}
		logger.Info("simulated camera attached", "camera", i, "pose", sim.Pose())
	}

	dec, err := camera.DecoderByName(cfg.Decoder)
	if err != nil {
		return err
	}

	// The detector follows capture config changes made through the API.
	var current atomic.Pointer[detection.ColorDepthDetector]
	current.Store(detection.NewColorDepthDetector(detection.FromCamera(manager.GetConfig())))
	manager.OnConfigChange = func(c camera.Config) error {
		current.Store(detection.NewColorDepthDetector(detection.FromCamera(c)))
		logger.Info("capture config applied", "width", c.Width, "height", c.Height)
		return nil
	}
	detector := detection.DetectorFunc(func(images []image.Image, pos geom.Vector3) (detection.Result, error) {
		return current.Load().Detect(images, pos)
	})

	obs, err := observer.New(camera.ID(cfg.CameraID), ctrl,
		observer.WithDetector(detector),
		observer.WithDecoder(dec),
		observer.WithLogger(logger))
	if err != nil {
		return err
	}

	l := &loop{
		observer:     obs,
		controller:   ctrl,
		logger:       logger.With("component", "loop"),
		updateEvery:  cfg.UpdateInterval,
		captureEvery: cfg.CaptureInterval,
		statusEvery:  time.Second,
	}

	var srv *web.Server
	if cfg.Port > 0 {
		srv = web.NewServer(web.Config{
			Port:     fmt.Sprint(cfg.Port),
			Previews: cfg.Previews,
			Logger:   logger,
		}, obs, ctrl, manager)

		ctrl.OnCapture(func(c camera.Capture) {
			if err := srv.PublishCapture(c); err != nil {
				logger.Warn("publish capture", "error", err)
			}
		})
		ctrl.OnError(func(e *camera.CaptureError) {
			if err := srv.PublishError(e); err != nil {
				logger.Warn("publish error", "error", err)
			}
		})
		l.events = srv
		srv.StartAsync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	l.run(ctx)
	logger.Info("shutting down")

	if err := ctrl.Close(); err != nil {
		logger.Warn("controller close", "error", err)
	}
	l.tick()

	st := obs.Snapshot()
	logger.Info("final state",
		"found", st.Found, "position", st.Position,
		"detections", st.Detections, "stats", ctrl.Stats())

	if srv != nil {
		if err := srv.Shutdown(); err != nil {
			logger.Warn("server shutdown", "error", err)
		}
	}
	return nil
}
