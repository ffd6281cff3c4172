// Package config provides configuration helpers for drone-observer commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults used when the environment does not say otherwise.
const (
	DefaultCameraID        = 0
	DefaultPort            = 8080
	DefaultWorkers         = 2
	DefaultQueueSize       = 16
	DefaultUpdateInterval  = 50 * time.Millisecond
	DefaultCaptureInterval = 500 * time.Millisecond
	DefaultCameraPreset    = "default"
	DefaultLogLevel        = "info"
	DefaultDecoder         = "std"
)

// Config holds runtime settings for the observer service.
type Config struct {
	CameraID        int           // Negative means any camera
	Port            int           // Dashboard HTTP port (0 disables)
	Workers         int           // Image processing workers
	QueueSize       int           // Pending capture requests
	UpdateInterval  time.Duration // Control loop tick
	CaptureInterval time.Duration // How often the loop asks for a picture
	CameraPreset    string
	LogLevel        string
	Decoder         string // "std" or "gocv"
	Previews        bool   // Attach JPEG previews to capture events
}

// Load reads configuration from the environment.
// A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		CameraID:        getEnvAsInt("CAMERA_ID", DefaultCameraID),
		Port:            getEnvAsInt("PORT", DefaultPort),
		Workers:         getEnvAsInt("WORKERS", DefaultWorkers),
		QueueSize:       getEnvAsInt("QUEUE_SIZE", DefaultQueueSize),
		UpdateInterval:  getEnvAsDuration("UPDATE_INTERVAL", DefaultUpdateInterval),
		CaptureInterval: getEnvAsDuration("CAPTURE_INTERVAL", DefaultCaptureInterval),
		CameraPreset:    getEnv("CAMERA_PRESET", DefaultCameraPreset),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		Decoder:         getEnv("DECODER", DefaultDecoder),
		Previews:        getEnvAsBool("PREVIEWS", false),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("queue size must be at least 1, got %d", c.QueueSize))
	}
	if c.UpdateInterval <= 0 {
		errs = append(errs, errors.New("update interval must be positive"))
	}
	if c.CaptureInterval <= 0 {
		errs = append(errs, errors.New("capture interval must be positive"))
	}
	if c.Decoder != "std" && c.Decoder != "gocv" {
		errs = append(errs, fmt.Errorf("unknown decoder %q", c.Decoder))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
