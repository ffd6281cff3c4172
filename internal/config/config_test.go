package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"CAMERA_ID", "PORT", "WORKERS", "QUEUE_SIZE", "UPDATE_INTERVAL", "CAPTURE_INTERVAL", "CAMERA_PRESET", "LOG_LEVEL", "DECODER", "PREVIEWS"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.CameraID != DefaultCameraID {
		t.Errorf("CameraID: got %d, want %d", cfg.CameraID, DefaultCameraID)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers: got %d, want %d", cfg.Workers, DefaultWorkers)
	}
	if cfg.UpdateInterval != DefaultUpdateInterval {
		t.Errorf("UpdateInterval: got %v, want %v", cfg.UpdateInterval, DefaultUpdateInterval)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel: got %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CAMERA_ID", "-1")
	t.Setenv("WORKERS", "4")
	t.Setenv("UPDATE_INTERVAL", "10ms")
	t.Setenv("CAMERA_PRESET", "low")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.CameraID != -1 {
		t.Errorf("CameraID: got %d, want -1", cfg.CameraID)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers: got %d, want 4", cfg.Workers)
	}
	if cfg.UpdateInterval != 10*time.Millisecond {
		t.Errorf("UpdateInterval: got %v, want 10ms", cfg.UpdateInterval)
	}
	if cfg.CameraPreset != "low" {
		t.Errorf("CameraPreset: got %q, want low", cfg.CameraPreset)
	}
}

func TestFromEnv_BadValuesFallBack(t *testing.T) {
	t.Setenv("WORKERS", "many")
	t.Setenv("UPDATE_INTERVAL", "soon")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Workers != DefaultWorkers {
		t.Errorf("Workers: got %d, want default", cfg.Workers)
	}
	if cfg.UpdateInterval != DefaultUpdateInterval {
		t.Errorf("UpdateInterval: got %v, want default", cfg.UpdateInterval)
	}
}

func TestValidate(t *testing.T) {
	good := Config{Port: 8080, Workers: 1, QueueSize: 1, UpdateInterval: time.Millisecond, CaptureInterval: time.Millisecond, Decoder: "std"}
	if err := good.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	bad := good
	bad.Workers = 0
	bad.Port = 70000
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero workers and bad port")
	}
}

func TestFromEnv_DecoderAndPreviews(t *testing.T) {
	t.Setenv("DECODER", "gocv")
	t.Setenv("PREVIEWS", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Decoder != "gocv" || !cfg.Previews {
		t.Errorf("got decoder %q previews %v", cfg.Decoder, cfg.Previews)
	}

	t.Setenv("DECODER", "magic")
	if _, err := FromEnv(); err == nil {
		t.Error("expected error for unknown decoder")
	}
}
