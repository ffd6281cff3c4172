package protocol

import (
	"encoding/base64"
	"time"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewDetectionMessage creates a detection message
func NewDetectionMessage(camera int, found bool, pos Position, detections uint64) (*Message, error) {
	return NewMessage(TypeDetection, DetectionData{
		Camera:     camera,
		Found:      found,
		Position:   pos,
		Detections: detections,
	})
}

// NewCaptureMessage creates a capture message. A non-empty preview is
// attached base64 encoded.
func NewCaptureMessage(data CaptureData, preview []byte) (*Message, error) {
	if len(preview) > 0 {
		data.Preview = base64.StdEncoding.EncodeToString(preview)
	}
	return NewMessage(TypeCapture, data)
}

// NewErrorMessage creates an error message
func NewErrorMessage(captureID string, camera int, stage string, err error) (*Message, error) {
	data := ErrorData{
		CaptureID: captureID,
		Camera:    camera,
		Stage:     stage,
	}
	if err != nil {
		data.Error = err.Error()
	}
	return NewMessage(TypeError, data)
}

// NewStatusMessage creates a status message
func NewStatusMessage(status StatusData) (*Message, error) {
	return NewMessage(TypeStatus, status)
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetDetectionData extracts detection data from a message
func (m *Message) GetDetectionData() (*DetectionData, error) {
	var data DetectionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCaptureData extracts capture data from a message
func (m *Message) GetCaptureData() (*CaptureData, error) {
	var data CaptureData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodePreview decodes the base64 preview image
func (c *CaptureData) DecodePreview() ([]byte, error) {
	return base64.StdEncoding.DecodeString(c.Preview)
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStatusData extracts status data from a message
func (m *Message) GetStatusData() (*StatusData, error) {
	var data StatusData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
