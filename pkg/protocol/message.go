// Package protocol defines the WebSocket message types for the observer
// dashboard. The observer pushes events; clients may ping.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Observer → Dashboard messages
	TypeDetection MessageType = "detection" // Robot found or moved
	TypeCapture   MessageType = "capture"   // A camera produced a frame
	TypeError     MessageType = "error"     // A capture or its processing failed
	TypeStatus    MessageType = "status"    // Periodic observer + controller state

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// Position is a world position in meters.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// =============================================================================
// Observer → Dashboard Message Types
// =============================================================================

// DetectionData reports the robot position held by an observer.
type DetectionData struct {
	Camera     int      `json:"camera"` // -1 for the wildcard observer
	Found      bool     `json:"found"`
	Position   Position `json:"position"`
	Detections uint64   `json:"detections"` // Found verdicts so far
}

// CaptureData describes one captured frame.
type CaptureData struct {
	CaptureID string         `json:"capture_id"`
	Camera    int            `json:"camera"`
	Position  Position       `json:"position"` // Camera position
	Images    int            `json:"images"`
	Bytes     int            `json:"bytes"` // Sum of encoded image sizes
	Details   map[string]any `json:"details,omitempty"`
	Preview   string         `json:"preview,omitempty"` // base64 JPEG of the visual image
}

// ErrorData reports a failed capture.
type ErrorData struct {
	CaptureID string `json:"capture_id,omitempty"`
	Camera    int    `json:"camera"`
	Stage     string `json:"stage"` // "capture", "process"
	Error     string `json:"error"`
}

// StatusData is the periodic state snapshot.
type StatusData struct {
	Camera     int             `json:"camera"`
	Found      bool            `json:"found"`
	Position   Position        `json:"position"`
	Detections uint64          `json:"detections"`
	Completed  uint64          `json:"completed"`
	LastSeen   int64           `json:"last_seen,omitempty"` // Unix milliseconds
	Controller ControllerStats `json:"controller"`
}

// ControllerStats mirrors the camera controller counters.
type ControllerStats struct {
	Requested     uint64 `json:"requested"`
	Dropped       uint64 `json:"dropped"`
	Captured      uint64 `json:"captured"`
	Processed     uint64 `json:"processed"`
	NotApplicable uint64 `json:"not_applicable"`
	Completed     uint64 `json:"completed"`
	Failed        uint64 `json:"failed"`
	Pending       int    `json:"pending"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
