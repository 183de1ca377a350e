// Package protocol defines the WebSocket message types exchanged between
// gaze clients (browser, camera sidecar, simulator) and the gazekey server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gazekey/pkg/eyestate"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Server messages
	TypeFrame  MessageType = "frame"  // One landmark frame or encoded image
	TypeAction MessageType = "action" // Manual action (BLINK, LEFT, RIGHT, RESET_CURSOR)

	// Server → Client messages
	TypeState MessageType = "state" // Frame or command outcome
	TypeError MessageType = "error" // Rejected message

	// Bidirectional
	TypePing MessageType = "ping"
	TypePong MessageType = "pong"
)

// Message is the envelope for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a message with a fresh ID and the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s data: %w", msgType, err)
		}
	}

	return &Message{
		Type:      msgType,
		ID:        uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// Reply creates a message answering m, carrying m's ID.
func (m *Message) Reply(msgType MessageType, data any) (*Message, error) {
	r, err := NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	if m.ID != "" {
		r.ID = m.ID
	}
	return r, nil
}

// ParseData unmarshals the message data into v
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
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
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Client → Server
// =============================================================================

// FrameData carries either landmarks or an encoded camera image.
// Landmarks win when both are present.
type FrameData struct {
	Landmarks []eyestate.Point `json:"landmarks,omitempty"`

	// Normalized landmarks are in [0,1] and get scaled by Width and Height.
	Normalized bool `json:"normalized,omitempty"`
	Width      int  `json:"width,omitempty"`
	Height     int  `json:"height,omitempty"`

	// Image is a base64 JPEG, optionally as a data URL.
	Image string `json:"image,omitempty"`
}

// ActionData is a manual keyboard action.
type ActionData struct {
	Action string `json:"action"`
}

// =============================================================================
// Server → Client
// =============================================================================

// StateData reports a frame or command outcome in the web client's shape.
type StateData struct {
	Status           string          `json:"status"`
	EyePosition      *eyestate.Point `json:"eye_position"`
	EyeDirection     string          `json:"eye_direction"`
	IsBlinking       bool            `json:"is_blinking"`
	EARValue         float64         `json:"ear_value"`
	Command          *string         `json:"command"`
	TypedText        string          `json:"typed_text"`
	LetterIndex      int             `json:"letter_index"`
	Mode             string          `json:"mode"`
	SuggestActive    bool            `json:"suggest_active"`
	ForceSuggestMode bool            `json:"force_suggest_mode"`
	Suggestions      [3]string       `json:"suggestions"`
}

// ErrorData describes a rejected message.
type ErrorData struct {
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional
// =============================================================================

// PingData contains ping information
type PingData struct {
	Timestamp int64 `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	PingTS    int64 `json:"ping_ts"`
	PongTS    int64 `json:"pong_ts"`
	LatencyMs int64 `json:"latency_ms"`
}
