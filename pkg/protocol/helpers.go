package protocol

import (
	"encoding/base64"
	"errors"
	"regexp"
	"time"

	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/session"
)

var (
	// ErrEmptyFrame is returned for a frame with neither landmarks nor image.
	ErrEmptyFrame = errors.New("protocol: frame has no landmarks or image")

	// ErrNoDimensions is returned when normalized landmarks lack a frame size.
	ErrNoDimensions = errors.New("protocol: normalized landmarks need width and height")
)

var dataURLPrefix = regexp.MustCompile(`^data:image/[^;]+;base64,`)

// =============================================================================
// Constructors
// =============================================================================

// NewLandmarkMessage creates a frame message from pixel-space landmarks
func NewLandmarkMessage(frame eyestate.Frame) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{Landmarks: frame})
}

// NewImageMessage creates a frame message from raw JPEG data
func NewImageMessage(jpeg []byte) (*Message, error) {
	return NewMessage(TypeFrame, FrameData{Image: base64.StdEncoding.EncodeToString(jpeg)})
}

// NewActionMessage creates a manual action message
func NewActionMessage(action string) (*Message, error) {
	return NewMessage(TypeAction, ActionData{Action: action})
}

// NewStateMessage creates a state message from a session result
func NewStateMessage(res session.Result) (*Message, error) {
	return NewMessage(TypeState, StateFromResult(res))
}

// NewErrorMessage creates an error message
func NewErrorMessage(err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Message: err.Error()})
}

// NewPongMessage answers a ping
func NewPongMessage(ping *Message) (*Message, error) {
	var p PingData
	if err := ping.ParseData(&p); err != nil {
		return nil, err
	}
	if p.Timestamp == 0 {
		p.Timestamp = ping.Timestamp
	}
	now := time.Now().UnixMilli()
	return ping.Reply(TypePong, PongData{
		PingTS:    p.Timestamp,
		PongTS:    now,
		LatencyMs: now - p.Timestamp,
	})
}

// StateFromResult flattens a session result into the client shape.
func StateFromResult(res session.Result) StateData {
	snap := res.Controller
	st := StateData{
		Status:           string(res.Status),
		EyePosition:      res.EyePosition,
		EyeDirection:     eyestate.Center.String(),
		TypedText:        snap.Text,
		LetterIndex:      snap.Cursor,
		Mode:             snap.Mode.String(),
		SuggestActive:    snap.SuggestActive,
		ForceSuggestMode: snap.ForceSuggest,
		Suggestions:      snap.Suggestions,
	}
	if res.EyeState != nil {
		st.EyeDirection = res.EyeState.Direction.String()
		st.IsBlinking = res.EyeState.Blinking
		st.EARValue = res.EyeState.EAR
	}
	if res.Command != nil {
		name := res.Command.String()
		st.Command = &name
	}
	return st
}

// =============================================================================
// Accessors
// =============================================================================

// GetFrameData extracts frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetActionData extracts action data from a message
func (m *Message) GetActionData() (*ActionData, error) {
	var data ActionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// HasLandmarks reports whether the frame carries landmarks.
func (f *FrameData) HasLandmarks() bool {
	return len(f.Landmarks) > 0
}

// Frame returns the landmarks in pixel space.
func (f *FrameData) Frame() (eyestate.Frame, error) {
	if !f.HasLandmarks() {
		return nil, ErrEmptyFrame
	}
	frame := make(eyestate.Frame, len(f.Landmarks))
	copy(frame, f.Landmarks)
	if !f.Normalized {
		return frame, nil
	}
	if f.Width <= 0 || f.Height <= 0 {
		return nil, ErrNoDimensions
	}
	return ScaleLandmarks(frame, f.Width, f.Height), nil
}

// DecodeImage returns the JPEG bytes, stripping any data URL prefix.
func (f *FrameData) DecodeImage() ([]byte, error) {
	if f.Image == "" {
		return nil, ErrEmptyFrame
	}
	return base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(f.Image, ""))
}

// ScaleLandmarks converts normalized points to pixels in place.
func ScaleLandmarks(frame eyestate.Frame, width, height int) eyestate.Frame {
	w, h := float64(width), float64(height)
	for i := range frame {
		frame[i].X *= w
		frame[i].Y *= h
	}
	return frame
}
