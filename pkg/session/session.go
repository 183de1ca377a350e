// Package session runs the per-frame typing pipeline for one user.
//
// A Session owns the classifier, decoder and keyboard controller and
// serializes every frame and command through them. Sensitivity and
// vocabulary updates may arrive from other goroutines at any time.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/teslashibe/go-gazekey/internal/log"
	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/keyboard"
	"github.com/teslashibe/go-gazekey/pkg/predictor"
)

// ErrInvalidSensitivity is returned for sensitivity values outside [0, 1].
var ErrInvalidSensitivity = errors.New("session: sensitivity must be within [0, 1]")

// ConfigError is a rejected runtime setting. The previous value stays in effect.
type ConfigError struct {
	Field string
	Value any
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("session: invalid %s %v: %v", e.Field, e.Value, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Status describes what happened to a frame.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNoSignal    Status = "no_signal"
	StatusTrackingOff Status = "tracking_inactive"
)

// Result is the outcome of one frame or command.
type Result struct {
	Status      Status            `json:"status"`
	EyeState    *eyestate.State   `json:"eye_state,omitempty"`
	Command     *decoder.Command  `json:"command,omitempty"`
	Controller  keyboard.Snapshot `json:"controller"`
	EyePosition *eyestate.Point   `json:"eye_position,omitempty"`
}

// State is the session summary served to dashboards.
type State struct {
	ID          string            `json:"id"`
	Tracking    bool              `json:"tracking"`
	Sensitivity float64           `json:"sensitivity"`
	Frames      uint64            `json:"frames"`
	Commands    uint64            `json:"commands"`
	Controller  keyboard.Snapshot `json:"controller"`
}

// Options configures a Session.
type Options struct {
	// Sensitivity is shared with the classifier. Nil creates a default one.
	Sensitivity *eyestate.Sensitivity
	Policy      eyestate.Policy
	Decoder     decoder.Config
	Clock       decoder.Clock
	Tracking    bool
	Keyboard    []keyboard.Option
	Logger      *slog.Logger
}

// Session is one user's typing pipeline.
type Session struct {
	id     string
	logger *slog.Logger

	sensitivity *eyestate.Sensitivity
	classifier  *eyestate.Classifier
	predictor   predictor.Predictor

	mu       sync.Mutex
	decoder  *decoder.Decoder
	keyboard *keyboard.Controller

	tracking atomic.Bool
	frames   atomic.Uint64
	commands atomic.Uint64
}

// New creates a session around p.
func New(p predictor.Predictor, opts Options) *Session {
	if opts.Sensitivity == nil {
		opts.Sensitivity = eyestate.NewSensitivity(eyestate.DefaultSensitivity)
	}
	if opts.Decoder == (decoder.Config{}) {
		opts.Decoder = decoder.DefaultConfig()
	}

	id := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = log.Component("session")
	}
	logger = logger.With("session", id)

	kopts := append([]keyboard.Option{keyboard.WithLogger(logger)}, opts.Keyboard...)

	s := &Session{
		id:          id,
		logger:      logger,
		sensitivity: opts.Sensitivity,
		classifier:  eyestate.NewClassifier(opts.Sensitivity, opts.Policy),
		predictor:   p,
		decoder:     decoder.New(opts.Decoder, opts.Clock),
		keyboard:    keyboard.New(p, kopts...),
	}
	s.tracking.Store(opts.Tracking)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// ProcessFrame classifies one landmark frame and applies any command it
// yields. Frames are ignored while tracking is off.
func (s *Session) ProcessFrame(frame eyestate.Frame) Result {
	if !s.tracking.Load() {
		return Result{Status: StatusTrackingOff, Controller: s.Snapshot()}
	}
	s.frames.Add(1)

	st, err := s.classifier.Classify(frame)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Debug("frame without signal", "error", err)
		return Result{Status: StatusNoSignal, Controller: s.keyboard.Snapshot()}
	}

	res := Result{Status: StatusOK, EyeState: &st}
	if p, ok := eyestate.IrisCenter(frame); ok {
		res.EyePosition = &p
	}

	if cmd, ok := s.decoder.Decode(st); ok {
		res.Command = &cmd
		res.Controller = s.apply(cmd)
	} else {
		res.Controller = s.keyboard.Snapshot()
	}
	return res
}

// Type applies a manual action through the same cooldowns as gaze input.
func (s *Session) Type(a decoder.Action) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := Result{Status: StatusOK}
	if cmd, ok := s.decoder.DecodeAction(a); ok {
		res.Command = &cmd
		res.Controller = s.apply(cmd)
	} else {
		res.Controller = s.keyboard.Snapshot()
	}
	return res
}

// apply forwards cmd to the controller. Caller holds mu.
func (s *Session) apply(cmd decoder.Command) keyboard.Snapshot {
	s.commands.Add(1)
	snap := s.keyboard.Apply(cmd)
	s.logger.Debug("command applied",
		"command", cmd,
		"mode", snap.Mode,
		"cursor", snap.Cursor,
	)
	return snap
}

// Reset moves the cursor back to the first position.
func (s *Session) Reset() keyboard.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(decoder.ResetCursor)
}

// Clear empties the text buffer.
func (s *Session) Clear() keyboard.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("text cleared")
	return s.keyboard.Clear()
}

// SetSensitivity updates gaze sensitivity. Invalid values are rejected
// with a *ConfigError and the previous value is kept.
func (s *Session) SetSensitivity(v float64) error {
	if !s.sensitivity.Set(v) {
		return &ConfigError{Field: "sensitivity", Value: v, Err: ErrInvalidSensitivity}
	}
	s.logger.Info("sensitivity updated", "value", v)
	return nil
}

// Sensitivity returns the current gaze sensitivity.
func (s *Session) Sensitivity() float64 {
	return s.sensitivity.Get()
}

// LearnWord adds word to the vocabulary and refreshes visible suggestions.
func (s *Session) LearnWord(word string) bool {
	if !s.predictor.Learn(word) {
		return false
	}
	s.mu.Lock()
	s.keyboard.Refresh()
	s.mu.Unlock()
	return true
}

// ToggleTracking flips frame processing on or off and returns the new state.
func (s *Session) ToggleTracking() bool {
	for {
		old := s.tracking.Load()
		if s.tracking.CompareAndSwap(old, !old) {
			s.logger.Info("tracking toggled", "tracking", !old)
			return !old
		}
	}
}

// SetTracking turns frame processing on or off.
func (s *Session) SetTracking(on bool) {
	s.tracking.Store(on)
}

// Tracking reports whether frames are processed.
func (s *Session) Tracking() bool {
	return s.tracking.Load()
}

// Snapshot returns the controller state.
func (s *Session) Snapshot() keyboard.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyboard.Snapshot()
}

// State returns the session summary.
func (s *Session) State() State {
	return State{
		ID:          s.id,
		Tracking:    s.Tracking(),
		Sensitivity: s.Sensitivity(),
		Frames:      s.frames.Load(),
		Commands:    s.commands.Load(),
		Controller:  s.Snapshot(),
	}
}
