package eyestate

import (
	"fmt"
	"math"
	"sync/atomic"
)

// DefaultSensitivity is the gaze sensitivity used until changed.
const DefaultSensitivity = 0.7

// Policy selects how the CENTER band is computed.
type Policy int

const (
	// Adaptive brackets CENTER with 0.5 ∓ 0.1·sensitivity.
	Adaptive Policy = iota

	// Fixed uses 0.4/0.6 regardless of sensitivity. Kept as a documented
	// alternative configuration.
	Fixed
)

// ParsePolicy maps a config string to a policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "adaptive":
		return Adaptive, nil
	case "fixed":
		return Fixed, nil
	default:
		return Adaptive, fmt.Errorf("eyestate: unknown policy %q", s)
	}
}

// Thresholds returns the [low, high] band classified as CENTER.
func Thresholds(p Policy, sensitivity float64) (low, high float64) {
	if p == Fixed {
		return 0.4, 0.6
	}
	return 0.5 - 0.1*sensitivity, 0.5 + 0.1*sensitivity
}

// Sensitivity is a shared gaze sensitivity value. Readers always observe
// either the old or the new value in full.
type Sensitivity struct {
	bits atomic.Uint64
}

// NewSensitivity creates a holder. Out-of-range values fall back to the default.
func NewSensitivity(v float64) *Sensitivity {
	s := &Sensitivity{}
	if !ValidSensitivity(v) {
		v = DefaultSensitivity
	}
	s.bits.Store(math.Float64bits(v))
	return s
}

// ValidSensitivity reports whether v is a finite value in [0,1].
func ValidSensitivity(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// Get returns the current value.
func (s *Sensitivity) Get() float64 {
	return math.Float64frombits(s.bits.Load())
}

// Set stores v if valid and reports whether it did.
func (s *Sensitivity) Set(v float64) bool {
	if !ValidSensitivity(v) {
		return false
	}
	s.bits.Store(math.Float64bits(v))
	return true
}

// Classifier converts landmark frames into eye states.
type Classifier struct {
	sensitivity *Sensitivity
	policy      Policy
}

// NewClassifier creates a classifier reading the given sensitivity.
// A nil sensitivity uses a private holder at the default value.
func NewClassifier(s *Sensitivity, p Policy) *Classifier {
	if s == nil {
		s = NewSensitivity(DefaultSensitivity)
	}
	return &Classifier{sensitivity: s, policy: p}
}

// Sensitivity returns the shared sensitivity holder.
func (c *Classifier) Sensitivity() *Sensitivity {
	return c.sensitivity
}

// Classify reads one frame. A blink suppresses gaze evaluation, so a
// blinking state always reports CENTER.
func (c *Classifier) Classify(f Frame) (State, error) {
	ear, err := EAR(f)
	if err != nil {
		return State{}, err
	}

	if ear < BlinkThreshold {
		return State{Direction: Center, Blinking: true, EAR: ear}, nil
	}

	ratio, err := GazeRatio(f)
	if err != nil {
		return State{}, err
	}

	low, high := Thresholds(c.policy, c.sensitivity.Get())
	dir := Center
	switch {
	case ratio < low:
		dir = Left
	case ratio > high:
		dir = Right
	}

	return State{Direction: dir, EAR: ear}, nil
}
