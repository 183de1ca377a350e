// Package decoder debounces per-frame eye states into discrete keyboard commands.
//
// Blinks become SELECT and sideways gaze becomes MOVE_PREV/MOVE_NEXT, each
// class gated by its own cooldown so a held blink or a held glance fires once
// per window instead of once per frame.
package decoder

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"golang.org/x/time/rate"
)

// Command is a discrete input for the keyboard controller.
type Command int

const (
	Select Command = iota + 1
	MovePrev
	MoveNext
	ResetCursor
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case Select:
		return "SELECT"
	case MovePrev:
		return "MOVE_PREV"
	case MoveNext:
		return "MOVE_NEXT"
	case ResetCursor:
		return "RESET_CURSOR"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// MarshalText encodes the command by name.
func (c Command) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Action is a raw user action as sent by the web client.
type Action string

const (
	ActionBlink       Action = "BLINK"
	ActionLeft        Action = "LEFT"
	ActionRight       Action = "RIGHT"
	ActionResetCursor Action = "RESET_CURSOR"
)

// ParseAction normalizes a client action string.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionBlink, ActionLeft, ActionRight, ActionResetCursor:
		return a, nil
	}
	return "", fmt.Errorf("decoder: unknown action %q", s)
}

// Clock supplies the current time. time.Now carries a monotonic reading,
// which is what the cooldown math uses.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock with monotonic readings.
var SystemClock Clock = systemClock{}

// Config holds cooldown windows.
type Config struct {
	CooldownSelect time.Duration
	CooldownNav    time.Duration
}

// DefaultConfig returns the stock cooldowns.
func DefaultConfig() Config {
	return Config{
		CooldownSelect: 400 * time.Millisecond,
		CooldownNav:    300 * time.Millisecond,
	}
}

// Decoder converts eye states into rate-limited commands.
// It is not safe for concurrent use; the session serializes calls.
type Decoder struct {
	cfg   Config
	clock Clock
	sel   *rate.Limiter
	nav   *rate.Limiter
}

// New creates a decoder. A nil clock uses SystemClock.
func New(cfg Config, clock Clock) *Decoder {
	if clock == nil {
		clock = SystemClock
	}
	d := &Decoder{cfg: cfg, clock: clock}
	d.Reset()
	return d
}

// Reset clears both cooldown windows.
func (d *Decoder) Reset() {
	// A burst of one turns the token bucket into a plain cooldown.
	d.sel = rate.NewLimiter(rate.Every(d.cfg.CooldownSelect), 1)
	d.nav = rate.NewLimiter(rate.Every(d.cfg.CooldownNav), 1)
}

// Config returns the cooldown configuration.
func (d *Decoder) Config() Config {
	return d.cfg
}

// Decode returns the command for a reading, if one is due.
// A blinking reading can only produce SELECT.
func (d *Decoder) Decode(s eyestate.State) (Command, bool) {
	now := d.clock.Now()

	if s.Blinking {
		if d.sel.AllowN(now, 1) {
			return Select, true
		}
		return 0, false
	}

	var cmd Command
	switch s.Direction {
	case eyestate.Left:
		cmd = MovePrev
	case eyestate.Right:
		cmd = MoveNext
	default:
		return 0, false
	}

	if d.nav.AllowN(now, 1) {
		return cmd, true
	}
	return 0, false
}

// DecodeAction maps a manual client action through the same cooldowns.
// RESET_CURSOR is never debounced.
func (d *Decoder) DecodeAction(a Action) (Command, bool) {
	switch a {
	case ActionBlink:
		return d.Decode(eyestate.State{Blinking: true})
	case ActionLeft:
		return d.Decode(eyestate.State{Direction: eyestate.Left})
	case ActionRight:
		return d.Decode(eyestate.State{Direction: eyestate.Right})
	case ActionResetCursor:
		return ResetCursor, true
	}
	return 0, false
}
