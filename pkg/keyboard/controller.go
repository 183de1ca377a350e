// Package keyboard implements the gaze keyboard's text buffer, key cursor and
// editing modes.
//
// The controller consumes decoder commands. In NORMAL mode the cursor walks
// the 40-key grid and SELECT types the focused key. A trailing space switches
// to SUGGEST_SPACE, where the cursor walks three word suggestions and SELECT
// appends one. The force-suggest key enters SUGGEST_FORCED, where SELECT
// replaces the word being typed.
package keyboard

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/teslashibe/go-gazekey/internal/log"
	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/predictor"
)

// Mode is the controller's editing mode.
type Mode int

const (
	Normal Mode = iota
	SuggestSpace
	SuggestForced
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case Normal:
		return "NORMAL"
	case SuggestSpace:
		return "SUGGEST_SPACE"
	case SuggestForced:
		return "SUGGEST_FORCED"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Suggesting reports whether the cursor walks suggestions instead of keys.
func (m Mode) Suggesting() bool {
	return m == SuggestSpace || m == SuggestForced
}

// Speaker receives text to be read aloud. Speak must not block.
type Speaker interface {
	Speak(text string)
}

// Feedback signals that a selection took effect.
type Feedback interface {
	Click()
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Text          string                `json:"text"`
	Cursor        int                   `json:"letter_index"`
	Mode          Mode                  `json:"mode"`
	SuggestActive bool                  `json:"suggest_active"`
	ForceSuggest  bool                  `json:"force_suggest_mode"`
	Suggestions   predictor.Suggestions `json:"suggestions"`
	Focus         string                `json:"focus"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithSpeaker sets the collaborator for the speak key.
func WithSpeaker(s Speaker) Option {
	return func(c *Controller) {
		c.speaker = s
	}
}

// WithFeedback sets the click collaborator.
func WithFeedback(f Feedback) Option {
	return func(c *Controller) {
		c.feedback = f
	}
}

// WithAnnounceSuggestions speaks each suggestion as the cursor reaches it.
func WithAnnounceSuggestions(on bool) Option {
	return func(c *Controller) {
		c.announce = on
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// Controller owns the text buffer, cursor and mode.
// It is not safe for concurrent use.
type Controller struct {
	pred     predictor.Predictor
	speaker  Speaker
	feedback Feedback
	announce bool
	logger   *slog.Logger

	text        string
	cursor      int
	forced      bool
	mode        Mode
	suggestions predictor.Suggestions
	announced   string
}

// New creates a controller with an empty buffer.
func New(p predictor.Predictor, opts ...Option) *Controller {
	c := &Controller{pred: p}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Component("keyboard")
	}
	return c
}

// Apply executes one command and returns the resulting state.
func (c *Controller) Apply(cmd decoder.Command) Snapshot {
	switch cmd {
	case decoder.MovePrev:
		c.move(-1)
	case decoder.MoveNext:
		c.move(1)
	case decoder.ResetCursor:
		c.cursor = 0
	case decoder.Select:
		if c.mode.Suggesting() {
			c.acceptSuggestion()
		} else {
			c.pressKey()
		}
		c.refresh()
	}
	c.announceFocus()
	return c.Snapshot()
}

// Clear empties the buffer and returns to NORMAL.
func (c *Controller) Clear() Snapshot {
	c.text = ""
	c.cursor = 0
	c.forced = false
	c.announced = ""
	c.refresh()
	return c.Snapshot()
}

// Refresh re-queries the predictor for the current buffer.
func (c *Controller) Refresh() Snapshot {
	c.refresh()
	return c.Snapshot()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Text:          c.text,
		Cursor:        c.cursor,
		Mode:          c.mode,
		SuggestActive: c.mode == SuggestSpace,
		ForceSuggest:  c.mode == SuggestForced,
		Suggestions:   c.suggestions,
		Focus:         c.focus(),
	}
}

// Range is the number of positions the cursor can take in the current mode.
func (c *Controller) Range() int {
	if c.mode.Suggesting() {
		return predictor.Slots
	}
	return GridSize
}

func (c *Controller) move(delta int) {
	c.cursor = clamp(c.cursor+delta, 0, c.Range()-1)
}

// pressKey applies the grid key under the cursor.
func (c *Controller) pressKey() {
	if c.cursor < 0 || c.cursor >= GridSize {
		return
	}
	key := Grid[c.cursor]

	switch key.Kind {
	case KindChar:
		c.text += key.Label
	case KindSpace:
		c.text += " "
	case KindBackspace:
		if c.text == "" {
			return
		}
		_, size := utf8.DecodeLastRuneInString(c.text)
		c.text = c.text[:len(c.text)-size]
	case KindSpeak:
		if c.speaker != nil {
			c.speaker.Speak(strings.TrimSpace(c.text))
		}
	case KindSuggest:
		if c.text == "" {
			return
		}
		c.forced = true
	}
	c.click()
}

// acceptSuggestion applies the focused suggestion.
func (c *Controller) acceptSuggestion() {
	if c.cursor < 0 || c.cursor >= predictor.Slots {
		return
	}
	word := c.suggestions[c.cursor]
	if word == "" {
		return
	}

	if c.mode == SuggestForced {
		words := strings.Split(c.text, " ")
		if last := len(words) - 1; words[last] != "" {
			words[last] = word
			c.text = strings.Join(words, " ")
		} else {
			c.text += word
		}
		c.forced = false
	} else {
		c.text += " " + word
	}
	c.logger.Debug("suggestion accepted", "word", word, "mode", c.mode)
	c.click()
}

// refresh re-derives the mode from the buffer and recomputes suggestions.
func (c *Controller) refresh() {
	if c.text == "" {
		c.forced = false
	}

	prev := c.mode
	switch {
	case c.forced:
		c.mode = SuggestForced
	case strings.HasSuffix(c.text, " "):
		c.mode = SuggestSpace
	default:
		c.mode = Normal
	}
	if c.mode != prev {
		c.cursor = 0
		c.announced = ""
		c.logger.Debug("mode changed", "from", prev, "to", c.mode)
	}

	if !c.mode.Suggesting() {
		c.suggestions = predictor.Suggestions{}
		return
	}
	partial, context := lastTokens(c.text)
	c.suggestions = c.pred.Suggest(partial, context)
}

// lastTokens returns the word being typed and the word before it.
// A trailing space yields an empty partial word. Runs of spaces, such as
// the double space left by accepting a suggestion, separate words once.
func lastTokens(text string) (partial, context string) {
	i := strings.LastIndexByte(text, ' ')
	partial = text[i+1:]
	if i < 0 {
		return partial, ""
	}
	if words := strings.Fields(text[:i]); len(words) > 0 {
		context = words[len(words)-1]
	}
	return partial, context
}

func (c *Controller) focus() string {
	if c.mode.Suggesting() {
		if c.cursor < predictor.Slots {
			return c.suggestions[c.cursor]
		}
		return ""
	}
	if c.cursor >= 0 && c.cursor < GridSize {
		return Grid[c.cursor].Label
	}
	return ""
}

// announceFocus speaks a newly focused suggestion once.
func (c *Controller) announceFocus() {
	if !c.announce || c.speaker == nil || !c.mode.Suggesting() {
		return
	}
	w := c.focus()
	if w == "" || w == c.announced {
		return
	}
	c.announced = w
	c.speaker.Speak(w)
}

func (c *Controller) click() {
	if c.feedback != nil {
		c.feedback.Click()
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
