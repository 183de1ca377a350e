package keyboard

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/teslashibe/go-gazekey/pkg/decoder"
	"github.com/teslashibe/go-gazekey/pkg/predictor"
)

// stubPredictor returns fixed suggestions and records queries.
type stubPredictor struct {
	out     predictor.Suggestions
	queries [][2]string
}

func (p *stubPredictor) Suggest(partial, context string) predictor.Suggestions {
	p.queries = append(p.queries, [2]string{partial, context})
	return p.out
}

func (p *stubPredictor) Learn(string) bool { return true }

func (p *stubPredictor) lastQuery() [2]string {
	if len(p.queries) == 0 {
		return [2]string{"<none>", "<none>"}
	}
	return p.queries[len(p.queries)-1]
}

type recordingSpeaker struct {
	spoken []string
}

func (s *recordingSpeaker) Speak(text string) { s.spoken = append(s.spoken, text) }

type countingFeedback struct {
	clicks int
}

func (f *countingFeedback) Click() { f.clicks++ }

// press moves the cursor to label from index 0 and selects it.
func press(t *testing.T, c *Controller, label string) Snapshot {
	t.Helper()
	idx := IndexOf(label)
	if idx < 0 {
		t.Fatalf("no key %q", label)
	}
	c.Apply(decoder.ResetCursor)
	for i := 0; i < idx; i++ {
		c.Apply(decoder.MoveNext)
	}
	if got := c.Snapshot().Cursor; got != idx {
		t.Fatalf("cursor for %q: got %d, want %d", label, got, idx)
	}
	return c.Apply(decoder.Select)
}

func typeText(t *testing.T, c *Controller, s string) {
	t.Helper()
	for _, r := range s {
		label := strings.ToUpper(string(r))
		if r == ' ' {
			label = LabelSpace
		}
		press(t, c, label)
	}
}

func TestGrid_Layout(t *testing.T) {
	want := "1234567890QWERTYUIOPASDFGHJKL_ZXCVBNM←🔊💬"
	if got := strings.Join(Layout(), ""); got != want {
		t.Errorf("layout: got %q, want %q", got, want)
	}
	if len(Grid) != 40 {
		t.Errorf("grid size: got %d, want 40", len(Grid))
	}
	if IndexOf("H") != 25 || IndexOf(LabelSpace) != 29 || IndexOf(LabelSuggest) != 39 {
		t.Errorf("unexpected indices H=%d _=%d 💬=%d", IndexOf("H"), IndexOf(LabelSpace), IndexOf(LabelSuggest))
	}
	if IndexOf("?") != -1 {
		t.Error("IndexOf unknown label should be -1")
	}
}

func TestController_SpaceTriggersSuggestions(t *testing.T) {
	p := &stubPredictor{out: predictor.Suggestions{"have", "has", "how"}}
	c := New(p)

	s := press(t, c, "H")
	if s.Text != "H" || s.Mode != Normal {
		t.Fatalf("after H: got %q %v", s.Text, s.Mode)
	}
	if s.Suggestions != (predictor.Suggestions{}) {
		t.Errorf("NORMAL mode suggestions should be empty, got %v", s.Suggestions)
	}

	s = press(t, c, LabelSpace)
	if s.Text != "H " {
		t.Fatalf("text: got %q, want %q", s.Text, "H ")
	}
	if s.Mode != SuggestSpace || !s.SuggestActive || s.ForceSuggest {
		t.Fatalf("mode: got %v", s.Mode)
	}
	if s.Cursor != 0 {
		t.Errorf("cursor should reset on mode change, got %d", s.Cursor)
	}
	if q := p.lastQuery(); q != [2]string{"", "H"} {
		t.Errorf("query: got %q, want partial \"\" context \"H\"", q)
	}
	if s.Suggestions[0] != "have" || s.Focus != "have" {
		t.Errorf("suggestions: got %v focus %q", s.Suggestions, s.Focus)
	}

	c.Apply(decoder.MoveNext)
	s = c.Apply(decoder.Select)
	if s.Text != "H  has" {
		t.Errorf("space suggestion appends: got %q, want %q", s.Text, "H  has")
	}
	if s.Mode != Normal {
		t.Errorf("mode after accept: got %v, want NORMAL", s.Mode)
	}
}

func TestController_ForcedReplacesPartial(t *testing.T) {
	p := &stubPredictor{out: predictor.Suggestions{"have", "having", "hav"}}
	c := New(p)

	typeText(t, c, "hav")
	s := press(t, c, LabelSuggest)
	if s.Mode != SuggestForced || !s.ForceSuggest {
		t.Fatalf("mode: got %v, want SUGGEST_FORCED", s.Mode)
	}
	if s.Text != "HAV" {
		t.Errorf("force-suggest must not change text, got %q", s.Text)
	}
	if q := p.lastQuery(); q != [2]string{"HAV", ""} {
		t.Errorf("query: got %q", q)
	}

	s = c.Apply(decoder.Select)
	if s.Text != "have" {
		t.Errorf("text: got %q, want %q", s.Text, "have")
	}
	if s.Mode != Normal {
		t.Errorf("mode: got %v, want NORMAL", s.Mode)
	}
}

func TestController_ForcedKeepsEarlierWords(t *testing.T) {
	p := &stubPredictor{out: predictor.Suggestions{"have", "has", "how"}}
	c := New(p)

	typeText(t, c, "i ")
	s := c.Apply(decoder.Select) // accept "have" from SUGGEST_SPACE
	if s.Text != "I  have" {
		t.Fatalf("text: got %q", s.Text)
	}

	typeText(t, c, "x")
	press(t, c, LabelSuggest)
	if q := p.lastQuery(); q != [2]string{"haveX", "I"} {
		t.Errorf("query: got %q", q)
	}
	c.Apply(decoder.MoveNext)
	s = c.Apply(decoder.Select)
	if s.Text != "I  has" {
		t.Errorf("text: got %q, want %q", s.Text, "I  has")
	}
}

func TestController_ContextAfterAcceptedSuggestion(t *testing.T) {
	p := &stubPredictor{out: predictor.Suggestions{"want", "need", "am"}}
	c := New(p)

	typeText(t, c, "i ")
	if q := p.lastQuery(); q != [2]string{"", "I"} {
		t.Fatalf("space query: got %q", q)
	}
	if s := c.Apply(decoder.Select); s.Text != "I  want" {
		t.Fatalf("text: got %q", s.Text)
	}

	press(t, c, LabelSuggest)
	if q := p.lastQuery(); q != [2]string{"want", "I"} {
		t.Errorf("forced query: got %q, want [want I]", q)
	}
}

func TestLastTokens(t *testing.T) {
	tests := []struct {
		text, partial, context string
	}{
		{"", "", ""},
		{"hav", "hav", ""},
		{"H ", "", "H"},
		{"I  want", "want", "I"},
		{"I  want ", "", "want"},
		{"I want  to go", "go", "to"},
		{"  lead", "lead", ""},
	}
	for _, tt := range tests {
		partial, context := lastTokens(tt.text)
		if partial != tt.partial || context != tt.context {
			t.Errorf("lastTokens(%q) = %q, %q; want %q, %q", tt.text, partial, context, tt.partial, tt.context)
		}
	}
}

func TestController_ForcedRequiresText(t *testing.T) {
	c := New(&stubPredictor{})

	s := press(t, c, LabelSuggest)
	if s.Mode != Normal {
		t.Errorf("force-suggest on empty buffer: got %v, want NORMAL", s.Mode)
	}
}

func TestController_Backspace(t *testing.T) {
	c := New(&stubPredictor{})

	typeText(t, c, "abc")
	s := press(t, c, LabelBackspace)
	if s.Text != "AB" {
		t.Fatalf("got %q, want AB", s.Text)
	}

	c.Clear()
	for i := 0; i < 3; i++ {
		s = press(t, c, LabelBackspace)
	}
	if s.Text != "" {
		t.Errorf("backspace on empty: got %q", s.Text)
	}
}

func TestController_ClearFromSuggestMode(t *testing.T) {
	c := New(&stubPredictor{out: predictor.Suggestions{"a", "b", "c"}})

	typeText(t, c, "ab")
	s := press(t, c, LabelSpace)
	if s.Mode != SuggestSpace {
		t.Fatalf("got %v", s.Mode)
	}
	// Only a clear gets back to the grid from SUGGEST_SPACE without picking a word.
	s = c.Clear()
	if s.Mode != Normal || s.Text != "" || s.Cursor != 0 {
		t.Errorf("after Clear: %+v", s)
	}
}

func TestController_Speak(t *testing.T) {
	sp := &recordingSpeaker{}
	c := New(&stubPredictor{}, WithSpeaker(sp))

	typeText(t, c, "hi")
	s := press(t, c, LabelSpeak)
	if s.Text != "HI" {
		t.Errorf("speak must not change text, got %q", s.Text)
	}
	if len(sp.spoken) != 1 || sp.spoken[0] != "HI" {
		t.Errorf("spoken: got %q", sp.spoken)
	}
}

func TestController_EmptySlotIsNoop(t *testing.T) {
	fb := &countingFeedback{}
	c := New(&stubPredictor{out: predictor.Suggestions{"one", "", ""}}, WithFeedback(fb))

	typeText(t, c, "a ")
	clicks := fb.clicks
	c.Apply(decoder.MoveNext)
	s := c.Apply(decoder.Select)
	if s.Text != "A " || s.Mode != SuggestSpace {
		t.Errorf("empty slot select: got %q %v", s.Text, s.Mode)
	}
	if fb.clicks != clicks {
		t.Error("no-op select should not click")
	}
}

func TestController_CursorClamp(t *testing.T) {
	c := New(&stubPredictor{out: predictor.Suggestions{"x", "y", "z"}})

	if s := c.Apply(decoder.MovePrev); s.Cursor != 0 {
		t.Errorf("MovePrev at 0: got %d", s.Cursor)
	}
	for i := 0; i < 60; i++ {
		c.Apply(decoder.MoveNext)
	}
	if s := c.Snapshot(); s.Cursor != GridSize-1 {
		t.Errorf("NORMAL clamp: got %d, want %d", s.Cursor, GridSize-1)
	}

	typeText(t, c, "a ")
	for i := 0; i < 5; i++ {
		c.Apply(decoder.MoveNext)
	}
	if s := c.Snapshot(); s.Cursor != 2 {
		t.Errorf("suggestion clamp: got %d, want 2", s.Cursor)
	}

	if s := c.Apply(decoder.ResetCursor); s.Cursor != 0 || s.Mode != SuggestSpace {
		t.Errorf("reset: got %d %v", s.Cursor, s.Mode)
	}
}

func TestController_AnnounceSuggestions(t *testing.T) {
	sp := &recordingSpeaker{}
	c := New(&stubPredictor{out: predictor.Suggestions{"have", "has", "how"}},
		WithSpeaker(sp), WithAnnounceSuggestions(true))

	typeText(t, c, "h ")
	c.Apply(decoder.MoveNext)
	c.Apply(decoder.MoveNext)
	c.Apply(decoder.MoveNext) // clamped, no new focus

	want := []string{"have", "has", "how"}
	if strings.Join(sp.spoken, ",") != strings.Join(want, ",") {
		t.Errorf("announced: got %q, want %q", sp.spoken, want)
	}
}

func TestController_ClickFeedback(t *testing.T) {
	fb := &countingFeedback{}
	c := New(&stubPredictor{}, WithFeedback(fb))

	typeText(t, c, "ab")
	if fb.clicks != 2 {
		t.Errorf("clicks: got %d, want 2", fb.clicks)
	}
}

func TestController_CorpusScenarios(t *testing.T) {
	c := New(predictor.NewCorpus(predictor.NewFallbackDictionary(), nil))

	typeText(t, c, "hav")
	press(t, c, LabelSuggest)
	s := c.Snapshot()
	if s.Suggestions[0] != "have" {
		t.Fatalf("suggestions for HAV: got %v", s.Suggestions)
	}
	s = c.Apply(decoder.Select)
	if s.Text != "have" || s.Mode != Normal {
		t.Errorf("got %q %v, want \"have\" NORMAL", s.Text, s.Mode)
	}
}

func TestController_Invariants(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	cmds := []decoder.Command{decoder.Select, decoder.MovePrev, decoder.MoveNext, decoder.ResetCursor}

	properties.Property("cursor and mode invariants hold after any command sequence", prop.ForAll(
		func(seq []int) bool {
			c := New(&stubPredictor{out: predictor.Suggestions{"go", "", "at"}})
			for _, n := range seq {
				s := c.Apply(cmds[n])
				if s.Cursor < 0 || s.Cursor >= c.Range() {
					return false
				}
				space := s.Text != "" && strings.HasSuffix(s.Text, " ") && s.Mode != SuggestForced
				if (s.Mode == SuggestSpace) != space {
					return false
				}
				if s.Mode == Normal && s.Suggestions != (predictor.Suggestions{}) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(cmds)-1)),
	))

	properties.TestingRun(t)
}
