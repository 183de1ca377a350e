// Package termview renders keyboard state on a terminal screen.
package termview

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/teslashibe/go-gazekey/pkg/keyboard"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
)

// Screen layout, in cells.
const (
	headerRow     = 0
	commandRow    = 1
	textRow       = 3
	suggestionRow = 5
	gridTop       = 7
	margin        = 2

	keyWidth        = 5
	suggestionWidth = 16
)

// Styles are the colors used by a View.
type Styles struct {
	Base       tcell.Style
	Status     tcell.Style
	Alert      tcell.Style
	Text       tcell.Style
	Key        tcell.Style
	Special    tcell.Style
	Focus      tcell.Style
	Suggestion tcell.Style
}

// DefaultStyles returns the standard palette.
func DefaultStyles() Styles {
	base := tcell.StyleDefault
	return Styles{
		Base:       base,
		Status:     base.Foreground(tcell.ColorGreen),
		Alert:      base.Foreground(tcell.ColorRed).Bold(true),
		Text:       base.Foreground(tcell.ColorWhite).Bold(true),
		Key:        base.Foreground(tcell.ColorSilver),
		Special:    base.Foreground(tcell.ColorYellow),
		Focus:      base.Foreground(tcell.ColorBlack).Background(tcell.ColorAqua).Bold(true),
		Suggestion: base.Foreground(tcell.ColorBlue),
	}
}

// View draws StateData onto a tcell screen.
type View struct {
	screen tcell.Screen
	styles Styles
}

// New creates a view on screen with the default styles.
func New(screen tcell.Screen) *View {
	return &View{screen: screen, styles: DefaultStyles()}
}

// SetStyles replaces the palette.
func (v *View) SetStyles(s Styles) {
	v.styles = s
}

// Draw renders st and shows the screen.
func (v *View) Draw(st protocol.StateData) {
	v.screen.Clear()

	v.drawHeader(st)
	x := v.drawText(margin, textRow, "> ", v.styles.Base)
	x = v.drawText(x, textRow, st.TypedText, v.styles.Text)
	v.screen.SetContent(x, textRow, '▏', nil, v.styles.Text)

	suggesting := st.SuggestActive || st.ForceSuggestMode
	v.drawSuggestions(st, suggesting)
	v.drawGrid(st.LetterIndex, suggesting)

	v.screen.Show()
}

func (v *View) drawHeader(st protocol.StateData) {
	style := v.styles.Status
	if st.Status != "ok" {
		style = v.styles.Alert
	}
	x := v.drawText(margin, headerRow, "gazekey ", v.styles.Text)
	x = v.drawText(x, headerRow, "["+st.Status+"]", style)

	blink := ""
	if st.IsBlinking {
		blink = " blink"
	}
	v.drawText(x, headerRow,
		fmt.Sprintf("  eye:%-6s ear:%.2f  mode:%s%s", st.EyeDirection, st.EARValue, st.Mode, blink),
		v.styles.Base)

	if st.Command != nil {
		v.drawText(margin, commandRow, "cmd: "+*st.Command, v.styles.Special)
	}
}

func (v *View) drawSuggestions(st protocol.StateData, suggesting bool) {
	label := "words:"
	if st.ForceSuggestMode {
		label = "words*"
	}
	x := v.drawText(margin, suggestionRow, label, v.styles.Base)

	for i, word := range st.Suggestions {
		style := v.styles.Suggestion
		if suggesting && i == st.LetterIndex {
			style = v.styles.Focus
		}
		v.drawText(x+1+i*suggestionWidth, suggestionRow, fmt.Sprintf("[%d] %s", i+1, word), style)
	}
}

func (v *View) drawGrid(cursor int, suggesting bool) {
	for i, key := range keyboard.Grid {
		x, y := keyCell(i)
		style := v.styles.Key
		if key.Kind != keyboard.KindChar {
			style = v.styles.Special
		}
		if !suggesting && i == cursor {
			style = v.styles.Focus
		}
		v.drawText(x, y, " "+key.Label+" ", style)
	}
}

// keyCell returns the top-left screen cell of grid key i.
func keyCell(i int) (int, int) {
	return margin + (i%keyboard.Columns)*keyWidth, gridTop + (i/keyboard.Columns)*2
}

// drawText writes s at (x, y) and returns the column after it.
func (v *View) drawText(x, y int, s string, style tcell.Style) int {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		w := runewidth.RuneWidth(r)
		if w < 1 {
			w = 1
		}
		x += w
	}
	return x
}
