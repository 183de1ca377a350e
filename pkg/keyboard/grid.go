package keyboard

// Kind is what a key does when selected.
type Kind int

const (
	KindChar Kind = iota
	KindSpace
	KindBackspace
	KindSpeak
	KindSuggest
)

// Key is one cell of the on-screen grid.
type Key struct {
	Label string `json:"label"`
	Kind  Kind   `json:"kind"`
}

// Grid dimensions. Cursor math depends on this exact ordering.
const (
	Columns  = 10
	Rows     = 4
	GridSize = Columns * Rows
)

// Special key labels.
const (
	LabelSpace     = "_"
	LabelBackspace = "←"
	LabelSpeak     = "🔊"
	LabelSuggest   = "💬"
)

// Grid is the key layout, row by row.
var Grid = [GridSize]Key{
	char("1"), char("2"), char("3"), char("4"), char("5"),
	char("6"), char("7"), char("8"), char("9"), char("0"),

	char("Q"), char("W"), char("E"), char("R"), char("T"),
	char("Y"), char("U"), char("I"), char("O"), char("P"),

	char("A"), char("S"), char("D"), char("F"), char("G"),
	char("H"), char("J"), char("K"), char("L"), {Label: LabelSpace, Kind: KindSpace},

	char("Z"), char("X"), char("C"), char("V"), char("B"),
	char("N"), char("M"),
	{Label: LabelBackspace, Kind: KindBackspace},
	{Label: LabelSpeak, Kind: KindSpeak},
	{Label: LabelSuggest, Kind: KindSuggest},
}

func char(s string) Key {
	return Key{Label: s, Kind: KindChar}
}

// Layout returns the key labels in grid order.
func Layout() []string {
	labels := make([]string, GridSize)
	for i, k := range Grid {
		labels[i] = k.Label
	}
	return labels
}

// IndexOf returns the grid index of label, or -1.
func IndexOf(label string) int {
	for i, k := range Grid {
		if k.Label == label {
			return i
		}
	}
	return -1
}
