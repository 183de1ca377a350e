package predictor

import (
	"sort"
	"strings"
	"sync"
)

// staticTable maps short prefixes to canned completions.
var staticTable = map[string][]string{
	"t":  {"the", "that", "this"},
	"a":  {"and", "are", "all"},
	"i":  {"is", "it", "in"},
	"y":  {"you", "your", "yes"},
	"h":  {"have", "has", "how"},
	"w":  {"with", "was", "what"},
	"th": {"the", "that", "this"},
	"an": {"and", "any", "another"},
	"be": {"be", "been", "because"},
	"wh": {"what", "when", "where"},
}

// staticPrefixes lists staticTable keys, longest first.
var staticPrefixes = func() []string {
	keys := make([]string, 0, len(staticTable))
	for k := range staticTable {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// Static is a table-driven predictor with no corpus. Learned words are kept
// in memory and offered ahead of the table.
type Static struct {
	mu      sync.RWMutex
	learned []string
}

// NewStatic creates a static predictor.
func NewStatic() *Static {
	return &Static{}
}

// Suggest returns canned completions for partial. Context is ignored.
func (s *Static) Suggest(partial, _ string) Suggestions {
	p := normalize(partial)
	if p == "" {
		return fill(universal)
	}

	var out []string
	s.mu.RLock()
	for _, w := range s.learned {
		if w != p && strings.HasPrefix(w, p) && len(out) < Slots {
			out = append(out, w)
		}
	}
	s.mu.RUnlock()

	for _, prefix := range staticPrefixes {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		for _, w := range staticTable[prefix] {
			if strings.HasPrefix(w, p) && !contains(out, w) {
				out = append(out, w)
			}
		}
		break
	}

	if len(out) == 0 {
		out = []string{p + "ing", p + "ed", p + "s"}
	}
	if len(out) < Slots && !contains(out, p) {
		out = append(out, p)
	}
	return fill(out)
}

// Learn remembers word for future prefix matches.
func (s *Static) Learn(word string) bool {
	w := normalize(word)
	if !ValidWord(w) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !contains(s.learned, w) {
		s.learned = append(s.learned, w)
	}
	return true
}
