package predictor

import (
	"math"
	"sort"

	"github.com/teslashibe/go-gazekey/internal/log"
)

// maxCandidates bounds the prefix candidate pool before ranking.
const maxCandidates = 10

// Query is one normalized Suggest request.
type Query struct {
	Partial string
	Context string
}

// Strategy proposes candidates for a query. A strategy that returns nothing
// passes the query to the next one in the chain. Strategies run with the
// dictionary read lock held.
type Strategy struct {
	Name    string
	Propose func(d *Dictionary, q Query) []string
}

// DefaultChain is the strategy order used by NewCorpus.
var DefaultChain = []Strategy{
	{Name: "context", Propose: proposeContext},
	{Name: "frequent", Propose: proposeFrequent},
	{Name: "prefix", Propose: proposePrefix},
	{Name: "fuzzy", Propose: proposeFuzzy},
	{Name: "first-letter", Propose: proposeFirstLetter},
	{Name: "universal", Propose: proposeUniversal},
}

// WordStore persists learned words across restarts.
type WordStore interface {
	Add(word string) error
	Load() (map[string]int, error)
}

// Corpus is the frequency and bigram predictor.
type Corpus struct {
	dict  *Dictionary
	chain []Strategy
	store WordStore
}

// NewCorpus creates a predictor over dict. A nil store disables persistence.
func NewCorpus(dict *Dictionary, store WordStore) *Corpus {
	return &Corpus{
		dict:  dict,
		chain: DefaultChain,
		store: store,
	}
}

// Dictionary returns the underlying word model.
func (c *Corpus) Dictionary() *Dictionary {
	return c.dict
}

// Suggest returns three candidates for partial after context.
func (c *Corpus) Suggest(partial, context string) Suggestions {
	q := Query{Partial: normalize(partial), Context: normalize(context)}

	c.dict.mu.RLock()
	defer c.dict.mu.RUnlock()

	var out []string
	for _, s := range c.chain {
		if out = s.Propose(c.dict, q); len(out) > 0 {
			break
		}
	}
	return fill(pad(c.dict, q, out))
}

// Learn adds word to the vocabulary, bumps its frequency and persists it.
func (c *Corpus) Learn(word string) bool {
	w := normalize(word)
	if !ValidWord(w) {
		return false
	}

	c.dict.Batch(func(b *Batch) {
		b.AddCount(w, 1)
	})

	if c.store != nil {
		if err := c.store.Add(w); err != nil {
			log.Warn("failed to persist learned word", "word", w, "error", err)
		}
	}
	return true
}

// Replay loads previously persisted words into the dictionary.
func (c *Corpus) Replay() error {
	if c.store == nil {
		return nil
	}
	words, err := c.store.Load()
	if err != nil {
		return err
	}
	c.dict.Batch(func(b *Batch) {
		for w, n := range words {
			if ValidWord(w) && n > 0 {
				b.AddCount(w, n)
			}
		}
	})
	return nil
}

// proposeContext returns the top continuations of the previous word.
func proposeContext(d *Dictionary, q Query) []string {
	if q.Partial != "" || q.Context == "" {
		return nil
	}
	f, ok := d.bigrams[q.Context]
	if !ok {
		return nil
	}
	return f.top(Slots)
}

// proposeFrequent returns the most frequent words when nothing is typed.
func proposeFrequent(d *Dictionary, q Query) []string {
	if q.Partial != "" {
		return nil
	}
	c := d.common()
	if len(c) > Slots {
		c = c[:Slots]
	}
	return append([]string(nil), c...)
}

// proposePrefix collects completions of partial, common words first, then
// the full index, and ranks them.
func proposePrefix(d *Dictionary, q Query) []string {
	if q.Partial == "" {
		return nil
	}

	var cands []string
	add := func(w string) bool {
		if w != q.Partial && !contains(cands, w) {
			cands = append(cands, w)
		}
		return len(cands) < maxCandidates
	}

	for _, w := range d.common() {
		if hasPrefix(w, q.Partial) && !add(w) {
			break
		}
	}
	if len(cands) < maxCandidates {
		d.ascendPrefix(q.Partial, add)
	}
	if len(cands) == 0 {
		return nil
	}

	scores := make(map[string]float64, len(cands))
	for _, w := range cands {
		scores[w] = score(d, w, q)
	}
	sort.SliceStable(cands, func(i, j int) bool {
		return scores[cands[i]] > scores[cands[j]]
	})
	if len(cands) > Slots {
		cands = cands[:Slots]
	}
	return cands
}

// score is frequency times length closeness times a bigram boost.
func score(d *Dictionary, w string, q Query) float64 {
	freq := float64(d.freq[w])
	if freq == 0 {
		freq = 1
	}
	closeness := 1 / (1 + math.Abs(float64(len(w)-len(q.Partial))))
	boost := 1.0
	if q.Context != "" {
		if n := d.follows(q.Context, w); n > 0 {
			boost = float64(n) * 2
		}
	}
	return freq * closeness * boost
}

// proposeFuzzy matches common words differing from partial in at most one
// of its leading characters.
func proposeFuzzy(d *Dictionary, q Query) []string {
	p := []rune(q.Partial)
	if len(p) < 3 {
		return nil
	}

	var out []string
	for _, w := range d.common() {
		r := []rune(w)
		if len(r) < len(p) {
			continue
		}
		miss := 0
		for i := range p {
			if p[i] != r[i] {
				miss++
			}
		}
		if miss <= 1 {
			out = append(out, w)
			if len(out) == Slots {
				break
			}
		}
	}
	return out
}

// proposeFirstLetter returns common words sharing partial's first letter.
func proposeFirstLetter(d *Dictionary, q Query) []string {
	if q.Partial == "" {
		return nil
	}
	first := []rune(q.Partial)[0]

	var out []string
	for _, w := range d.common() {
		if []rune(w)[0] == first {
			out = append(out, w)
			if len(out) == Slots {
				break
			}
		}
	}
	return out
}

func proposeUniversal(*Dictionary, Query) []string {
	return append([]string(nil), universal...)
}

// pad tops out up to three slots with the partial word, then common words.
func pad(d *Dictionary, q Query, out []string) []string {
	if len(out) >= Slots {
		return out[:Slots]
	}
	if q.Partial != "" && !contains(out, q.Partial) {
		out = append(out, q.Partial)
	}
	for _, w := range d.common() {
		if len(out) >= Slots {
			break
		}
		if !contains(out, w) {
			out = append(out, w)
		}
	}
	return out
}

func hasPrefix(w, p string) bool {
	return len(w) >= len(p) && w[:len(p)] == p
}
