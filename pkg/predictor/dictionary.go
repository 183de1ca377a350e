package predictor

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/btree"
)

// commonLimit bounds the frequency-ranked list scanned before the full index.
const commonLimit = 5000

// btreeDegree matches the small-node setting used for in-memory tables.
const btreeDegree = 32

// followers counts the words seen after one word, remembering first-seen order for ties.
type followers struct {
	counts map[string]int
	order  []string
}

func (f *followers) observe(w string) {
	if _, ok := f.counts[w]; !ok {
		f.order = append(f.order, w)
	}
	f.counts[w]++
}

// top returns followers by count, ties in first-seen order.
func (f *followers) top(n int) []string {
	ranked := make([]string, len(f.order))
	copy(ranked, f.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return f.counts[ranked[i]] > f.counts[ranked[j]]
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Dictionary is the word model: known words in lexical order, a frequency
// table and a bigram table. It only grows.
//
// Exported methods lock internally. The unexported readers assume the
// caller holds mu for reading; Corpus holds it across a whole Suggest call
// so a concurrent Learn is seen entirely or not at all.
type Dictionary struct {
	mu sync.RWMutex

	words   *btree.BTreeG[string]
	freq    map[string]int
	bigrams map[string]*followers

	// ranked holds every word with a frequency, most frequent first.
	ranked []string
	seen   map[string]int
	seq    int
}

// NewDictionary creates an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		words:   btree.NewOrderedG[string](btreeDegree),
		freq:    make(map[string]int),
		bigrams: make(map[string]*followers),
		seen:    make(map[string]int),
	}
}

// Len returns the number of known words.
func (d *Dictionary) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.words.Len()
}

// Has reports whether w is a known word.
func (d *Dictionary) Has(w string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.words.Has(w)
}

// Frequency returns the count recorded for w.
func (d *Dictionary) Frequency(w string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.freq[w]
}

// Common returns up to n words, most frequent first.
func (d *Dictionary) Common(n int) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c := d.common()
	if len(c) > n {
		c = c[:n]
	}
	out := make([]string, len(c))
	copy(out, c)
	return out
}

// Followers returns up to n words observed after w, most frequent first.
func (d *Dictionary) Followers(w string, n int) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.bigrams[w]
	if !ok {
		return nil
	}
	return f.top(n)
}

// Batch applies several writes under one lock and re-ranks once.
func (d *Dictionary) Batch(fn func(b *Batch)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&Batch{d: d})
	d.rerank()
}

// Batch is a write handle valid only inside Dictionary.Batch.
type Batch struct {
	d *Dictionary
}

// AddWord records w as known without touching its frequency.
func (b *Batch) AddWord(w string) {
	if w != "" {
		b.d.insert(w)
	}
}

// AddCount records w as known and adds n to its frequency.
func (b *Batch) AddCount(w string, n int) {
	if w == "" {
		return
	}
	b.d.insert(w)
	b.d.freq[w] += n
}

// Observe records that next followed prev.
func (b *Batch) Observe(prev, next string) {
	if prev == "" || next == "" {
		return
	}
	f, ok := b.d.bigrams[prev]
	if !ok {
		f = &followers{counts: make(map[string]int)}
		b.d.bigrams[prev] = f
	}
	f.observe(next)
}

func (d *Dictionary) insert(w string) {
	if _, ok := d.seen[w]; !ok {
		d.seen[w] = d.seq
		d.seq++
	}
	d.words.ReplaceOrInsert(w)
}

// rerank rebuilds the frequency ranking. Caller holds the write lock.
func (d *Dictionary) rerank() {
	ranked := d.ranked[:0]
	for w, n := range d.freq {
		if n > 0 {
			ranked = append(ranked, w)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		fi, fj := d.freq[ranked[i]], d.freq[ranked[j]]
		if fi != fj {
			return fi > fj
		}
		return d.seen[ranked[i]] < d.seen[ranked[j]]
	})
	d.ranked = ranked
}

// common returns the frequency-ranked head of the vocabulary.
func (d *Dictionary) common() []string {
	if len(d.ranked) > commonLimit {
		return d.ranked[:commonLimit]
	}
	return d.ranked
}

// ascendPrefix visits known words starting with prefix in lexical order
// until fn returns false.
func (d *Dictionary) ascendPrefix(prefix string, fn func(w string) bool) {
	d.words.AscendGreaterOrEqual(prefix, func(w string) bool {
		if !strings.HasPrefix(w, prefix) {
			return false
		}
		return fn(w)
	})
}

// follows returns how often next was seen after prev.
func (d *Dictionary) follows(prev, next string) int {
	f, ok := d.bigrams[prev]
	if !ok {
		return 0
	}
	return f.counts[next]
}
