package predictor

import (
	"bufio"
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-gazekey/internal/log"
)

// The bundled corpus is running text for bigrams plus a frequency-ranked
// vocabulary list.
//
//go:embed data/corpus.txt data/frequency.txt
var embeddedCorpus embed.FS

// fallbackWords is the built-in vocabulary used when the corpus is unavailable.
var fallbackWords = []string{
	"the", "be", "to", "of", "and", "a", "in", "that", "have", "i",
	"it", "for", "not", "on", "with", "he", "as", "you", "do", "at",
	"this", "but", "his", "by", "from", "they", "we", "say", "her", "she",
	"or", "an", "will", "my", "one", "all", "would", "there", "their", "what",
	"so", "up", "out", "if", "about", "who", "get", "which", "go", "me",
	"when", "make", "can", "like", "time", "no", "just", "him", "know", "take",
	"people", "into", "year", "your", "good", "some", "could", "them", "see", "other",
	"than", "then", "now", "look", "only", "come", "its", "over", "think", "also",
	"back", "after", "use", "two", "how", "our", "work", "first", "well", "way",
	"even", "new", "want", "because", "any", "these", "give", "day", "most", "us",
}

// Kind selects a predictor implementation.
type Kind string

const (
	KindCorpus Kind = "corpus"
	KindStatic Kind = "static"
)

// Config selects and seeds a predictor.
type Config struct {
	Kind Kind

	// CustomPath is an optional extra word list (.json, .yaml, .yml or .txt).
	CustomPath string

	// Store persists learned words. Corpus only.
	Store WordStore
}

// New builds the configured predictor. Load failures degrade to smaller
// vocabularies and are logged rather than returned.
func New(cfg Config) Predictor {
	if cfg.Kind == KindStatic {
		return NewStatic()
	}

	dict, err := LoadEmbedded()
	if err != nil {
		log.Warn("corpus unavailable, using fallback dictionary", "error", err)
		dict = NewFallbackDictionary()
	}

	if cfg.CustomPath != "" {
		if err := LoadCustom(dict, cfg.CustomPath); err != nil {
			log.Warn("custom dictionary skipped", "path", cfg.CustomPath, "error", err)
		}
	}

	c := NewCorpus(dict, cfg.Store)
	if err := c.Replay(); err != nil {
		log.Warn("learned words not restored", "error", err)
	}

	log.Info("predictor ready", "words", dict.Len(), "common", len(dict.Common(commonLimit)))
	return c
}

// LoadEmbedded builds a dictionary from the bundled corpus: bigrams and
// counts from the running text, then the ranked vocabulary on top.
func LoadEmbedded() (*Dictionary, error) {
	f, err := embeddedCorpus.Open("data/corpus.txt")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}
	defer f.Close()

	d, err := BuildFromText(f)
	if err != nil {
		return nil, err
	}

	data, err := embeddedCorpus.ReadFile("data/frequency.txt")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}
	counts, _, err := parseWordLines(data)
	if err != nil {
		return nil, fmt.Errorf("%w: frequency list: %v", ErrDictionaryLoad, err)
	}
	d.Batch(func(b *Batch) {
		for _, wc := range counts {
			b.AddCount(wc.word, wc.n)
		}
	})
	return d, nil
}

// BuildFromText counts word frequencies and bigrams in running text.
// Tokens are lowercased runs of letters.
func BuildFromText(r io.Reader) (*Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}

	tokens := strings.FieldsFunc(strings.ToLower(string(data)), func(c rune) bool {
		return !unicode.IsLetter(c)
	})
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: corpus has no words", ErrDictionaryLoad)
	}

	d := NewDictionary()
	d.Batch(func(b *Batch) {
		for i, w := range tokens {
			b.AddCount(w, 1)
			if i > 0 {
				b.Observe(tokens[i-1], w)
			}
		}
	})
	return d, nil
}

// NewFallbackDictionary returns the built-in vocabulary ranked by list order.
func NewFallbackDictionary() *Dictionary {
	d := NewDictionary()
	d.Batch(func(b *Batch) {
		for i, w := range fallbackWords {
			b.AddCount(w, len(fallbackWords)-i)
		}
	})
	return d
}

// LoadCustom merges a word list file into d. A list of words adds
// vocabulary only; a word to count mapping also adds frequency. Text files
// hold one word per line, optionally followed by a count.
func LoadCustom(d *Dictionary, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}

	var (
		list   []string
		counts map[string]int
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &list); err != nil {
			list = nil
			if err := json.Unmarshal(data, &counts); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrDictionaryLoad, path, err)
			}
		}
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDictionaryLoad, path, err)
		}
		if err := decodeYAMLWords(&node, &list, &counts); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDictionaryLoad, path, err)
		}
	case ".txt", "":
		var ranked []wordCount
		ranked, list, err = parseWordLines(data)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrDictionaryLoad, path, err)
		}
		counts = make(map[string]int, len(ranked))
		for _, wc := range ranked {
			counts[wc.word] += wc.n
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	added := 0
	d.Batch(func(b *Batch) {
		for _, w := range list {
			if w = normalize(w); w != "" {
				b.AddWord(w)
				added++
			}
		}
		for w, n := range counts {
			if w = normalize(w); w != "" && n > 0 {
				b.AddCount(w, n)
				added++
			}
		}
	})

	log.Info("custom dictionary loaded", "path", path, "entries", added)
	return nil
}

func decodeYAMLWords(node *yaml.Node, list *[]string, counts *map[string]int) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(list)
	case yaml.MappingNode:
		return node.Decode(counts)
	default:
		return fmt.Errorf("expected a list or a mapping")
	}
}

type wordCount struct {
	word string
	n    int
}

// parseWordLines reads "word" or "word count" lines in file order. Blank
// lines and lines starting with # are skipped.
func parseWordLines(data []byte) ([]wordCount, []string, error) {
	var (
		counts []wordCount
		list   []string
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch len(fields) {
		case 1:
			list = append(list, fields[0])
		case 2:
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: bad count %q", line, fields[1])
			}
			counts = append(counts, wordCount{word: normalize(fields[0]), n: n})
		default:
			return nil, nil, fmt.Errorf("line %d: expected word [count]", line)
		}
	}
	return counts, list, sc.Err()
}
