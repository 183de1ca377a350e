// Package predictor provides word completion for the gaze keyboard.
//
// Every predictor returns exactly three ranked candidates for a partial
// word and an optional preceding word. Two implementations satisfy the
// Predictor interface:
//
//   - Corpus ranks words from a frequency and bigram model built from a
//     bundled corpus, tried through an ordered chain of strategies.
//   - Static is a tiny prefix table used when no model is wanted.
//
// Example usage:
//
//	p := predictor.New(predictor.Config{Kind: predictor.KindCorpus})
//	s := p.Suggest("th", "")
//	// s[0], s[1], s[2] hold the candidates; unfilled slots are ""
package predictor

import (
	"errors"
	"strings"
)

// Slots is the fixed number of candidates every predictor returns.
const Slots = 3

// Suggestions is a fixed-size ranked candidate list. Empty string marks an unfilled slot.
type Suggestions [Slots]string

// Predictor completes partial words.
type Predictor interface {
	// Suggest returns three ranked candidates for partial given the previous word.
	Suggest(partial, context string) Suggestions

	// Learn adds a lowercase alphabetic word to the vocabulary and bumps its
	// frequency. Returns false and does nothing for invalid tokens.
	Learn(word string) bool
}

var (
	// ErrDictionaryLoad is returned when a corpus or custom word list cannot be used.
	ErrDictionaryLoad = errors.New("predictor: dictionary load failed")

	// ErrUnsupportedFormat is returned for custom word lists in an unknown format.
	ErrUnsupportedFormat = errors.New("predictor: unsupported word list format")
)

// universal is the last-resort candidate list.
var universal = []string{"the", "and", "you"}

// normalize lowercases and trims a token.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidWord reports whether w is a non-empty run of a-z.
func ValidWord(w string) bool {
	if w == "" {
		return false
	}
	for i := 0; i < len(w); i++ {
		if w[i] < 'a' || w[i] > 'z' {
			return false
		}
	}
	return true
}

// fill copies up to three candidates into a Suggestions value.
func fill(words []string) Suggestions {
	var s Suggestions
	copy(s[:], words)
	return s
}

func contains(list []string, w string) bool {
	for _, x := range list {
		if x == w {
			return true
		}
	}
	return false
}
