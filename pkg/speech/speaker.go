// Package speech reads typed text aloud without stalling the frame pipeline.
//
// A Speaker holds at most one pending utterance. Speak never blocks; a newer
// request replaces a pending one and cancels the one being synthesized or
// played.
package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/teslashibe/go-gazekey/internal/log"
	"github.com/teslashibe/go-gazekey/pkg/tts"
)

// Player plays synthesized audio until it ends or ctx is cancelled.
type Player interface {
	Play(ctx context.Context, audio *tts.AudioResult) error
}

// Speaker serializes utterances through a single-slot queue.
type Speaker struct {
	provider tts.Provider
	player   Player
	logger   *slog.Logger

	requests chan string

	mu     sync.Mutex
	spoken int
	failed int
}

// NewSpeaker creates a speaker. Call Run to start processing.
func NewSpeaker(provider tts.Provider, player Player) *Speaker {
	return &Speaker{
		provider: provider,
		player:   player,
		logger:   log.Component("speech"),
		requests: make(chan string, 1),
	}
}

// Speak queues text, replacing anything not yet started. Blank text is ignored.
func (s *Speaker) Speak(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	for {
		select {
		case s.requests <- text:
			return
		default:
		}
		// Slot full: drop the stale request and retry.
		select {
		case <-s.requests:
		default:
		}
	}
}

// Run processes requests until ctx is done. Each new request cancels the
// utterance in flight and waits for it to stop before starting.
func (s *Speaker) Run(ctx context.Context) error {
	var (
		wg     sync.WaitGroup
		cancel context.CancelFunc = func() {}
	)
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text := <-s.requests:
			cancel()
			wg.Wait()

			var uctx context.Context
			uctx, cancel = context.WithCancel(ctx)
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.say(uctx, text)
			}()
		}
	}
}

func (s *Speaker) say(ctx context.Context, text string) {
	audio, err := s.provider.Synthesize(ctx, text)
	if err == nil {
		err = s.player.Play(ctx, audio)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case ctx.Err() != nil:
		s.logger.Debug("utterance superseded", "chars", len(text))
	case err != nil:
		s.failed++
		s.logger.Warn("speech failed", "error", err)
	default:
		s.spoken++
	}
}

// Stats returns how many utterances finished and how many failed.
func (s *Speaker) Stats() (spoken, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spoken, s.failed
}
