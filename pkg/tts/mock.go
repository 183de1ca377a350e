package tts

import (
	"context"
	"sync"
	"time"
)

// Mock is an in-memory Provider for tests. The zero value fails every call.
type Mock struct {
	// SynthesizeFunc produces the result; nil fails with ErrProviderUnavailable.
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)

	mu    sync.Mutex
	texts []string
}

// NewMock returns a mock that answers with 20ms of silence per character.
func NewMock() *Mock {
	return &Mock{SynthesizeFunc: silence}
}

func silence(_ context.Context, text string) (*AudioResult, error) {
	n := len(text) * PCMSampleRate / 50
	return &AudioResult{PCM: make([]byte, 2*n), SampleRate: PCMSampleRate, CharCount: len(text)}, nil
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{SynthesizeFunc: func(context.Context, string) (*AudioResult, error) {
		return nil, err
	}}
}

// WithLatency makes m wait delay before answering, or until ctx is done.
func WithLatency(m *Mock, delay time.Duration) *Mock {
	next := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		if next == nil {
			return nil, ErrProviderUnavailable
		}
		return next(ctx, text)
	}
	return m
}

// Synthesize records text and delegates to SynthesizeFunc.
func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	fn := m.SynthesizeFunc
	m.mu.Unlock()

	if fn == nil {
		return nil, ErrProviderUnavailable
	}
	return fn(ctx, text)
}

// Texts returns a copy of every text passed to Synthesize.
func (m *Mock) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

var _ Provider = (*Mock)(nil)
