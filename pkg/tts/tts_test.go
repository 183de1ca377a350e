package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-gazekey/pkg/tts"
)

func TestMockProvider(t *testing.T) {
	mock := tts.NewMock()

	result, err := mock.Synthesize(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.SampleRate != tts.PCMSampleRate {
		t.Errorf("sample rate: got %d", result.SampleRate)
	}
	if got := result.Duration(); got != 100*time.Millisecond {
		t.Errorf("duration: got %v, want 100ms", got)
	}
	if texts := mock.Texts(); len(texts) != 1 || texts[0] != "Hello" {
		t.Errorf("texts: got %q", texts)
	}
}

func TestMockWithLatency_Cancel(t *testing.T) {
	mock := tts.WithLatency(tts.NewMock(), time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := mock.Synthesize(ctx, "slow"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want deadline exceeded", err)
	}
}

func TestChain(t *testing.T) {
	failing := tts.WithError(errors.New("boom"))
	ok := tts.NewMock()

	chain, err := tts.NewChain(nil, failing, ok)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}
	if _, err := chain.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatalf("fallback should succeed: %v", err)
	}
	if len(ok.Texts()) != 1 {
		t.Error("second provider not called")
	}

	chain, _ = tts.NewChain(nil, failing, tts.WithError(errors.New("second")))
	_, err = chain.Synthesize(context.Background(), "hi")
	var chainErr *tts.ChainError
	if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
		t.Errorf("got %v, want ChainError with 2 errors", err)
	}

	if _, err := tts.NewChain(nil); !errors.Is(err, tts.ErrProviderUnavailable) {
		t.Errorf("empty chain: got %v", err)
	}
}

func TestOpenAI_RequiresKey(t *testing.T) {
	if _, err := tts.NewOpenAI(); !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("got %v, want ErrNoAPIKey", err)
	}
}

func TestOpenAI_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header: got %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req["response_format"] != "pcm" || req["input"] != "I am thirsty" || req["voice"] != "nova" {
			t.Errorf("unexpected request: %v", req)
		}
		w.Write(make([]byte, 4800))
	}))
	defer srv.Close()

	p, err := tts.NewOpenAI(
		tts.WithAPIKey("sk-test"),
		tts.WithBaseURL(srv.URL),
		tts.WithVoice(tts.VoiceNova),
	)
	if err != nil {
		t.Fatalf("NewOpenAI: %v", err)
	}
	defer p.Close()

	result, err := p.Synthesize(context.Background(), "  I am thirsty ")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if result.Samples() != 2400 || result.Duration() != 100*time.Millisecond {
		t.Errorf("got %d samples, %v", result.Samples(), result.Duration())
	}
}

func TestOpenAI_EmptyText(t *testing.T) {
	p, _ := tts.NewOpenAI(tts.WithAPIKey("sk-test"), tts.WithBaseURL("http://127.0.0.1:0"))
	if _, err := p.Synthesize(context.Background(), "   "); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("got %v, want ErrEmptyText", err)
	}
}

func TestOpenAI_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":{"message":"busy"}}`))
			return
		}
		w.Write(make([]byte, 2))
	}))
	defer srv.Close()

	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(2, time.Millisecond))
	if _, err := p.Synthesize(context.Background(), "hi"); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls: got %d, want 2", calls.Load())
	}
}

func TestOpenAI_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	p, _ := tts.NewOpenAI(tts.WithAPIKey("k"), tts.WithBaseURL(srv.URL), tts.WithRetry(3, time.Millisecond))
	_, err := p.Synthesize(context.Background(), "hi")

	var apiErr *tts.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 401 || apiErr.Message != "bad key" {
		t.Fatalf("got %v, want 401 APIError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls: got %d, want 1", calls.Load())
	}
}

func TestCache(t *testing.T) {
	mock := tts.NewMock()
	cache := tts.NewCache(mock, 2)

	for _, text := range []string{"thank you", "  thank   you ", "yes"} {
		if _, err := cache.Synthesize(context.Background(), text); err != nil {
			t.Fatalf("Synthesize(%q): %v", text, err)
		}
	}
	if got := mock.Texts(); len(got) != 2 || got[0] != "thank you" || got[1] != "yes" {
		t.Errorf("provider calls: got %q", got)
	}
	if hits, misses := cache.Stats(); hits != 1 || misses != 2 {
		t.Errorf("stats: got %d hits, %d misses", hits, misses)
	}

	// "no" evicts the least recently used phrase, "thank you".
	cache.Synthesize(context.Background(), "no")
	cache.Synthesize(context.Background(), "thank you")
	if cache.Len() != 2 || len(mock.Texts()) != 4 {
		t.Errorf("len %d, provider calls %d", cache.Len(), len(mock.Texts()))
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	cache := tts.NewCache(tts.WithError(errors.New("offline")), 0)
	for i := 0; i < 2; i++ {
		if _, err := cache.Synthesize(context.Background(), "help"); err == nil {
			t.Fatal("expected error")
		}
	}
	if cache.Len() != 0 {
		t.Errorf("len: got %d", cache.Len())
	}
	if _, misses := cache.Stats(); misses != 2 {
		t.Errorf("misses: got %d", misses)
	}
}

func TestChain_PrefersLastSuccess(t *testing.T) {
	var primaryCalls atomic.Int32
	primary := &tts.Mock{SynthesizeFunc: func(context.Context, string) (*tts.AudioResult, error) {
		primaryCalls.Add(1)
		return nil, errors.New("down")
	}}
	chain, _ := tts.NewChain(nil, primary, tts.NewMock())

	for i := 0; i < 3; i++ {
		if _, err := chain.Synthesize(context.Background(), "hi"); err != nil {
			t.Fatalf("Synthesize: %v", err)
		}
	}
	if primaryCalls.Load() != 1 {
		t.Errorf("primary called %d times, want 1", primaryCalls.Load())
	}
}
