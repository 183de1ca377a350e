package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/go-gazekey/internal/httpc"
)

const openAISpeechURL = "https://api.openai.com/v1/audio/speech"

// OpenAI voices.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI models. tts-1 answers faster, which matters more here than fidelity.
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI synthesizes with the OpenAI speech endpoint in raw PCM format.
type OpenAI struct {
	cfg    *Config
	url    string
	header http.Header
	client *http.Client
	logger *slog.Logger
}

// NewOpenAI creates the provider. An API key is required.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	url := cfg.BaseURL
	if url == "" {
		url = openAISpeechURL
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)

	return &OpenAI{
		cfg:    cfg,
		url:    url,
		header: header,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Synthesize returns 24 kHz mono PCM16 for text.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(map[string]any{
		"model":           o.cfg.Model,
		"voice":           o.cfg.Voice,
		"input":           text,
		"response_format": "pcm",
		"speed":           o.cfg.Speed,
	})
	if err != nil {
		return nil, fmt.Errorf("tts openai: encode request: %w", err)
	}

	start := time.Now()
	var pcm []byte
	for attempt := 0; ; attempt++ {
		pcm, err = o.post(ctx, body)
		if err == nil || attempt == o.cfg.MaxRetries || !retryable(err) {
			break
		}
		o.logger.Warn("speech request failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(o.cfg.RetryDelay * time.Duration(attempt+1)):
		}
	}
	if err != nil {
		return nil, err
	}

	res := &AudioResult{
		PCM:        pcm,
		SampleRate: PCMSampleRate,
		CharCount:  len(text),
		LatencyMs:  time.Since(start).Milliseconds(),
	}
	o.logger.Debug("synthesized", "chars", res.CharCount, "audio", res.Duration(), "latency_ms", res.LatencyMs)
	return res, nil
}

// post sends one request and returns the audio body.
func (o *OpenAI) post(ctx context.Context, body []byte) ([]byte, error) {
	resp, err := httpc.PostJSON(ctx, o.client, o.url, body, o.header)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tts openai: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, openAIError(resp.StatusCode, data)
	}
	return data, nil
}

func openAIError(status int, body []byte) *APIError {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		msg = parsed.Error.Message
	}
	return &APIError{Provider: "openai", StatusCode: status, Message: msg}
}

// retryable reports API errors worth another attempt and transport errors.
// A cancelled context is never retried.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Close releases idle connections.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

var _ Provider = (*OpenAI)(nil)
