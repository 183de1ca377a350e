package tts

import (
	"fmt"
	"log/slog"
	"time"
)

// Config is shared by the HTTP providers.
type Config struct {
	APIKey  string
	BaseURL string // empty uses the provider's public endpoint

	Voice string
	Model string
	Speed float64 // 1.0 is normal

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration // grows linearly with each attempt

	Logger *slog.Logger
}

// Option mutates a Config.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

// WithBaseURL points the provider at another endpoint, such as a local proxy.
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

// WithVoice picks the voice.
func WithVoice(voice string) Option { return func(c *Config) { c.Voice = voice } }

// WithModel picks the model.
func WithModel(model string) Option { return func(c *Config) { c.Model = model } }

// WithSpeed sets the speaking rate.
func WithSpeed(speed float64) Option { return func(c *Config) { c.Speed = speed } }

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetry retries rate limits and server errors up to n extra times.
func WithRetry(n int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries, c.RetryDelay = n, delay
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// newConfig applies opts over the defaults. Speech for a typed phrase is
// short, so the timeout is tight and retries are few.
func newConfig(opts []Option) (*Config, error) {
	c := &Config{
		Voice:      VoiceAlloy,
		Model:      ModelTTS1,
		Speed:      1.0,
		Timeout:    15 * time.Second,
		MaxRetries: 2,
		RetryDelay: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	switch {
	case c.APIKey == "":
		return nil, ErrNoAPIKey
	case c.Speed < 0.25 || c.Speed > 4:
		return nil, fmt.Errorf("tts: speed %.2f outside [0.25, 4]", c.Speed)
	case c.MaxRetries < 0:
		return nil, fmt.Errorf("tts: negative retry count %d", c.MaxRetries)
	}
	return c, nil
}
