package tts

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// Chain tries providers in order. The provider that last succeeded is tried
// first next time, so a dead primary costs one failed call, not one per
// utterance.
type Chain struct {
	providers []Provider
	preferred atomic.Int32
	logger    *slog.Logger
}

// NewChain creates a chain. At least one provider is required.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger.With("component", "tts.chain")}, nil
}

// Synthesize returns the first successful result.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	first := int(c.preferred.Load())
	var errs []error

	for n := range c.providers {
		i := (first + n) % len(c.providers)
		res, err := c.providers[i].Synthesize(ctx, text)
		if err == nil {
			if i != first {
				c.preferred.Store(int32(i))
				c.logger.Info("switched speech provider", "provider_index", i)
			}
			return res, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("speech provider failed", "provider_index", i, "error", err)
		errs = append(errs, err)
	}
	return nil, &ChainError{Errors: errs}
}

// Close closes every provider.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

var _ Provider = (*Chain)(nil)
