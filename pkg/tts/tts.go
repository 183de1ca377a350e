// Package tts synthesizes speech for the keyboard's speak key.
//
// Providers return raw mono PCM16 so the player needs no decoder. Calls
// honour context cancellation, which is how a newer utterance stops an
// older one that is still being synthesized.
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceAlloy),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "I would like some water")
//	// result.PCM holds little-endian 16-bit samples at result.SampleRate
package tts

import (
	"context"
	"time"
)

// Provider turns text into audio.
type Provider interface {
	// Synthesize converts text to a complete PCM16 buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult is a synthesized utterance.
type AudioResult struct {
	// PCM holds mono little-endian 16-bit samples.
	PCM []byte

	SampleRate int

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// Samples returns the number of PCM16 samples.
func (r *AudioResult) Samples() int {
	return len(r.PCM) / 2
}

// Duration returns the playback length.
func (r *AudioResult) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	return time.Duration(r.Samples()) * time.Second / time.Duration(r.SampleRate)
}

// PCMSampleRate is the rate OpenAI uses for its "pcm" response format.
const PCMSampleRate = 24000
