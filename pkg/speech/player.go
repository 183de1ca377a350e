package speech

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/teslashibe/go-gazekey/pkg/tts"
)

const (
	outputRate = beep.SampleRate(44100)

	clickFreq     = 880
	clickDuration = 40 * time.Millisecond
)

// BeepPlayer plays PCM16 speech and click tones on the default audio device.
type BeepPlayer struct {
	once    sync.Once
	initErr error
	opened  bool
}

// NewBeepPlayer creates a player. The device is opened on first use.
func NewBeepPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

// Init opens the audio device.
func (p *BeepPlayer) Init() error {
	p.once.Do(func() {
		p.initErr = speaker.Init(outputRate, outputRate.N(100*time.Millisecond))
		p.opened = p.initErr == nil
	})
	return p.initErr
}

// Play blocks until audio finishes or ctx is cancelled.
func (p *BeepPlayer) Play(ctx context.Context, audio *tts.AudioResult) error {
	if err := p.Init(); err != nil {
		return err
	}

	var src beep.Streamer = newPCMStreamer(audio.PCM)
	if rate := beep.SampleRate(audio.SampleRate); rate != outputRate && rate > 0 {
		src = beep.Resample(4, rate, outputRate, src)
	}
	ctrl := &beep.Ctrl{Streamer: src}

	done := make(chan struct{})
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		return ctx.Err()
	}
}

// Click plays a short tone. Errors opening the device are ignored.
func (p *BeepPlayer) Click() {
	if p.Init() != nil {
		return
	}
	sine, err := generators.SineTone(outputRate, clickFreq)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(outputRate.N(clickDuration), sine))
}

// Close stops all playback and releases the device.
func (p *BeepPlayer) Close() {
	if p.opened {
		speaker.Clear()
		speaker.Close()
	}
}

// pcmStreamer turns mono little-endian PCM16 into beep stereo frames.
type pcmStreamer struct {
	pcm []byte
	pos int
}

func newPCMStreamer(pcm []byte) *pcmStreamer {
	return &pcmStreamer{pcm: pcm}
}

func (s *pcmStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	for n < len(samples) && s.pos+1 < len(s.pcm) {
		v := float64(int16(binary.LittleEndian.Uint16(s.pcm[s.pos:]))) / 32768
		samples[n][0] = v
		samples[n][1] = v
		s.pos += 2
		n++
	}
	return n, n > 0
}

func (s *pcmStreamer) Err() error { return nil }
