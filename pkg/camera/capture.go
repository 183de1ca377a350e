package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-gazekey/internal/log"
)

// ErrDecode is returned when an encoded image cannot be decoded.
var ErrDecode = errors.New("camera: failed to decode image")

// FrameSink receives each captured frame as JPEG. It runs on the capture
// goroutine, so a slow sink lowers the effective frame rate.
type FrameSink func(ctx context.Context, jpeg []byte)

// Capture reads frames from a local webcam.
type Capture struct {
	cfg    Config
	logger *slog.Logger
}

// NewCapture validates cfg and returns a capture loop.
func NewCapture(cfg Config) (*Capture, error) {
	if err := cfg.Err(); err != nil {
		return nil, err
	}
	return &Capture{cfg: cfg, logger: log.Component("camera")}, nil
}

// Run opens the device and feeds sink until ctx is done.
func (c *Capture) Run(ctx context.Context, sink FrameSink) error {
	webcam, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("camera: open device %d: %w", c.cfg.Device, err)
	}
	defer webcam.Close()

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))

	img := gocv.NewMat()
	defer img.Close()

	c.logger.Info("camera started",
		"device", c.cfg.Device,
		"width", c.cfg.Width,
		"height", c.cfg.Height,
		"fps", c.cfg.Framerate,
	)

	ticker := time.NewTicker(time.Second / time.Duration(c.cfg.Framerate))
	defer ticker.Stop()

	misses := 0
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("camera stopped")
			return nil
		case <-ticker.C:
		}

		if ok := webcam.Read(&img); !ok || img.Empty() {
			misses++
			if misses%30 == 1 {
				c.logger.Warn("camera read failed", "misses", misses)
			}
			continue
		}
		misses = 0

		jpeg, err := c.encode(img)
		if err != nil {
			c.logger.Warn("frame encode failed", "error", err)
			continue
		}
		sink(ctx, jpeg)
	}
}

func (c *Capture) encode(img gocv.Mat) ([]byte, error) {
	if c.cfg.Mirror {
		gocv.Flip(img, &img, 1)
	}
	return encodeJPEG(img, c.cfg.Quality)
}

// Mirror decodes an encoded image, flips it horizontally and re-encodes it
// as JPEG. Browsers post unmirrored webcam images; the pipeline expects the
// same orientation the local capture produces.
func Mirror(data []byte, quality int) ([]byte, error) {
	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer img.Close()
	if img.Empty() {
		return nil, ErrDecode
	}

	gocv.Flip(img, &img, 1)
	return encodeJPEG(img, quality)
}

// MirrorFilter returns Mirror bound to quality, for use as an image filter.
func MirrorFilter(quality int) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		return Mirror(data, quality)
	}
}

func encodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode: %w", err)
	}
	defer buf.Close()

	// The native buffer is freed on Close.
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
