// Package landmarks obtains face-mesh landmarks for camera images.
//
// Landmark detection itself runs out of process: a sidecar (for example a
// MediaPipe face mesh service) receives a JPEG and answers with the refined
// 478-point mesh of the first face it finds.
package landmarks

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/teslashibe/go-gazekey/internal/httpc"
	"github.com/teslashibe/go-gazekey/internal/log"
	"github.com/teslashibe/go-gazekey/pkg/eyestate"
	"github.com/teslashibe/go-gazekey/pkg/protocol"
)

// DefaultTimeout bounds one extraction. Frames arrive many times a second,
// so a slow sidecar should miss frames rather than queue them.
const DefaultTimeout = 500 * time.Millisecond

// ErrNoFace is returned when the image contains no detectable face.
var ErrNoFace = errors.New("landmarks: no face detected")

// Extractor turns an encoded image into pixel-space landmarks.
type Extractor interface {
	Extract(ctx context.Context, jpeg []byte) (eyestate.Frame, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, jpeg []byte) (eyestate.Frame, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, jpeg []byte) (eyestate.Frame, error) {
	return f(ctx, jpeg)
}

// StatusError is a non-200 answer from the sidecar.
type StatusError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("landmarks: sidecar returned %d: %s", e.StatusCode, e.Body)
}

// HTTPExtractor calls a landmark sidecar over HTTP.
//
// The request body is a protocol.FrameData carrying the image; the response
// is a protocol.FrameData carrying landmarks, normalized or in pixels.
type HTTPExtractor struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPExtractor creates an extractor posting to url. A zero timeout uses
// DefaultTimeout.
func NewHTTPExtractor(url string, timeout time.Duration) *HTTPExtractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPExtractor{
		url:    url,
		client: httpc.NewClient(timeout),
		logger: log.Component("landmarks"),
	}
}

// Extract sends jpeg to the sidecar.
func (e *HTTPExtractor) Extract(ctx context.Context, jpeg []byte) (eyestate.Frame, error) {
	body, err := json.Marshal(protocol.FrameData{Image: base64.StdEncoding.EncodeToString(jpeg)})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := httpc.PostJSON(ctx, e.client, e.url, body, nil)
	if err != nil {
		return nil, fmt.Errorf("landmarks: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	var fd protocol.FrameData
	if err := json.NewDecoder(resp.Body).Decode(&fd); err != nil {
		return nil, fmt.Errorf("landmarks: decode response: %w", err)
	}
	if !fd.HasLandmarks() {
		return nil, ErrNoFace
	}

	frame, err := fd.Frame()
	if err != nil {
		return nil, fmt.Errorf("landmarks: %w", err)
	}
	e.logger.Debug("landmarks extracted",
		"points", len(frame),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return frame, nil
}
