// Package eyestate turns one frame of face-mesh landmarks into a discrete
// eye reading: gaze direction, blink flag and the raw eye aspect ratio.
//
// Landmark indices follow the MediaPipe face mesh with refined irises
// (478 points). Classification is a pure function of the frame and the
// current sensitivity; the classifier keeps no per-frame state.
package eyestate

import (
	"errors"
	"math"
)

// BlinkThreshold is the averaged EAR below which both eyes count as closed.
const BlinkThreshold = 0.23

// epsilon guards the iris ratio against a zero-width eye.
const epsilon = 1e-6

var (
	// ErrMissingLandmarks is returned when the frame lacks required points.
	ErrMissingLandmarks = errors.New("eyestate: missing landmarks")

	// ErrDegenerateEye is returned when an eye has zero width, so EAR is undefined.
	ErrDegenerateEye = errors.New("eyestate: degenerate eye geometry")
)

// Point is a 2D landmark in pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Frame is the ordered landmark list for a single face.
type Frame []Point

// Direction is the horizontal gaze reading.
type Direction int

const (
	Center Direction = iota
	Left
	Right
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case Left:
		return "LEFT"
	case Right:
		return "RIGHT"
	default:
		return "CENTER"
	}
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// State is a single frame's reading. Never persisted.
type State struct {
	Direction Direction `json:"direction"`
	Blinking  bool      `json:"is_blinking"`
	EAR       float64   `json:"ear"`
}

// eye describes the six contour points and iris of one eye.
// Contour order: corner, two upper lid points, opposite corner, two lower lid points.
type eye struct {
	contour [6]int
	iris    int
}

// The gaze ratio is measured from contour[0] towards contour[3].
var (
	eyeA = eye{contour: [6]int{33, 160, 158, 133, 153, 144}, iris: 468}
	eyeB = eye{contour: [6]int{362, 385, 387, 263, 373, 380}, iris: 473}
)

// RequiredLandmarks is the minimum frame length the classifier accepts.
const RequiredLandmarks = 474

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// aspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) for one eye.
func (e eye) aspectRatio(f Frame) (float64, bool) {
	p := func(i int) Point { return f[e.contour[i]] }
	width := dist(p(0), p(3))
	if width == 0 {
		return 0, false
	}
	return (dist(p(1), p(5)) + dist(p(2), p(4))) / (2 * width), true
}

// irisRatio is the horizontal iris position along the eye, roughly in [0,1].
func (e eye) irisRatio(f Frame) float64 {
	start := f[e.contour[0]].X
	end := f[e.contour[3]].X
	return (f[e.iris].X - start) / (end - start + epsilon)
}

// EAR returns the eye aspect ratio averaged over both eyes.
func EAR(f Frame) (float64, error) {
	if len(f) < RequiredLandmarks {
		return 0, ErrMissingLandmarks
	}
	a, okA := eyeA.aspectRatio(f)
	b, okB := eyeB.aspectRatio(f)
	if !okA || !okB {
		return 0, ErrDegenerateEye
	}
	return (a + b) / 2, nil
}

// GazeRatio returns the iris position averaged over both eyes.
func GazeRatio(f Frame) (float64, error) {
	if len(f) < RequiredLandmarks {
		return 0, ErrMissingLandmarks
	}
	return (eyeA.irisRatio(f) + eyeB.irisRatio(f)) / 2, nil
}

// IrisCenter returns the midpoint of both irises, for dashboards.
func IrisCenter(f Frame) (Point, bool) {
	if len(f) < RequiredLandmarks {
		return Point{}, false
	}
	a, b := f[eyeA.iris], f[eyeB.iris]
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}, true
}
