package eyestate

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func buildFrame(h, ratio float64) Frame {
	return SyntheticFrame(h, ratio)
}

func TestSyntheticFrames(t *testing.T) {
	c := NewClassifier(nil, Adaptive)

	for _, d := range []Direction{Left, Center, Right} {
		st, err := c.Classify(LookFrame(d))
		if err != nil || st.Direction != d || st.Blinking {
			t.Errorf("LookFrame(%v): got %+v, %v", d, st, err)
		}
	}
	if st, _ := c.Classify(BlinkFrame()); !st.Blinking {
		t.Error("BlinkFrame not classified as a blink")
	}
}

func TestEAR_Geometry(t *testing.T) {
	// EAR = (2h + 2h) / (2*40) = h/20
	ear, err := EAR(buildFrame(6, 0.5))
	if err != nil {
		t.Fatalf("EAR: %v", err)
	}
	if math.Abs(ear-0.3) > 1e-9 {
		t.Errorf("EAR: got %v, want 0.3", ear)
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(NewSensitivity(0.7), Adaptive) // band [0.43, 0.57]

	tests := []struct {
		name      string
		h, ratio  float64
		wantDir   Direction
		wantBlink bool
	}{
		{"open center", 6, 0.5, Center, false},
		{"open left", 6, 0.3, Left, false},
		{"open right", 6, 0.7, Right, false},
		{"just inside band", 6, 0.44, Center, false},
		{"blink wins over gaze", 2, 0.1, Center, true},
		{"blink centered", 4, 0.5, Center, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st, err := c.Classify(buildFrame(tc.h, tc.ratio))
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if st.Direction != tc.wantDir {
				t.Errorf("Direction: got %v, want %v", st.Direction, tc.wantDir)
			}
			if st.Blinking != tc.wantBlink {
				t.Errorf("Blinking: got %v, want %v", st.Blinking, tc.wantBlink)
			}
			if st.EAR <= 0 {
				t.Errorf("EAR should be positive, got %v", st.EAR)
			}
		})
	}
}

func TestClassify_MissingLandmarks(t *testing.T) {
	c := NewClassifier(nil, Adaptive)

	for _, f := range []Frame{nil, make(Frame, 10), make(Frame, RequiredLandmarks-1)} {
		if _, err := c.Classify(f); !errors.Is(err, ErrMissingLandmarks) {
			t.Errorf("len %d: got %v, want ErrMissingLandmarks", len(f), err)
		}
	}
}

func TestClassify_DegenerateEye(t *testing.T) {
	c := NewClassifier(nil, Adaptive)
	f := make(Frame, 478) // every point at the origin

	if _, err := c.Classify(f); !errors.Is(err, ErrDegenerateEye) {
		t.Errorf("got %v, want ErrDegenerateEye", err)
	}
}

func TestClassify_SensitivityChangesBand(t *testing.T) {
	s := NewSensitivity(1.0) // band [0.4, 0.6]
	c := NewClassifier(s, Adaptive)
	f := buildFrame(6, 0.45)

	st, _ := c.Classify(f)
	if st.Direction != Center {
		t.Fatalf("sensitivity 1.0: got %v, want CENTER", st.Direction)
	}

	s.Set(0.2) // band [0.48, 0.52]
	st, _ = c.Classify(f)
	if st.Direction != Left {
		t.Errorf("sensitivity 0.2: got %v, want LEFT", st.Direction)
	}
}

func TestClassify_FixedPolicyIgnoresSensitivity(t *testing.T) {
	c := NewClassifier(NewSensitivity(0.0), Fixed)

	st, _ := c.Classify(buildFrame(6, 0.45))
	if st.Direction != Center {
		t.Errorf("got %v, want CENTER with fixed 0.4/0.6 band", st.Direction)
	}
}

func TestSensitivity_RejectsInvalid(t *testing.T) {
	s := NewSensitivity(0.5)

	for _, v := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		if s.Set(v) {
			t.Errorf("Set(%v) accepted", v)
		}
	}
	if s.Get() != 0.5 {
		t.Errorf("value changed to %v after rejected sets", s.Get())
	}

	if got := NewSensitivity(7).Get(); got != DefaultSensitivity {
		t.Errorf("NewSensitivity(7): got %v, want default", got)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("fixed"); err != nil || p != Fixed {
		t.Errorf("fixed: got %v, %v", p, err)
	}
	if p, err := ParsePolicy(""); err != nil || p != Adaptive {
		t.Errorf("empty: got %v, %v", p, err)
	}
	if _, err := ParsePolicy("sideways"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestThresholds_Properties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	properties.Property("band brackets 0.5", prop.ForAll(
		func(s float64) bool {
			low, high := Thresholds(Adaptive, s)
			return low <= 0.5 && 0.5 <= high
		},
		gen.Float64Range(0, 1),
	))

	properties.Property("band width is 0.2*s and symmetric", prop.ForAll(
		func(s float64) bool {
			low, high := Thresholds(Adaptive, s)
			return math.Abs((high-low)-0.2*s) < 1e-12 &&
				math.Abs((0.5-low)-(high-0.5)) < 1e-12
		},
		gen.Float64Range(0, 1),
	))

	properties.Property("band width is monotonic in sensitivity", prop.ForAll(
		func(a, b float64) bool {
			if a > b {
				a, b = b, a
			}
			la, ha := Thresholds(Adaptive, a)
			lb, hb := Thresholds(Adaptive, b)
			return ha-la <= hb-lb+1e-12
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestIrisCenter(t *testing.T) {
	p, ok := IrisCenter(buildFrame(6, 0.5))
	if !ok {
		t.Fatal("IrisCenter: not ok")
	}
	// irises at x=120 and x=220
	if p.X != 170 || p.Y != 100 {
		t.Errorf("got %+v, want {170 100}", p)
	}
}
