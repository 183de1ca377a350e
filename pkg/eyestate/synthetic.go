package eyestate

// Synthetic frames drive the pipeline without a camera: the terminal
// simulator and tests feed them to a session as if a face were present.

const (
	syntheticEyeWidth = 40.0
	syntheticOpen     = 6.0 // EAR 0.3
	syntheticClosed   = 2.0 // EAR 0.1
)

// SyntheticFrame lays out two 40px wide eyes with lids halfHeight from the
// corner line and irises at ratio along each eye. Its EAR is halfHeight/20.
func SyntheticFrame(halfHeight, ratio float64) Frame {
	f := make(Frame, RequiredLandmarks+4)
	place := func(e eye, x0, y0 float64) {
		c := e.contour
		f[c[0]] = Point{x0, y0}
		f[c[1]] = Point{x0 + syntheticEyeWidth/4, y0 - halfHeight}
		f[c[2]] = Point{x0 + 3*syntheticEyeWidth/4, y0 - halfHeight}
		f[c[3]] = Point{x0 + syntheticEyeWidth, y0}
		f[c[4]] = Point{x0 + 3*syntheticEyeWidth/4, y0 + halfHeight}
		f[c[5]] = Point{x0 + syntheticEyeWidth/4, y0 + halfHeight}
		f[e.iris] = Point{x0 + syntheticEyeWidth*ratio, y0}
	}
	place(eyeA, 100, 100)
	place(eyeB, 200, 100)
	return f
}

// LookFrame returns an open-eyed frame gazing in direction d.
func LookFrame(d Direction) Frame {
	switch d {
	case Left:
		return SyntheticFrame(syntheticOpen, 0.2)
	case Right:
		return SyntheticFrame(syntheticOpen, 0.8)
	default:
		return SyntheticFrame(syntheticOpen, 0.5)
	}
}

// BlinkFrame returns a frame with both eyes closed.
func BlinkFrame() Frame {
	return SyntheticFrame(syntheticClosed, 0.5)
}
