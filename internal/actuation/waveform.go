package actuation

import "time"

// Point is one waveform sample: a position (0-100) at an offset in
// milliseconds from the start of the waveform.
type Point struct {
	AtMS     int `json:"at"`
	Position int `json:"pos"`
}

// At returns the point's offset as a Duration.
func (p Point) At() time.Duration {
	return time.Duration(p.AtMS) * time.Millisecond
}

// Waveform is an ordered list of points.
type Waveform []Point

// Duration returns the final timestamp, the natural length of the waveform.
func (w Waveform) Duration() time.Duration {
	if len(w) == 0 {
		return 0
	}
	return w[len(w)-1].At()
}

// isFlat reports whether the waveform is empty or every point is at time zero.
func (w Waveform) isFlat() bool {
	for _, p := range w {
		if p.AtMS != 0 {
			return false
		}
	}
	return true
}
