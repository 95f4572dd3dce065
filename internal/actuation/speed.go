package actuation

import (
	"math"
	"strconv"
)

const (
	minPercent = 0
	maxPercent = 100
)

// Speed is a normalised intensity, stored as an integer percentage in [0, 100].
// Out-of-range inputs are clamped. The zero value is the minimum speed.
type Speed struct {
	value int
}

// NewSpeed returns a Speed for the given percentage, clamped to [0, 100].
func NewSpeed(percent int) Speed {
	return Speed{value: clampPercent(percent)}
}

// MinSpeed is 0%.
func MinSpeed() Speed { return Speed{value: minPercent} }

// MaxSpeed is 100%.
func MaxSpeed() Speed { return Speed{value: maxPercent} }

// SpeedFromWaveform converts a raw waveform position (nominally 0-100).
func SpeedFromWaveform(position int) Speed {
	return NewSpeed(position)
}

// SpeedFromFloat converts a value in [0.0, 1.0] to the nearest percentage.
func SpeedFromFloat(f float64) Speed {
	if math.IsNaN(f) {
		return MinSpeed()
	}
	return NewSpeed(int(math.Round(f * maxPercent)))
}

// Percent returns the integer percentage.
func (s Speed) Percent() int { return s.value }

// Float returns the speed as a fraction in [0.0, 1.0].
func (s Speed) Float() float64 {
	return float64(s.value) / maxPercent
}

// Multiply scales s by other, e.g. a 50% pattern point layered over an 80%
// baseline gives 40%.
func (s Speed) Multiply(other Speed) Speed {
	return NewSpeed(s.value * other.value / maxPercent)
}

func (s Speed) String() string {
	return strconv.Itoa(s.value) + "%"
}

func clampPercent(p int) int {
	switch {
	case p < minPercent:
		return minPercent
	case p > maxPercent:
		return maxPercent
	default:
		return p
	}
}
