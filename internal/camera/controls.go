package camera

import (
	"math"

	"github.com/dudu/autoexpose/internal/exposure"
)

// ControlRange is the advertised range of a V4L2 control
type ControlRange struct {
	Min int32
	Max int32
}

func (r ControlRange) clamp(v int32) int32 {
	if r.Max <= r.Min {
		return v
	}
	return max(r.Min, min(r.Max, v))
}

// ExposureUnits converts an exposure exponent into V4L2 absolute exposure
// units of 100µs, clamped to the control range.
func ExposureUnits(e int, r ControlRange) int32 {
	units := math.Round(math.Ldexp(1, e) * 10000)
	return r.clamp(int32(units))
}

// GainUnits linearly maps a gain in [MinGain, MaxGain] onto the control range
func GainUnits(gain int, r ControlRange) int32 {
	if r.Max <= r.Min {
		return int32(gain)
	}
	span := float64(exposure.MaxGain - exposure.MinGain)
	frac := float64(gain-exposure.MinGain) / span
	return r.clamp(r.Min + int32(math.Round(frac*float64(r.Max-r.Min))))
}
