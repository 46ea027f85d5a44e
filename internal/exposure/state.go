// Package exposure decides and applies exposure/gain corrections from a
// metered brightness value.
package exposure

import (
	"errors"
	"fmt"
)

// Hardware ranges. Exposure is a power-of-two exponent: 2^Exposure seconds.
const (
	MinExposure = -11
	MaxExposure = -2
	MinGain     = 0
	MaxGain     = 255
)

var (
	ErrExposureOutOfRange = errors.New("exposure out of range")
	ErrGainOutOfRange     = errors.New("gain out of range")
)

// State is the running exposure/gain pair
type State struct {
	Exposure int `json:"exposure"`
	Gain     int `json:"gain"`
}

// NewState validates initial settings against the hardware ranges
func NewState(exposure, gain int) (State, error) {
	if exposure < MinExposure || exposure > MaxExposure {
		return State{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrExposureOutOfRange, exposure, MinExposure, MaxExposure)
	}
	if gain < MinGain || gain > MaxGain {
		return State{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrGainOutOfRange, gain, MinGain, MaxGain)
	}
	return State{Exposure: exposure, Gain: gain}, nil
}
