package exposure

import "fmt"

// Default balancing thresholds
const (
	DefaultGainHigh = 226
	DefaultGainLow  = 30
)

// Setting is a value tagged with whether the device must be re-commanded
type Setting struct {
	Value   int  `json:"value"`
	Changed bool `json:"changed"`
}

// Adjustment is the device-facing result of one update
type Adjustment struct {
	Exposure Setting `json:"exposure"`
	Gain     Setting `json:"gain"`
}

// Any reports whether any setting must be pushed to the device
func (a Adjustment) Any() bool {
	return a.Exposure.Changed || a.Gain.Changed
}

// Balancer applies decisions to a State and keeps gain away from its
// noisy extremes by trading it against exposure time.
type Balancer struct {
	DefaultGain int
	GainHigh    int
	GainLow     int
}

// NewBalancer returns a balancer with the default thresholds
func NewBalancer(defaultGain int) Balancer {
	return Balancer{
		DefaultGain: defaultGain,
		GainHigh:    DefaultGainHigh,
		GainLow:     DefaultGainLow,
	}
}

// Validate rejects a default gain outside the hardware range and thresholds
// that do not satisfy MinGain <= GainLow < GainHigh <= MaxGain.
func (b Balancer) Validate() error {
	if b.DefaultGain < MinGain || b.DefaultGain > MaxGain {
		return fmt.Errorf("%w: default gain %d not in [%d, %d]", ErrGainOutOfRange, b.DefaultGain, MinGain, MaxGain)
	}
	if b.GainLow < MinGain || b.GainHigh > MaxGain || b.GainLow >= b.GainHigh {
		return fmt.Errorf("%w: need %d <= gainLow(%d) < gainHigh(%d) <= %d",
			ErrGainOutOfRange, MinGain, b.GainLow, b.GainHigh, MaxGain)
	}
	return nil
}

// Update returns the next state and which settings changed.
// It does not mutate its input.
func (b Balancer) Update(s State, d Decision) (State, Adjustment) {
	next := s
	var setExposure, setGain bool

	if d.Exposure != Hold {
		next.Exposure, setExposure = step(s.Exposure, d.Exposure, MinExposure, MaxExposure)
	}
	if d.Gain != Hold {
		next.Gain, setGain = step(s.Gain, d.Gain, MinGain, MaxGain)
	}

	switch {
	case next.Gain > b.GainHigh && next.Exposure < MaxExposure:
		next.Exposure++
		next.Gain = b.DefaultGain
		setExposure, setGain = true, true
	case next.Gain < b.GainLow && next.Exposure > MinExposure:
		next.Exposure--
		next.Gain = b.DefaultGain
		setExposure, setGain = true, true
	}

	return next, Adjustment{
		Exposure: Setting{Value: next.Exposure, Changed: setExposure},
		Gain:     Setting{Value: next.Gain, Changed: setGain},
	}
}

// step adds delta and saturates at the bounds. A saturated step is not a change.
func step(v int, delta Delta, lo, hi int) (int, bool) {
	v += int(delta)
	switch {
	case v < lo:
		return lo, false
	case v > hi:
		return hi, false
	}
	return v, true
}
