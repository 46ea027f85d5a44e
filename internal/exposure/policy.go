package exposure

// Delta is a tri-state adjustment
type Delta int

const (
	Decrease Delta = -1
	Hold     Delta = 0
	Increase Delta = 1
)

// String returns a short label for overlays and logs
func (d Delta) String() string {
	switch d {
	case Decrease:
		return "decrease"
	case Increase:
		return "increase"
	default:
		return "hold"
	}
}

// Decision holds the adjustments for one cycle
type Decision struct {
	Exposure Delta `json:"exposure"`
	Gain     Delta `json:"gain"`
}

// Default policy constants
const (
	DefaultWantedValue  = 90
	DefaultExposureBand = 30
	DefaultGainBand     = 5
)

// Policy maps a median brightness to a Decision using two hysteresis bands.
// Exposure is corrected first; gain is only touched once the median sits
// inside the exposure band.
type Policy struct {
	WantedValue  int `yaml:"wantedValue" json:"wanted_value"`
	ExposureBand int `yaml:"exposureBand" json:"exposure_band"`
	GainBand     int `yaml:"gainBand" json:"gain_band"`
}

// DefaultPolicy returns target 90 with bands 30 and 5
func DefaultPolicy() Policy {
	return Policy{
		WantedValue:  DefaultWantedValue,
		ExposureBand: DefaultExposureBand,
		GainBand:     DefaultGainBand,
	}
}

// Decide evaluates a median brightness
func (p Policy) Decide(median int) Decision {
	var d Decision
	switch {
	case median > p.WantedValue+p.ExposureBand:
		d.Exposure = Decrease
	case median < p.WantedValue-p.ExposureBand:
		d.Exposure = Increase
	}
	if d.Exposure != Hold {
		return d
	}

	// The upper gain band edge counts as too bright, the lower edge as on target.
	switch {
	case median >= p.WantedValue+p.GainBand:
		d.Gain = Decrease
	case median < p.WantedValue-p.GainBand:
		d.Gain = Increase
	}
	return d
}
