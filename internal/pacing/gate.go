// Package pacing holds back control decisions until a new exposure setting
// has had time to reach the sensor.
package pacing

import (
	"context"
	"math"
	"time"
)

// Defaults
const (
	DefaultMultiplier   = 1.5
	DefaultPollInterval = 50 * time.Millisecond
)

// Clock abstracts wall time so the gate can be driven by tests
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock returns the real clock
func SystemClock() Clock {
	return systemClock{}
}

// ExposureDuration converts an exposure exponent to the physical exposure time
func ExposureDuration(exposure int) time.Duration {
	return time.Duration(math.Pow(2, float64(exposure)) * float64(time.Second))
}

// Gate blocks decisions for Multiplier times the exposure duration after
// a setting change.
type Gate struct {
	clock        Clock
	multiplier   float64
	pollInterval time.Duration

	armed   bool
	armedAt time.Time
	hold    time.Duration
}

// NewGate creates a gate. Zero or negative values fall back to defaults.
func NewGate(clock Clock, multiplier float64, pollInterval time.Duration) *Gate {
	if clock == nil {
		clock = SystemClock()
	}
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Gate{
		clock:        clock,
		multiplier:   multiplier,
		pollInterval: pollInterval,
	}
}

// HoldFor returns how long decisions are withheld after applying exposure
func (g *Gate) HoldFor(exposure int) time.Duration {
	return time.Duration(g.multiplier * float64(ExposureDuration(exposure)))
}

// Arm starts a hold period for the given (new) exposure, measured from now
func (g *Gate) Arm(exposure int) time.Duration {
	g.armed = true
	g.armedAt = g.clock.Now()
	g.hold = g.HoldFor(exposure)
	return g.hold
}

// Remaining returns the time left before decisions may resume
func (g *Gate) Remaining() time.Duration {
	if !g.armed {
		return 0
	}
	left := g.hold - g.clock.Now().Sub(g.armedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Ready reports whether a new decision may be acted upon. It disarms the
// gate once the hold period has passed.
func (g *Gate) Ready() bool {
	if !g.armed {
		return true
	}
	if g.clock.Now().Sub(g.armedAt) >= g.hold {
		g.armed = false
		return true
	}
	return false
}

// Wait polls until the gate is ready. tick runs once per poll so frames
// keep flowing to the display; its results are never metered. Wait returns
// early with tick's error or the context's error.
func (g *Gate) Wait(ctx context.Context, tick func() error) error {
	for !g.Ready() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tick != nil {
			if err := tick(); err != nil {
				return err
			}
		}
		g.clock.Sleep(g.pollInterval)
	}
	return nil
}
