// Package pipeline runs the metering and control loop.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dudu/autoexpose/internal/exposure"
	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pacing"
)

var errDisplayClosed = errors.New("display closed")

// Config holds control loop configuration
type Config struct {
	Policy       exposure.Policy
	Shrink       float64
	Multiplier   float64
	PollInterval time.Duration
	DefaultGain  int
	GainHigh     int
	GainLow      int
}

// DefaultConfig returns the stock tuning for a given default gain
func DefaultConfig(defaultGain int) Config {
	return Config{
		Policy:       exposure.DefaultPolicy(),
		Shrink:       metering.DefaultShrink,
		Multiplier:   pacing.DefaultMultiplier,
		PollInterval: pacing.DefaultPollInterval,
		DefaultGain:  defaultGain,
		GainHigh:     exposure.DefaultGainHigh,
		GainLow:      exposure.DefaultGainLow,
	}
}

// Deps are the collaborators the loop drives. Display, Clock and Logger are optional.
type Deps struct {
	Source  FrameSource
	Locator FaceLocator
	Device  Device
	Display Display
	Clock   pacing.Clock
	Logger  *zap.Logger
}

// Timing holds performance timing information
type Timing struct {
	Acquire   time.Duration `json:"acquire"`
	Detection time.Duration `json:"detection"`
	Metering  time.Duration `json:"metering"`
	Apply     time.Duration `json:"apply"`
	Total     time.Duration `json:"total"`
}

// Cycle records one control decision
type Cycle struct {
	Seq         uint64              `json:"seq"`
	At          time.Time           `json:"at"`
	FrameWidth  int                 `json:"frame_width"`
	FrameHeight int                 `json:"frame_height"`
	Faces       []metering.Region   `json:"faces"`
	Reading     metering.Reading    `json:"reading"`
	Decision    exposure.Decision   `json:"decision"`
	State       exposure.State      `json:"state"`
	Adjustment  exposure.Adjustment `json:"adjustment"`
	Hold        time.Duration       `json:"hold"`
	Timing      Timing              `json:"timing"`
}

// Controller owns the control state and runs cycles one at a time
type Controller struct {
	config   Config
	source   FrameSource
	locator  FaceLocator
	device   Device
	display  Display
	clock    pacing.Clock
	logger   *zap.Logger
	balancer exposure.Balancer
	gate     *pacing.Gate

	state exposure.State
	seq   uint64

	mu   sync.RWMutex
	last Cycle
}

// New creates a controller starting from initial
func New(config Config, initial exposure.State, deps Deps) (*Controller, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("frame source is required")
	}
	if deps.Locator == nil {
		return nil, fmt.Errorf("face locator is required")
	}
	if deps.Device == nil {
		return nil, fmt.Errorf("camera device is required")
	}
	state, err := exposure.NewState(initial.Exposure, initial.Gain)
	if err != nil {
		return nil, fmt.Errorf("initial state: %w", err)
	}
	if config.Shrink < 0 || config.Shrink >= 1 {
		return nil, fmt.Errorf("shrink must be in [0, 1), got %v", config.Shrink)
	}
	balancer := exposure.Balancer{
		DefaultGain: config.DefaultGain,
		GainHigh:    config.GainHigh,
		GainLow:     config.GainLow,
	}
	if err := balancer.Validate(); err != nil {
		return nil, fmt.Errorf("gain balancing: %w", err)
	}

	clock := deps.Clock
	if clock == nil {
		clock = pacing.SystemClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		config:  config,
		source:  deps.Source,
		locator: deps.Locator,
		device:  deps.Device,
		display: deps.Display,
		clock:   clock,
		logger:  logger,
		balancer: balancer,
		gate:     pacing.NewGate(clock, config.Multiplier, config.PollInterval),
		state:    state,
	}, nil
}

// State returns the current exposure/gain
func (c *Controller) State() exposure.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastCycle returns the most recent completed cycle
func (c *Controller) LastCycle() Cycle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last
}

// Config returns the loop configuration
func (c *Controller) Config() Config {
	return c.config
}

// Run pushes the initial settings and loops until ctx is cancelled, the
// display is closed, or a collaborator fails. Only the latter is an error.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.applyInitial(); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			c.logger.Info("control loop stopped", zap.Error(ctx.Err()))
			return nil
		}
		if c.display != nil && c.display.Closed() {
			c.logger.Info("display closed")
			return nil
		}

		if err := c.gate.Wait(ctx, c.idle); err != nil {
			if errors.Is(err, errDisplayClosed) {
				c.logger.Info("display closed")
				return nil
			}
			if ctx.Err() != nil {
				c.logger.Info("control loop stopped", zap.Error(ctx.Err()))
				return nil
			}
			return err
		}

		if _, err := c.Step(); err != nil {
			return err
		}
	}
}

// Step runs one full control cycle on the next frame
func (c *Controller) Step() (Cycle, error) {
	start := c.clock.Now()
	var timing Timing

	frame, err := c.source.Next()
	if err != nil {
		return Cycle{}, fmt.Errorf("acquire frame: %w", err)
	}
	detectStart := c.clock.Now()
	timing.Acquire = detectStart.Sub(start)

	faces, err := c.locator.Locate(frame)
	if err != nil {
		return Cycle{}, fmt.Errorf("locate faces: %w", err)
	}
	meterStart := c.clock.Now()
	timing.Detection = meterStart.Sub(detectStart)

	roi := metering.Reduce(faces, frame.Width, frame.Height, c.config.Shrink)
	reading := metering.Meter(frame, roi)
	decision := c.config.Policy.Decide(reading.Median)
	next, adj := c.balancer.Update(c.state, decision)
	applyStart := c.clock.Now()
	timing.Metering = applyStart.Sub(meterStart)

	if err := c.apply(adj); err != nil {
		return Cycle{}, err
	}
	timing.Apply = c.clock.Now().Sub(applyStart)

	var hold time.Duration
	if adj.Any() {
		hold = c.gate.Arm(next.Exposure)
	}
	timing.Total = c.clock.Now().Sub(start)

	c.mu.Lock()
	c.seq++
	c.state = next
	cycle := Cycle{
		Seq:         c.seq,
		At:          start,
		FrameWidth:  frame.Width,
		FrameHeight: frame.Height,
		Faces:       faces,
		Reading:     reading,
		Decision:    decision,
		State:       next,
		Adjustment:  adj,
		Hold:        hold,
		Timing:      timing,
	}
	c.last = cycle
	c.mu.Unlock()

	if adj.Any() {
		c.logger.Info("settings changed",
			zap.Int("median", reading.Median),
			zap.Int("exposure", next.Exposure),
			zap.Int("gain", next.Gain),
			zap.Duration("hold", hold))
	} else {
		c.logger.Debug("cycle",
			zap.Int("faces", len(faces)),
			zap.Int("median", reading.Median),
			zap.Stringer("exposure_delta", decision.Exposure),
			zap.Stringer("gain_delta", decision.Gain))
	}

	if c.display != nil {
		c.display.Show(frame, cycle)
	}
	return cycle, nil
}

// Close releases the frame source and the locator
func (c *Controller) Close() error {
	var errs []error
	if err := c.locator.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close locator: %w", err))
	}
	if err := c.source.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Controller) applyInitial() error {
	s := c.State()
	if err := c.apply(exposure.Adjustment{
		Exposure: exposure.Setting{Value: s.Exposure, Changed: true},
		Gain:     exposure.Setting{Value: s.Gain, Changed: true},
	}); err != nil {
		return fmt.Errorf("initial settings: %w", err)
	}
	hold := c.gate.Arm(s.Exposure)
	c.logger.Info("initial settings applied",
		zap.Int("exposure", s.Exposure),
		zap.Int("gain", s.Gain),
		zap.Duration("hold", hold))
	return nil
}

func (c *Controller) apply(adj exposure.Adjustment) error {
	if adj.Exposure.Changed {
		if err := c.device.SetExposure(adj.Exposure.Value); err != nil {
			return fmt.Errorf("set exposure %d: %w", adj.Exposure.Value, err)
		}
	}
	if adj.Gain.Changed {
		if err := c.device.SetGain(adj.Gain.Value); err != nil {
			return fmt.Errorf("set gain %d: %w", adj.Gain.Value, err)
		}
	}
	return nil
}

// idle keeps frames flowing to the display while the gate is closed.
// Nothing is metered.
func (c *Controller) idle() error {
	frame, err := c.source.Next()
	if err != nil {
		return fmt.Errorf("acquire frame: %w", err)
	}
	if c.display == nil {
		return nil
	}
	c.display.Show(frame, c.LastCycle())
	if c.display.Closed() {
		return errDisplayClosed
	}
	return nil
}
