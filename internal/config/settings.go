// Package config loads the settings file and sets up logging.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dudu/autoexpose/internal/exposure"
	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pacing"
	"github.com/dudu/autoexpose/internal/pipeline"
)

// DefaultSettingsFile is read when no --settings flag is given
const DefaultSettingsFile = "./settings.yaml"

// Locator kinds
const (
	LocatorHaar  = "haar"
	LocatorSCRFD = "scrfd"
	LocatorPigo  = "pigo"
)

// Settings mirrors the YAML settings file
type Settings struct {
	Exposure             int     `yaml:"exposure"`
	Gain                 int     `yaml:"gain"`
	Contrast             float64 `yaml:"contrast"`
	Sharpness            float64 `yaml:"sharpness"`
	HaarCascadeParamFile string  `yaml:"haarCascadeParamFile"`

	Control Control `yaml:"control"`
	Camera  Camera  `yaml:"camera"`
	Locator Locator `yaml:"locator"`
	Log     Log     `yaml:"log"`
	Status  Status  `yaml:"status"`
}

// Control holds the metering and control loop tuning
type Control struct {
	WantedValue      int           `yaml:"wantedValue"`
	ExposureBand     int           `yaml:"exposureBand"`
	GainBand         int           `yaml:"gainBand"`
	Shrink           float64       `yaml:"shrink"`
	SafetyMultiplier float64       `yaml:"safetyMultiplier"`
	GainHigh         int           `yaml:"gainHigh"`
	GainLow          int           `yaml:"gainLow"`
	PollInterval     time.Duration `yaml:"pollInterval"`
}

// Camera selects and configures the capture device
type Camera struct {
	Index      int    `yaml:"index"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	FPS        int    `yaml:"fps"`
	Flip       bool   `yaml:"flip"`
	V4L2Device string `yaml:"v4l2Device"`
}

// Locator selects the face detection backend
type Locator struct {
	Kind        string  `yaml:"kind"`
	ModelPath   string  `yaml:"modelPath"`
	PigoCascade string  `yaml:"pigoCascade"`
	ONNXLibrary string  `yaml:"onnxLibrary"`
	MinSize     int     `yaml:"minSize"`
	Confidence  float64 `yaml:"confidence"`
}

// Log configures the zap logger
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Status configures the HTTP status endpoint. An empty address disables it.
type Status struct {
	Addr string `yaml:"addr"`
}

// DefaultSettings returns the settings used when no file is present
func DefaultSettings() Settings {
	return Settings{
		Exposure:             -6,
		Gain:                 100,
		Contrast:             32,
		Sharpness:            3,
		HaarCascadeParamFile: "./haarcascade_frontalface_default.xml",
		Control: Control{
			WantedValue:      exposure.DefaultWantedValue,
			ExposureBand:     exposure.DefaultExposureBand,
			GainBand:         exposure.DefaultGainBand,
			Shrink:           metering.DefaultShrink,
			SafetyMultiplier: pacing.DefaultMultiplier,
			GainHigh:         exposure.DefaultGainHigh,
			GainLow:          exposure.DefaultGainLow,
			PollInterval:     pacing.DefaultPollInterval,
		},
		Camera: Camera{
			Index:  0,
			Width:  640,
			Height: 480,
			FPS:    30,
			Flip:   true,
		},
		Locator: Locator{
			Kind:        LocatorHaar,
			ModelPath:   "models/scrfd_500m.onnx",
			PigoCascade: "models/facefinder",
			ONNXLibrary: "lib/libonnxruntime.so",
			MinSize:     30,
			Confidence:  0.5,
		},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 2,
		},
	}
}

// Load reads a settings file on top of the defaults. A missing file is only
// an error when required is set.
func Load(path string, required bool) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return s, nil
		}
		return Settings{}, fmt.Errorf("config: read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return s, nil
}

// Validate checks every value against its allowed range
func (s Settings) Validate() error {
	var errs []error
	if _, err := exposure.NewState(s.Exposure, exposure.MinGain); err != nil {
		errs = append(errs, err)
	}
	if _, err := exposure.NewState(exposure.MaxExposure, s.Gain); err != nil {
		errs = append(errs, err)
	}

	c := s.Control
	if c.WantedValue < 0 || c.WantedValue > 255 {
		errs = append(errs, fmt.Errorf("wantedValue must be between 0 and 255"))
	}
	if c.ExposureBand < 0 || c.GainBand < 0 {
		errs = append(errs, fmt.Errorf("hysteresis bands must not be negative"))
	}
	if c.GainBand > c.ExposureBand {
		errs = append(errs, fmt.Errorf("gainBand must not exceed exposureBand"))
	}
	if c.Shrink < 0 || c.Shrink >= 1 {
		errs = append(errs, fmt.Errorf("shrink must be in [0, 1)"))
	}
	if c.SafetyMultiplier < 1 {
		errs = append(errs, fmt.Errorf("safetyMultiplier must be at least 1"))
	}
	if c.GainLow < exposure.MinGain || c.GainHigh > exposure.MaxGain || c.GainLow >= c.GainHigh {
		errs = append(errs, fmt.Errorf("gainLow/gainHigh must satisfy 0 <= gainLow < gainHigh <= 255"))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("pollInterval must be positive"))
	}

	if s.Camera.Index < 0 {
		errs = append(errs, fmt.Errorf("camera index must not be negative"))
	}
	if s.Camera.Width < 0 || s.Camera.Height < 0 || s.Camera.FPS < 0 {
		errs = append(errs, fmt.Errorf("camera width/height/fps must not be negative"))
	}

	switch s.Locator.Kind {
	case LocatorHaar:
		if s.HaarCascadeParamFile == "" {
			errs = append(errs, fmt.Errorf("haarCascadeParamFile is required for the haar locator"))
		}
	case LocatorSCRFD:
		if s.Locator.ModelPath == "" {
			errs = append(errs, fmt.Errorf("locator modelPath is required for scrfd"))
		}
	case LocatorPigo:
		if s.Locator.PigoCascade == "" {
			errs = append(errs, fmt.Errorf("locator pigoCascade is required for pigo"))
		}
	default:
		errs = append(errs, fmt.Errorf("locator kind must be haar, scrfd or pigo, got %q", s.Locator.Kind))
	}

	if _, err := parseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GainInBalanceWindow reports whether the default gain sits between the
// balancing thresholds. Outside of it every cycle rebalances exposure.
func (s Settings) GainInBalanceWindow() bool {
	return s.Gain >= s.Control.GainLow && s.Gain <= s.Control.GainHigh
}

// Pipeline converts the control section into a loop configuration
func (s Settings) Pipeline() pipeline.Config {
	return pipeline.Config{
		Policy: exposure.Policy{
			WantedValue:  s.Control.WantedValue,
			ExposureBand: s.Control.ExposureBand,
			GainBand:     s.Control.GainBand,
		},
		Shrink:       s.Control.Shrink,
		Multiplier:   s.Control.SafetyMultiplier,
		PollInterval: s.Control.PollInterval,
		DefaultGain:  s.Gain,
		GainHigh:     s.Control.GainHigh,
		GainLow:      s.Control.GainLow,
	}
}

// InitialState returns the validated starting exposure/gain
func (s Settings) InitialState() (exposure.State, error) {
	return exposure.NewState(s.Exposure, s.Gain)
}
