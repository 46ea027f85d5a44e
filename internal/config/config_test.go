package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/autoexpose/internal/exposure"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, -6, s.Exposure)
	assert.Equal(t, 100, s.Gain)
	assert.True(t, s.GainInBalanceWindow())
}

func TestLoadMissingDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	s, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	_, err = Load(path, true)
	require.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
exposure: -4
gain: 60
haarCascadeParamFile: /opt/cascade.xml
control:
  wantedValue: 110
  pollInterval: 20ms
camera:
  index: 2
  flip: false
log:
  level: debug
`)
	s, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, -4, s.Exposure)
	assert.Equal(t, 60, s.Gain)
	assert.Equal(t, "/opt/cascade.xml", s.HaarCascadeParamFile)
	assert.Equal(t, 110, s.Control.WantedValue)
	assert.Equal(t, 20*time.Millisecond, s.Control.PollInterval)
	assert.Equal(t, 2, s.Camera.Index)
	assert.False(t, s.Camera.Flip)
	assert.Equal(t, "debug", s.Log.Level)

	// untouched keys keep their defaults
	assert.Equal(t, exposure.DefaultExposureBand, s.Control.ExposureBand)
	assert.Equal(t, 640, s.Camera.Width)
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	path := writeFile(t, "exposure: -1\ngain: 300\n")
	_, err := Load(path, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, exposure.ErrExposureOutOfRange)
	assert.ErrorIs(t, err, exposure.ErrGainOutOfRange)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeFile(t, "exposure: [\n")
	_, err := Load(path, true)
	require.Error(t, err)
}

func TestValidateCollectsAllProblems(t *testing.T) {
	s := DefaultSettings()
	s.Control.Shrink = 1
	s.Control.SafetyMultiplier = 0.5
	s.Control.GainLow = 200
	s.Control.GainHigh = 100
	s.Locator.Kind = "dnn"
	s.Log.Level = "loud"

	err := s.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"shrink", "safetyMultiplier", "gainLow", "locator kind", "log level"} {
		assert.Contains(t, msg, want)
	}
}

func TestValidateLocatorRequirements(t *testing.T) {
	s := DefaultSettings()
	s.HaarCascadeParamFile = ""
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Locator.Kind = LocatorSCRFD
	s.Locator.ModelPath = ""
	assert.Error(t, s.Validate())

	s = DefaultSettings()
	s.Locator.Kind = LocatorPigo
	assert.NoError(t, s.Validate())
	assert.Equal(t, "models/facefinder", s.Locator.PigoCascade)

	s.Locator.ModelPath = ""
	assert.NoError(t, s.Validate())
	s.Locator.PigoCascade = ""
	assert.ErrorContains(t, s.Validate(), "pigoCascade")
}

func TestPipelineConfig(t *testing.T) {
	s := DefaultSettings()
	s.Gain = 80
	cfg := s.Pipeline()

	assert.Equal(t, 80, cfg.DefaultGain)
	assert.Equal(t, exposure.DefaultPolicy(), cfg.Policy)
	assert.Equal(t, s.Control.Shrink, cfg.Shrink)
	assert.Equal(t, s.Control.PollInterval, cfg.PollInterval)

	st, err := s.InitialState()
	require.NoError(t, err)
	assert.Equal(t, exposure.State{Exposure: -6, Gain: 80}, st)
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autoexpose.log")
	logger, cleanup, err := NewLogger(Log{Level: "debug", File: path})
	require.NoError(t, err)

	logger.Info("hello")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, _, err := NewLogger(Log{Level: "chatty"})
	assert.Error(t, err)
}

func TestSampleSettingsFileMatchesDefaults(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", "settings.yaml"), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}
