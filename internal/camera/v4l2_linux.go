//go:build linux

package camera

import (
	"fmt"
	"sync"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
	"go.uber.org/zap"
)

// manual mode for V4L2_CID_EXPOSURE_AUTO
const exposureManual = 1

// V4L2Controls drives exposure and gain directly through V4L2 controls,
// bypassing the capture backend's property mapping.
type V4L2Controls struct {
	dev      *device.Device
	path     string
	exposure ControlRange
	gain     ControlRange
	logger   *zap.Logger
	mu       sync.Mutex
}

// OpenV4L2Controls opens a device node such as /dev/video0 and switches it
// to manual exposure.
func OpenV4L2Controls(path string, logger *zap.Logger) (*V4L2Controls, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dev, err := device.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	c := &V4L2Controls{dev: dev, path: path, logger: logger}
	c.exposure = c.rangeOf(v4l2.CtrlExposureAbsolute)
	c.gain = c.rangeOf(v4l2.CtrlGain)

	if err := dev.SetControlValue(v4l2.CtrlExposureAuto, exposureManual); err != nil {
		logger.Warn("could not disable auto exposure", zap.String("device", path), zap.Error(err))
	}
	return c, nil
}

func (c *V4L2Controls) rangeOf(id v4l2.CtrlID) ControlRange {
	ctrl, err := v4l2.GetControl(c.dev.Fd(), id)
	if err != nil {
		c.logger.Warn("control not supported", zap.String("device", c.path), zap.Uint32("id", uint32(id)), zap.Error(err))
		return ControlRange{}
	}
	return ControlRange{Min: ctrl.Minimum, Max: ctrl.Maximum}
}

// SetExposure sets the absolute exposure time for exponent e
func (c *V4L2Controls) SetExposure(e int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := ExposureUnits(e, c.exposure)
	if err := c.dev.SetControlValue(v4l2.CtrlExposureAbsolute, v4l2.CtrlValue(v)); err != nil {
		return fmt.Errorf("%s: exposure %d: %w", c.path, v, err)
	}
	return nil
}

// SetGain sets the analog gain
func (c *V4L2Controls) SetGain(gain int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := GainUnits(gain, c.gain)
	if err := c.dev.SetControlValue(v4l2.CtrlGain, v4l2.CtrlValue(v)); err != nil {
		return fmt.Errorf("%s: gain %d: %w", c.path, v, err)
	}
	return nil
}

// Close releases the device node
func (c *V4L2Controls) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dev.Close()
}
