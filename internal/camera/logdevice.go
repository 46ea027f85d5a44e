package camera

import "go.uber.org/zap"

// LogDevice stands in for camera controls when replaying recorded frames.
// It only records what would have been applied.
type LogDevice struct {
	Logger   *zap.Logger
	Exposure int
	Gain     int
}

// SetExposure implements pipeline.Device
func (d *LogDevice) SetExposure(exposure int) error {
	d.Exposure = exposure
	d.logger().Info("exposure", zap.Int("value", exposure))
	return nil
}

// SetGain implements pipeline.Device
func (d *LogDevice) SetGain(gain int) error {
	d.Gain = gain
	d.logger().Info("gain", zap.Int("value", gain))
	return nil
}

func (d *LogDevice) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
