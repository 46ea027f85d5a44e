//go:build !linux

package camera

import (
	"errors"

	"go.uber.org/zap"
)

// V4L2Controls is only available on linux
type V4L2Controls struct{}

// OpenV4L2Controls always fails off linux
func OpenV4L2Controls(path string, logger *zap.Logger) (*V4L2Controls, error) {
	return nil, errors.New("v4l2 controls are only supported on linux")
}

func (c *V4L2Controls) SetExposure(int) error { return errors.ErrUnsupported }
func (c *V4L2Controls) SetGain(int) error     { return errors.ErrUnsupported }
func (c *V4L2Controls) Close() error          { return nil }
