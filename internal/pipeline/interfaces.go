package pipeline

import (
	"errors"

	"github.com/dudu/autoexpose/internal/metering"
)

// ErrEndOfStream is returned by a FrameSource that has no more frames
var ErrEndOfStream = errors.New("end of stream")

// FrameSource interface for frame acquisition
type FrameSource interface {
	Next() (metering.Frame, error)
	Close() error
}

// FaceLocator interface for face detection. An empty result is valid.
type FaceLocator interface {
	Locate(frame metering.Frame) ([]metering.Region, error)
	Close() error
}

// Device interface for pushing settings to the camera
type Device interface {
	SetExposure(exposure int) error
	SetGain(gain int) error
}

// Display interface for the optional preview
type Display interface {
	Show(frame metering.Frame, cycle Cycle)
	Closed() bool
}
