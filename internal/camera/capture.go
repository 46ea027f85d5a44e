// Package camera provides frame sources and exposure/gain sinks.
package camera

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pipeline"
)

// Options configures a webcam capture
type Options struct {
	DeviceID  int
	Width     int
	Height    int
	TargetFPS int
	// Mirror flips every frame horizontally
	Mirror bool
}

// Capture reads grayscale frames from a webcam and drives its manual
// exposure controls through the same handle.
type Capture struct {
	webcam *gocv.VideoCapture
	opts   Options
	width  int
	height int
	mu     sync.Mutex

	raw    gocv.Mat
	gray   gocv.Mat
	mirror gocv.Mat
}

// NewCapture opens a webcam at the requested resolution
func NewCapture(opts Options) (*Capture, error) {
	webcam, err := gocv.OpenVideoCapture(opts.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", opts.DeviceID, err)
	}

	if opts.Width > 0 && opts.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	if opts.TargetFPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(opts.TargetFPS))
	}

	// Camera may not support the requested resolution
	actualWidth := int(webcam.Get(gocv.VideoCaptureFrameWidth))
	actualHeight := int(webcam.Get(gocv.VideoCaptureFrameHeight))

	return &Capture{
		webcam: webcam,
		opts:   opts,
		width:  actualWidth,
		height: actualHeight,
		raw:    gocv.NewMat(),
		gray:   gocv.NewMat(),
		mirror: gocv.NewMat(),
	}, nil
}

// Next grabs one frame and returns its luminance plane
func (c *Capture) Next() (metering.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return metering.Frame{}, pipeline.ErrEndOfStream
	}
	if ok := c.webcam.Read(&c.raw); !ok || c.raw.Empty() {
		return metering.Frame{}, fmt.Errorf("camera %d: no frame", c.opts.DeviceID)
	}

	src := c.raw
	if src.Channels() > 1 {
		gocv.CvtColor(src, &c.gray, gocv.ColorBGRToGray)
		src = c.gray
	}
	if c.opts.Mirror {
		gocv.Flip(src, &c.mirror, 1)
		src = c.mirror
	}

	return matToFrame(src)
}

// ApplyControls disables auto exposure and pushes the full manual setting
// set. Contrast and sharpness are only set here.
func (c *Capture) ApplyControls(exposure, gain int, contrast, sharpness float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return fmt.Errorf("camera %d: closed", c.opts.DeviceID)
	}
	c.webcam.Set(gocv.VideoCaptureAutoExposure, 0)
	c.webcam.Set(gocv.VideoCaptureExposure, float64(exposure))
	c.webcam.Set(gocv.VideoCaptureGain, float64(gain))
	c.webcam.Set(gocv.VideoCaptureContrast, contrast)
	c.webcam.Set(gocv.VideoCaptureSharpness, sharpness)
	return nil
}

// SetExposure sets the exposure exponent, 2^e seconds
func (c *Capture) SetExposure(exposure int) error {
	return c.set(gocv.VideoCaptureExposure, float64(exposure))
}

// SetGain sets the sensor gain
func (c *Capture) SetGain(gain int) error {
	return c.set(gocv.VideoCaptureGain, float64(gain))
}

func (c *Capture) set(prop gocv.VideoCaptureProperties, v float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return fmt.Errorf("camera %d: closed", c.opts.DeviceID)
	}
	c.webcam.Set(prop, v)
	return nil
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the camera
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		c.raw.Close()
		c.gray.Close()
		c.mirror.Close()
		return err
	}
	return nil
}

// matToFrame copies a single channel 8-bit Mat into a Frame
func matToFrame(m gocv.Mat) (metering.Frame, error) {
	if m.Type() != gocv.MatTypeCV8UC1 {
		return metering.Frame{}, fmt.Errorf("camera: unsupported mat type %v", m.Type())
	}
	buf := m.ToBytes()
	pix := make([]uint8, len(buf))
	copy(pix, buf)
	return metering.FrameFromBytes(pix, m.Cols(), m.Rows())
}
