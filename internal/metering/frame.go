// Package metering derives a brightness statistic from a region of a grayscale frame.
package metering

import (
	"fmt"
	"image"
)

// Frame is a grayscale image, one luma sample per pixel, row-major
type Frame struct {
	Pix    []uint8
	Width  int
	Height int
}

// NewFrame allocates a black frame of the given size
func NewFrame(width, height int) Frame {
	return Frame{
		Pix:    make([]uint8, width*height),
		Width:  width,
		Height: height,
	}
}

// FrameFromBytes wraps raw 8-bit luma without copying
func FrameFromBytes(pix []uint8, width, height int) (Frame, error) {
	if width < 0 || height < 0 {
		return Frame{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if len(pix) < width*height {
		return Frame{}, fmt.Errorf("frame buffer too short: %d bytes for %dx%d", len(pix), width, height)
	}
	return Frame{Pix: pix[:width*height], Width: width, Height: height}, nil
}

// FrameFromGray copies an image.Gray into a Frame
func FrameFromGray(img *image.Gray) Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	for y := 0; y < f.Height; y++ {
		off := img.PixOffset(b.Min.X, b.Min.Y+y)
		copy(f.Pix[y*f.Width:(y+1)*f.Width], img.Pix[off:off+f.Width])
	}
	return f
}

// At returns the sample at (x, y)
func (f Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// Set writes the sample at (x, y)
func (f Frame) Set(x, y int, v uint8) {
	f.Pix[y*f.Width+x] = v
}

// Bounds returns the frame rectangle anchored at the origin
func (f Frame) Bounds() Region {
	return Region{Width: f.Width, Height: f.Height}
}

// Empty reports whether the frame holds no pixels
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0
}

// Gray returns an image.Gray view sharing the frame's buffer
func (f Frame) Gray() *image.Gray {
	return &image.Gray{
		Pix:    f.Pix,
		Stride: f.Width,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
