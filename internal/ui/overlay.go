// Package ui renders the preview window and its overlay.
package ui

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pipeline"
)

var (
	faceColor = color.RGBA{R: 255, G: 128, B: 0, A: 255}
	roiColor  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	textColor = color.RGBA{R: 0, G: 255, B: 255, A: 255}
)

// Annotate renders a frame with its detected faces, the metered ROI and the
// control state. The caller closes the returned Mat.
func Annotate(frame metering.Frame, cycle pipeline.Cycle, fps float64) (gocv.Mat, error) {
	gray, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC1, frame.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("wrap frame: %w", err)
	}
	defer gray.Close()

	out := gocv.NewMat()
	gocv.CvtColor(gray, &out, gocv.ColorGrayToBGR)

	for _, f := range cycle.Faces {
		gocv.Rectangle(&out, f.Rect(), faceColor, 1)
	}
	if cycle.Reading.Area > 0 {
		gocv.Rectangle(&out, cycle.Reading.ROI.Rect(), roiColor, 2)
	}

	for i, line := range StatusLines(cycle, fps) {
		gocv.PutText(&out, line, image.Pt(10, 20+18*i),
			gocv.FontHersheyPlain, 1.2, textColor, 1)
	}
	return out, nil
}

// StatusLines formats the overlay text
func StatusLines(cycle pipeline.Cycle, fps float64) []string {
	lines := []string{
		fmt.Sprintf("FPS: %.1f", fps),
		fmt.Sprintf("exposure %d  gain %d", cycle.State.Exposure, cycle.State.Gain),
		fmt.Sprintf("median %d  faces %d", cycle.Reading.Median, len(cycle.Faces)),
	}
	if cycle.Adjustment.Any() {
		lines = append(lines, fmt.Sprintf("adjusting, hold %s", cycle.Hold))
	} else {
		lines = append(lines, fmt.Sprintf("exp %s  gain %s", cycle.Decision.Exposure, cycle.Decision.Gain))
	}
	return lines
}
