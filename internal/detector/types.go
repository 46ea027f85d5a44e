// Package detector locates faces in grayscale frames.
package detector

import (
	"math"

	"github.com/dudu/autoexpose/internal/metering"
)

// BoundingBox represents a face bounding box
type BoundingBox struct {
	X1, Y1 float32 // top-left
	X2, Y2 float32 // bottom-right
}

// Width returns box width
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns box height
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns box area
func (b BoundingBox) Area() float32 {
	return b.Width() * b.Height()
}

// Region snaps the box to whole pixels
func (b BoundingBox) Region() metering.Region {
	x1 := int(math.Round(float64(b.X1)))
	y1 := int(math.Round(float64(b.Y1)))
	x2 := int(math.Round(float64(b.X2)))
	y2 := int(math.Round(float64(b.Y2)))
	return metering.Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Face represents a detected face
type Face struct {
	BoundingBox BoundingBox
	Score       float32
}

// Regions converts faces to pixel regions, dropping empty boxes
func Regions(faces []Face) []metering.Region {
	regions := make([]metering.Region, 0, len(faces))
	for _, f := range faces {
		r := f.BoundingBox.Region()
		if r.Area() == 0 {
			continue
		}
		regions = append(regions, r)
	}
	return regions
}
