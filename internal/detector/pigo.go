package detector

import (
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/dudu/autoexpose/internal/metering"
)

// Pigo cascade tuning
const (
	PigoShiftFactor  = 0.1
	PigoScaleFactor  = 1.1
	PigoIoUThreshold = 0.2
	// PigoMinQuality drops weak detections, Q is unbounded above
	PigoMinQuality = 5.0
)

// Pigo locates faces with the pure Go pixel intensity comparison cascade
type Pigo struct {
	classifier *pigo.Pigo
	minSize    int
	minQ       float32
}

// NewPigo unpacks a facefinder cascade file
func NewPigo(path string, minSize int, minQuality float32) (*Pigo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pigo cascade: %w", err)
	}
	p := pigo.NewPigo()
	classifier, err := p.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack pigo cascade %s: %w", path, err)
	}
	if minSize <= 0 {
		minSize = DefaultMinFace
	}
	if minQuality <= 0 {
		minQuality = PigoMinQuality
	}
	return &Pigo{classifier: classifier, minSize: minSize, minQ: minQuality}, nil
}

// Locate implements pipeline.FaceLocator
func (p *Pigo) Locate(f metering.Frame) ([]metering.Region, error) {
	if f.Empty() {
		return nil, nil
	}
	params := pigo.CascadeParams{
		MinSize:     p.minSize,
		MaxSize:     max(f.Width, f.Height),
		ShiftFactor: PigoShiftFactor,
		ScaleFactor: PigoScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: f.Pix,
			Rows:   f.Height,
			Cols:   f.Width,
			Dim:    f.Width,
		},
	}
	dets := p.classifier.RunCascade(params, 0.0)
	dets = p.classifier.ClusterDetections(dets, PigoIoUThreshold)
	return detectionRegions(dets, p.minQ, f.Bounds()), nil
}

// detectionRegions turns centered square detections into regions. Pigo
// reports the center as (Col, Row) and the side as Scale.
func detectionRegions(dets []pigo.Detection, minQ float32, bounds metering.Region) []metering.Region {
	regions := make([]metering.Region, 0, len(dets))
	for _, d := range dets {
		if d.Q < minQ {
			continue
		}
		half := d.Scale / 2
		r := metering.Region{X: d.Col - half, Y: d.Row - half, Width: d.Scale, Height: d.Scale}
		r = r.Intersect(bounds)
		if r.Area() == 0 {
			continue
		}
		regions = append(regions, r)
	}
	return regions
}

// Close is a no-op, the cascade lives in Go memory
func (p *Pigo) Close() error {
	return nil
}
