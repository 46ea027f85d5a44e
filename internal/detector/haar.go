package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/autoexpose/internal/metering"
)

// Haar cascade tuning
const (
	HaarScaleFactor  = 1.1
	HaarMinNeighbors = 3
	DefaultMinFace   = 30
)

// Haar locates faces with an OpenCV Haar cascade
type Haar struct {
	classifier gocv.CascadeClassifier
	minSize    int
	mu         sync.Mutex
}

// NewHaar loads a cascade XML file such as haarcascade_frontalface_default.xml
func NewHaar(path string, minSize int) (*Haar, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load haar cascade %s", path)
	}
	if minSize <= 0 {
		minSize = DefaultMinFace
	}
	return &Haar{classifier: classifier, minSize: minSize}, nil
}

// Locate implements pipeline.FaceLocator
func (h *Haar) Locate(f metering.Frame) ([]metering.Region, error) {
	if f.Empty() {
		return nil, nil
	}
	gray, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("haar: wrap frame: %w", err)
	}
	defer gray.Close()

	h.mu.Lock()
	rects := h.classifier.DetectMultiScaleWithParams(
		gray,
		HaarScaleFactor,
		HaarMinNeighbors,
		0,
		image.Pt(h.minSize, h.minSize),
		image.Pt(0, 0), // no upper bound
	)
	h.mu.Unlock()

	regions := make([]metering.Region, 0, len(rects))
	for _, r := range rects {
		regions = append(regions, metering.RegionFromRect(r))
	}
	return regions, nil
}

// Close releases the classifier
func (h *Haar) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.classifier.Close()
}
