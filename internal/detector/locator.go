package detector

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dudu/autoexpose/internal/inference"
	"github.com/dudu/autoexpose/internal/metering"
)

// Locator kinds
const (
	KindHaar  = "haar"
	KindSCRFD = "scrfd"
	KindPigo  = "pigo"
)

// Locator is a face detector returning pixel regions
type Locator interface {
	Locate(frame metering.Frame) ([]metering.Region, error)
	Close() error
}

// Options selects and tunes a locator
type Options struct {
	Kind        string
	HaarFile    string
	ModelPath   string // scrfd onnx model
	PigoCascade string // packed pigo facefinder cascade
	ONNXLibrary string
	MinSize     int
	Confidence  float64
}

// New builds the locator named by opts.Kind
func New(opts Options, logger *zap.Logger) (Locator, error) {
	switch opts.Kind {
	case KindHaar, "":
		h, err := NewHaar(opts.HaarFile, opts.MinSize)
		if err != nil {
			return nil, err
		}
		return h, nil
	case KindPigo:
		p, err := NewPigo(opts.PigoCascade, opts.MinSize, 0)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindSCRFD:
		if err := inference.Initialize(opts.ONNXLibrary); err != nil {
			return nil, err
		}
		s, err := NewSCRFD(opts.ModelPath, DefaultSCRFDInputSize, float32(opts.Confidence), DefaultSCRFDNMS, logger)
		if err != nil {
			_ = inference.Shutdown()
			return nil, err
		}
		return &runtimeOwner{Locator: s}, nil
	default:
		return nil, fmt.Errorf("unknown locator %q", opts.Kind)
	}
}

// runtimeOwner tears down the ONNX environment with the last session
type runtimeOwner struct {
	Locator
}

func (r *runtimeOwner) Close() error {
	err := r.Locator.Close()
	if serr := inference.Shutdown(); err == nil {
		err = serr
	}
	return err
}
