package detector

import (
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/dudu/autoexpose/internal/inference"
	"github.com/dudu/autoexpose/internal/metering"
)

// SCRFD defaults
const (
	DefaultSCRFDInputSize = 640
	DefaultSCRFDNMS       = 0.4
)

// SCRFD locates faces with the SCRFD ONNX model
type SCRFD struct {
	session        *inference.Session
	inputSize      int
	confThreshold  float32
	nmsThreshold   float32
	featureStrides []int
	numAnchors     int
	bgr            gocv.Mat
}

// NewSCRFD creates a new SCRFD detector. inference.Initialize must have been
// called first.
func NewSCRFD(modelPath string, inputSize int, confThreshold, nmsThreshold float32, logger *zap.Logger) (*SCRFD, error) {
	// score and bbox for each of the 3 strides, keypoints are not fetched
	inputNames := []string{"input.1"}
	outputNames := []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
	}

	missing, err := inference.MissingOutputs(modelPath, outputNames)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is not an SCRFD model, missing outputs %v", modelPath, missing)
	}

	session, err := inference.NewSession(modelPath, inputNames, outputNames, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}
	if inputSize <= 0 {
		inputSize = DefaultSCRFDInputSize
	}

	return &SCRFD{
		session:        session,
		inputSize:      inputSize,
		confThreshold:  confThreshold,
		nmsThreshold:   nmsThreshold,
		featureStrides: []int{8, 16, 32},
		numAnchors:     2,
		bgr:            gocv.NewMat(),
	}, nil
}

// Locate implements pipeline.FaceLocator
func (s *SCRFD) Locate(f metering.Frame) ([]metering.Region, error) {
	gray, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC1, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("scrfd: wrap frame: %w", err)
	}
	defer gray.Close()

	gocv.CvtColor(gray, &s.bgr, gocv.ColorGrayToBGR)
	faces, err := s.Detect(s.bgr)
	if err != nil {
		return nil, err
	}
	return Regions(faces), nil
}

// Detect finds faces in a BGR image
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	origHeight := img.Rows()
	origWidth := img.Cols()

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		bytesToFloat32(inputBlob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, 6)
	outputTensors := make([]*ort.Tensor[float32], 0, 6)
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	widths := []int64{1, 4}
	for kind, width := range widths {
		for level, stride := range s.featureStrides {
			side := s.inputSize / stride
			anchors := int64(side * side * s.numAnchors)
			t, err := inference.CreateEmptyTensor[float32]([]int64{anchors, width})
			if err != nil {
				return nil, fmt.Errorf("failed to create output tensor: %w", err)
			}
			outputs[kind*3+level] = t
			outputTensors = append(outputTensors, t)
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	levels := make([]levelOutput, len(s.featureStrides))
	for i, stride := range s.featureStrides {
		levels[i] = levelOutput{
			stride: stride,
			scores: outputTensors[i].GetData(),
			bboxes: outputTensors[i+3].GetData(),
		}
	}
	faces := s.postprocess(levels, scale, origWidth, origHeight)
	return nms(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image into the model input and returns the
// NCHW blob with its resize scale.
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	height := img.Rows()
	width := img.Cols()

	scale := float32(s.inputSize) / float32(max(height, width))
	newWidth := int(float32(width) * scale)
	newHeight := int(float32(height) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	defer padded.Close()
	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	// (x - 127.5) / 128, BGR to RGB
	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	return blob, scale
}

type levelOutput struct {
	stride int
	scores []float32
	bboxes []float32
}

// postprocess decodes anchor distances into boxes in source pixel space
func (s *SCRFD) postprocess(levels []levelOutput, scale float32, origWidth, origHeight int) []Face {
	var faces []Face

	for _, lv := range levels {
		side := s.inputSize / lv.stride
		stride := float32(lv.stride)

		anchor := 0
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				for a := 0; a < s.numAnchors; a++ {
					idx := anchor
					anchor++
					if idx >= len(lv.scores) {
						continue
					}
					// scores are already sigmoid activated
					score := lv.scores[idx]
					if score <= s.confThreshold {
						continue
					}

					// anchor centers sit on grid corners
					cx := float32(x) * stride
					cy := float32(y) * stride

					b := lv.bboxes[idx*4 : idx*4+4]
					box := BoundingBox{
						X1: clamp((cx-b[0]*stride)/scale, 0, float32(origWidth)),
						Y1: clamp((cy-b[1]*stride)/scale, 0, float32(origHeight)),
						X2: clamp((cx+b[2]*stride)/scale, 0, float32(origWidth)),
						Y2: clamp((cy+b[3]*stride)/scale, 0, float32(origHeight)),
					}

					faces = append(faces, Face{BoundingBox: box, Score: score})
				}
			}
		}
	}
	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	s.bgr.Close()
	return s.session.Destroy()
}

func clamp(x, lo, hi float32) float32 {
	return max(lo, min(hi, x))
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		bits := uint32(data[i*4]) | uint32(data[i*4+1])<<8 | uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
		result[i] = math.Float32frombits(bits)
	}
	return result
}
