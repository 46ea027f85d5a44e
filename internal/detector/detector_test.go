package detector

import (
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/autoexpose/internal/metering"
)

func TestIoU(t *testing.T) {
	a := BoundingBox{0, 0, 10, 10}
	assert.InDelta(t, 1.0, iou(a, a), 1e-6)
	assert.Zero(t, iou(a, BoundingBox{20, 20, 30, 30}))
	assert.Zero(t, iou(a, BoundingBox{10, 0, 20, 10}), "touching edges do not overlap")
	// 50 overlap over 150 union
	assert.InDelta(t, 1.0/3.0, iou(a, BoundingBox{5, 0, 15, 10}), 1e-6)
}

func TestNMSKeepsBestOfOverlapping(t *testing.T) {
	faces := []Face{
		{BoundingBox: BoundingBox{0, 0, 10, 10}, Score: 0.6},
		{BoundingBox: BoundingBox{1, 1, 11, 11}, Score: 0.9},
		{BoundingBox: BoundingBox{50, 50, 60, 60}, Score: 0.7},
	}
	kept := nms(faces, 0.4)
	require.Len(t, kept, 2)
	assert.Equal(t, float32(0.9), kept[0].Score)
	assert.Equal(t, float32(0.7), kept[1].Score)

	assert.Empty(t, nms(nil, 0.4))
}

func TestBoundingBoxRegion(t *testing.T) {
	b := BoundingBox{X1: 10.4, Y1: 20.6, X2: 50.5, Y2: 61.2}
	assert.Equal(t, metering.Region{X: 10, Y: 21, Width: 41, Height: 40}, b.Region())

	sq := BoundingBox{X1: 10, Y1: 20, X2: 30, Y2: 60}
	assert.Equal(t, float32(800), sq.Area())
}

func TestRegionsDropsEmptyBoxes(t *testing.T) {
	regions := Regions([]Face{
		{BoundingBox: BoundingBox{0, 0, 0.2, 10}},
		{BoundingBox: BoundingBox{5, 5, 25, 35}},
	})
	assert.Equal(t, []metering.Region{{X: 5, Y: 5, Width: 20, Height: 30}}, regions)
}

func TestSCRFDPostprocess(t *testing.T) {
	s := &SCRFD{inputSize: 32, confThreshold: 0.5, numAnchors: 2}

	// stride 16 on a 32px input: 2x2 grid, 2 anchors per cell
	lv := levelOutput{
		stride: 16,
		scores: make([]float32, 8),
		bboxes: make([]float32, 8*4),
	}
	// anchor 6 is cell (x=1, y=1), center (16, 16)
	lv.scores[6] = 0.9
	copy(lv.bboxes[6*4:], []float32{0.5, 0.5, 0.5, 1})
	lv.scores[1] = 0.4

	faces := s.postprocess([]levelOutput{lv}, 0.5, 100, 100)
	require.Len(t, faces, 1)
	assert.Equal(t, float32(0.9), faces[0].Score)
	assert.Equal(t, BoundingBox{X1: 16, Y1: 16, X2: 48, Y2: 64}, faces[0].BoundingBox)
}

func TestSCRFDPostprocessClampsToFrame(t *testing.T) {
	s := &SCRFD{inputSize: 16, confThreshold: 0.5, numAnchors: 1}
	lv := levelOutput{
		stride: 16,
		scores: []float32{0.99},
		bboxes: []float32{4, 4, 4, 4},
	}
	faces := s.postprocess([]levelOutput{lv}, 1, 20, 10)
	require.Len(t, faces, 1)
	assert.Equal(t, BoundingBox{X1: 0, Y1: 0, X2: 20, Y2: 10}, faces[0].BoundingBox)
}

func TestBytesToFloat32(t *testing.T) {
	// 1.0 little endian
	got := bytesToFloat32([]byte{0x00, 0x00, 0x80, 0x3f, 0x00, 0x00, 0x00, 0xc0})
	assert.Equal(t, []float32{1, -2}, got)
}

func TestDetectionRegions(t *testing.T) {
	bounds := metering.Region{Width: 100, Height: 80}
	dets := []pigo.Detection{
		{Row: 40, Col: 50, Scale: 20, Q: 9},
		{Row: 5, Col: 5, Scale: 20, Q: 12},  // clipped at the corner
		{Row: 40, Col: 50, Scale: 30, Q: 1}, // too weak
	}
	regions := detectionRegions(dets, 5, bounds)
	assert.Equal(t, []metering.Region{
		{X: 40, Y: 30, Width: 20, Height: 20},
		{X: 0, Y: 0, Width: 15, Height: 15},
	}, regions)
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(Options{Kind: "dnn"}, nil)
	assert.ErrorContains(t, err, "unknown locator")
}

func TestNewPigoMissingCascade(t *testing.T) {
	_, err := New(Options{Kind: KindPigo, ModelPath: "models/scrfd_500m.onnx", PigoCascade: "does/not/exist"}, nil)
	assert.ErrorContains(t, err, "does/not/exist")
}
