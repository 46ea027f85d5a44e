package camera

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudu/autoexpose/internal/pipeline"
)

func TestExposureUnits(t *testing.T) {
	open := ControlRange{}
	assert.Equal(t, int32(2500), ExposureUnits(-2, open))
	assert.Equal(t, int32(625), ExposureUnits(-4, open))
	assert.Equal(t, int32(5), ExposureUnits(-11, open))

	r := ControlRange{Min: 10, Max: 2047}
	assert.Equal(t, int32(10), ExposureUnits(-11, r))
	assert.Equal(t, int32(2047), ExposureUnits(-2, r))
	assert.Equal(t, int32(1250), ExposureUnits(-3, r))
}

func TestGainUnits(t *testing.T) {
	assert.Equal(t, int32(77), GainUnits(77, ControlRange{}))

	r := ControlRange{Min: 0, Max: 100}
	assert.Equal(t, int32(0), GainUnits(0, r))
	assert.Equal(t, int32(100), GainUnits(255, r))
	assert.Equal(t, int32(50), GainUnits(128, r))

	shifted := ControlRange{Min: 16, Max: 271}
	assert.Equal(t, int32(116), GainUnits(100, shifted))
}

func saveFlat(t *testing.T, dir, name string, w, h int, c color.Color) {
	t.Helper()
	img := imaging.New(w, h, c)
	require.NoError(t, imaging.Save(img, filepath.Join(dir, name)))
}

func TestSequenceReplaysInOrder(t *testing.T) {
	dir := t.TempDir()
	saveFlat(t, dir, "b.png", 8, 6, color.Gray{Y: 200})
	saveFlat(t, dir, "a.png", 8, 6, color.Gray{Y: 40})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	seq, err := NewSequence(dir, SequenceOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, seq.Len())

	f, err := seq.Next()
	require.NoError(t, err)
	assert.Equal(t, 8, f.Width)
	assert.Equal(t, 6, f.Height)
	assert.Equal(t, uint8(40), f.At(3, 3))

	f, err = seq.Next()
	require.NoError(t, err)
	assert.Equal(t, uint8(200), f.At(0, 0))

	_, err = seq.Next()
	assert.ErrorIs(t, err, pipeline.ErrEndOfStream)
}

func TestSequenceLoopAndResize(t *testing.T) {
	dir := t.TempDir()
	saveFlat(t, dir, "only.png", 20, 10, color.Gray{Y: 128})

	seq, err := NewSequence(filepath.Join(dir, "only.png"), SequenceOptions{Width: 10, Height: 5, Loop: true})
	require.NoError(t, err)

	for range 3 {
		f, err := seq.Next()
		require.NoError(t, err)
		assert.Equal(t, 10, f.Width)
		assert.Equal(t, 5, f.Height)
		assert.InDelta(t, 128, int(f.At(5, 2)), 1)
	}
}

func TestSequenceEmptyDir(t *testing.T) {
	_, err := NewSequence(t.TempDir(), SequenceOptions{})
	assert.Error(t, err)

	_, err = NewSequence(filepath.Join(t.TempDir(), "missing"), SequenceOptions{})
	assert.Error(t, err)
}

func TestGrayFrameMirror(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 1))
	img.Pix = []uint8{10, 20, 30, 40}

	seq := &Sequence{mirror: true}
	f := seq.prepare(img)
	assert.Equal(t, []uint8{40, 30, 20, 10}, f.Pix)

	f = GrayFrame(img)
	assert.Equal(t, []uint8{10, 20, 30, 40}, f.Pix)
}

func TestLogDeviceRecords(t *testing.T) {
	d := &LogDevice{}
	require.NoError(t, d.SetExposure(-7))
	require.NoError(t, d.SetGain(42))
	assert.Equal(t, -7, d.Exposure)
	assert.Equal(t, 42, d.Gain)
}
