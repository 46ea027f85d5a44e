package metering

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledFrame(w, h int, v uint8) Frame {
	f := NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = v
	}
	return f
}

func randomFrame(t *testing.T, w, h int, lo, hi int, seed int64) Frame {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	f := NewFrame(w, h)
	for i := range f.Pix {
		f.Pix[i] = uint8(lo + rng.Intn(hi-lo+1))
	}
	return f
}

func TestHistogramSumEqualsArea(t *testing.T) {
	f := randomFrame(t, 64, 48, 0, 255, 1)
	rois := []Region{
		{X: 0, Y: 0, Width: 64, Height: 48},
		{X: 10, Y: 5, Width: 20, Height: 17},
		{X: 63, Y: 47, Width: 1, Height: 1},
		Reduce(nil, 64, 48, DefaultShrink),
	}
	for _, roi := range rois {
		h, area := Build(f, roi)
		assert.Equal(t, roi.Width*roi.Height, area, "roi %+v", roi)
		assert.Equal(t, area, h.Total(), "roi %+v", roi)
	}
}

func TestBuildClipsToFrame(t *testing.T) {
	f := filledFrame(10, 10, 7)
	h, area := Build(f, Region{X: 5, Y: 5, Width: 10, Height: 10})
	assert.Equal(t, 25, area)
	assert.Equal(t, 25, h[7])
}

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []uint8
		want   int
	}{
		{name: "uniform", values: []uint8{90, 90, 90, 90}, want: 90},
		{name: "odd count", values: []uint8{10, 20, 30, 40, 50}, want: 30},
		{name: "even count takes lower middle", values: []uint8{10, 20, 30, 40}, want: 20},
		{name: "extremes", values: []uint8{0, 255, 255}, want: 255},
		{name: "single", values: []uint8{200}, want: 200},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := FrameFromBytes(tc.values, len(tc.values), 1)
			require.NoError(t, err)
			r := Meter(f, f.Bounds())
			assert.Equal(t, tc.want, r.Median)
		})
	}
}

func TestMedianDegenerateROI(t *testing.T) {
	f := filledFrame(8, 8, 200)
	for _, roi := range []Region{
		{X: 2, Y: 2, Width: 0, Height: 4},
		{X: 2, Y: 2, Width: 4, Height: 0},
		{X: 2, Y: 2, Width: -3, Height: 4},
		{X: 20, Y: 20, Width: 4, Height: 4},
	} {
		r := Meter(f, roi)
		assert.Equal(t, 0, r.Area, "roi %+v", roi)
		assert.Equal(t, 0, r.Median, "roi %+v", roi)
	}
}

func TestMedianShiftsWithBrightness(t *testing.T) {
	base := randomFrame(t, 40, 30, 20, 180, 7)
	roi := Region{X: 5, Y: 4, Width: 24, Height: 18}
	m0 := Meter(base, roi).Median

	for _, shift := range []int{1, 13, 50, 75} {
		shifted := NewFrame(base.Width, base.Height)
		for i, v := range base.Pix {
			shifted.Pix[i] = uint8(int(v) + shift)
		}
		assert.Equal(t, m0+shift, Meter(shifted, roi).Median, "shift %d", shift)
	}
}

func TestLargest(t *testing.T) {
	_, ok := Largest(nil)
	assert.False(t, ok)

	regions := []Region{
		{X: 0, Y: 0, Width: 9, Height: 9},
		{X: 50, Y: 50, Width: 20, Height: 5},
		{X: 5, Y: 5, Width: 25, Height: 4},
		{X: 90, Y: 90, Width: 5, Height: 20},
	}
	got, ok := Largest(regions)
	require.True(t, ok)
	assert.Equal(t, regions[1], got, "first of the tied regions wins")
}

func TestShrink(t *testing.T) {
	tests := []struct {
		name string
		in   Region
		want Region
	}{
		{name: "even", in: Region{X: 0, Y: 0, Width: 100, Height: 50}, want: Region{X: 20, Y: 10, Width: 60, Height: 30}},
		{name: "offset", in: Region{X: 10, Y: 20, Width: 10, Height: 10}, want: Region{X: 12, Y: 22, Width: 6, Height: 6}},
		{name: "round half up", in: Region{X: 0, Y: 0, Width: 7, Height: 11}, want: Region{X: 2, Y: 2, Width: 4, Height: 7}},
		{name: "empty", in: Region{X: 3, Y: 3}, want: Region{X: 3, Y: 3}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Shrink(tc.in, DefaultShrink)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.Within(tc.in))
		})
	}
}

func TestReduceStaysInFrame(t *testing.T) {
	frame := Region{Width: 640, Height: 480}
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		x, y := rng.Intn(640), rng.Intn(480)
		r := Region{X: x, Y: y, Width: rng.Intn(640 - x + 1), Height: rng.Intn(480 - y + 1)}
		got := Reduce([]Region{r}, 640, 480, DefaultShrink)
		assert.True(t, got.Within(frame), "input %+v gave %+v", r, got)
	}
}

func TestReduceFallback(t *testing.T) {
	got := Reduce(nil, 640, 480, DefaultShrink)
	// 240x240 centered square, shrunk by 40%
	assert.Equal(t, Region{X: 248, Y: 168, Width: 144, Height: 144}, got)
}

func TestFrameFromGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 3))
	for i := range img.Pix {
		img.Pix[i] = uint8(i)
	}
	sub := img.SubImage(image.Rect(1, 1, 3, 3)).(*image.Gray)

	f := FrameFromGray(sub)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, []uint8{5, 6, 9, 10}, f.Pix)
}

func TestFrameFromBytesTooShort(t *testing.T) {
	_, err := FrameFromBytes(make([]uint8, 5), 3, 2)
	assert.Error(t, err)
}
