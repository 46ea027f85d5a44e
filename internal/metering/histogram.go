package metering

// Bins is the number of brightness levels in a Histogram
const Bins = 256

// Histogram counts pixels per brightness value
type Histogram [Bins]int

// Total returns the number of counted pixels
func (h *Histogram) Total() int {
	n := 0
	for _, c := range h {
		n += c
	}
	return n
}

// Median returns the smallest value v whose cumulative count over [0..v]
// reaches half of area. A zero area gives 0.
func (h *Histogram) Median(area int) int {
	if area <= 0 {
		return 0
	}
	cum := 0
	for v, c := range h {
		cum += c
		if 2*cum >= area {
			return v
		}
	}
	return Bins - 1
}

// Build counts every pixel of roi. The roi is clipped to the frame first;
// the returned area is the clipped pixel count.
func Build(f Frame, roi Region) (Histogram, int) {
	var h Histogram
	r := roi.Intersect(f.Bounds())
	for y := r.Y; y < r.Y+r.Height; y++ {
		row := f.Pix[y*f.Width+r.X : y*f.Width+r.X+r.Width]
		for _, v := range row {
			h[v]++
		}
	}
	return h, r.Area()
}

// Reading is the result of metering one ROI
type Reading struct {
	ROI       Region    `json:"roi"`
	Area      int       `json:"area"`
	Median    int       `json:"median"`
	Histogram Histogram `json:"-"`
}

// Meter builds the histogram over roi and derives the median brightness
func Meter(f Frame, roi Region) Reading {
	h, area := Build(f, roi)
	return Reading{
		ROI:       roi,
		Area:      area,
		Median:    h.Median(area),
		Histogram: h,
	}
}
