package metering

import "image"

// Region is an axis-aligned rectangle in frame coordinates
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RegionFromRect converts an image.Rectangle
func RegionFromRect(r image.Rectangle) Region {
	r = r.Canon()
	return Region{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Area returns width * height, or 0 for degenerate regions
func (r Region) Area() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Rect converts to an image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Intersect returns the overlap of r and s. Disjoint regions give a zero-area result.
func (r Region) Intersect(s Region) Region {
	if r.Area() == 0 || s.Area() == 0 {
		return Region{}
	}
	i := r.Rect().Intersect(s.Rect())
	if i.Empty() {
		return Region{}
	}
	return RegionFromRect(i)
}

// Within reports whether r lies entirely inside s
func (r Region) Within(s Region) bool {
	return r.X >= s.X && r.Y >= s.Y &&
		r.X+r.Width <= s.X+s.Width &&
		r.Y+r.Height <= s.Y+s.Height
}
