package metering

import "math"

// DefaultShrink is the fraction removed from each ROI dimension
const DefaultShrink = 0.4

// Largest returns the region with the greatest area. Ties keep the first one.
func Largest(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best, true
}

// Fallback is the centered square used when no face was found.
// Its side is half the frame height.
func Fallback(frameWidth, frameHeight int) Region {
	side := frameHeight / 2
	return Region{
		X:      (frameWidth - side) / 2,
		Y:      (frameHeight - side) / 2,
		Width:  side,
		Height: side,
	}
}

// Shrink cuts each dimension by the given fraction, keeping the region centered.
// Sizes and offsets are rounded half up.
func Shrink(r Region, shrink float64) Region {
	w := roundHalfUp(float64(r.Width) * (1 - shrink))
	h := roundHalfUp(float64(r.Height) * (1 - shrink))
	return Region{
		X:      r.X + roundHalfUp(float64(r.Width-w)/2),
		Y:      r.Y + roundHalfUp(float64(r.Height-h)/2),
		Width:  w,
		Height: h,
	}
}

// Reduce picks the metering ROI for one cycle: the largest candidate, or the
// fallback square when there is none, shrunk inward.
func Reduce(regions []Region, frameWidth, frameHeight int, shrink float64) Region {
	r, ok := Largest(regions)
	if !ok {
		r = Fallback(frameWidth, frameHeight)
	}
	return Shrink(r, shrink)
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
