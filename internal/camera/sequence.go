package camera

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pipeline"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff"}

// Sequence replays still images from disk as a frame source
type Sequence struct {
	files  []string
	pos    int
	width  int
	height int
	mirror bool
	loop   bool
}

// SequenceOptions configures a Sequence
type SequenceOptions struct {
	// Width and Height resize every frame when both are set
	Width  int
	Height int
	Mirror bool
	// Loop restarts at the first file instead of ending the stream
	Loop bool
}

// NewSequence lists path, a single image or a directory of images, in
// lexical order.
func NewSequence(path string, opts SequenceOptions) (*Sequence, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("sequence: %w", err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("sequence: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !isImage(e.Name()) {
				continue
			}
			files = append(files, filepath.Join(path, e.Name()))
		}
		slices.Sort(files)
	} else {
		files = []string{path}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("sequence: no images in %s", path)
	}

	return &Sequence{
		files:  files,
		width:  opts.Width,
		height: opts.Height,
		mirror: opts.Mirror,
		loop:   opts.Loop,
	}, nil
}

func isImage(name string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(name)))
}

// Len returns the number of images in the sequence
func (s *Sequence) Len() int {
	return len(s.files)
}

// Next decodes the next image. It returns pipeline.ErrEndOfStream after the
// last one unless looping.
func (s *Sequence) Next() (metering.Frame, error) {
	if s.pos >= len(s.files) {
		if !s.loop || len(s.files) == 0 {
			return metering.Frame{}, pipeline.ErrEndOfStream
		}
		s.pos = 0
	}
	path := s.files[s.pos]
	s.pos++

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return metering.Frame{}, fmt.Errorf("sequence: %w", err)
	}
	return s.prepare(img), nil
}

func (s *Sequence) prepare(img image.Image) metering.Frame {
	if s.width > 0 && s.height > 0 {
		img = imaging.Resize(img, s.width, s.height, imaging.Lanczos)
	}
	if s.mirror {
		img = imaging.FlipH(img)
	}
	return GrayFrame(img)
}

// Close is a no-op, images are read one at a time
func (s *Sequence) Close() error {
	s.files = nil
	return nil
}

// GrayFrame converts any image to a luminance frame
func GrayFrame(img image.Image) metering.Frame {
	if g, ok := img.(*image.Gray); ok {
		return metering.FrameFromGray(g)
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	f := metering.NewFrame(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			f.Set(x, y, row[x*4])
		}
	}
	return f
}
