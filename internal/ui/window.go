package ui

import (
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pipeline"
)

const (
	keyEsc = 27
	keyQ   = 'q'
)

// Window manages the preview display. All methods must run on the thread
// that created it.
type Window struct {
	window     *gocv.Window
	name       string
	logger     *zap.Logger
	lastFrame  time.Time
	frameCount int
	fps        float64
	closed     bool
}

// NewWindow creates a new preview window
func NewWindow(name string, logger *zap.Logger) *Window {
	if logger == nil {
		logger = zap.NewNop()
	}
	window := gocv.NewWindow(name)
	window.MoveWindow(100, 100)
	return &Window{
		window:    window,
		name:      name,
		logger:    logger,
		lastFrame: time.Now(),
	}
}

// Show draws the overlay, displays the frame and polls the keyboard.
// q or ESC closes the preview.
func (w *Window) Show(frame metering.Frame, cycle pipeline.Cycle) {
	if w.closed {
		return
	}
	w.tick()

	img, err := Annotate(frame, cycle, w.fps)
	if err != nil {
		w.logger.Warn("preview frame dropped", zap.Error(err))
		return
	}
	defer img.Close()

	w.window.IMShow(img)
	switch w.window.WaitKey(1) {
	case keyEsc, keyQ:
		w.closed = true
	}
}

func (w *Window) tick() {
	w.frameCount++
	now := time.Now()

	// Calculate FPS every second
	elapsed := now.Sub(w.lastFrame)
	if elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}
}

// Closed reports whether the user quit or closed the window
func (w *Window) Closed() bool {
	return w.closed || !w.window.IsOpen()
}

// Close closes the window
func (w *Window) Close() error {
	if w.window != nil {
		err := w.window.Close()
		w.window = nil
		return err
	}
	return nil
}
