package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dudu/autoexpose/internal/exposure"
	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pipeline"
)

func TestStatusLinesHolding(t *testing.T) {
	cycle := pipeline.Cycle{
		Faces:    []metering.Region{{X: 1, Y: 1, Width: 10, Height: 10}},
		Reading:  metering.Reading{Median: 92},
		State:    exposure.State{Exposure: -6, Gain: 100},
		Decision: exposure.Decision{Exposure: exposure.Hold, Gain: exposure.Hold},
	}
	lines := StatusLines(cycle, 29.96)
	assert.Equal(t, []string{
		"FPS: 30.0",
		"exposure -6  gain 100",
		"median 92  faces 1",
		"exp hold  gain hold",
	}, lines)
}

func TestStatusLinesAdjusting(t *testing.T) {
	cycle := pipeline.Cycle{
		State: exposure.State{Exposure: -5, Gain: 100},
		Adjustment: exposure.Adjustment{
			Exposure: exposure.Setting{Value: -5, Changed: true},
		},
		Hold: 46875 * time.Microsecond,
	}
	lines := StatusLines(cycle, 0)
	assert.Equal(t, "adjusting, hold 46.875ms", lines[3])
}
