package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"github.com/dudu/autoexpose/internal/camera"
	"github.com/dudu/autoexpose/internal/config"
	"github.com/dudu/autoexpose/internal/detector"
	"github.com/dudu/autoexpose/internal/exposure"
	"github.com/dudu/autoexpose/internal/metering"
	"github.com/dudu/autoexpose/internal/pipeline"
	"github.com/dudu/autoexpose/internal/ui"
)

type options struct {
	settings string
	locator  string
	annotate string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "meterimage <image|dir>...",
		Short: "Meter still images the way the control loop would",
		Long: "Runs face location, ROI reduction, metering and the decision policy on\n" +
			"still images and prints one line per image. The exposure/gain state is\n" +
			"carried from image to image as if each were the next camera frame.",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Load(opts.settings, cmd.Flags().Changed("settings"))
			if err != nil {
				return err
			}
			if opts.locator != "" {
				s.Locator.Kind = opts.locator
			}
			return meter(cmd.OutOrStdout(), s, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.settings, "settings", "s", config.DefaultSettingsFile, "Settings YAML file")
	cmd.Flags().StringVar(&opts.locator, "locator", "", "Face locator: haar, scrfd or pigo")
	cmd.Flags().StringVar(&opts.annotate, "annotate", "", "Write annotated images into this directory")
	return cmd
}

func meter(w io.Writer, s config.Settings, opts options, paths []string) error {
	locator, err := detector.New(detector.Options{
		Kind:        s.Locator.Kind,
		HaarFile:    s.HaarCascadeParamFile,
		ModelPath:   s.Locator.ModelPath,
		PigoCascade: s.Locator.PigoCascade,
		ONNXLibrary: s.Locator.ONNXLibrary,
		MinSize:     s.Locator.MinSize,
		Confidence:  s.Locator.Confidence,
	}, zap.NewNop())
	if err != nil {
		return err
	}
	defer locator.Close()

	if opts.annotate != "" {
		if err := os.MkdirAll(opts.annotate, 0o755); err != nil {
			return err
		}
	}

	cfg := s.Pipeline()
	balancer := exposure.Balancer{DefaultGain: cfg.DefaultGain, GainHigh: cfg.GainHigh, GainLow: cfg.GainLow}
	state, err := s.InitialState()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-28s %9s %5s %-20s %6s %-10s %-10s %s\n",
		"image", "size", "faces", "roi", "median", "exposure", "gain", "state")

	n := 0
	for _, path := range paths {
		seq, err := camera.NewSequence(path, camera.SequenceOptions{})
		if err != nil {
			return err
		}
		for {
			frame, err := seq.Next()
			if errors.Is(err, pipeline.ErrEndOfStream) {
				break
			}
			if err != nil {
				return err
			}
			n++

			faces, err := locator.Locate(frame)
			if err != nil {
				return fmt.Errorf("locate faces: %w", err)
			}
			roi := metering.Reduce(faces, frame.Width, frame.Height, cfg.Shrink)
			reading := metering.Meter(frame, roi)
			decision := cfg.Policy.Decide(reading.Median)
			next, adj := balancer.Update(state, decision)

			name := fmt.Sprintf("#%d", n)
			if seq.Len() == 1 {
				name = filepath.Base(path)
			}
			fmt.Fprintf(w, "%-28s %9s %5d %-20s %6d %-10s %-10s %d/%d\n",
				name,
				fmt.Sprintf("%dx%d", frame.Width, frame.Height),
				len(faces),
				fmt.Sprintf("%d,%d %dx%d", roi.X, roi.Y, roi.Width, roi.Height),
				reading.Median,
				decision.Exposure,
				decision.Gain,
				next.Exposure, next.Gain)

			if opts.annotate != "" {
				cycle := pipeline.Cycle{
					Seq: uint64(n), FrameWidth: frame.Width, FrameHeight: frame.Height,
					Faces: faces, Reading: reading, Decision: decision, State: next, Adjustment: adj,
				}
				out := filepath.Join(opts.annotate, fmt.Sprintf("%04d_%s.png", n, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))))
				if err := writeAnnotated(out, frame, cycle); err != nil {
					return err
				}
			}
			state = next
		}
		seq.Close()
	}
	return nil
}

func writeAnnotated(path string, frame metering.Frame, cycle pipeline.Cycle) error {
	img, err := ui.Annotate(frame, cycle, 0)
	if err != nil {
		return err
	}
	defer img.Close()
	if ok := gocv.IMWrite(path, img); !ok {
		return fmt.Errorf("failed to write %s", path)
	}
	return nil
}
