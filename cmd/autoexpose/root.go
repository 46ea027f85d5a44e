package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dudu/autoexpose/internal/camera"
	"github.com/dudu/autoexpose/internal/config"
	"github.com/dudu/autoexpose/internal/detector"
	"github.com/dudu/autoexpose/internal/pipeline"
	"github.com/dudu/autoexpose/internal/status"
	"github.com/dudu/autoexpose/internal/ui"
)

// Version is the application version.
const Version = "0.1.0"

// Options holds the command line flags
type Options struct {
	SettingsPath string
	NoWindow     bool
	Camera       int
	Locator      string
	StatusAddr   string
	LogLevel     string
	Replay       string
}

func newRootCmd() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:           "autoexpose",
		Short:         "Face-metered exposure and gain control for webcams",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), s, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.SettingsPath, "settings", "s", config.DefaultSettingsFile, "Settings YAML file")
	f.BoolVarP(&opts.NoWindow, "no-window", "n", false, "Run without the preview window")
	f.IntVarP(&opts.Camera, "camera", "c", 0, "Camera device index")
	f.StringVar(&opts.Locator, "locator", "", "Face locator: haar, scrfd or pigo")
	f.StringVar(&opts.StatusAddr, "status-addr", "", "Serve the status API on this address, e.g. :8080")
	f.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.Replay, "replay", "", "Replay images from a file or directory instead of a camera")
	return cmd
}

// loadSettings reads the settings file and applies flag overrides. Only an
// explicitly named settings file must exist.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("settings")
	s, err := config.Load(path, flags.Changed("settings"))
	if err != nil {
		return config.Settings{}, err
	}

	if flags.Changed("camera") {
		s.Camera.Index, _ = flags.GetInt("camera")
	}
	if flags.Changed("locator") {
		s.Locator.Kind, _ = flags.GetString("locator")
	}
	if flags.Changed("status-addr") {
		s.Status.Addr, _ = flags.GetString("status-addr")
	}
	if flags.Changed("log-level") {
		s.Log.Level, _ = flags.GetString("log-level")
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

func run(ctx context.Context, s config.Settings, opts Options) error {
	logger, cleanup, err := config.NewLogger(s.Log)
	if err != nil {
		return err
	}
	defer cleanup()

	if !s.GainInBalanceWindow() {
		logger.Warn("default gain is outside the balancing window, exposure will be rebalanced every cycle",
			zap.Int("gain", s.Gain),
			zap.Int("gain_low", s.Control.GainLow),
			zap.Int("gain_high", s.Control.GainHigh))
	}

	initial, err := s.InitialState()
	if err != nil {
		return err
	}

	source, device, closeDevice, err := openCamera(s, opts, logger)
	if err != nil {
		return err
	}
	defer closeDevice()

	locator, err := newLocator(s, logger)
	if err != nil {
		source.Close()
		return err
	}

	deps := pipeline.Deps{
		Source:  source,
		Locator: locator,
		Device:  device,
		Logger:  logger,
	}
	if !opts.NoWindow {
		window := ui.NewWindow("autoexpose", logger)
		defer window.Close()
		deps.Display = window
	}

	controller, err := pipeline.New(s.Pipeline(), initial, deps)
	if err != nil {
		locator.Close()
		source.Close()
		return fmt.Errorf("failed to create controller: %w", err)
	}
	defer func() {
		if err := controller.Close(); err != nil {
			logger.Warn("release failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if s.Status.Addr != "" {
		server := status.NewServer(s.Status.Addr, controller, logger)
		g.Go(func() error {
			return server.Run(gctx)
		})
	}

	logger.Info("autoexpose started",
		zap.Int("exposure", initial.Exposure),
		zap.Int("gain", initial.Gain),
		zap.String("locator", s.Locator.Kind))

	// The control loop stays on the main thread for the preview window.
	runErr := controller.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = fmt.Errorf("status server: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	last := controller.State()
	logger.Info("autoexpose stopped", zap.Int("exposure", last.Exposure), zap.Int("gain", last.Gain))
	return nil
}

// openCamera picks the frame source and the device sink. The returned close
// func releases whatever the controller does not own.
func openCamera(s config.Settings, opts Options, logger *zap.Logger) (pipeline.FrameSource, pipeline.Device, func(), error) {
	noop := func() {}

	if opts.Replay != "" {
		seq, err := camera.NewSequence(opts.Replay, camera.SequenceOptions{
			Width:  s.Camera.Width,
			Height: s.Camera.Height,
			Mirror: s.Camera.Flip,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		logger.Info("replaying images", zap.String("path", opts.Replay), zap.Int("frames", seq.Len()))
		return seq, &camera.LogDevice{Logger: logger.Named("device")}, noop, nil
	}

	logger.Info("opening camera", zap.Int("index", s.Camera.Index))
	capture, err := camera.NewCapture(camera.Options{
		DeviceID:  s.Camera.Index,
		Width:     s.Camera.Width,
		Height:    s.Camera.Height,
		TargetFPS: s.Camera.FPS,
		Mirror:    s.Camera.Flip,
	})
	if err != nil {
		return nil, nil, noop, err
	}
	logger.Info("camera opened", zap.Int("width", capture.Width()), zap.Int("height", capture.Height()))

	// Contrast and sharpness are fixed for the whole run
	if err := capture.ApplyControls(s.Exposure, s.Gain, s.Contrast, s.Sharpness); err != nil {
		capture.Close()
		return nil, nil, noop, err
	}

	if s.Camera.V4L2Device == "" {
		return capture, capture, noop, nil
	}

	controls, err := camera.OpenV4L2Controls(s.Camera.V4L2Device, logger)
	if err != nil {
		capture.Close()
		return nil, nil, noop, err
	}
	return capture, controls, func() {
		if err := controls.Close(); err != nil {
			logger.Warn("close v4l2 device", zap.Error(err))
		}
	}, nil
}

func newLocator(s config.Settings, logger *zap.Logger) (pipeline.FaceLocator, error) {
	return detector.New(detectorOptions(s), logger)
}

func detectorOptions(s config.Settings) detector.Options {
	return detector.Options{
		Kind:        s.Locator.Kind,
		HaarFile:    s.HaarCascadeParamFile,
		ModelPath:   s.Locator.ModelPath,
		PigoCascade: s.Locator.PigoCascade,
		ONNXLibrary: s.Locator.ONNXLibrary,
		MinSize:     s.Locator.MinSize,
		Confidence:  s.Locator.Confidence,
	}
}
