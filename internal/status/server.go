// Package status serves the controller state over HTTP.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/dudu/autoexpose/internal/exposure"
	"github.com/dudu/autoexpose/internal/pipeline"
)

// Source is the part of the controller the server reads. Implementations
// must be safe to call from the server goroutine.
type Source interface {
	LastCycle() pipeline.Cycle
	State() exposure.State
	Config() pipeline.Config
}

// Health is the /api/health payload
type Health struct {
	Status string `json:"status"`
}

// Snapshot is the /api/status payload
type Snapshot struct {
	State     exposure.State `json:"state"`
	LastCycle pipeline.Cycle `json:"last_cycle"`
	Uptime    string         `json:"uptime"`
}

// ConfigView is the /api/config payload
type ConfigView struct {
	Policy       exposure.Policy `json:"policy"`
	Shrink       float64         `json:"shrink"`
	Multiplier   float64         `json:"safety_multiplier"`
	PollInterval string          `json:"poll_interval"`
	DefaultGain  int             `json:"default_gain"`
	GainHigh     int             `json:"gain_high"`
	GainLow      int             `json:"gain_low"`
}

// Server is the status HTTP server
type Server struct {
	app     *fiber.App
	addr    string
	source  Source
	logger  *zap.Logger
	started time.Time
}

// NewServer creates a status server for addr such as ":8080"
func NewServer(addr string, source Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		addr:    addr,
		source:  source,
		logger:  logger,
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "autoexpose",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)

	s.app = app
	return s
}

// App exposes the underlying fiber app
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", zap.String("addr", s.addr))
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(Health{Status: "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(Snapshot{
		State:     s.source.State(),
		LastCycle: s.source.LastCycle(),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	cfg := s.source.Config()
	return c.JSON(ConfigView{
		Policy:       cfg.Policy,
		Shrink:       cfg.Shrink,
		Multiplier:   cfg.Multiplier,
		PollInterval: cfg.PollInterval.String(),
		DefaultGain:  cfg.DefaultGain,
		GainHigh:     cfg.GainHigh,
		GainLow:      cfg.GainLow,
	})
}
