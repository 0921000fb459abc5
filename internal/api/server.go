// Package api exposes the orchestrator action contract over HTTP, plus the
// health and metrics endpoints.
package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/Nireus79/Socrates-sub009/internal/health"
	"github.com/Nireus79/Socrates-sub009/internal/metrics"
	"github.com/Nireus79/Socrates-sub009/internal/orchestrator"
)

// Config holds the HTTP server configuration.
type Config struct {
	ListenAddr  string
	CORSOrigins string
}

// Server is the HTTP front for the orchestrator.
type Server struct {
	app    *fiber.App
	orch   *orchestrator.Orchestrator
	logger zerolog.Logger
	cfg    Config
}

// NewServer creates and configures the server. metrics may be nil, in which
// case /metrics serves nothing.
func NewServer(
	cfg Config,
	orch *orchestrator.Orchestrator,
	checker *health.Checker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	s := &Server{
		app:    app,
		orch:   orch,
		logger: logger.With().Str("component", "api").Logger(),
		cfg:    cfg,
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	if cfg.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/healthz" || path == "/readyz" || path == "/metrics" {
			return c.Next()
		}
		s.logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Msg("api request")
		return c.Next()
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Get("/readyz", func(c *fiber.Ctx) error {
		results := checker.RunAll(c.UserContext())
		for _, st := range results {
			if st != health.StatusOK {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status": "degraded",
					"checks": results,
				})
			}
		}
		return c.JSON(fiber.Map{"status": "ok", "checks": results})
	})

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	app.Post("/v1/actions", s.handleAction)

	return s
}

// handleAction decodes an ActionRequest and dispatches it. Domain errors
// come back as a 200 with an error envelope; only a malformed request is
// a 400.
func (s *Server) handleAction(c *fiber.Ctx) error {
	var req orchestrator.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(orchestrator.ActionResponse{
			Status:  orchestrator.StatusError,
			Message: "malformed request body",
		})
	}
	if req.Action == "" {
		return c.Status(fiber.StatusBadRequest).JSON(orchestrator.ActionResponse{
			Status:  orchestrator.StatusError,
			Message: "action is required",
		})
	}

	resp := s.orch.Dispatch(c.UserContext(), req)
	return c.JSON(resp)
}

// Listen starts serving and blocks until shutdown.
func (s *Server) Listen() error {
	s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("api listening")
	return s.app.Listen(s.cfg.ListenAddr)
}

// Shutdown drains connections and stops the server.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }
