// Package web serves locomotion generation over HTTP.
//
// Routes:
//
//	POST /api/generate   generate an animation from a scene
//	GET  /api/runs       recent runs
//	GET  /api/runs/:id   one run
//	GET  /api/status     server and model health
//	GET  /ws/progress    live progress events (websocket)
package web

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-locomotion/pkg/hub"
	"github.com/teslashibe/go-locomotion/pkg/inference"
	"github.com/teslashibe/go-locomotion/pkg/locomotion"
)

// Server is the generation server.
type Server struct {
	app    *fiber.App
	port   int
	model  inference.Model
	cfg    locomotion.Config
	logger *slog.Logger

	// Hub for websocket broadcast of progress events
	progress *hub.Hub

	runs *registry

	// Single generation slot; generation is CPU and model bound.
	slot chan struct{}

	// Parent of every run; cancelled on shutdown.
	ctx context.Context
}

// Option configures a Server.
type Option func(*Server)

// WithPort sets the listen port.
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server that generates with model using cfg unless a
// request overrides it.
func NewServer(model inference.Model, cfg locomotion.Config, opts ...Option) *Server {
	s := &Server{
		port:   8181,
		model:  model,
		cfg:    cfg,
		logger: slog.Default(),
		runs:   newRegistry(maxRuns),
		slot:   make(chan struct{}, 1),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "web.server")
	s.progress = hub.New(s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "Locomotion",
		DisableStartupMessage: true,
		BodyLimit:             64 * 1024 * 1024, // scenes carry full animations
	})

	app.Use(recover.New())
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Post("/generate", s.handleGenerate)
	api.Get("/runs", s.handleListRuns)
	api.Get("/runs/:id", s.handleGetRun)
	api.Get("/status", s.handleStatus)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/progress", websocket.New(s.handleProgressWS))

	s.app = app
	return s
}

// Start runs the progress hub and serves until Shutdown or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	go s.progress.Run(ctx)

	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()

	s.logger.Info("listening", "url", fmt.Sprintf("http://localhost:%d", s.port))
	return s.app.Listen(fmt.Sprintf(":%d", s.port))
}

// Hub returns the progress hub.
func (s *Server) Hub() *hub.Hub {
	return s.progress
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
