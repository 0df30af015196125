package web

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-locomotion/pkg/anim"
	"github.com/teslashibe/go-locomotion/pkg/hub"
	"github.com/teslashibe/go-locomotion/pkg/inference"
	"github.com/teslashibe/go-locomotion/pkg/locomotion"
)

// GenerateRequest is the body of POST /api/generate. Config fields that
// are present override the server's controller config.
type GenerateRequest struct {
	Scene  json.RawMessage `json:"scene"`
	Config json.RawMessage `json:"config,omitempty"`
}

// GenerateResponse is the reply to a successful generation.
type GenerateResponse struct {
	RunID     string          `json:"run_id"`
	Animation *anim.Animation `json:"animation"`
}

// StatusResponse is the reply of GET /api/status.
type StatusResponse struct {
	Model   string `json:"model"`
	Error   string `json:"error,omitempty"`
	Clients int    `json:"clients"`
	Busy    bool   `json:"busy"`
}

// healthTimeout bounds the model health probe in /api/status.
const healthTimeout = 3 * time.Second

func (s *Server) handleGenerate(c *fiber.Ctx) error {
	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
	}
	if len(req.Scene) == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "scene is required"})
	}

	scene, err := anim.ParseScene(req.Scene)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	cfg := s.cfg
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid config"})
		}
	}
	if err := cfg.Validate(); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	select {
	case s.slot <- struct{}{}:
		defer func() { <-s.slot }()
	default:
		return c.Status(409).JSON(fiber.Map{"error": locomotion.ErrBusy.Error()})
	}

	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	ctrl := locomotion.New(s.model, cfg,
		locomotion.WithLogger(logger),
		locomotion.WithObserver(s.observe(runID)),
	)
	if err := ctrl.SetSkeleton(scene.Skeleton); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if err := ctrl.SetAnimation(scene.Animation); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}
	if err := ctrl.SetControlPath(scene.ControlPath); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	s.runs.add(Run{ID: runID, Status: RunRunning, StartedAt: time.Now()})
	s.publish(hub.EventStarted, runID, nil, nil)

	// fasthttp recycles the request context, so runs hang off the server's.
	out, err := ctrl.Generate(s.ctx)
	if err != nil {
		s.runs.update(runID, func(r *Run) {
			r.Status = RunFailed
			r.Error = err.Error()
			r.FinishedAt = time.Now()
		})
		s.publish(hub.EventFailed, runID, nil, err)
		logger.Error("generation failed", "error", err)
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error(), "run_id": runID})
	}

	s.runs.update(runID, func(r *Run) {
		r.Status = RunDone
		r.Frame = out.DurationFrames
		r.Total = out.DurationFrames
		r.FinishedAt = time.Now()
	})
	s.publish(hub.EventDone, runID, fiber.Map{"frames": out.DurationFrames, "bones": len(out.Bones)}, nil)

	return c.JSON(GenerateResponse{RunID: runID, Animation: out})
}

// observe records progress and forwards it to websocket clients.
func (s *Server) observe(runID string) locomotion.Observer {
	return func(p locomotion.Progress) {
		s.runs.update(runID, func(r *Run) {
			r.Frame = p.Frame + 1
			r.Total = p.Total
		})
		s.publish(hub.EventProgress, runID, p, nil)
	}
}

func (s *Server) publish(t hub.EventType, runID string, data any, runErr error) {
	if !s.progress.IsRunning() {
		return
	}
	ev, err := hub.NewEvent(t, runID, data)
	if err != nil {
		s.logger.Warn("failed to encode event", "type", t, "error", err)
		return
	}
	if runErr != nil {
		ev.Error = runErr.Error()
	}
	if err := s.progress.Publish(ev); err != nil {
		s.logger.Warn("failed to publish event", "type", t, "error", err)
	}
}

// statusFor maps a generation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, locomotion.ErrBusy):
		return 409
	case errors.Is(err, locomotion.ErrInferenceFailed),
		errors.Is(err, inference.ErrModelUnavailable),
		errors.Is(err, inference.ErrShapeMismatch):
		return 502
	case errors.Is(err, anim.ErrInvalidSkeleton),
		errors.Is(err, anim.ErrEmptyAnimation),
		errors.Is(err, locomotion.ErrJointCountMismatch),
		errors.Is(err, locomotion.ErrInvalidConfig):
		return 400
	default:
		return 500
	}
}

func (s *Server) handleListRuns(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"runs": s.runs.list()})
}

func (s *Server) handleGetRun(c *fiber.Ctx) error {
	run, ok := s.runs.get(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "run not found"})
	}
	return c.JSON(run)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	resp := StatusResponse{
		Model:   "ok",
		Clients: s.progress.ClientCount(),
		Busy:    len(s.slot) > 0,
	}
	if err := s.model.Health(ctx); err != nil {
		resp.Model = "unavailable"
		resp.Error = err.Error()
	}
	return c.JSON(resp)
}

func (s *Server) handleProgressWS(c *websocket.Conn) {
	hub.NewClient(s.progress, c).Run()
}
