// Package locomotion generates character animation that follows a control
// path by running a phase-conditioned network one frame at a time.
//
// Each frame the Controller pulls the next second of the control path into
// its root trajectory window, encodes the window, the previous pose and the
// gait phases into a model input, runs the model, and folds the prediction
// back into the root trajectory and phase state. When the path is exhausted
// the generated pose history is assembled into an Animation whose first
// bone carries the root motion.
//
// Example usage:
//
//	ctrl := locomotion.New(model, locomotion.DefaultConfig())
//	ctrl.SetSkeleton(skel)
//	ctrl.SetAnimation(seed)
//	ctrl.SetControlPath(path)
//
//	clip, err := ctrl.Generate(ctx)
package locomotion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-locomotion/pkg/anim"
	"github.com/teslashibe/go-locomotion/pkg/codec"
	"github.com/teslashibe/go-locomotion/pkg/inference"
	"github.com/teslashibe/go-locomotion/pkg/series"
)

// State is the lifecycle stage of a Controller.
type State int

const (
	StateIdle        State = iota // inputs missing
	StateInitialized              // skeleton and seed animation set
	StateGenerating               // Generate running
	StateDone                     // last run produced an animation
	StateFailed                   // last run stopped without an animation
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateGenerating:
		return "generating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observer receives progress after every generated frame. It runs on the
// generating goroutine and must not block.
type Observer func(Progress)

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l.With("component", "locomotion.controller") }
}

// WithWindow overrides the trajectory window geometry.
func WithWindow(w series.Window) Option {
	return func(c *Controller) { c.window = w }
}

// WithPhaseChannels overrides the number of gait phase channels.
func WithPhaseChannels(n int) Option {
	return func(c *Controller) { c.channels = n }
}

// WithObserver sets the progress observer.
func WithObserver(fn Observer) Option {
	return func(c *Controller) { c.observer = fn }
}

// Controller turns a skeleton, a seed pose and a control path into a
// generated animation. A Controller runs one generation at a time.
type Controller struct {
	model    inference.Model
	cfg      Config
	window   series.Window
	channels int
	logger   *slog.Logger

	mu        sync.Mutex
	state     State
	skeleton  *anim.Skeleton
	animation *anim.Animation
	path      *anim.ControlPath
	observer  Observer
	result    *anim.Animation
	last      *run
}

// New creates a controller that runs model with cfg.
func New(model inference.Model, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		model:    model,
		cfg:      cfg,
		window:   series.DefaultWindow(),
		channels: series.DefaultPhaseChannels,
		logger:   slog.Default().With("component", "locomotion.controller"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSkeleton sets the skeleton the seed animation and output target.
func (c *Controller) SetSkeleton(s *anim.Skeleton) error {
	if s == nil {
		return fmt.Errorf("%w: nil skeleton", anim.ErrInvalidSkeleton)
	}
	if err := s.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateGenerating {
		return ErrBusy
	}
	c.skeleton = s
	c.refreshState()
	return nil
}

// SetAnimation sets the seed animation whose first frame is the start pose.
func (c *Controller) SetAnimation(a *anim.Animation) error {
	if a == nil || len(a.Bones) == 0 {
		return anim.ErrEmptyAnimation
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateGenerating {
		return ErrBusy
	}
	c.animation = a
	c.refreshState()
	return nil
}

// SetControlPath sets the path to follow. A nil or empty path is replaced
// by a circular test path at generation time.
func (c *Controller) SetControlPath(p *anim.ControlPath) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateGenerating {
		return ErrBusy
	}
	c.path = p
	return nil
}

// SetObserver sets the progress observer. Nil disables it.
func (c *Controller) SetObserver(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = fn
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the animation of the last successful run, or nil.
func (c *Controller) Result() *anim.Animation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Config returns the controller configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// refreshState must be called with mu held.
func (c *Controller) refreshState() {
	if c.skeleton != nil && c.animation != nil {
		c.state = StateInitialized
	} else {
		c.state = StateIdle
	}
}

// Generate runs the model once per control path sample and assembles the
// result. It blocks until the path is exhausted, the model fails or ctx is
// cancelled. On failure no animation is returned and the controller moves
// to StateFailed.
func (c *Controller) Generate(ctx context.Context) (*anim.Animation, error) {
	c.mu.Lock()
	switch {
	case c.state == StateGenerating:
		c.mu.Unlock()
		return nil, ErrBusy
	case c.skeleton == nil || c.animation == nil:
		c.mu.Unlock()
		return nil, ErrNotInitialized
	}

	if err := c.cfg.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	path := c.path
	if path.Len() == 0 {
		c.logger.Warn("control path is empty, using test path",
			"samples", anim.TestPathSamples,
		)
		path = anim.DefaultTestControlPath()
	}

	r, err := c.newRun(c.skeleton, c.animation, path.Resample(), c.observer)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	c.state = StateGenerating
	c.result = nil
	c.mu.Unlock()

	out, err := r.generate(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = r
	if err != nil {
		c.state = StateFailed
		return nil, err
	}
	c.state = StateDone
	c.result = out
	return out, nil
}

// newRun prepares the per-run state. Must be called with mu held.
func (c *Controller) newRun(skel *anim.Skeleton, seed *anim.Animation, path *anim.ControlPath, observer Observer) (*run, error) {
	layout := codec.Layout{
		TrajectoryKeys: c.window.NumKeys(),
		PastKeys:       c.window.PastKeys,
		Joints:         skel.NumBones(),
		PhaseChannels:  c.channels,
		PhaseKeys:      c.window.NumKeys(),
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	if shaped, ok := c.model.(inference.Shaped); ok {
		s := shaped.Shape()
		if (s.InputSize > 0 && s.InputSize != layout.InputSize()) ||
			(s.OutputSize > 0 && s.OutputSize != layout.OutputSize()) {
			return nil, fmt.Errorf("%w: model %dx%d, skeleton needs %dx%d", inference.ErrShapeMismatch,
				s.InputSize, s.OutputSize, layout.InputSize(), layout.OutputSize())
		}
	}

	aligned := anim.AlignToSkeleton(seed, skel, c.logger)

	r := &run{
		cfg:      c.cfg,
		window:   c.window,
		layout:   layout,
		model:    c.model,
		skeleton: skel,
		seed:     aligned,
		series:   series.NewRootSeries(c.window),
		phases:   series.NewPhaseBank(c.window, c.channels, c.cfg.FrameRate),
		observer: observer,
		logger:   c.logger,
	}
	r.series.SetMaxTau(c.cfg.MaxTau)
	r.prepareControlTrajectory(path)
	r.initial = initialPose(skel, aligned, c.cfg)
	return r, nil
}
