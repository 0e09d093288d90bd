package inspiration

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"aicam/internal/camera"
	"aicam/internal/domain"
	"aicam/internal/infra"
	"aicam/internal/persona"
	"aicam/internal/provider"
)

const (
	frameWaitStep = 100 * time.Millisecond
	frameWaitMax  = 50 // ~5s before the missing-frame precondition fails the run
)

// ControllerOptions wires the controller's collaborators.
type ControllerOptions struct {
	Client       provider.Client
	Source       camera.FrameSource
	Prompts      *persona.Library
	DeepThinking bool
	Logger       infra.Logger
	// OnTransition observes every state snapshot. Called outside the
	// controller lock; snapshots arrive in transition order.
	OnTransition func(State)
}

// Controller owns the single-flight inspiration state machine. At most
// one analysis run is live at a time: a new trigger supersedes the
// previous run, and a superseded run can never mutate state again. The
// guarantee is a generation counter compared under the lock before
// every mutation, paired with per-run context cancellation.
type Controller struct {
	client       provider.Client
	source       camera.FrameSource
	prompts      *persona.Library
	deepThinking bool
	logger       infra.Logger
	onTransition func(State)

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewController builds an idle controller.
func NewController(opts ControllerOptions) *Controller {
	return &Controller{
		client:       opts.Client,
		source:       opts.Source,
		prompts:      opts.Prompts,
		deepThinking: opts.DeepThinking,
		logger:       opts.Logger,
		onTransition: opts.OnTransition,
		state:        State{Phase: PhaseIdle},
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trigger starts a new analysis run for p, superseding any live run.
// The new trigger always wins; late chunks from the old run are dropped.
func (c *Controller) Trigger(p persona.Persona) {
	c.trigger(p, nil)
}

// TriggerFocus performs a best-effort focus at the normalized point and
// then runs the analysis, all within the same single-flight run.
func (c *Controller) TriggerFocus(p persona.Persona, point camera.FocusPoint) {
	c.trigger(p, &point)
}

// Cancel halts any live run and resets to idle, discarding accumulated
// text. Cancelling an idle controller is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	changed := c.state.Phase != PhaseIdle
	c.state = State{Phase: PhaseIdle}
	snapshot := c.state
	c.mu.Unlock()
	if changed && c.onTransition != nil {
		c.onTransition(snapshot)
	}
}

func (c *Controller) trigger(p persona.Persona, point *camera.FocusPoint) {
	ctx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.gen++
	gen := c.gen
	c.state = State{Phase: PhaseThinking, Persona: string(p)}
	snapshot := c.state
	c.mu.Unlock()

	if c.onTransition != nil {
		c.onTransition(snapshot)
	}
	go c.run(ctx, gen, p, point)
}

func (c *Controller) run(ctx context.Context, gen uint64, p persona.Persona, point *camera.FocusPoint) {
	if point != nil {
		c.source.Focus(point.X, point.Y)
	}

	frame, err := c.awaitFrame(ctx)
	if err != nil {
		c.fail(ctx, gen, err)
		return
	}
	prompt, err := c.prompts.Prompt(p)
	if err != nil {
		c.fail(ctx, gen, err)
		return
	}

	req := provider.AnalysisRequest{
		Images:       [][]byte{frame},
		Prompt:       prompt,
		DeepThinking: c.deepThinking,
	}
	start := time.Now()
	chunks, err := c.client.StreamAnalyze(ctx, req)
	if err != nil {
		c.fail(ctx, gen, err)
		return
	}

	var (
		latency    int64 = -1
		content    strings.Builder
		sawContent bool
	)
	for chunk := range chunks {
		if ctx.Err() != nil {
			return
		}
		if latency < 0 {
			latency = time.Since(start).Milliseconds()
		}
		switch chunk.Kind {
		case provider.ChunkReasoning:
			if sawContent {
				continue
			}
			c.apply(gen, func(s *State) {
				s.Phase = PhaseReasoning
				s.ReasoningText += chunk.Text
			})
		case provider.ChunkContent:
			sawContent = true
			content.WriteString(chunk.Text)
			text := content.String()
			c.apply(gen, func(s *State) {
				// The reasoning scratch-pad is dropped from the visible
				// state the moment content starts.
				s.Phase = PhaseStreaming
				s.ReasoningText = ""
				s.Text = text
			})
		case provider.ChunkError:
			c.fail(ctx, gen, chunk.Err)
			return
		case provider.ChunkDone:
			if !sawContent {
				c.fail(ctx, gen, errors.New("silent result"))
				return
			}
			final := content.String()
			if c.apply(gen, func(s *State) {
				s.Phase = PhaseFinished
				s.Text = final
				s.LatencyMS = latency
			}) {
				c.logger.Debug().
					Str("persona", string(p)).
					Int64("latency_ms", latency).
					Int("chars", len(final)).
					Msg("inspiration: run finished")
			}
			return
		}
	}
}

// awaitFrame waits briefly for the capture source to produce its first
// frame, mirroring the warm-up window a camera session needs.
func (c *Controller) awaitFrame(ctx context.Context) ([]byte, error) {
	for attempt := 0; attempt < frameWaitMax; attempt++ {
		frame, err := c.source.CurrentFrame()
		if err == nil {
			return frame, nil
		}
		if !errors.Is(err, domain.ErrNoFrame) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(frameWaitStep):
		}
	}
	return nil, domain.ErrNoFrame
}

// apply runs a state mutation only if gen is still the live run. This is
// the single funnel through which every chunk reaches the state.
func (c *Controller) apply(gen uint64, mutate func(*State)) bool {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return false
	}
	mutate(&c.state)
	snapshot := c.state
	c.mu.Unlock()
	if c.onTransition != nil {
		c.onTransition(snapshot)
	}
	return true
}

// fail records an error state unless the run was cancelled; cancellation
// is silent abandonment, never a user-visible failure.
func (c *Controller) fail(ctx context.Context, gen uint64, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	msg := err.Error()
	if c.apply(gen, func(s *State) {
		s.Phase = PhaseError
		s.ReasoningText = ""
		s.Text = ""
		s.Message = msg
	}) {
		c.logger.Warn().Err(err).Msg("inspiration: run failed")
	}
}
