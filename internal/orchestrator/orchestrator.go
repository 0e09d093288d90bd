// Package orchestrator coordinates the camera source, the inspiration
// controller, the job tracker, and persistence behind one facade the
// transport layer talks to.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"aicam/internal/camera"
	"aicam/internal/domain"
	"aicam/internal/infra"
	"aicam/internal/inspiration"
	"aicam/internal/jobs"
	"aicam/internal/persona"
	"aicam/internal/provider"
	"aicam/internal/storage"
)

// Options wires the orchestrator's collaborators.
type Options struct {
	Client     provider.Client
	Controller *inspiration.Controller
	Tracker    *jobs.Tracker
	Source     camera.FrameSource
	Prompts    *persona.Library
	Captures   domain.CaptureStore
	Jobs       domain.JobStore
	Files      *storage.FileStore
	Logger     infra.Logger
}

// Orchestrator is the application core: every API operation lands here.
type Orchestrator struct {
	client     provider.Client
	controller *inspiration.Controller
	tracker    *jobs.Tracker
	source     camera.FrameSource
	prompts    *persona.Library
	captures   domain.CaptureStore
	jobs       domain.JobStore
	files      *storage.FileStore
	logger     infra.Logger

	mu          sync.Mutex
	persona     persona.Persona
	autoInspire bool
}

// New builds an orchestrator with the default persona selected and
// auto-inspiration enabled.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		client:      opts.Client,
		controller:  opts.Controller,
		tracker:     opts.Tracker,
		source:      opts.Source,
		prompts:     opts.Prompts,
		captures:    opts.Captures,
		jobs:        opts.Jobs,
		files:       opts.Files,
		logger:      opts.Logger,
		persona:     persona.Default,
		autoInspire: true,
	}
}

// Persona returns the currently selected persona.
func (o *Orchestrator) Persona() persona.Persona {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.persona
}

// SetPersona switches the active persona and retriggers inspiration so
// the new voice takes effect immediately.
func (o *Orchestrator) SetPersona(p persona.Persona) error {
	if !persona.Valid(p) {
		return domain.ErrUnknownPersona
	}
	o.mu.Lock()
	o.persona = p
	o.mu.Unlock()
	o.controller.Trigger(p)
	return nil
}

// SetAutoInspiration toggles the automatic trigger on first frame.
// Disabling also halts a live run.
func (o *Orchestrator) SetAutoInspiration(enabled bool) {
	o.mu.Lock()
	o.autoInspire = enabled
	o.mu.Unlock()
	if !enabled {
		o.controller.Cancel()
	}
}

// AutoInspiration reports whether the first-frame trigger is armed.
func (o *Orchestrator) AutoInspiration() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.autoInspire
}

// AutoTrigger fires an inspiration run if auto-inspiration is enabled.
// Wired to the frame source's first-frame callback.
func (o *Orchestrator) AutoTrigger() {
	o.mu.Lock()
	enabled := o.autoInspire
	p := o.persona
	o.mu.Unlock()
	if enabled {
		o.controller.Trigger(p)
	}
}

// TriggerInspiration starts a fresh run with the active persona.
func (o *Orchestrator) TriggerInspiration() {
	o.controller.Trigger(o.Persona())
}

// TriggerInspirationFocus focuses at the given point, then runs.
func (o *Orchestrator) TriggerInspirationFocus(point camera.FocusPoint) {
	o.controller.TriggerFocus(o.Persona(), point)
}

// CancelInspiration halts the live run, if any.
func (o *Orchestrator) CancelInspiration() {
	o.controller.Cancel()
}

// InspirationState returns the current snapshot.
func (o *Orchestrator) InspirationState() inspiration.State {
	return o.controller.State()
}

// CapturePhoto freezes the current frame into a durable capture record.
// If an inspiration run has finished, its text travels with the capture.
func (o *Orchestrator) CapturePhoto(ctx context.Context) (*domain.Capture, error) {
	frame, err := o.source.CurrentFrame()
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key, err := o.files.Write(ctx, captureKey(id, "original.jpg"), frame)
	if err != nil {
		return nil, fmt.Errorf("store capture frame: %w", err)
	}

	capture := &domain.Capture{
		ID:        id,
		ImageKey:  key,
		Persona:   string(o.Persona()),
		CreatedAt: time.Now().UTC(),
	}
	if state := o.controller.State(); state.Phase == inspiration.PhaseFinished {
		capture.InspirationText = state.Text
		capture.Persona = state.Persona
	}
	if err := o.captures.Create(ctx, capture); err != nil {
		return nil, fmt.Errorf("persist capture: %w", err)
	}
	o.logger.Info().Str("capture_id", id).Msg("orchestrator: photo captured")
	return capture, nil
}

// GetCapture fetches one capture record.
func (o *Orchestrator) GetCapture(ctx context.Context, id string) (*domain.Capture, error) {
	return o.captures.GetByID(ctx, id)
}

// ListCaptures returns the newest captures, up to limit.
func (o *Orchestrator) ListCaptures(ctx context.Context, limit int) ([]domain.Capture, error) {
	return o.captures.List(ctx, limit)
}

// ReadArtifact loads stored bytes by storage key.
func (o *Orchestrator) ReadArtifact(ctx context.Context, key string) ([]byte, error) {
	return o.files.Read(ctx, key)
}

// GetJob fetches one generation job.
func (o *Orchestrator) GetJob(ctx context.Context, id string) (*domain.GenerationJob, error) {
	return o.jobs.GetByID(ctx, id)
}

// GenerateEditedImage runs a stylized edit of the capture's original
// frame. The provider call is a single round trip, so the returned job
// is already terminal.
func (o *Orchestrator) GenerateEditedImage(ctx context.Context, captureID string) (*domain.GenerationJob, error) {
	capture, err := o.captures.GetByID(ctx, captureID)
	if err != nil {
		return nil, err
	}
	source, err := o.files.Read(ctx, capture.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("load capture frame: %w", err)
	}
	job, err := o.tracker.SubmitImageEdit(ctx, captureID, o.prompts.ImageEditPrompt(), source)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GenerateVideo animates a capture. A director-style script is generated
// from the frame first and becomes the video prompt; the remote task is
// then submitted and polled in the background.
func (o *Orchestrator) GenerateVideo(ctx context.Context, captureID string) (*domain.GenerationJob, error) {
	capture, err := o.captures.GetByID(ctx, captureID)
	if err != nil {
		return nil, err
	}
	source, err := o.files.Read(ctx, capture.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("load capture frame: %w", err)
	}

	script, err := o.generateScript(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("generate video script: %w", err)
	}
	if err := o.captures.SetVideoScript(ctx, captureID, script); err != nil {
		return nil, err
	}

	job, err := o.tracker.SubmitVideo(ctx, captureID, script, source)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// generateScript runs the script prompt against the frame and collects
// the streamed content into a single string.
func (o *Orchestrator) generateScript(ctx context.Context, frame []byte) (string, error) {
	chunks, err := o.client.StreamAnalyze(ctx, provider.AnalysisRequest{
		Images: [][]byte{frame},
		Prompt: o.prompts.VideoScriptPrompt(),
	})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for chunk := range chunks {
		switch chunk.Kind {
		case provider.ChunkContent:
			b.WriteString(chunk.Text)
		case provider.ChunkError:
			return "", chunk.Err
		case provider.ChunkDone:
			script := strings.TrimSpace(b.String())
			if script == "" {
				return "", errors.New("silent result")
			}
			return script, nil
		}
	}
	return "", errors.New("stream closed before completion")
}

// HandleJobResult persists a successful job's artifact and links it to
// its capture. Failures are already recorded by the tracker.
func (o *Orchestrator) HandleJobResult(res jobs.Result) {
	if res.Err != nil || res.Artifact == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	name := "edited.jpg"
	if res.Job.Kind == domain.JobKindVideoGen {
		name = "video.mp4"
	}
	key, err := o.files.Write(ctx, captureKey(res.Job.CaptureID, name), res.Artifact)
	if err != nil {
		o.logger.Error().Err(err).Str("job_id", res.Job.ID).Msg("orchestrator: store artifact failed")
		return
	}
	if err := o.jobs.UpdateStatus(ctx, res.Job.ID, domain.JobStatusSucceeded, "", key); err != nil {
		o.logger.Error().Err(err).Str("job_id", res.Job.ID).Msg("orchestrator: link artifact to job failed")
	}
	if err := o.captures.SetArtifact(ctx, res.Job.CaptureID, res.Job.Kind, key); err != nil {
		o.logger.Error().Err(err).Str("capture_id", res.Job.CaptureID).Msg("orchestrator: link artifact to capture failed")
	}
}

func captureKey(id, name string) string {
	return "captures/" + id + "/" + name
}
