package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"aicam/internal/domain"
	"aicam/internal/infra"
	"aicam/internal/provider"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 120
)

// ErrPollTimeout marks a job that exhausted its polling budget without
// reaching a terminal remote status.
var ErrPollTimeout = errors.New("jobs: polling budget exhausted")

// Result is delivered to the OnResult callback once a job reaches a
// terminal state. Artifact is non-nil only on success.
type Result struct {
	Job      domain.GenerationJob
	Artifact []byte
	Err      error
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// Ctx bounds the lifetime of all background poll loops. A cancelled
	// Ctx stops loops without writing a terminal status, so the jobs
	// remain resumable on the next start.
	Ctx          context.Context
	Client       provider.Client
	Store        domain.JobStore
	Logger       infra.Logger
	PollInterval time.Duration
	MaxAttempts  int
	OnResult     func(Result)
}

// Tracker owns the lifecycle of long-running generation jobs: it submits
// them to the provider, persists their state, and runs exactly one poll
// loop per job until the job terminates or the budget runs out.
type Tracker struct {
	baseCtx      context.Context
	client       provider.Client
	store        domain.JobStore
	logger       infra.Logger
	pollInterval time.Duration
	maxAttempts  int
	onResult     func(Result)

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// NewTracker builds a Tracker, applying the default 5s interval and 120
// attempt budget when unset.
func NewTracker(opts TrackerOptions) *Tracker {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &Tracker{
		baseCtx:      opts.Ctx,
		client:       opts.Client,
		store:        opts.Store,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxAttempts,
		onResult:     opts.OnResult,
		active:       make(map[string]struct{}),
	}
}

// Wait blocks until every live poll loop has exited. Intended for
// shutdown and tests.
func (t *Tracker) Wait() { t.wg.Wait() }

// SubmitVideo submits a video generation task to the provider and begins
// polling it. The remote submission happens before anything is persisted,
// so a failed submit leaves no orphan job row behind.
func (t *Tracker) SubmitVideo(ctx context.Context, captureID, prompt string, source []byte) (domain.GenerationJob, error) {
	remoteID, err := t.client.SubmitVideoJob(ctx, source, prompt)
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("submit video job: %w", err)
	}

	now := time.Now().UTC()
	job := domain.GenerationJob{
		ID:        uuid.NewString(),
		CaptureID: captureID,
		Kind:      domain.JobKindVideoGen,
		RemoteID:  remoteID,
		Status:    domain.JobStatusPolling,
		Provider:  t.client.Name(),
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Create(ctx, &job); err != nil {
		return domain.GenerationJob{}, fmt.Errorf("persist video job: %w", err)
	}

	t.logger.Info().
		Str("job_id", job.ID).
		Str("remote_id", remoteID).
		Str("capture_id", captureID).
		Msg("jobs: video job submitted")
	t.startLoop(job)
	return job, nil
}

// SubmitImageEdit runs an image edit synchronously and records it as a
// terminal job. Image edits have no remote task to poll; the single
// provider call either yields the artifact or fails.
func (t *Tracker) SubmitImageEdit(ctx context.Context, captureID, prompt string, source []byte) (domain.GenerationJob, error) {
	now := time.Now().UTC()
	job := domain.GenerationJob{
		ID:        uuid.NewString(),
		CaptureID: captureID,
		Kind:      domain.JobKindImageEdit,
		Status:    domain.JobStatusPending,
		Provider:  t.client.Name(),
		Prompt:    prompt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.store.Create(ctx, &job); err != nil {
		return domain.GenerationJob{}, fmt.Errorf("persist image edit job: %w", err)
	}

	artifact, err := t.client.GenerateEditedImage(ctx, source, prompt)
	if err != nil {
		t.finish(job, nil, err)
		return job, err
	}
	t.finish(job, artifact, nil)
	job.Status = domain.JobStatusSucceeded
	return job, nil
}

// Resume restarts poll loops for every job left in a non-terminal state
// by a previous process. Each resumed job gets a fresh polling budget.
func (t *Tracker) Resume(ctx context.Context) error {
	resumable, err := t.store.ListResumable(ctx)
	if err != nil {
		return fmt.Errorf("list resumable jobs: %w", err)
	}
	for _, job := range resumable {
		if job.Kind != domain.JobKindVideoGen || job.RemoteID == "" {
			// A pending image edit cannot be re-driven: the provider call
			// died with the process. Mark it failed so it stops resuming.
			t.finish(job, nil, errors.New("interrupted before completion"))
			continue
		}
		t.logger.Info().
			Str("job_id", job.ID).
			Str("remote_id", job.RemoteID).
			Msg("jobs: resuming poll loop")
		t.startLoop(job)
	}
	return nil
}

// startLoop spawns the poll loop for job unless one is already live for
// the same job id.
func (t *Tracker) startLoop(job domain.GenerationJob) {
	t.mu.Lock()
	if _, ok := t.active[job.ID]; ok {
		t.mu.Unlock()
		return
	}
	t.active[job.ID] = struct{}{}
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			t.mu.Lock()
			delete(t.active, job.ID)
			t.mu.Unlock()
		}()
		t.poll(job)
	}()
}

// poll drives one job to a terminal state. The remote status is checked
// first on every iteration, so a job observed terminal on the first poll
// costs exactly one request.
func (t *Tracker) poll(job domain.GenerationJob) {
	ctx := t.baseCtx
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		status, err := t.client.PollVideoJob(ctx, job.RemoteID)
		if err != nil {
			// Cancellation stops the loop without a terminal write, so
			// the job stays resumable. Any other poll failure is final.
			if ctx.Err() != nil {
				return
			}
			t.finish(job, nil, err)
			return
		}

		switch status.Status {
		case provider.VideoStatusSucceeded:
			t.succeed(ctx, job, status)
			return
		case provider.VideoStatusFailed:
			reason := status.ErrorMessage
			if reason == "" {
				reason = "unknown"
			}
			t.finish(job, nil, errors.New(reason))
			return
		case provider.VideoStatusPending, provider.VideoStatusProcessing:
			// Keep waiting.
		default:
			t.finish(job, nil, &provider.UnknownStatusError{Raw: status.Status})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(t.pollInterval):
		}
	}
	t.timeout(job)
}

// succeed fetches the finished artifact before declaring success; a
// succeeded task without a downloadable artifact is a failure.
func (t *Tracker) succeed(ctx context.Context, job domain.GenerationJob, status *provider.VideoJobStatus) {
	if status.VideoURL == "" {
		t.finish(job, nil, provider.ErrMissingArtifact)
		return
	}
	artifact, err := t.client.FetchArtifact(ctx, status.VideoURL)
	if err != nil {
		t.finish(job, nil, fmt.Errorf("fetch video artifact: %w", err))
		return
	}
	t.finish(job, artifact, nil)
}

func (t *Tracker) finish(job domain.GenerationJob, artifact []byte, cause error) {
	status := domain.JobStatusSucceeded
	errMsg := ""
	if cause != nil {
		status = domain.JobStatusFailed
		errMsg = cause.Error()
	}
	t.record(job, status, errMsg)
	job.Status = status
	job.ErrorMessage = errMsg
	if t.onResult != nil {
		t.onResult(Result{Job: job, Artifact: artifact, Err: cause})
	}
}

func (t *Tracker) timeout(job domain.GenerationJob) {
	t.record(job, domain.JobStatusTimedOut, ErrPollTimeout.Error())
	job.Status = domain.JobStatusTimedOut
	job.ErrorMessage = ErrPollTimeout.Error()
	if t.onResult != nil {
		t.onResult(Result{Job: job, Err: ErrPollTimeout})
	}
}

// record persists the terminal status on a background-safe context so a
// cancelled request cannot strand the row in a polling state.
func (t *Tracker) record(job domain.GenerationJob, status domain.JobStatus, errMsg string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := t.store.UpdateStatus(ctx, job.ID, status, errMsg, ""); err != nil {
		t.logger.Error().Err(err).
			Str("job_id", job.ID).
			Str("status", string(status)).
			Msg("jobs: failed to persist terminal status")
		return
	}
	t.logger.Info().
		Str("job_id", job.ID).
		Str("status", string(status)).
		Msg("jobs: job finished")
}
