package jobs

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"aicam/internal/domain"
	"aicam/internal/provider"
)

// memJobStore is an in-memory domain.JobStore.
type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]domain.GenerationJob
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]domain.GenerationJob)}
}

func (s *memJobStore) Create(ctx context.Context, job *domain.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *memJobStore) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errMsg, artifactKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.ErrorMessage = errMsg
	if artifactKey != "" {
		job.ArtifactKey = artifactKey
	}
	s.jobs[jobID] = job
	return nil
}

func (s *memJobStore) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (s *memJobStore) ListResumable(ctx context.Context) ([]domain.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GenerationJob
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			out = append(out, job)
		}
	}
	return out, nil
}

// pollClient scripts the video task lifecycle.
type pollClient struct {
	mu        sync.Mutex
	statuses  []provider.VideoJobStatus
	pollErrs  []error
	polls     int
	pollTimes []time.Time
	submitErr error
	fetchErr  error
	artifact  []byte
	gate      chan struct{}
}

func (c *pollClient) Name() string { return "poll" }

func (c *pollClient) StreamAnalyze(context.Context, provider.AnalysisRequest) (<-chan provider.Chunk, error) {
	return nil, errors.New("not implemented")
}

func (c *pollClient) GenerateEditedImage(context.Context, []byte, string) ([]byte, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.artifact, nil
}

func (c *pollClient) SubmitVideoJob(context.Context, []byte, string) (string, error) {
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return "remote-1", nil
}

func (c *pollClient) PollVideoJob(ctx context.Context, remoteID string) (*provider.VideoJobStatus, error) {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.polls
	c.polls++
	c.pollTimes = append(c.pollTimes, time.Now())
	if idx < len(c.pollErrs) && c.pollErrs[idx] != nil {
		return nil, c.pollErrs[idx]
	}
	if idx >= len(c.statuses) {
		idx = len(c.statuses) - 1
	}
	st := c.statuses[idx]
	return &st, nil
}

func (c *pollClient) pollGaps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var gaps []time.Duration
	for i := 1; i < len(c.pollTimes); i++ {
		gaps = append(gaps, c.pollTimes[i].Sub(c.pollTimes[i-1]))
	}
	return gaps
}

func (c *pollClient) FetchArtifact(ctx context.Context, url string) ([]byte, error) {
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.artifact, nil
}

func (c *pollClient) pollCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

type resultSink struct {
	mu      sync.Mutex
	results []Result
}

func (s *resultSink) record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
}

func (s *resultSink) all() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

func newTestTracker(client provider.Client, store domain.JobStore, sink *resultSink, maxAttempts int) *Tracker {
	return NewTracker(TrackerOptions{
		Client:       client,
		Store:        store,
		Logger:       zerolog.New(io.Discard),
		PollInterval: 5 * time.Millisecond,
		MaxAttempts:  maxAttempts,
		OnResult:     sink.record,
	})
}

func TestTrackerVideoSuccessAfterThreePolls(t *testing.T) {
	client := &pollClient{
		statuses: []provider.VideoJobStatus{
			{Status: provider.VideoStatusPending},
			{Status: provider.VideoStatusProcessing},
			{Status: provider.VideoStatusSucceeded, VideoURL: "https://cdn/v.mp4"},
		},
		artifact: []byte("mp4-bytes"),
	}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, err := tracker.SubmitVideo(context.Background(), "cap-1", "a prompt", []byte("frame"))
	if err != nil {
		t.Fatalf("SubmitVideo: %v", err)
	}
	if job.Status != domain.JobStatusPolling || job.RemoteID != "remote-1" {
		t.Fatalf("job = %+v", job)
	}
	tracker.Wait()

	if got := client.pollCount(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
	for i, gap := range client.pollGaps() {
		if gap < 5*time.Millisecond {
			t.Errorf("gap %d = %v, want >= poll interval", i, gap)
		}
	}
	results := sink.all()
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	if results[0].Err != nil || string(results[0].Artifact) != "mp4-bytes" {
		t.Errorf("result = %+v", results[0])
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusSucceeded {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerVideoFailureReason(t *testing.T) {
	client := &pollClient{statuses: []provider.VideoJobStatus{
		{Status: provider.VideoStatusFailed, ErrorMessage: "content policy"},
	}}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, err := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil)
	if err != nil {
		t.Fatalf("SubmitVideo: %v", err)
	}
	tracker.Wait()

	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed || stored.ErrorMessage != "content policy" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestTrackerVideoFailureWithoutReason(t *testing.T) {
	client := &pollClient{statuses: []provider.VideoJobStatus{
		{Status: provider.VideoStatusFailed},
	}}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, _ := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil)
	tracker.Wait()

	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.ErrorMessage != "unknown" {
		t.Errorf("error message = %q, want unknown", stored.ErrorMessage)
	}
}

func TestTrackerPollErrorIsTerminal(t *testing.T) {
	pollErr := &provider.HTTPError{Status: 500, Message: "upstream blew up"}
	client := &pollClient{
		pollErrs: []error{pollErr},
		statuses: []provider.VideoJobStatus{
			{Status: provider.VideoStatusSucceeded, VideoURL: "https://cdn/v.mp4"},
		},
		artifact: []byte("mp4"),
	}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, _ := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil)
	tracker.Wait()

	// One failed request ends the job; the scripted success behind it
	// must never be reached.
	if got := client.pollCount(); got != 1 {
		t.Errorf("polls = %d, want 1", got)
	}
	results := sink.all()
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	var httpErr *provider.HTTPError
	if !errors.As(results[0].Err, &httpErr) || httpErr.Status != 500 {
		t.Errorf("result err = %v", results[0].Err)
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerUnknownStatusFailsFast(t *testing.T) {
	client := &pollClient{statuses: []provider.VideoJobStatus{
		{Status: "wedged"},
	}}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, _ := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil)
	tracker.Wait()

	if got := client.pollCount(); got != 1 {
		t.Errorf("polls = %d, want 1", got)
	}
	results := sink.all()
	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	var unknown *provider.UnknownStatusError
	if !errors.As(results[0].Err, &unknown) || unknown.Raw != "wedged" {
		t.Errorf("result err = %v", results[0].Err)
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerSucceededWithoutArtifactURL(t *testing.T) {
	client := &pollClient{statuses: []provider.VideoJobStatus{
		{Status: provider.VideoStatusSucceeded},
	}}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, _ := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil)
	tracker.Wait()

	results := sink.all()
	if len(results) != 1 || !errors.Is(results[0].Err, provider.ErrMissingArtifact) {
		t.Fatalf("results = %+v", results)
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerPollBudgetExhausted(t *testing.T) {
	client := &pollClient{statuses: []provider.VideoJobStatus{
		{Status: provider.VideoStatusPending},
	}}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 4)

	job, _ := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil)
	tracker.Wait()

	if got := client.pollCount(); got != 4 {
		t.Errorf("polls = %d, want 4", got)
	}
	results := sink.all()
	if len(results) != 1 || !errors.Is(results[0].Err, ErrPollTimeout) {
		t.Fatalf("results = %+v", results)
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusTimedOut {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerSubmitVideoRemoteFirst(t *testing.T) {
	client := &pollClient{submitErr: errors.New("quota exceeded")}
	store := newMemJobStore()
	tracker := newTestTracker(client, store, &resultSink{}, 10)

	if _, err := tracker.SubmitVideo(context.Background(), "cap-1", "p", nil); err == nil {
		t.Fatal("expected submit error")
	}
	// A failed remote submission leaves no job row behind.
	jobs, _ := store.ListResumable(context.Background())
	if len(jobs) != 0 {
		t.Errorf("orphan jobs = %+v", jobs)
	}
}

func TestTrackerResumeFreshBudget(t *testing.T) {
	client := &pollClient{
		statuses: []provider.VideoJobStatus{
			{Status: provider.VideoStatusPending},
			{Status: provider.VideoStatusSucceeded, VideoURL: "https://cdn/v.mp4"},
		},
		artifact: []byte("mp4"),
	}
	store := newMemJobStore()
	_ = store.Create(context.Background(), &domain.GenerationJob{
		ID:       "job-1",
		Kind:     domain.JobKindVideoGen,
		RemoteID: "remote-1",
		Status:   domain.JobStatusPolling,
	})
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	if err := tracker.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	tracker.Wait()

	stored, _ := store.GetByID(context.Background(), "job-1")
	if stored.Status != domain.JobStatusSucceeded {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerResumeInterruptedImageEdit(t *testing.T) {
	store := newMemJobStore()
	_ = store.Create(context.Background(), &domain.GenerationJob{
		ID:     "job-1",
		Kind:   domain.JobKindImageEdit,
		Status: domain.JobStatusPending,
	})
	sink := &resultSink{}
	tracker := newTestTracker(&pollClient{}, store, sink, 10)

	if err := tracker.Resume(context.Background()); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	stored, _ := store.GetByID(context.Background(), "job-1")
	if stored.Status != domain.JobStatusFailed {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerDuplicateLoopSuppressed(t *testing.T) {
	gate := make(chan struct{})
	client := &pollClient{
		gate: gate,
		statuses: []provider.VideoJobStatus{
			{Status: provider.VideoStatusSucceeded, VideoURL: "https://cdn/v.mp4"},
		},
		artifact: []byte("mp4"),
	}
	store := newMemJobStore()
	_ = store.Create(context.Background(), &domain.GenerationJob{
		ID:       "job-1",
		Kind:     domain.JobKindVideoGen,
		RemoteID: "remote-1",
		Status:   domain.JobStatusPolling,
	})
	tracker := newTestTracker(client, store, &resultSink{}, 10)

	// Two resumes while the first poll is gated must not double the loop.
	_ = tracker.Resume(context.Background())
	_ = tracker.Resume(context.Background())
	close(gate)
	tracker.Wait()

	if got := client.pollCount(); got != 1 {
		t.Errorf("polls = %d, want 1", got)
	}
}

func TestTrackerSubmitImageEdit(t *testing.T) {
	client := &pollClient{artifact: []byte("jpeg")}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, err := tracker.SubmitImageEdit(context.Background(), "cap-1", "stylize", []byte("src"))
	if err != nil {
		t.Fatalf("SubmitImageEdit: %v", err)
	}
	if job.Status != domain.JobStatusSucceeded {
		t.Errorf("job status = %q", job.Status)
	}
	results := sink.all()
	if len(results) != 1 || string(results[0].Artifact) != "jpeg" {
		t.Fatalf("results = %+v", results)
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusSucceeded {
		t.Errorf("stored status = %q", stored.Status)
	}
}

func TestTrackerSubmitImageEditFailure(t *testing.T) {
	client := &pollClient{fetchErr: errors.New("bad prompt")}
	store := newMemJobStore()
	sink := &resultSink{}
	tracker := newTestTracker(client, store, sink, 10)

	job, err := tracker.SubmitImageEdit(context.Background(), "cap-1", "stylize", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	stored, _ := store.GetByID(context.Background(), job.ID)
	if stored.Status != domain.JobStatusFailed || stored.ErrorMessage != "bad prompt" {
		t.Errorf("stored = %+v", stored)
	}
}
