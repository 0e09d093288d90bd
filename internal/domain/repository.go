package domain

import "context"

// JobStore defines persistence for generation jobs. Writes for distinct
// job ids are independent; writes for the same id are serialized by the
// single poll loop that owns the job.
type JobStore interface {
	Create(ctx context.Context, job *GenerationJob) error
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, errMsg, artifactKey string) error
	GetByID(ctx context.Context, jobID string) (*GenerationJob, error)
	// ListResumable returns jobs whose durable status is polling and
	// which therefore must re-enter a poll loop after a restart.
	ListResumable(ctx context.Context) ([]GenerationJob, error)
}

// CaptureStore defines persistence for capture records.
type CaptureStore interface {
	Create(ctx context.Context, capture *Capture) error
	GetByID(ctx context.Context, id string) (*Capture, error)
	List(ctx context.Context, limit int) ([]Capture, error)
	SetArtifact(ctx context.Context, id string, kind JobKind, key string) error
	SetVideoScript(ctx context.Context, id, script string) error
}
