package domain

import "time"

// JobKind enumerates supported generation job categories.
type JobKind string

const (
	JobKindImageEdit JobKind = "image_edit"
	JobKindVideoGen  JobKind = "video_generate"
)

// JobStatus enumerates the generation job lifecycle. Transitions are
// monotonic: pending -> polling -> {succeeded, failed, timed_out}.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusPolling   JobStatus = "polling"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether no further status transition may occur.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut:
		return true
	}
	return false
}

// GenerationJob tracks one long-running generation task against an AI
// provider. RemoteID is the provider-side task identifier for
// asynchronous kinds; image edits complete in a single request and never
// carry one.
type GenerationJob struct {
	ID           string
	CaptureID    string
	Kind         JobKind
	RemoteID     string
	Status       JobStatus
	Provider     string
	Prompt       string
	ArtifactKey  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
