package repo

import (
	"context"
	"fmt"

	"aicam/internal/domain"
	"aicam/internal/infra"
	"aicam/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobStore on PostgreSQL.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a job store backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new generation job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.GenerationJob) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGenerationJob,
		job.ID,
		job.CaptureID,
		job.Kind,
		job.RemoteID,
		job.Status,
		job.Provider,
		job.Prompt,
		job.CreatedAt,
	)
	return err
}

// UpdateStatus records a status transition. An empty artifactKey leaves
// the stored key untouched.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errMsg, artifactKey string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateGenerationJobStatus, jobID, status, errMsg, artifactKey)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectGenerationJobByID, jobID)
	var job domain.GenerationJob
	if err := row.Scan(
		&job.ID,
		&job.CaptureID,
		&job.Kind,
		&job.RemoteID,
		&job.Status,
		&job.Provider,
		&job.Prompt,
		&job.ArtifactKey,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	return &job, nil
}

// ListResumable returns every job still in a non-terminal status.
func (r *JobRepositoryPG) ListResumable(ctx context.Context) ([]domain.GenerationJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectResumableJobs)
	if err != nil {
		return nil, fmt.Errorf("select resumable jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		var job domain.GenerationJob
		if err := rows.Scan(
			&job.ID,
			&job.CaptureID,
			&job.Kind,
			&job.RemoteID,
			&job.Status,
			&job.Provider,
			&job.Prompt,
			&job.ArtifactKey,
			&job.ErrorMessage,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan resumable job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
