package repo

import (
	"context"
	"fmt"

	"aicam/internal/domain"
	"aicam/internal/infra"
	"aicam/internal/sqlinline"
)

// CaptureRepositoryPG implements domain.CaptureStore on PostgreSQL.
type CaptureRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewCaptureRepository creates a capture store backed by PostgreSQL.
func NewCaptureRepository(sql infra.SQLExecutor) *CaptureRepositoryPG {
	return &CaptureRepositoryPG{sql: sql}
}

// Create inserts a new capture record.
func (r *CaptureRepositoryPG) Create(ctx context.Context, capture *domain.Capture) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertCapture,
		capture.ID,
		capture.ImageKey,
		capture.InspirationText,
		capture.Persona,
		capture.CreatedAt,
	)
	return err
}

// GetByID fetches a capture by its identifier.
func (r *CaptureRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Capture, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectCaptureByID, id)
	capture, err := scanCapture(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select capture: %w", err)
	}
	return capture, nil
}

// List returns the newest captures first, up to limit.
func (r *CaptureRepositoryPG) List(ctx context.Context, limit int) ([]domain.Capture, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectCaptures, limit)
	if err != nil {
		return nil, fmt.Errorf("select captures: %w", err)
	}
	defer rows.Close()

	var captures []domain.Capture
	for rows.Next() {
		capture, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		captures = append(captures, *capture)
	}
	return captures, rows.Err()
}

// SetArtifact stores the artifact key for a finished generation of the
// given kind.
func (r *CaptureRepositoryPG) SetArtifact(ctx context.Context, id string, kind domain.JobKind, key string) error {
	query := sqlinline.QSetCaptureEditedImage
	if kind == domain.JobKindVideoGen {
		query = sqlinline.QSetCaptureVideo
	}
	tag, err := r.sql.Exec(ctx, query, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetVideoScript stores the generated video script text.
func (r *CaptureRepositoryPG) SetVideoScript(ctx context.Context, id, script string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QSetCaptureVideoScript, id, script)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapture(row rowScanner) (*domain.Capture, error) {
	var capture domain.Capture
	if err := row.Scan(
		&capture.ID,
		&capture.ImageKey,
		&capture.EditedImageKey,
		&capture.VideoKey,
		&capture.InspirationText,
		&capture.Persona,
		&capture.VideoScript,
		&capture.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &capture, nil
}

var _ domain.CaptureStore = (*CaptureRepositoryPG)(nil)
