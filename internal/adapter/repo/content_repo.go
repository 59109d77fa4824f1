package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/sqlinline"
)

// ImageRepositoryPG implements domain.ImageRepository.
type ImageRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewImageRepository(sql infra.SQLExecutor) *ImageRepositoryPG {
	return &ImageRepositoryPG{sql: sql}
}

// Create inserts the image row and fills in CreatedAt.
func (r *ImageRepositoryPG) Create(ctx context.Context, img *domain.GeneratedImage) error {
	meta, err := marshalMetadata(img.Metadata)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertImage,
		img.ID,
		img.JobID,
		img.ProjectID,
		img.ImageURL,
		img.Prompt,
		img.Model,
		img.GenerationTimeSeconds,
		meta,
	)
	if err := row.Scan(&img.CreatedAt); err != nil {
		return fmt.Errorf("insert generated image: %w", err)
	}
	return nil
}

// ContentRepositoryPG implements domain.ContentRepository.
type ContentRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewContentRepository(sql infra.SQLExecutor) *ContentRepositoryPG {
	return &ContentRepositoryPG{sql: sql}
}

// Create inserts the content row and fills in CreatedAt.
func (r *ContentRepositoryPG) Create(ctx context.Context, c *domain.GeneratedContent) error {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertContent,
		c.ID,
		c.JobID,
		c.ScheduleID,
		c.UserID,
		c.TaskID,
		string(c.ContentType),
		string(c.Status),
		c.Prompt,
		c.Model,
		meta,
	)
	if err := row.Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("insert generated content: %w", err)
	}
	return nil
}

// CompleteByJob settles the processing content row of a job.
func (r *ContentRepositoryPG) CompleteByJob(ctx context.Context, jobID, url string, generationSeconds *float64, at time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteContentByJob, jobID, url, generationSeconds, at)
	if err != nil {
		return fmt.Errorf("complete content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// FailByJob marks the processing content row of a job as failed.
func (r *ContentRepositoryPG) FailByJob(ctx context.Context, jobID, message string, at time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailContentByJob, jobID, message, at)
	if err != nil {
		return fmt.Errorf("fail content: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyFinal
	}
	return nil
}

// marshalMetadata encodes meta as JSON text. The pool runs the simple
// protocol, which would render a []byte argument as a bytea literal.
func marshalMetadata(meta map[string]any) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(raw), nil
}

var (
	_ domain.ImageRepository   = (*ImageRepositoryPG)(nil)
	_ domain.ContentRepository = (*ContentRepositoryPG)(nil)
)
