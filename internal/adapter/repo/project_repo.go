package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProjectRepository creates a project repository backed by PostgreSQL.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// isUUID reports whether id can be bound to a uuid column. Anything else
// cannot match a row and is reported as not found instead of a cast error.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Prompt,
		&p.ReferenceImageURL,
		&p.ScheduleEnabled,
		&p.ScheduleIntervalMinutes,
		&p.ScheduleMaxImages,
		&p.ScheduleDurationDays,
		&p.LastGenerationAt,
		&p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID loads a project or returns domain.ErrNotFound.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if !isUUID(id) {
		return nil, domain.ErrNotFound
	}
	p, err := scanProject(r.sql.QueryRow(ctx, sqlinline.QSelectProject, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select project: %w", err)
	}
	return p, nil
}

// TouchLastGeneration records when the project last produced an artifact.
func (r *ProjectRepositoryPG) TouchLastGeneration(ctx context.Context, id string, at time.Time) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QTouchProjectLastGeneration, id, at)
	if err != nil {
		return fmt.Errorf("touch project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClaimDue claims up to limit projects whose schedule is due at now.
func (r *ProjectRepositoryPG) ClaimDue(ctx context.Context, limit int, now time.Time) ([]domain.Project, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QClaimDueProjects, limit, now)
	if err != nil {
		return nil, fmt.Errorf("claim due projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
