package repo

import (
	"context"
	"fmt"

	"genstudio/internal/domain"
	"genstudio/internal/infra"
	"genstudio/internal/sqlinline"
)

// ScheduleRepositoryPG implements domain.ScheduleRepository.
type ScheduleRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewScheduleRepository(sql infra.SQLExecutor) *ScheduleRepositoryPG {
	return &ScheduleRepositoryPG{sql: sql}
}

func (r *ScheduleRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	return r.one(ctx, sqlinline.QSelectSchedule, id)
}

// ActiveForProject returns the newest enabled schedule of a project.
func (r *ScheduleRepositoryPG) ActiveForProject(ctx context.Context, projectID string) (*domain.Schedule, error) {
	return r.one(ctx, sqlinline.QSelectActiveScheduleForProject, projectID)
}

func (r *ScheduleRepositoryPG) one(ctx context.Context, query, arg string) (*domain.Schedule, error) {
	if !isUUID(arg) {
		return nil, domain.ErrNotFound
	}
	var s domain.Schedule
	err := r.sql.QueryRow(ctx, query, arg).Scan(
		&s.ID,
		&s.ProjectID,
		&s.UserID,
		&s.Enabled,
		&s.IntervalMinutes,
		&s.CreatedAt,
	)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select schedule: %w", err)
	}
	return &s, nil
}

var _ domain.ScheduleRepository = (*ScheduleRepositoryPG)(nil)
