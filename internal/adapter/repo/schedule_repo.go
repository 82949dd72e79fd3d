package repo

import (
	"context"
	"fmt"
	"time"

	"aiwriter/internal/domain"
	"aiwriter/internal/infra"
	"aiwriter/internal/sqlinline"
)

// ScheduleRepositoryPG implements domain.ScheduleRepository.
type ScheduleRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewScheduleRepository creates a schedule repository backed by PostgreSQL.
func NewScheduleRepository(sql infra.SQLExecutor) *ScheduleRepositoryPG {
	return &ScheduleRepositoryPG{sql: sql}
}

func (r *ScheduleRepositoryPG) Create(ctx context.Context, sched *domain.ScheduledJob) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertSchedule,
		sched.ID, sched.SiteID, sched.Title, sched.Description, sched.Context, sched.Goal,
		sched.PublishAt, sched.GenerateImages)
	if err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ScheduledJob, error) {
	return r.scanSchedule(r.sql.QueryRow(ctx, sqlinline.QSelectSchedule, id))
}

func (r *ScheduleRepositoryPG) ListUpcoming(ctx context.Context, siteID string, horizon time.Duration) ([]*domain.ScheduledJob, error) {
	interval := fmt.Sprintf("%d seconds", int(horizon.Seconds()))
	rows, err := r.sql.Query(ctx, sqlinline.QSelectUpcomingSchedules, siteID, interval)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledJob
	for rows.Next() {
		sched, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func (r *ScheduleRepositoryPG) Update(ctx context.Context, sched *domain.ScheduledJob) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateSchedule,
		sched.ID, sched.Title, sched.Description, sched.PublishAt, sched.GenerateImages)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteSchedule, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepositoryPG) ClaimDue(ctx context.Context) ([]*domain.ScheduledJob, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QClaimDueSchedules)
	if err != nil {
		return nil, fmt.Errorf("claim due schedules: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScheduledJob
	for rows.Next() {
		var s domain.ScheduledJob
		err := rows.Scan(&s.ID, &s.SiteID, &s.Title, &s.Description, &s.Context, &s.Goal,
			&s.PublishAt, &s.GenerateImages)
		if err != nil {
			return nil, fmt.Errorf("scan due schedule: %w", err)
		}
		s.Status = domain.ScheduleStatusProcessing
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ScheduleRepositoryPG) Finish(ctx context.Context, id string, status domain.ScheduleStatus, jobID *string, errMsg string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QFinishSchedule, id, string(status), jobID, errMsg)
	if err != nil {
		return fmt.Errorf("finish schedule: %w", err)
	}
	return nil
}

func (r *ScheduleRepositoryPG) scanSchedule(row interface{ Scan(dest ...any) error }) (*domain.ScheduledJob, error) {
	var s domain.ScheduledJob
	var status string
	err := row.Scan(&s.ID, &s.SiteID, &s.Title, &s.Description, &s.Context, &s.Goal,
		&s.PublishAt, &s.GenerateImages, &status, &s.JobID, &s.Error, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select schedule: %w", err)
	}
	s.Status = domain.ScheduleStatus(status)
	return &s, nil
}

var _ domain.ScheduleRepository = (*ScheduleRepositoryPG)(nil)
