package repo

import (
	"context"
	"fmt"

	"aiwriter/internal/domain"
	"aiwriter/internal/infra"
	"aiwriter/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Create inserts a new job record in pending state.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertJob,
		job.ID, job.SiteID, job.Topic, string(job.Length), job.Language, job.RequestedImages)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJob, id)
	var j domain.Job
	var length, status string
	err := row.Scan(&j.ID, &j.SiteID, &j.Topic, &length, &j.Language, &j.RequestedImages,
		&status, &j.Error, &j.CancelRequested, &j.UsageRecorded, &j.Requeues,
		&j.CreatedAt, &j.UpdatedAt, &j.FinishedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select job: %w", err)
	}
	j.Length = domain.LengthTier(length)
	j.Status = domain.JobStatus(status)
	return &j, nil
}

func (r *JobRepositoryPG) MarkRunning(ctx context.Context, id string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobRunning, id)
	return err
}

func (r *JobRepositoryPG) MarkFinished(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QMarkJobFinished, id, string(status), errMsg)
	return err
}

func (r *JobRepositoryPG) RequestCancel(ctx context.Context, id string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QRequestJobCancel, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelRequested reads the job's cancel flag. The statement also advances
// updated_at, so a worker polling between stages never looks stale.
func (r *JobRepositoryPG) CancelRequested(ctx context.Context, id string) (bool, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QJobCancelCheck, id)
	var cancelled bool
	if err := row.Scan(&cancelled); err != nil {
		if infra.IsNoRows(err) {
			return false, domain.ErrNotFound
		}
		return false, err
	}
	return cancelled, nil
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
