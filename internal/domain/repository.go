package domain

import (
	"context"
	"time"
)

// JobRepository defines persistence for job records.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	MarkRunning(ctx context.Context, id string) error
	MarkFinished(ctx context.Context, id string, status JobStatus, errMsg string) error
	RequestCancel(ctx context.Context, id string) error
	CancelRequested(ctx context.Context, id string) (bool, error)
}

// ArticleRepository defines persistence for articles.
type ArticleRepository interface {
	Create(ctx context.Context, article *Article) error
	GetByJobID(ctx context.Context, jobID string) (*Article, error)
	UpdateStatus(ctx context.Context, id string, status ArticleStatus, postID *int64) error
}

// SiteRepository resolves sites and their plan limits.
type SiteRepository interface {
	GetByID(ctx context.Context, id string) (*Site, error)
	PlanForSite(ctx context.Context, siteID string) (*Plan, error)
}

// ScheduleRepository defines persistence for the publishing calendar.
type ScheduleRepository interface {
	Create(ctx context.Context, sched *ScheduledJob) error
	GetByID(ctx context.Context, id string) (*ScheduledJob, error)
	ListUpcoming(ctx context.Context, siteID string, horizon time.Duration) ([]*ScheduledJob, error)
	Update(ctx context.Context, sched *ScheduledJob) error
	Delete(ctx context.Context, id string) error
	// ClaimDue atomically moves all due pending schedules to processing
	// and returns them for dispatch.
	ClaimDue(ctx context.Context) ([]*ScheduledJob, error)
	Finish(ctx context.Context, id string, status ScheduleStatus, jobID *string, errMsg string) error
}

// LicenseRepository defines persistence for licenses and activations.
type LicenseRepository interface {
	GetByKey(ctx context.Context, key string) (*License, error)
	PlanForLicense(ctx context.Context, licenseID string) (*Plan, error)
	SiteForDomain(ctx context.Context, licenseID, domain string) (*Site, error)
	CreateSite(ctx context.Context, site *Site) error
}
