package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// LengthTier selects how long the generated article should be.
type LengthTier string

const (
	LengthShort  LengthTier = "short"
	LengthMedium LengthTier = "medium"
	LengthLong   LengthTier = "long"
)

// ValidLength reports whether the tier is one of the supported values.
func ValidLength(l LengthTier) bool {
	switch l {
	case LengthShort, LengthMedium, LengthLong:
		return true
	}
	return false
}

// Job encapsulates the lifecycle of one article generation request.
type Job struct {
	ID              string
	SiteID          string
	Topic           string
	Length          LengthTier
	Language        string
	RequestedImages int
	Status          JobStatus
	Error           string
	CancelRequested bool
	UsageRecorded   bool
	Requeues        int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FinishedAt      *time.Time
}
