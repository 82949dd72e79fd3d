package domain

import "time"

// ScheduleStatus enumerates scheduled publication states.
type ScheduleStatus string

const (
	ScheduleStatusPending    ScheduleStatus = "pending"
	ScheduleStatusProcessing ScheduleStatus = "processing"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusFailed     ScheduleStatus = "failed"
)

// ScheduledJob is one planned article in a site's publishing calendar.
// When its publish time arrives the worker turns it into a regular
// generation job; JobID links the two once that happens.
type ScheduledJob struct {
	ID             string
	SiteID         string
	Title          string
	Description    string
	Context        string
	Goal           string
	PublishAt      time.Time
	GenerateImages bool
	Status         ScheduleStatus
	JobID          *string
	Error          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
