package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
	"aiwriter/internal/openai"
	"aiwriter/internal/quota"
)

// ErrScheduleImmutable rejects changes to a schedule that is already being
// processed or has finished.
var ErrScheduleImmutable = errors.New("schedule is processing or completed")

const (
	defaultPlanCount = 30
	maxPlanCount     = 60
	defaultHorizon   = 7
)

// TitleSuggestion is one proposed article in a generated publishing plan.
type TitleSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords,omitempty"`
}

type titlePlan struct {
	Titles []TitleSuggestion `json:"titles"`
}

// PlanItem is one entry of a plan the publisher wants persisted.
type PlanItem struct {
	Title          string
	Description    string
	Context        string
	Goal           string
	PublishAt      time.Time
	GenerateImages bool
}

// ScheduleUpdate carries the mutable fields of a pending schedule. Nil
// fields are left as they are.
type ScheduleUpdate struct {
	Title          *string
	Description    *string
	PublishAt      *time.Time
	GenerateImages *bool
}

// Service runs the publishing calendar: it drafts title plans with the
// text model, stores the chosen schedule, and converts due entries into
// regular generation jobs.
type Service struct {
	schedules   domain.ScheduleRepository
	sites       domain.SiteRepository
	jobs        domain.JobRepository
	gate        *quota.Gate
	completions *openai.StructuredClient

	defaultLanguage string
	logger          zerolog.Logger
	now             func() time.Time
}

func NewService(
	schedules domain.ScheduleRepository,
	sites domain.SiteRepository,
	jobs domain.JobRepository,
	gate *quota.Gate,
	completions *openai.StructuredClient,
	defaultLanguage string,
	logger zerolog.Logger,
) *Service {
	return &Service{
		schedules:       schedules,
		sites:           sites,
		jobs:            jobs,
		gate:            gate,
		completions:     completions,
		defaultLanguage: defaultLanguage,
		logger:          logger,
		now:             time.Now,
	}
}

// GeneratePlan asks the text model for count article titles matching the
// site's niche. Blank titles are dropped; the rest come back in order.
func (s *Service) GeneratePlan(ctx context.Context, siteID, siteContext, goal string, count int) ([]TitleSuggestion, error) {
	if count <= 0 {
		count = defaultPlanCount
	}
	if count > maxPlanCount {
		count = maxPlanCount
	}

	var plan titlePlan
	usage, err := s.completions.CompleteInto(ctx, planPrompt(siteContext, goal, count), &plan, "scheduler plan")
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	titles := make([]TitleSuggestion, 0, count)
	for _, t := range plan.Titles {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		titles = append(titles, t)
		if len(titles) == count {
			break
		}
	}
	if len(titles) == 0 {
		return nil, fmt.Errorf("generate plan: model returned no titles")
	}

	s.logger.Info().
		Str("site_id", siteID).
		Int("titles", len(titles)).
		Int("tokens_in", usage.PromptTokens).
		Int("tokens_out", usage.CompletionTokens).
		Msg("scheduler: plan generated")
	return titles, nil
}

// SavePlan persists the accepted plan entries. Items without a title or
// with a publish time that is not in the future are skipped, not fatal:
// the publisher sees the saved count and can resubmit strays.
func (s *Service) SavePlan(ctx context.Context, siteID string, items []PlanItem) (int, error) {
	saved := 0
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" {
			continue
		}
		if !item.PublishAt.After(s.now()) {
			s.logger.Warn().Str("site_id", siteID).Time("publish_at", item.PublishAt).
				Msg("scheduler: skipping entry with past publish time")
			continue
		}
		sched := &domain.ScheduledJob{
			ID:             uuid.NewString(),
			SiteID:         siteID,
			Title:          strings.TrimSpace(item.Title),
			Description:    item.Description,
			Context:        item.Context,
			Goal:           item.Goal,
			PublishAt:      item.PublishAt.UTC(),
			GenerateImages: item.GenerateImages,
			Status:         domain.ScheduleStatusPending,
		}
		if err := s.schedules.Create(ctx, sched); err != nil {
			return saved, fmt.Errorf("save plan: %w", err)
		}
		saved++
	}
	s.logger.Info().Str("site_id", siteID).Int("saved", saved).Msg("scheduler: plan saved")
	return saved, nil
}

// Upcoming lists the site's schedules for the next days.
func (s *Service) Upcoming(ctx context.Context, siteID string, days int) ([]*domain.ScheduledJob, error) {
	if days <= 0 {
		days = defaultHorizon
	}
	return s.schedules.ListUpcoming(ctx, siteID, time.Duration(days)*24*time.Hour)
}

// Update applies the given changes to a pending schedule owned by the
// site. A schedule visible to another site reads as not found.
func (s *Service) Update(ctx context.Context, siteID, id string, upd ScheduleUpdate) (*domain.ScheduledJob, error) {
	sched, err := s.forSite(ctx, siteID, id)
	if err != nil {
		return nil, err
	}
	if sched.Status == domain.ScheduleStatusProcessing || sched.Status == domain.ScheduleStatusCompleted {
		return nil, ErrScheduleImmutable
	}

	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, fmt.Errorf("update schedule: title must not be empty")
		}
		sched.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		sched.Description = *upd.Description
	}
	if upd.PublishAt != nil {
		if !upd.PublishAt.After(s.now()) {
			return nil, fmt.Errorf("update schedule: publish time must be in the future")
		}
		sched.PublishAt = upd.PublishAt.UTC()
	}
	if upd.GenerateImages != nil {
		sched.GenerateImages = *upd.GenerateImages
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// Delete removes a schedule that has not started processing yet.
func (s *Service) Delete(ctx context.Context, siteID, id string) error {
	sched, err := s.forSite(ctx, siteID, id)
	if err != nil {
		return err
	}
	if sched.Status == domain.ScheduleStatusProcessing || sched.Status == domain.ScheduleStatusCompleted {
		return ErrScheduleImmutable
	}
	return s.schedules.Delete(ctx, sched.ID)
}

// ProcessDue turns every due schedule into a pending generation job. Quota
// is checked per schedule the same way a direct submission would be; a
// denied schedule fails with the gate's reason instead of consuming the
// slot of a later one.
func (s *Service) ProcessDue(ctx context.Context) (processed, failed int) {
	due, err := s.schedules.ClaimDue(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: claiming due schedules failed")
		return 0, 0
	}
	if len(due) == 0 {
		return 0, 0
	}
	s.logger.Info().Int("due", len(due)).Msg("scheduler: processing due schedules")

	for _, sched := range due {
		if err := s.enqueue(ctx, sched); err != nil {
			failed++
			s.finish(ctx, sched.ID, domain.ScheduleStatusFailed, nil, err.Error())
			s.logger.Error().Err(err).Str("schedule_id", sched.ID).Msg("scheduler: schedule failed")
			continue
		}
		processed++
	}
	return processed, failed
}

func (s *Service) enqueue(ctx context.Context, sched *domain.ScheduledJob) error {
	plan, err := s.sites.PlanForSite(ctx, sched.SiteID)
	if err != nil {
		return fmt.Errorf("plan lookup: %w", err)
	}
	admission := s.gate.Admit(ctx, sched.SiteID, plan)
	if !admission.Allowed {
		return fmt.Errorf("quota: %s", admission.Reason)
	}
	images := 0
	if sched.GenerateImages {
		images = s.gate.AdmitImages(plan, 1)
	}

	job := &domain.Job{
		ID:              uuid.NewString(),
		SiteID:          sched.SiteID,
		Topic:           sched.Title,
		Length:          domain.LengthMedium,
		Language:        s.defaultLanguage,
		RequestedImages: images,
		Status:          domain.JobStatusPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	s.finish(ctx, sched.ID, domain.ScheduleStatusCompleted, &job.ID, "")
	s.logger.Info().
		Str("schedule_id", sched.ID).
		Str("job_id", job.ID).
		Str("topic", job.Topic).
		Msg("scheduler: schedule enqueued")
	return nil
}

func (s *Service) finish(ctx context.Context, id string, status domain.ScheduleStatus, jobID *string, errMsg string) {
	if err := s.schedules.Finish(ctx, id, status, jobID, errMsg); err != nil {
		s.logger.Error().Err(err).Str("schedule_id", id).Msg("scheduler: settling schedule failed")
	}
}

func (s *Service) forSite(ctx context.Context, siteID, id string) (*domain.ScheduledJob, error) {
	sched, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sched.SiteID != siteID {
		return nil, domain.ErrNotFound
	}
	return sched, nil
}
