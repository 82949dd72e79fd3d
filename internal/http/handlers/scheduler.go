package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"aiwriter/internal/domain"
	"aiwriter/internal/scheduler"
)

type schedulePlanReq struct {
	Context string `json:"context"`
	Goal    string `json:"goal"`
	Count   int    `json:"count"`
}

// SchedulerGeneratePlan drafts article titles for the site's publishing
// calendar. Nothing is persisted; the publisher curates the list and
// submits the keepers via SchedulerSavePlan.
func (a *App) SchedulerGeneratePlan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unable to read request body")
		return
	}
	site, ok := a.authenticate(w, r, body)
	if !ok {
		return
	}

	var req schedulePlanReq
	if err := json.Unmarshal(body, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if req.Context == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "context is required")
		return
	}

	titles, err := a.Scheduler.GeneratePlan(r.Context(), site.ID, req.Context, req.Goal, req.Count)
	if err != nil {
		a.Logger.Error().Err(err).Str("site_id", site.ID).Msg("plan generation failed")
		a.error(w, http.StatusBadGateway, "generation_failed", "unable to generate a title plan")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"titles": titles})
}

type scheduleItemReq struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Context        string `json:"context"`
	Goal           string `json:"goal"`
	PublishDate    string `json:"publish_date"`
	GenerateImages bool   `json:"generate_images"`
}

type scheduleSaveReq struct {
	Schedule []scheduleItemReq `json:"schedule"`
}

// SchedulerSavePlan stores the submitted calendar. Entries with a bad or
// past publish date are dropped rather than failing the batch, so a
// partially stale resubmission still lands the fresh entries.
func (a *App) SchedulerSavePlan(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unable to read request body")
		return
	}
	site, ok := a.authenticate(w, r, body)
	if !ok {
		return
	}

	var req scheduleSaveReq
	if err := json.Unmarshal(body, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if len(req.Schedule) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "schedule must not be empty")
		return
	}

	items := make([]scheduler.PlanItem, 0, len(req.Schedule))
	for _, item := range req.Schedule {
		publishAt, err := parsePublishDate(item.PublishDate)
		if err != nil {
			a.Logger.Warn().Str("site_id", site.ID).Str("publish_date", item.PublishDate).
				Msg("skipping schedule entry with unparseable date")
			continue
		}
		items = append(items, scheduler.PlanItem{
			Title:          item.Title,
			Description:    item.Description,
			Context:        item.Context,
			Goal:           item.Goal,
			PublishAt:      publishAt,
			GenerateImages: item.GenerateImages,
		})
	}

	saved, err := a.Scheduler.SavePlan(r.Context(), site.ID, items)
	if err != nil {
		a.Logger.Error().Err(err).Str("site_id", site.ID).Msg("saving schedule failed")
		a.error(w, http.StatusInternalServerError, "internal", "unable to save schedule")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"saved": saved})
}

// SchedulerList returns the site's upcoming schedules, default one week out.
func (a *App) SchedulerList(w http.ResponseWriter, r *http.Request) {
	site, ok := a.authenticate(w, r, nil)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))

	schedules, err := a.Scheduler.Upcoming(r.Context(), site.ID, days)
	if err != nil {
		a.Logger.Error().Err(err).Str("site_id", site.ID).Msg("listing schedules failed")
		a.error(w, http.StatusInternalServerError, "internal", "unable to list schedules")
		return
	}

	out := make([]map[string]any, 0, len(schedules))
	for _, sched := range schedules {
		out = append(out, scheduleResponse(sched))
	}
	a.json(w, http.StatusOK, map[string]any{"schedules": out})
}

type scheduleUpdateReq struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	PublishDate    *string `json:"publish_date"`
	GenerateImages *bool   `json:"generate_images"`
}

func (a *App) SchedulerUpdate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unable to read request body")
		return
	}
	site, ok := a.authenticate(w, r, body)
	if !ok {
		return
	}

	var req scheduleUpdateReq
	if err := json.Unmarshal(body, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	upd := scheduler.ScheduleUpdate{
		Title:          req.Title,
		Description:    req.Description,
		GenerateImages: req.GenerateImages,
	}
	if req.PublishDate != nil {
		publishAt, err := parsePublishDate(*req.PublishDate)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "publish_date must be an RFC 3339 timestamp")
			return
		}
		upd.PublishAt = &publishAt
	}

	sched, err := a.Scheduler.Update(r.Context(), site.ID, chi.URLParam(r, "id"), upd)
	if err != nil {
		a.scheduleError(w, site.ID, err, "updating schedule failed")
		return
	}
	a.json(w, http.StatusOK, scheduleResponse(sched))
}

func (a *App) SchedulerDelete(w http.ResponseWriter, r *http.Request) {
	site, ok := a.authenticate(w, r, nil)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := a.Scheduler.Delete(r.Context(), site.ID, id); err != nil {
		a.scheduleError(w, site.ID, err, "deleting schedule failed")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"schedule_id": id, "status": "deleted"})
}

func (a *App) scheduleError(w http.ResponseWriter, siteID string, err error, logMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "schedule not found")
	case errors.Is(err, scheduler.ErrScheduleImmutable):
		a.error(w, http.StatusConflict, "schedule_locked", "schedule is processing or completed")
	default:
		a.Logger.Error().Err(err).Str("site_id", siteID).Msg(logMsg)
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}

func scheduleResponse(sched *domain.ScheduledJob) map[string]any {
	out := map[string]any{
		"id":              sched.ID,
		"title":           sched.Title,
		"description":     sched.Description,
		"publish_at":      sched.PublishAt.Format(time.RFC3339),
		"status":          sched.Status,
		"generate_images": sched.GenerateImages,
	}
	if sched.JobID != nil {
		out["job_id"] = *sched.JobID
	}
	if sched.Error != "" {
		out["error"] = sched.Error
	}
	return out
}

// parsePublishDate accepts RFC 3339 with or without an explicit offset;
// dates without one are taken as UTC.
func parsePublishDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05", v)
}
