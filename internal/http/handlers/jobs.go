package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"aiwriter/internal/domain"
	"aiwriter/internal/middleware"
	"aiwriter/internal/webhook"
)

const maxJobBodyBytes = 1 << 20

type jobCreateReq struct {
	Topic    string `json:"topic"`
	Length   string `json:"length"`
	Language string `json:"language"`
	Images   int    `json:"images"`
}

// JobsCreate admits a generation request and enqueues it. The caller
// authenticates with X-Site-ID plus X-Signature, the hex HMAC-SHA256 of
// the raw request body under the site secret. Quota is checked here but
// only consumed when the job later completes.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJobBodyBytes))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unable to read request body")
		return
	}

	site, ok := a.authenticate(w, r, body)
	if !ok {
		return
	}

	var req jobCreateReq
	if err := json.Unmarshal(body, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "topic is required")
		return
	}
	length := domain.LengthTier(req.Length)
	if req.Length == "" {
		length = domain.LengthMedium
	}
	if !domain.ValidLength(length) {
		a.error(w, http.StatusBadRequest, "bad_request", "length must be short, medium or long")
		return
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = middleware.LanguageFromContext(r.Context())
	}
	if language == "" {
		language = a.DefaultLanguage
	}

	plan, err := a.Sites.PlanForSite(r.Context(), site.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("site_id", site.ID).Msg("plan lookup failed")
		a.error(w, http.StatusForbidden, "quota_exceeded", "no active plan for this site")
		return
	}
	admission := a.Gate.Admit(r.Context(), site.ID, plan)
	if !admission.Allowed {
		a.error(w, http.StatusForbidden, "quota_exceeded", admission.Reason)
		return
	}
	images := a.Gate.AdmitImages(plan, req.Images)

	job := &domain.Job{
		ID:              uuid.NewString(),
		SiteID:          site.ID,
		Topic:           req.Topic,
		Length:          length,
		Language:        language,
		RequestedImages: images,
		Status:          domain.JobStatusPending,
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Str("site_id", site.ID).Msg("job enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "unable to enqueue job")
		return
	}

	a.Logger.Info().Str("job_id", job.ID).Str("site_id", site.ID).Str("topic", req.Topic).Msg("job enqueued")
	a.json(w, http.StatusAccepted, map[string]any{
		"job_id":    job.ID,
		"status":    job.Status,
		"remaining": admission.Remaining,
		"images":    images,
	})
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJobForSite(w, r)
	if !ok {
		return
	}

	resp := map[string]any{
		"job_id": job.ID,
		"status": job.Status,
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	if article, err := a.Articles.GetByJobID(r.Context(), job.ID); err == nil {
		resp["article"] = map[string]any{
			"id":               article.ID,
			"status":           article.Status,
			"meta_title":       article.MetaTitle,
			"images":           len(article.ImageURLs),
			"tokens_input":     article.TokensInput,
			"tokens_output":    article.TokensOutput,
			"external_post_id": article.ExternalPostID,
		}
	}
	a.json(w, http.StatusOK, resp)
}

// JobCancel flags a job for cancellation. Pending jobs never start;
// running jobs stop at the next stage boundary.
func (a *App) JobCancel(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJobForSite(w, r)
	if !ok {
		return
	}
	if job.Status == domain.JobStatusCompleted || job.Status == domain.JobStatusFailed {
		a.error(w, http.StatusConflict, "already_finished", "job has already finished")
		return
	}
	if err := a.Jobs.RequestCancel(r.Context(), job.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("cancel request failed")
		a.error(w, http.StatusInternalServerError, "internal", "unable to cancel job")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"job_id": job.ID, "status": "cancel_requested"})
}

// authenticate resolves the site from X-Site-ID and checks the body
// signature. It writes the error response itself when admission fails.
func (a *App) authenticate(w http.ResponseWriter, r *http.Request, body []byte) (*domain.Site, bool) {
	siteID := r.Header.Get("X-Site-ID")
	if siteID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "X-Site-ID header is required")
		return nil, false
	}
	site, err := a.Sites.GetByID(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "unknown site")
		} else {
			a.Logger.Error().Err(err).Str("site_id", siteID).Msg("site lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "site lookup failed")
		}
		return nil, false
	}
	if !webhook.Verify(body, r.Header.Get("X-Signature"), site.Secret) {
		a.error(w, http.StatusUnauthorized, "signature_mismatch", "request signature does not match")
		return nil, false
	}
	return site, true
}

// loadJobForSite authenticates the read-only job endpoints. They sign an
// empty body, and a job is only visible to the site that enqueued it.
func (a *App) loadJobForSite(w http.ResponseWriter, r *http.Request) (*domain.Job, bool) {
	site, ok := a.authenticate(w, r, nil)
	if !ok {
		return nil, false
	}
	job, err := a.Jobs.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		} else {
			a.Logger.Error().Err(err).Msg("job lookup failed")
			a.error(w, http.StatusInternalServerError, "internal", "job lookup failed")
		}
		return nil, false
	}
	if job.SiteID != site.ID {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return nil, false
	}
	return job, true
}
