package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
	"aiwriter/internal/license"
	"aiwriter/internal/quota"
	"aiwriter/internal/scheduler"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Jobs      domain.JobRepository
	Articles  domain.ArticleRepository
	Sites     domain.SiteRepository
	Licenses  *license.Service
	Scheduler *scheduler.Service
	Gate      *quota.Gate

	DefaultLanguage string
	Logger          zerolog.Logger
}

func NewApp(
	jobs domain.JobRepository,
	articles domain.ArticleRepository,
	sites domain.SiteRepository,
	licenses *license.Service,
	sched *scheduler.Service,
	gate *quota.Gate,
	defaultLanguage string,
	logger zerolog.Logger,
) *App {
	return &App{
		Jobs:            jobs,
		Articles:        articles,
		Sites:           sites,
		Licenses:        licenses,
		Scheduler:       sched,
		Gate:            gate,
		DefaultLanguage: defaultLanguage,
		Logger:          logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
