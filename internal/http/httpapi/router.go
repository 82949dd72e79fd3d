package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"aiwriter/internal/http/handlers"
	"aiwriter/internal/middleware"
)

// Options configures the router's middleware stack.
type Options struct {
	Logger          zerolog.Logger
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLanguage string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}
	r.Use(middleware.Language(opts.DefaultLanguage, opts.CountryLookup))

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/license", func(r chi.Router) {
		r.Post("/activate", app.LicenseActivate)
		r.Post("/validate", app.LicenseValidate)
	})

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", app.JobsCreate)
		r.Get("/{id}", app.JobStatus)
		r.Post("/{id}/cancel", app.JobCancel)
	})

	r.Route("/v1/scheduler", func(r chi.Router) {
		r.Post("/generate_plan", app.SchedulerGeneratePlan)
		r.Post("/save_plan", app.SchedulerSavePlan)
		r.Get("/list", app.SchedulerList)
		r.Put("/update/{id}", app.SchedulerUpdate)
		r.Delete("/delete/{id}", app.SchedulerDelete)
	})

	return r
}
