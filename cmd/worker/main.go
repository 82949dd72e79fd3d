package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"aiwriter/internal/adapter/repo"
	"aiwriter/internal/domain"
	"aiwriter/internal/infra"
	"aiwriter/internal/openai"
	"aiwriter/internal/pexels"
	"aiwriter/internal/pipeline"
	"aiwriter/internal/quota"
	"aiwriter/internal/scheduler"
	"aiwriter/internal/sqlinline"
	"aiwriter/internal/webhook"
)

var errNoJobAvailable = errors.New("no job available")

type jobWorker struct {
	ctx    context.Context
	runner *infra.SQLRunner
	logger infra.Logger

	jobs       domain.JobRepository
	articles   domain.ArticleRepository
	sites      domain.SiteRepository
	orch       *pipeline.Orchestrator
	sched      *scheduler.Service
	dispatcher *webhook.Dispatcher

	pollInterval time.Duration
	staleAfter   time.Duration
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	client, err := openai.NewClient(openai.Options{
		APIKey:       cfg.OpenAIAPIKey,
		Model:        cfg.OpenAITextModel,
		ImageModel:   cfg.OpenAIImageModel,
		BaseURL:      cfg.OpenAIBaseURL,
		Organization: cfg.OpenAIOrg,
		Temperature:  cfg.OpenAITemp,
		MaxTokens:    cfg.OpenAIMaxTokens,
		HTTPClient:   &http.Client{Timeout: cfg.OpenAITimeout},
		Logger:       &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure openai client")
	}

	var stock pipeline.StockPhotoSource
	if cfg.PexelsAPIKey != "" {
		pex, err := pexels.NewClient(pexels.Options{
			APIKey:  cfg.PexelsAPIKey,
			BaseURL: cfg.PexelsBaseURL,
			Logger:  &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure pexels client")
		}
		stock = pex
	} else {
		logger.Warn().Msg("worker: no pexels key, every article image will be generated")
	}

	jobs := repo.NewJobRepository(runner)
	articles := repo.NewArticleRepository(runner)
	sites := repo.NewSiteRepository(runner)
	schedules := repo.NewScheduleRepository(runner)
	gate := quota.NewGate(runner, cfg.ImageGlobalCap)
	completions := openai.NewStructuredClient(client, logger)

	worker := &jobWorker{
		ctx:      ctx,
		runner:   runner,
		logger:   logger,
		jobs:     jobs,
		articles: articles,
		sites:    sites,
		orch: pipeline.NewOrchestrator(
			jobs, articles, gate, completions, client, client, stock, cfg.ImageCostCents, logger,
		),
		sched: scheduler.NewService(schedules, sites, jobs, gate, completions, cfg.DefaultLanguage, logger),
		dispatcher:   webhook.NewDispatcher(nil, cfg.DeliveryTimeout, logger),
		pollInterval: cfg.JobPollInterval,
		staleAfter:   cfg.JobStaleAfter,
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *jobWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		w.sweepStaleJobs()
		w.processDueSchedules()

		job, err := w.claimJob()
		if err != nil {
			if errors.Is(err, errNoJobAvailable) {
				time.Sleep(w.pollInterval)
				continue
			}
			w.logger.Error().Err(err).Msg("worker: failed to claim job")
			time.Sleep(w.pollInterval)
			continue
		}

		w.handleJob(job)
	}
}

func (w *jobWorker) claimJob() (*domain.Job, error) {
	row := w.runner.QueryRow(w.ctx, sqlinline.QWorkerClaimJob)
	var j domain.Job
	if err := row.Scan(&j.ID, &j.SiteID, &j.Topic, &j.Length, &j.Language, &j.RequestedImages); err != nil {
		if infra.IsNoRows(err) {
			return nil, errNoJobAvailable
		}
		return nil, err
	}
	j.Status = domain.JobStatusRunning
	return &j, nil
}

// sweepStaleJobs rescues jobs stuck in running, typically after a worker
// crash. A stale job is requeued once; the second strike fails it.
func (w *jobWorker) sweepStaleJobs() {
	interval := fmt.Sprintf("%d seconds", int(w.staleAfter.Seconds()))
	if tag, err := w.runner.Exec(w.ctx, sqlinline.QRequeueStaleJobs, interval); err != nil {
		w.logger.Error().Err(err).Msg("worker: stale job requeue failed")
	} else if n := tag.RowsAffected(); n > 0 {
		w.logger.Warn().Int64("jobs", n).Msg("worker: requeued stale jobs")
	}
	if tag, err := w.runner.Exec(w.ctx, sqlinline.QFailStaleJobs, interval); err != nil {
		w.logger.Error().Err(err).Msg("worker: stale job fail-out failed")
	} else if n := tag.RowsAffected(); n > 0 {
		w.logger.Warn().Int64("jobs", n).Msg("worker: failed repeatedly stale jobs")
	}
}

// processDueSchedules converts due calendar entries into pending jobs,
// which the regular claim loop then picks up.
func (w *jobWorker) processDueSchedules() {
	processed, failed := w.sched.ProcessDue(w.ctx)
	if processed > 0 || failed > 0 {
		w.logger.Info().Int("processed", processed).Int("failed", failed).Msg("worker: due schedules handled")
	}
}

func (w *jobWorker) handleJob(job *domain.Job) {
	w.logger.Info().Str("job_id", job.ID).Str("topic", job.Topic).Msg("worker: picked job")

	article, err := w.orch.Run(w.ctx, job)
	if err != nil {
		// The orchestrator already moved the job to failed.
		return
	}

	w.deliver(job, article)
}

// deliver pushes the finished article to the site and settles the job.
// A delivery failure fails the job but keeps the article for inspection.
func (w *jobWorker) deliver(job *domain.Job, article *domain.Article) {
	site, err := w.sites.GetByID(w.ctx, job.SiteID)
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("worker: site lookup failed before delivery")
		w.finishJob(job.ID, domain.JobStatusFailed, "delivery: site lookup failed")
		return
	}

	res := w.dispatcher.Deliver(w.ctx, article, site)
	switch res.Outcome {
	case webhook.OutcomeDelivered:
		if err := w.articles.UpdateStatus(w.ctx, article.ID, domain.ArticleStatusReady, &res.PostID); err != nil {
			w.logger.Error().Err(err).Str("article_id", article.ID).Msg("worker: recording post id failed")
		}
		w.finishJob(job.ID, domain.JobStatusCompleted, "")
		w.logger.Info().Str("job_id", job.ID).Int64("post_id", res.PostID).Msg("worker: article delivered")
	default:
		if err := w.articles.UpdateStatus(w.ctx, article.ID, domain.ArticleStatusFailed, nil); err != nil {
			w.logger.Error().Err(err).Str("article_id", article.ID).Msg("worker: marking article failed")
		}
		w.finishJob(job.ID, domain.JobStatusFailed, "delivery "+string(res.Outcome)+": "+res.Detail)
		w.logger.Error().
			Str("job_id", job.ID).
			Str("outcome", string(res.Outcome)).
			Str("detail", res.Detail).
			Msg("worker: delivery failed")
	}
}

func (w *jobWorker) finishJob(jobID string, status domain.JobStatus, errMsg string) {
	if err := w.jobs.MarkFinished(w.ctx, jobID, status, errMsg); err != nil {
		w.logger.Error().Err(err).Str("job_id", jobID).Msg("worker: update status failed")
	}
}
