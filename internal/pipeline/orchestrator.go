package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"aiwriter/internal/domain"
	"aiwriter/internal/openai"
	"aiwriter/internal/quota"
)

// Orchestrator drives a claimed job through the generation stages and
// persists the resulting article. The job is expected to be in status
// running when Run is called; Run moves it to failed on any hard stage
// error and leaves the completed transition to the caller, which still
// has to deliver the article.
type Orchestrator struct {
	jobs        domain.JobRepository
	articles    domain.ArticleRepository
	gate        *quota.Gate
	completions *openai.StructuredClient
	caller      openai.Caller
	images      openai.ImageGenerator
	stock       StockPhotoSource

	imageCostCents int
	logger         zerolog.Logger
}

func NewOrchestrator(
	jobs domain.JobRepository,
	articles domain.ArticleRepository,
	gate *quota.Gate,
	completions *openai.StructuredClient,
	caller openai.Caller,
	images openai.ImageGenerator,
	stock StockPhotoSource,
	imageCostCents int,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:           jobs,
		articles:       articles,
		gate:           gate,
		completions:    completions,
		caller:         caller,
		images:         images,
		stock:          stock,
		imageCostCents: imageCostCents,
		logger:         logger,
	}
}

// Run executes the full pipeline for one job and returns the persisted
// article. On error the job has already been marked failed; the returned
// error carries the failing stage via domain.StageError, or is
// domain.ErrCancelled when the job was cancelled between stages.
func (o *Orchestrator) Run(ctx context.Context, job *domain.Job) (*domain.Article, error) {
	var total openai.Usage

	outline, usage, err := o.runOutline(ctx, job)
	total.Add(usage)
	if err != nil {
		return nil, o.fail(ctx, job, err)
	}

	// The image subtask only depends on the topic, so it overlaps with
	// the remaining text stages. abort tears its context down so an
	// in-flight upstream call stops instead of running to completion
	// after the job already failed or was cancelled.
	var imgRes imageResult
	imgCtx, cancelImages := context.WithCancel(ctx)
	defer cancelImages()
	g, gctx := errgroup.WithContext(imgCtx)
	g.Go(func() error {
		imgRes = o.generateImages(gctx, job)
		return nil
	})
	abort := func() {
		cancelImages()
		_ = g.Wait()
	}

	if err := o.checkCancelled(ctx, job); err != nil {
		abort()
		return nil, err
	}

	sections, usage, err := o.runSections(ctx, job, outline)
	total.Add(usage)
	if err != nil {
		abort()
		return nil, o.fail(ctx, job, err)
	}

	if err := o.checkCancelled(ctx, job); err != nil {
		abort()
		return nil, err
	}

	intro, usage, err := o.runIntroConclusion(ctx, job, outline)
	total.Add(usage)
	if err != nil {
		abort()
		return nil, o.fail(ctx, job, err)
	}

	faq, usage, err := o.runFAQ(ctx, job, outline)
	total.Add(usage)
	if err != nil {
		abort()
		return nil, o.fail(ctx, job, err)
	}

	if err := o.checkCancelled(ctx, job); err != nil {
		abort()
		return nil, err
	}

	meta, usage, err := o.runMeta(ctx, job, outline)
	total.Add(usage)
	if err != nil {
		abort()
		return nil, o.fail(ctx, job, err)
	}

	schema, usage := o.runSchema(ctx, job, outline)
	total.Add(usage)

	_ = g.Wait()
	total.Add(imgRes.usage)

	article := &domain.Article{
		ID:              uuid.NewString(),
		JobID:           job.ID,
		SiteID:          job.SiteID,
		Topic:           job.Topic,
		Language:        job.Language,
		HTML:            assembleHTML(outline, intro.IntroHTML, sections, intro.ConclusionHTML, faq),
		MetaTitle:       meta.Title,
		MetaDescription: meta.Description,
		FAQ:             faq,
		SchemaJSON:      schema,
		ImageURLs:       imgRes.urls,
		TokensInput:     total.PromptTokens,
		TokensOutput:    total.CompletionTokens,
		ImageCostCents:  imageCost(imgRes.generated, o.imageCostCents),
		Status:          domain.ArticleStatusReady,
	}

	if err := o.articles.Create(ctx, article); err != nil {
		return nil, o.fail(ctx, job, stageErr(StageAssemble, fmt.Errorf("persist article: %w", err)))
	}
	if err := o.gate.RecordSuccess(ctx, job.ID); err != nil {
		// The article exists; losing the usage increment is the lesser
		// problem and must not fail the job.
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("recording usage failed")
	}

	o.logger.Info().
		Str("job_id", job.ID).
		Str("article_id", article.ID).
		Int("tokens_in", total.PromptTokens).
		Int("tokens_out", total.CompletionTokens).
		Int("images", len(imgRes.urls)).
		Msg("article generated")
	return article, nil
}

// checkCancelled consults the cancel flag between stages. A cancelled job
// goes straight to failed with a diagnostic and no further upstream calls.
func (o *Orchestrator) checkCancelled(ctx context.Context, job *domain.Job) error {
	cancelled, err := o.jobs.CancelRequested(ctx, job.ID)
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("cancel flag lookup failed, continuing")
		return nil
	}
	if !cancelled {
		return nil
	}
	if err := o.jobs.MarkFinished(ctx, job.ID, domain.JobStatusFailed, "cancelled on request"); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("marking cancelled job failed")
	}
	o.logger.Info().Str("job_id", job.ID).Msg("job cancelled between stages")
	return domain.ErrCancelled
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.Job, cause error) error {
	if err := o.jobs.MarkFinished(ctx, job.ID, domain.JobStatusFailed, cause.Error()); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("marking job failed")
	}
	o.logger.Error().Err(cause).Str("job_id", job.ID).Msg("pipeline failed")
	return cause
}
