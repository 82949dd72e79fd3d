package pipeline

import (
	"context"
	"strings"

	"aiwriter/internal/domain"
	"aiwriter/internal/openai"
)

const (
	imageSize    = "1024x1024"
	imageQuality = "high"
)

// StockPhotoSource finds an existing photo for a keyword. Stock photos are
// free, so they are tried before paid generation.
type StockPhotoSource interface {
	SearchPhoto(ctx context.Context, keyword string) (string, error)
}

type imageResult struct {
	urls  []string
	usage openai.Usage
	// generated counts only paid images; stock photos cost nothing.
	generated int
}

// generateImages sources illustrations for the job: first a free stock
// photo matching a derived keyword, then paid generation for the full
// requested count when the library has nothing. Failures are soft: the
// article ships without images and the worker logs why.
func (o *Orchestrator) generateImages(ctx context.Context, job *domain.Job) imageResult {
	if job.RequestedImages <= 0 {
		return imageResult{}
	}
	keyword, usage := o.deriveImageKeyword(ctx, job)

	if o.stock != nil {
		url, err := o.stock.SearchPhoto(ctx, keyword)
		switch {
		case err != nil:
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("stock photo lookup failed, falling back to generation")
		case url != "":
			o.logger.Info().Str("job_id", job.ID).Str("keyword", keyword).Msg("using stock photo")
			return imageResult{urls: []string{url}, usage: usage}
		}
	}

	urls, err := o.images.GenerateImages(ctx, imagePrompt(keyword), imageSize, imageQuality, job.RequestedImages)
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("image generation failed, continuing without images")
		return imageResult{usage: usage}
	}
	return imageResult{urls: urls, usage: usage, generated: len(urls)}
}

// deriveImageKeyword asks the text model for a short phrase describing a good
// illustration. On any failure the raw topic is a fine prompt on its own.
func (o *Orchestrator) deriveImageKeyword(ctx context.Context, job *domain.Job) (string, openai.Usage) {
	res, err := o.caller.ChatCompletion(ctx, openai.ChatRequest{Messages: imageKeywordPrompt(job.Topic)})
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("image keyword derivation failed, using topic")
		return job.Topic, openai.Usage{}
	}
	keyword := strings.Trim(strings.TrimSpace(res.Content), `"'`)
	if keyword == "" {
		keyword = job.Topic
	}
	return keyword, res.Usage
}

func imageCost(generated, costPerImageCents int) int {
	return generated * costPerImageCents
}
