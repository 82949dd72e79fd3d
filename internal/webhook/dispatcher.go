package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
)

// Outcome classifies one delivery attempt.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeRejected       Outcome = "rejected"
	OutcomeTransportError Outcome = "transport_error"
)

// Result carries the terminal state of a delivery attempt. Failures are
// reported here, never raised past the dispatcher.
type Result struct {
	Outcome Outcome
	PostID  int64
	Detail  string
}

const publishPath = "/wp-json/aiwriter/v1/publish"

// Dispatcher signs and transmits finished articles to the publisher
// endpoint of the owning site.
type Dispatcher struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewDispatcher builds a dispatcher with a bounded per-delivery timeout.
func NewDispatcher(httpClient *http.Client, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{httpClient: httpClient, timeout: timeout, logger: logger}
}

type publishResponse struct {
	PostID int64 `json:"post_id"`
}

// Deliver posts the signed article payload to the site's publish endpoint.
// The returned Result is the only way failures surface.
func (d *Dispatcher) Deliver(ctx context.Context, article *domain.Article, site *domain.Site) Result {
	payload := buildPayload(article)

	canonical, err := CanonicalJSON(payload)
	if err != nil {
		return Result{Outcome: OutcomeRejected, Detail: fmt.Sprintf("canonicalize payload: %v", err)}
	}
	signature := Sign(canonical, site.Secret)

	body, err := json.Marshal(map[string]any{
		"payload":   payload,
		"signature": signature,
	})
	if err != nil {
		return Result{Outcome: OutcomeRejected, Detail: fmt.Sprintf("encode body: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointFor(site), bytes.NewReader(body))
	if err != nil {
		return Result{Outcome: OutcomeTransportError, Detail: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error().Err(err).Str("site", site.Domain).Msg("delivery transport failure")
		return Result{Outcome: OutcomeTransportError, Detail: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		d.logger.Warn().Int("status", resp.StatusCode).Str("site", site.Domain).Msg("delivery rejected")
		return Result{Outcome: OutcomeRejected, Detail: fmt.Sprintf("publisher returned status %d", resp.StatusCode)}
	}

	var out publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{Outcome: OutcomeRejected, Detail: fmt.Sprintf("decode publisher response: %v", err)}
	}
	d.logger.Info().Int64("post_id", out.PostID).Str("site", site.Domain).Msg("article delivered")
	return Result{Outcome: OutcomeDelivered, PostID: out.PostID}
}

// buildPayload assembles the publisher contract from an article.
func buildPayload(article *domain.Article) map[string]any {
	faq := article.FAQ
	if faq == nil {
		faq = []domain.FAQEntry{}
	}
	images := article.ImageURLs
	if images == nil {
		images = []string{}
	}
	payload := map[string]any{
		"title":   article.Topic,
		"content": article.HTML,
		"meta": map[string]any{
			"title":       article.MetaTitle,
			"description": article.MetaDescription,
		},
		"faq":    faq,
		"schema": article.SchemaJSON,
		"images": images,
	}
	if len(images) > 0 {
		payload["featured_image"] = images[0]
	}
	return payload
}

func endpointFor(site *domain.Site) string {
	if strings.Contains(site.Domain, "://") {
		return strings.TrimRight(site.Domain, "/") + publishPath
	}
	return "https://" + strings.TrimRight(site.Domain, "/") + publishPath
}
