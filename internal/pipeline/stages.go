package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"aiwriter/internal/domain"
	"aiwriter/internal/openai"
)

// Stage names, in pipeline order. They appear in StageError and in logs.
const (
	StageOutline         = "outline"
	StageSections        = "sections"
	StageIntroConclusion = "intro_conclusion"
	StageFAQ             = "faq"
	StageMeta            = "meta"
	StageSchema          = "schema"
	StageAssemble        = "assemble"
	StageImages          = "images"
)

const (
	maxMetaTitleLen       = 60
	maxMetaDescriptionLen = 155
	minFAQEntries         = 3
	maxFAQEntries         = 5
)

type sectionOutput struct {
	HTML string `json:"html"`
}

type introConclusionOutput struct {
	IntroHTML      string `json:"intro_html"`
	ConclusionHTML string `json:"conclusion_html"`
}

type faqOutput struct {
	FAQ []domain.FAQEntry `json:"faq"`
}

type metaOutput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func stageErr(stage string, err error) error {
	return &domain.StageError{Stage: stage, Err: err}
}

func (o *Orchestrator) runOutline(ctx context.Context, job *domain.Job) (domain.Outline, openai.Usage, error) {
	var outline domain.Outline
	usage, err := o.completions.CompleteInto(ctx, outlinePrompt(job), &outline, StageOutline)
	if err != nil {
		return domain.Outline{}, usage, stageErr(StageOutline, err)
	}
	if err := validateOutline(outline); err != nil {
		return domain.Outline{}, usage, stageErr(StageOutline, err)
	}
	return outline, usage, nil
}

func validateOutline(outline domain.Outline) error {
	if strings.TrimSpace(outline.Title) == "" {
		return fmt.Errorf("outline has no title")
	}
	if len(outline.Sections) == 0 {
		return fmt.Errorf("outline has no sections")
	}
	for i, s := range outline.Sections {
		if strings.TrimSpace(s.Heading) == "" {
			return fmt.Errorf("outline section %d has an empty heading", i+1)
		}
	}
	return nil
}

// runSections fans out one completion per outline entry and fans the
// results back in by index, so the article keeps the outline order.
func (o *Orchestrator) runSections(ctx context.Context, job *domain.Job, outline domain.Outline) ([]string, openai.Usage, error) {
	sections := make([]string, len(outline.Sections))
	usages := make([]openai.Usage, len(outline.Sections))

	g, gctx := errgroup.WithContext(ctx)
	for i, section := range outline.Sections {
		i, section := i, section
		g.Go(func() error {
			var out sectionOutput
			label := fmt.Sprintf("%s[%d]", StageSections, i+1)
			usage, err := o.completions.CompleteInto(gctx, sectionPrompt(job, outline, section), &out, label)
			usages[i] = usage
			if err != nil {
				return err
			}
			if strings.TrimSpace(out.HTML) == "" {
				return fmt.Errorf("section %q came back empty", section.Heading)
			}
			sections[i] = out.HTML
			return nil
		})
	}
	err := g.Wait()

	var total openai.Usage
	for _, u := range usages {
		total.Add(u)
	}
	if err != nil {
		return nil, total, stageErr(StageSections, err)
	}
	return sections, total, nil
}

func (o *Orchestrator) runIntroConclusion(ctx context.Context, job *domain.Job, outline domain.Outline) (introConclusionOutput, openai.Usage, error) {
	var out introConclusionOutput
	usage, err := o.completions.CompleteInto(ctx, introConclusionPrompt(job, outline), &out, StageIntroConclusion)
	if err != nil {
		return introConclusionOutput{}, usage, stageErr(StageIntroConclusion, err)
	}
	if strings.TrimSpace(out.IntroHTML) == "" || strings.TrimSpace(out.ConclusionHTML) == "" {
		return introConclusionOutput{}, usage, stageErr(StageIntroConclusion, fmt.Errorf("intro or conclusion came back empty"))
	}
	return out, usage, nil
}

func (o *Orchestrator) runFAQ(ctx context.Context, job *domain.Job, outline domain.Outline) ([]domain.FAQEntry, openai.Usage, error) {
	var out faqOutput
	usage, err := o.completions.CompleteInto(ctx, faqPrompt(job, outline), &out, StageFAQ)
	if err != nil {
		return nil, usage, stageErr(StageFAQ, err)
	}
	if len(out.FAQ) < minFAQEntries || len(out.FAQ) > maxFAQEntries {
		return nil, usage, stageErr(StageFAQ, fmt.Errorf("expected %d-%d faq entries, got %d", minFAQEntries, maxFAQEntries, len(out.FAQ)))
	}
	for i, e := range out.FAQ {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, usage, stageErr(StageFAQ, fmt.Errorf("faq entry %d is incomplete", i+1))
		}
	}
	return out.FAQ, usage, nil
}

func (o *Orchestrator) runMeta(ctx context.Context, job *domain.Job, outline domain.Outline) (metaOutput, openai.Usage, error) {
	var out metaOutput
	usage, err := o.completions.CompleteInto(ctx, metaPrompt(job, outline), &out, StageMeta)
	if err != nil {
		return metaOutput{}, usage, stageErr(StageMeta, err)
	}
	if strings.TrimSpace(out.Title) == "" {
		out.Title = outline.Title
	}
	out.Title = truncateRunes(out.Title, maxMetaTitleLen)
	out.Description = truncateRunes(out.Description, maxMetaDescriptionLen)
	return out, usage, nil
}

func truncateRunes(s string, max int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max])
}

// runSchema is soft: a bad or missing schema falls back to a minimal
// Article JSON-LD instead of failing the job.
func (o *Orchestrator) runSchema(ctx context.Context, job *domain.Job, outline domain.Outline) (map[string]any, openai.Usage) {
	var out map[string]any
	usage, err := o.completions.CompleteInto(ctx, schemaPrompt(job, outline), &out, StageSchema)
	if err != nil || len(out) == 0 {
		if err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("schema stage failed, using fallback markup")
		}
		return fallbackSchema(job, outline), usage
	}
	if _, ok := out["@context"]; !ok {
		out["@context"] = "https://schema.org"
	}
	if _, ok := out["@type"]; !ok {
		out["@type"] = "Article"
	}
	return out, usage
}

func fallbackSchema(job *domain.Job, outline domain.Outline) map[string]any {
	return map[string]any{
		"@context":   "https://schema.org",
		"@type":      "Article",
		"headline":   outline.Title,
		"inLanguage": job.Language,
	}
}

func assembleHTML(outline domain.Outline, intro string, sections []string, conclusion string, faq []domain.FAQEntry) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(intro))
	for _, s := range sections {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(s))
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(conclusion))
	if len(faq) > 0 {
		b.WriteString("\n<h2>FAQ</h2>")
		for _, e := range faq {
			b.WriteString("\n<h3>")
			b.WriteString(e.Question)
			b.WriteString("</h3>\n<p>")
			b.WriteString(e.Answer)
			b.WriteString("</p>")
		}
	}
	return b.String()
}
