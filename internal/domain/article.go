package domain

import "time"

// ArticleStatus enumerates article lifecycle states.
type ArticleStatus string

const (
	ArticleStatusDraft  ArticleStatus = "draft"
	ArticleStatusReady  ArticleStatus = "ready"
	ArticleStatusFailed ArticleStatus = "failed"
)

// FAQEntry is one question/answer pair appended to an article.
type FAQEntry struct {
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// OutlineSection is one H2 block with optional H3 subpoints.
type OutlineSection struct {
	Heading   string   `json:"h2"`
	Subpoints []string `json:"h3s,omitempty"`
}

// Outline is the article skeleton the section stages fan out over.
type Outline struct {
	Title    string           `json:"title"`
	Sections []OutlineSection `json:"sections"`
}

// Article is the assembled, deliverable document produced by a Job.
// Immutable after delivery except for status transitions driven by the
// delivery outcome.
type Article struct {
	ID               string
	JobID            string
	SiteID           string
	Topic            string
	Language         string
	HTML             string
	MetaTitle        string
	MetaDescription  string
	FAQ              []FAQEntry
	SchemaJSON       map[string]any
	ImageURLs        []string
	TokensInput      int
	TokensOutput     int
	ImageCostCents   int
	Status           ArticleStatus
	ExternalPostID   *int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
