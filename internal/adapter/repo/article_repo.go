package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"aiwriter/internal/domain"
	"aiwriter/internal/infra"
	"aiwriter/internal/sqlinline"
)

// ArticleRepositoryPG implements domain.ArticleRepository.
type ArticleRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewArticleRepository creates a new article repository backed by PostgreSQL.
func NewArticleRepository(sql infra.SQLExecutor) *ArticleRepositoryPG {
	return &ArticleRepositoryPG{sql: sql}
}

func (r *ArticleRepositoryPG) Create(ctx context.Context, a *domain.Article) error {
	faq, err := json.Marshal(a.FAQ)
	if err != nil {
		return fmt.Errorf("marshal faq: %w", err)
	}
	schema, err := json.Marshal(a.SchemaJSON)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	images, err := json.Marshal(a.ImageURLs)
	if err != nil {
		return fmt.Errorf("marshal image urls: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QInsertArticle,
		a.ID, a.JobID, a.SiteID, a.Topic, a.Language, a.HTML,
		a.MetaTitle, a.MetaDescription, faq, schema,
		images, a.TokensInput, a.TokensOutput, a.ImageCostCents, string(a.Status))
	if err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepositoryPG) GetByJobID(ctx context.Context, jobID string) (*domain.Article, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectArticleByJob, jobID)
	var a domain.Article
	var status string
	var faq, schema, images []byte
	err := row.Scan(&a.ID, &a.JobID, &a.SiteID, &a.Topic, &a.Language, &a.HTML,
		&a.MetaTitle, &a.MetaDescription, &faq, &schema,
		&images, &a.TokensInput, &a.TokensOutput, &a.ImageCostCents, &status,
		&a.ExternalPostID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select article: %w", err)
	}
	a.Status = domain.ArticleStatus(status)
	if err := json.Unmarshal(faq, &a.FAQ); err != nil {
		return nil, fmt.Errorf("decode faq: %w", err)
	}
	if err := json.Unmarshal(schema, &a.SchemaJSON); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if err := json.Unmarshal(images, &a.ImageURLs); err != nil {
		return nil, fmt.Errorf("decode image urls: %w", err)
	}
	return &a, nil
}

func (r *ArticleRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.ArticleStatus, postID *int64) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateArticleStatus, id, string(status), postID)
	return err
}

var _ domain.ArticleRepository = (*ArticleRepositoryPG)(nil)
