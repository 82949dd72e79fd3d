package repo

import (
	"context"
	"fmt"

	"aiwriter/internal/domain"
	"aiwriter/internal/infra"
	"aiwriter/internal/sqlinline"
)

// SiteRepositoryPG implements domain.SiteRepository and domain.LicenseRepository.
type SiteRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewSiteRepository creates a site/license repository backed by PostgreSQL.
func NewSiteRepository(sql infra.SQLExecutor) *SiteRepositoryPG {
	return &SiteRepositoryPG{sql: sql}
}

func (r *SiteRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	return r.scanSite(r.sql.QueryRow(ctx, sqlinline.QSelectSite, id))
}

func (r *SiteRepositoryPG) PlanForSite(ctx context.Context, siteID string) (*domain.Plan, error) {
	return r.scanPlan(r.sql.QueryRow(ctx, sqlinline.QSelectPlanForSite, siteID))
}

func (r *SiteRepositoryPG) GetByKey(ctx context.Context, key string) (*domain.License, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectLicenseByKey, key)
	var l domain.License
	var status string
	if err := row.Scan(&l.ID, &l.Key, &l.PlanID, &status, &l.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select license: %w", err)
	}
	l.Status = domain.LicenseStatus(status)
	return &l, nil
}

func (r *SiteRepositoryPG) PlanForLicense(ctx context.Context, licenseID string) (*domain.Plan, error) {
	return r.scanPlan(r.sql.QueryRow(ctx, sqlinline.QSelectPlanForLicense, licenseID))
}

func (r *SiteRepositoryPG) SiteForDomain(ctx context.Context, licenseID, siteDomain string) (*domain.Site, error) {
	return r.scanSite(r.sql.QueryRow(ctx, sqlinline.QSelectSiteForDomain, licenseID, siteDomain))
}

func (r *SiteRepositoryPG) CreateSite(ctx context.Context, site *domain.Site) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertSite, site.ID, site.LicenseID, site.Domain, site.Secret)
	if err != nil {
		return fmt.Errorf("insert site: %w", err)
	}
	return nil
}

func (r *SiteRepositoryPG) scanSite(row interface{ Scan(dest ...any) error }) (*domain.Site, error) {
	var s domain.Site
	if err := row.Scan(&s.ID, &s.LicenseID, &s.Domain, &s.Secret, &s.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select site: %w", err)
	}
	return &s, nil
}

func (r *SiteRepositoryPG) scanPlan(row interface{ Scan(dest ...any) error }) (*domain.Plan, error) {
	var p domain.Plan
	if err := row.Scan(&p.ID, &p.Name, &p.MonthlyLimit, &p.MaxImagesPerArticle, &p.PriceCents); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select plan: %w", err)
	}
	return &p, nil
}

var (
	_ domain.SiteRepository    = (*SiteRepositoryPG)(nil)
	_ domain.LicenseRepository = (*SiteRepositoryPG)(nil)
)
