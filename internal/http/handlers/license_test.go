package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
	"aiwriter/internal/license"
)

type memLicenseRepo struct {
	license *domain.License
	plan    *domain.Plan
	sites   []*domain.Site
}

func (m *memLicenseRepo) GetByKey(ctx context.Context, key string) (*domain.License, error) {
	if m.license == nil || m.license.Key != key {
		return nil, domain.ErrNotFound
	}
	return m.license, nil
}
func (m *memLicenseRepo) PlanForLicense(ctx context.Context, licenseID string) (*domain.Plan, error) {
	return m.plan, nil
}
func (m *memLicenseRepo) SiteForDomain(ctx context.Context, licenseID, siteDomain string) (*domain.Site, error) {
	for _, s := range m.sites {
		if s.Domain == siteDomain {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}
func (m *memLicenseRepo) CreateSite(ctx context.Context, site *domain.Site) error {
	m.sites = append(m.sites, site)
	return nil
}

func licenseApp() *App {
	repo := &memLicenseRepo{
		license: &domain.License{ID: "lic-1", Key: "KEY-123", Status: domain.LicenseStatusActive},
		plan:    &domain.Plan{ID: "plan-1", Name: "Pro", MonthlyLimit: 100, MaxImagesPerArticle: 2},
	}
	svc := license.NewService(repo, zerolog.Nop())
	return NewApp(&memJobRepo{}, noArticles{}, &memSiteRepo{}, svc, nil, nil, "de", zerolog.Nop())
}

func TestLicenseActivate(t *testing.T) {
	app := licenseApp()
	req := httptest.NewRequest(http.MethodPost, "/v1/license/activate",
		strings.NewReader(`{"key":"KEY-123","domain":"example.com"}`))

	rec := httptest.NewRecorder()
	app.LicenseActivate(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["site_id"] == "" || resp["secret"] == "" || resp["plan"] != "Pro" {
		t.Fatalf("resp = %v", resp)
	}
}

func TestLicenseActivateUnknownKey(t *testing.T) {
	app := licenseApp()
	req := httptest.NewRequest(http.MethodPost, "/v1/license/activate",
		strings.NewReader(`{"key":"WRONG","domain":"example.com"}`))

	rec := httptest.NewRecorder()
	app.LicenseActivate(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestLicenseValidate(t *testing.T) {
	app := licenseApp()

	activate := httptest.NewRecorder()
	app.LicenseActivate(activate, httptest.NewRequest(http.MethodPost, "/v1/license/activate",
		strings.NewReader(`{"key":"KEY-123","domain":"example.com"}`)))
	if activate.Code != http.StatusOK {
		t.Fatalf("activation failed: %s", activate.Body.String())
	}

	rec := httptest.NewRecorder()
	app.LicenseValidate(rec, httptest.NewRequest(http.MethodPost, "/v1/license/validate",
		strings.NewReader(`{"key":"KEY-123","domain":"example.com"}`)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["valid"] != true || resp["plan"] != "Pro" {
		t.Fatalf("resp = %v", resp)
	}
}
