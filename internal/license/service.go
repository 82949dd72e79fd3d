package license

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
)

// Service activates license keys against publisher domains and answers
// validity checks. Activation is idempotent per (license, domain): a
// repeated activation returns the existing site and its secret instead
// of minting a new one.
type Service struct {
	repo   domain.LicenseRepository
	logger zerolog.Logger
}

func NewService(repo domain.LicenseRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Activation is the result handed back to the plugin after a successful
// key activation. The secret signs all later requests from that site.
type Activation struct {
	SiteID string
	Secret string
	Plan   *domain.Plan
}

// Validation reports whether a key is usable for a domain.
type Validation struct {
	Valid    bool
	PlanName string
	Reason   string
}

func (s *Service) Activate(ctx context.Context, key, siteDomain string) (*Activation, error) {
	siteDomain = normalizeDomain(siteDomain)
	if siteDomain == "" {
		return nil, fmt.Errorf("activate: empty domain")
	}

	lic, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	if lic.Status != domain.LicenseStatusActive {
		return nil, domain.ErrLicenseInactive
	}

	plan, err := s.repo.PlanForLicense(ctx, lic.ID)
	if err != nil {
		return nil, fmt.Errorf("activate: resolve plan: %w", err)
	}

	site, err := s.repo.SiteForDomain(ctx, lic.ID, siteDomain)
	switch {
	case err == nil:
		return &Activation{SiteID: site.ID, Secret: site.Secret, Plan: plan}, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("activate: %w", err)
	}

	secret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}
	site = &domain.Site{
		ID:        uuid.NewString(),
		LicenseID: lic.ID,
		Domain:    siteDomain,
		Secret:    secret,
	}
	if err := s.repo.CreateSite(ctx, site); err != nil {
		return nil, fmt.Errorf("activate: %w", err)
	}

	s.logger.Info().Str("site_id", site.ID).Str("domain", siteDomain).Msg("license activated")
	return &Activation{SiteID: site.ID, Secret: secret, Plan: plan}, nil
}

func (s *Service) Validate(ctx context.Context, key, siteDomain string) (*Validation, error) {
	lic, err := s.repo.GetByKey(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return &Validation{Valid: false, Reason: "unknown license key"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	if lic.Status != domain.LicenseStatusActive {
		return &Validation{Valid: false, Reason: fmt.Sprintf("license is %s", lic.Status)}, nil
	}

	if _, err := s.repo.SiteForDomain(ctx, lic.ID, normalizeDomain(siteDomain)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &Validation{Valid: false, Reason: "license not activated for this domain"}, nil
		}
		return nil, fmt.Errorf("validate: %w", err)
	}

	plan, err := s.repo.PlanForLicense(ctx, lic.ID)
	if err != nil {
		return nil, fmt.Errorf("validate: resolve plan: %w", err)
	}
	return &Validation{Valid: true, PlanName: plan.Name}, nil
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func normalizeDomain(d string) string {
	d = strings.TrimSpace(strings.ToLower(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	return strings.TrimSuffix(d, "/")
}
