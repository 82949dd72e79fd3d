package domain

import "time"

// Plan describes the limits of a subscription tier. Read-only from the
// pipeline's perspective.
type Plan struct {
	ID                  string
	Name                string
	MonthlyLimit        int
	MaxImagesPerArticle int
	PriceCents          int
}

// LicenseStatus enumerates license states.
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusInactive LicenseStatus = "inactive"
	LicenseStatusExpired  LicenseStatus = "expired"
)

// License ties a key to a plan.
type License struct {
	ID        string
	Key       string
	PlanID    string
	Status    LicenseStatus
	CreatedAt time.Time
}

// Site is one activated publisher installation. Secret is the shared HMAC
// key used for admission signatures and delivery signing.
type Site struct {
	ID        string
	LicenseID string
	Domain    string
	Secret    string
	CreatedAt time.Time
}

// Usage is the per-site, per-calendar-month counter of completed
// generations. Never decremented except by administrative reset.
type Usage struct {
	SiteID    string
	YearMonth string // YYYY-MM
	Used      int
}
