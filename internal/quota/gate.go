package quota

import (
	"context"
	"fmt"
	"time"

	"aiwriter/internal/domain"
	"aiwriter/internal/infra"
	"aiwriter/internal/sqlinline"
)

// Admission is the result of a quota check.
type Admission struct {
	Allowed   bool
	Remaining int
	Reason    string
}

// Gate admits work against a plan's monthly limit and records usage for
// completed jobs. Admission never mutates usage; the increment happens only
// through RecordSuccess.
type Gate struct {
	sql            infra.SQLExecutor
	imageGlobalCap int
	now            func() time.Time
}

// NewGate constructs a quota gate. globalImageCap bounds images per article
// regardless of plan.
func NewGate(sql infra.SQLExecutor, globalImageCap int) *Gate {
	return &Gate{sql: sql, imageGlobalCap: globalImageCap, now: time.Now}
}

// Admit checks the site's usage for the current month against the plan
// limit. Lookup errors deny (fail closed).
func (g *Gate) Admit(ctx context.Context, siteID string, plan *domain.Plan) Admission {
	if plan == nil || plan.MonthlyLimit <= 0 {
		return Admission{Allowed: false, Reason: "plan unavailable"}
	}
	used, err := g.currentUsage(ctx, siteID)
	if err != nil {
		return Admission{Allowed: false, Reason: fmt.Sprintf("usage lookup failed: %v", err)}
	}
	if used >= plan.MonthlyLimit {
		return Admission{Allowed: false, Remaining: 0,
			Reason: fmt.Sprintf("monthly limit of %d articles reached", plan.MonthlyLimit)}
	}
	return Admission{Allowed: true, Remaining: plan.MonthlyLimit - used - 1}
}

// AdmitImages clamps the requested image count to what the plan and the
// global cap allow. A plan without images zeroes the image stage but never
// blocks the job.
func (g *Gate) AdmitImages(plan *domain.Plan, requested int) int {
	if plan == nil || plan.MaxImagesPerArticle <= 0 || requested <= 0 {
		return 0
	}
	capped := requested
	if plan.MaxImagesPerArticle < capped {
		capped = plan.MaxImagesPerArticle
	}
	if g.imageGlobalCap > 0 && g.imageGlobalCap < capped {
		capped = g.imageGlobalCap
	}
	return capped
}

// RecordSuccess increments the site's monthly counter for a completed job.
// Idempotent per job: the guarded update inside QRecordUsageOnce makes a
// second call for the same job a no-op.
func (g *Gate) RecordSuccess(ctx context.Context, jobID string) error {
	_, err := g.sql.Exec(ctx, sqlinline.QRecordUsageOnce, jobID, g.yearMonth())
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (g *Gate) currentUsage(ctx context.Context, siteID string) (int, error) {
	row := g.sql.QueryRow(ctx, sqlinline.QSelectUsage, siteID, g.yearMonth())
	var used int
	if err := row.Scan(&used); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return used, nil
}

func (g *Gate) yearMonth() string {
	return g.now().UTC().Format("2006-01")
}
