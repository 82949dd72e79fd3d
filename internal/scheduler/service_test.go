package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"aiwriter/internal/domain"
	"aiwriter/internal/openai"
	"aiwriter/internal/quota"
)

type planCaller struct {
	content string
	err     error
	lastReq openai.ChatRequest
}

func (c *planCaller) SupportsJSONMode() bool { return true }

func (c *planCaller) ChatCompletion(ctx context.Context, req openai.ChatRequest) (*openai.ChatResult, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &openai.ChatResult{Content: c.content, Usage: openai.Usage{PromptTokens: 20, CompletionTokens: 10}}, nil
}

type memSchedules struct {
	items    map[string]*domain.ScheduledJob
	due      []*domain.ScheduledJob
	finished map[string]domain.ScheduleStatus
	deleted  []string
}

func newMemSchedules() *memSchedules {
	return &memSchedules{
		items:    map[string]*domain.ScheduledJob{},
		finished: map[string]domain.ScheduleStatus{},
	}
}

func (m *memSchedules) Create(ctx context.Context, sched *domain.ScheduledJob) error {
	m.items[sched.ID] = sched
	return nil
}
func (m *memSchedules) GetByID(ctx context.Context, id string) (*domain.ScheduledJob, error) {
	sched, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return sched, nil
}
func (m *memSchedules) ListUpcoming(ctx context.Context, siteID string, horizon time.Duration) ([]*domain.ScheduledJob, error) {
	var out []*domain.ScheduledJob
	for _, sched := range m.items {
		if sched.SiteID == siteID {
			out = append(out, sched)
		}
	}
	return out, nil
}
func (m *memSchedules) Update(ctx context.Context, sched *domain.ScheduledJob) error {
	if _, ok := m.items[sched.ID]; !ok {
		return domain.ErrNotFound
	}
	m.items[sched.ID] = sched
	return nil
}
func (m *memSchedules) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}
func (m *memSchedules) ClaimDue(ctx context.Context) ([]*domain.ScheduledJob, error) {
	return m.due, nil
}
func (m *memSchedules) Finish(ctx context.Context, id string, status domain.ScheduleStatus, jobID *string, errMsg string) error {
	m.finished[id] = status
	if sched, ok := m.items[id]; ok {
		sched.Status = status
		sched.JobID = jobID
		sched.Error = errMsg
	}
	return nil
}

type memSites struct {
	plan *domain.Plan
}

func (m *memSites) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	return &domain.Site{ID: id}, nil
}
func (m *memSites) PlanForSite(ctx context.Context, siteID string) (*domain.Plan, error) {
	if m.plan == nil {
		return nil, domain.ErrNotFound
	}
	return m.plan, nil
}

type memJobs struct {
	created []*domain.Job
	err     error
}

func (m *memJobs) Create(ctx context.Context, job *domain.Job) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, job)
	return nil
}
func (m *memJobs) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}
func (m *memJobs) MarkRunning(ctx context.Context, id string) error { return nil }
func (m *memJobs) MarkFinished(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	return nil
}
func (m *memJobs) RequestCancel(ctx context.Context, id string) error { return nil }
func (m *memJobs) CancelRequested(ctx context.Context, id string) (bool, error) {
	return false, nil
}

// usageSQL serves the gate's usage query from a fixed counter.
type usageSQL struct {
	used int
}

type usageRow struct {
	used int
}

func (r usageRow) Scan(dest ...any) error {
	if p, ok := dest[0].(*int); ok {
		*p = r.used
	}
	return nil
}

func (s *usageSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (s *usageSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return usageRow{used: s.used}
}
func (s *usageSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type fixture struct {
	svc       *Service
	caller    *planCaller
	schedules *memSchedules
	sites     *memSites
	jobs      *memJobs
}

func newFixture(used int) *fixture {
	caller := &planCaller{}
	schedules := newMemSchedules()
	sites := &memSites{plan: &domain.Plan{ID: "plan-1", Name: "Starter", MonthlyLimit: 30, MaxImagesPerArticle: 1}}
	jobs := &memJobs{}
	svc := NewService(
		schedules, sites, jobs,
		quota.NewGate(&usageSQL{used: used}, 4),
		openai.NewStructuredClient(caller, zerolog.Nop()),
		"de", zerolog.Nop(),
	)
	return &fixture{svc: svc, caller: caller, schedules: schedules, sites: sites, jobs: jobs}
}

func TestGeneratePlan(t *testing.T) {
	f := newFixture(0)
	f.caller.content = `{"titles":[
		{"title":"Werkbank klar aufräumen","description":"Ordnung schaffen.","keywords":["werkbank"]},
		{"title":"","description":"leerer Titel wird verworfen"},
		{"title":"Holz richtig lagern","description":"Lagerung im Keller."}
	]}`

	titles, err := f.svc.GeneratePlan(context.Background(), "site-1", "Heimwerker-Blog", "newsletter", 10)
	if err != nil {
		t.Fatalf("GeneratePlan returned error: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("titles = %d, want 2 after dropping the blank entry", len(titles))
	}
	if titles[1].Title != "Holz richtig lagern" {
		t.Errorf("titles[1] = %q", titles[1].Title)
	}

	prompt := f.caller.lastReq.Messages[len(f.caller.lastReq.Messages)-1].Content
	if !strings.Contains(prompt, "Heimwerker-Blog") || !strings.Contains(prompt, "Ziel: newsletter") {
		t.Errorf("prompt missing site context or goal: %q", prompt)
	}
	if !strings.Contains(prompt, "erstelle 10 Artikel-Titel") {
		t.Errorf("prompt does not carry requested count: %q", prompt)
	}
}

func TestGeneratePlanClampsCount(t *testing.T) {
	f := newFixture(0)
	f.caller.content = `{"titles":[{"title":"Einer","description":"d"}]}`

	if _, err := f.svc.GeneratePlan(context.Background(), "site-1", "ctx", "", 500); err != nil {
		t.Fatalf("GeneratePlan returned error: %v", err)
	}
	prompt := f.caller.lastReq.Messages[len(f.caller.lastReq.Messages)-1].Content
	if !strings.Contains(prompt, "erstelle 60 Artikel-Titel") {
		t.Errorf("count was not clamped: %q", prompt)
	}

	f.caller.content = `{"titles":[{"title":"Einer","description":"d"}]}`
	if _, err := f.svc.GeneratePlan(context.Background(), "site-1", "ctx", "", 0); err != nil {
		t.Fatalf("GeneratePlan returned error: %v", err)
	}
	prompt = f.caller.lastReq.Messages[len(f.caller.lastReq.Messages)-1].Content
	if !strings.Contains(prompt, "erstelle 30 Artikel-Titel") {
		t.Errorf("zero count did not default: %q", prompt)
	}
}

func TestGeneratePlanNoTitles(t *testing.T) {
	f := newFixture(0)
	f.caller.content = `{"titles":[]}`
	if _, err := f.svc.GeneratePlan(context.Background(), "site-1", "ctx", "", 5); err == nil {
		t.Fatal("expected error for empty title list")
	}
}

func TestSavePlanSkipsPastDates(t *testing.T) {
	f := newFixture(0)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	items := []PlanItem{
		{Title: "Künftiger Artikel", PublishAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)},
		{Title: "Vergangener Artikel", PublishAt: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)},
		{Title: "   ", PublishAt: time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)},
	}
	saved, err := f.svc.SavePlan(context.Background(), "site-1", items)
	if err != nil {
		t.Fatalf("SavePlan returned error: %v", err)
	}
	if saved != 1 || len(f.schedules.items) != 1 {
		t.Fatalf("saved = %d stored = %d, want 1", saved, len(f.schedules.items))
	}
	for _, sched := range f.schedules.items {
		if sched.Title != "Künftiger Artikel" || sched.Status != domain.ScheduleStatusPending {
			t.Errorf("stored schedule = %+v", sched)
		}
	}
}

func TestUpdateRejectsProcessing(t *testing.T) {
	f := newFixture(0)
	f.schedules.items["s-1"] = &domain.ScheduledJob{
		ID: "s-1", SiteID: "site-1", Title: "Alt", Status: domain.ScheduleStatusProcessing,
	}
	title := "Neu"
	if _, err := f.svc.Update(context.Background(), "site-1", "s-1", ScheduleUpdate{Title: &title}); !errors.Is(err, ErrScheduleImmutable) {
		t.Fatalf("err = %v, want ErrScheduleImmutable", err)
	}
}

func TestUpdateOtherSiteReadsNotFound(t *testing.T) {
	f := newFixture(0)
	f.schedules.items["s-1"] = &domain.ScheduledJob{
		ID: "s-1", SiteID: "site-2", Title: "Fremd", Status: domain.ScheduleStatusPending,
	}
	title := "Neu"
	if _, err := f.svc.Update(context.Background(), "site-1", "s-1", ScheduleUpdate{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(context.Background(), "site-1", "s-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAppliesFields(t *testing.T) {
	f := newFixture(0)
	f.svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	f.schedules.items["s-1"] = &domain.ScheduledJob{
		ID: "s-1", SiteID: "site-1", Title: "Alt", Status: domain.ScheduleStatusPending,
	}
	title := "Neu"
	at := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	images := true

	sched, err := f.svc.Update(context.Background(), "site-1", "s-1", ScheduleUpdate{
		Title: &title, PublishAt: &at, GenerateImages: &images,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if sched.Title != "Neu" || !sched.PublishAt.Equal(at) || !sched.GenerateImages {
		t.Errorf("updated schedule = %+v", sched)
	}

	past := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	if _, err := f.svc.Update(context.Background(), "site-1", "s-1", ScheduleUpdate{PublishAt: &past}); err == nil {
		t.Fatal("expected error for past publish time")
	}
}

func TestDeleteCompletedRejected(t *testing.T) {
	f := newFixture(0)
	f.schedules.items["s-1"] = &domain.ScheduledJob{
		ID: "s-1", SiteID: "site-1", Title: "Fertig", Status: domain.ScheduleStatusCompleted,
	}
	if err := f.svc.Delete(context.Background(), "site-1", "s-1"); !errors.Is(err, ErrScheduleImmutable) {
		t.Fatalf("err = %v, want ErrScheduleImmutable", err)
	}
}

func TestProcessDueEnqueuesJob(t *testing.T) {
	f := newFixture(0)
	f.schedules.due = []*domain.ScheduledJob{
		{ID: "s-1", SiteID: "site-1", Title: "Werkbank aufräumen", GenerateImages: true},
	}

	processed, failed := f.svc.ProcessDue(context.Background())
	if processed != 1 || failed != 0 {
		t.Fatalf("processed/failed = %d/%d, want 1/0", processed, failed)
	}
	if len(f.jobs.created) != 1 {
		t.Fatalf("jobs created = %d, want 1", len(f.jobs.created))
	}
	job := f.jobs.created[0]
	if job.Topic != "Werkbank aufräumen" || job.Length != domain.LengthMedium || job.Language != "de" {
		t.Errorf("job = %+v", job)
	}
	if job.RequestedImages != 1 {
		t.Errorf("RequestedImages = %d, want 1 (plan allows one)", job.RequestedImages)
	}
	if f.schedules.finished["s-1"] != domain.ScheduleStatusCompleted {
		t.Errorf("schedule finished as %s, want completed", f.schedules.finished["s-1"])
	}
}

func TestProcessDueQuotaDenied(t *testing.T) {
	f := newFixture(30)
	f.schedules.due = []*domain.ScheduledJob{
		{ID: "s-1", SiteID: "site-1", Title: "Zu viel des Guten"},
	}

	processed, failed := f.svc.ProcessDue(context.Background())
	if processed != 0 || failed != 1 {
		t.Fatalf("processed/failed = %d/%d, want 0/1", processed, failed)
	}
	if len(f.jobs.created) != 0 {
		t.Fatal("job was enqueued despite exhausted quota")
	}
	if f.schedules.finished["s-1"] != domain.ScheduleStatusFailed {
		t.Errorf("schedule finished as %s, want failed", f.schedules.finished["s-1"])
	}
}

func TestProcessDueWithoutImagesFlag(t *testing.T) {
	f := newFixture(0)
	f.schedules.due = []*domain.ScheduledJob{
		{ID: "s-1", SiteID: "site-1", Title: "Ohne Bilder"},
	}

	if processed, _ := f.svc.ProcessDue(context.Background()); processed != 1 {
		t.Fatal("schedule was not processed")
	}
	if f.jobs.created[0].RequestedImages != 0 {
		t.Errorf("RequestedImages = %d, want 0", f.jobs.created[0].RequestedImages)
	}
}
