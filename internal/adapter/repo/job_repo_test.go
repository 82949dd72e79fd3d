package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"aiwriter/internal/domain"
)

// recordingSQL captures the statements a repository issues and serves
// canned single-value rows.
type recordingSQL struct {
	queries  []string
	args     [][]any
	rowValue any
	rowErr   error
}

type cannedRow struct {
	value any
	err   error
}

func (r cannedRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if p, ok := dest[0].(*bool); ok {
		*p = r.value.(bool)
	}
	return nil
}

func (s *recordingSQL) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return pgconn.CommandTag{}, nil
}

func (s *recordingSQL) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return cannedRow{value: s.rowValue, err: s.rowErr}
}

func (s *recordingSQL) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func TestCancelRequestedTouchesHeartbeat(t *testing.T) {
	sql := &recordingSQL{rowValue: true}
	jobs := NewJobRepository(sql)

	cancelled, err := jobs.CancelRequested(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("CancelRequested returned error: %v", err)
	}
	if !cancelled {
		t.Fatal("cancelled = false, want true")
	}

	if len(sql.queries) != 1 {
		t.Fatalf("statements issued = %d, want 1", len(sql.queries))
	}
	// The flag read must refresh updated_at in the same round trip, or a
	// stage that outlives the stale window gets requeued under a live
	// worker.
	q := sql.queries[0]
	if !strings.Contains(q, "set updated_at = now()") {
		t.Errorf("cancel check does not advance updated_at:\n%s", q)
	}
	if !strings.Contains(q, "returning cancel_requested") {
		t.Errorf("cancel check does not return the flag:\n%s", q)
	}
	if len(sql.args[0]) != 1 || sql.args[0][0] != "job-1" {
		t.Errorf("args = %v, want the job id", sql.args[0])
	}
}

func TestCancelRequestedUnknownJob(t *testing.T) {
	sql := &recordingSQL{rowErr: pgx.ErrNoRows}
	jobs := NewJobRepository(sql)

	if _, err := jobs.CancelRequested(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
