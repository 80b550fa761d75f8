package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"studio/internal/domain"
	"studio/internal/sqlinline"
)

type execCall struct {
	query string
	args  []any
}

type stubExecutor struct {
	execs []execCall
	row   pgx.Row
	rows  pgx.Rows
	err   error
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, execCall{query: query, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return s.row
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.rows, nil
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = r.values[i].(string)
		case *time.Time:
			*ptr = r.values[i].(time.Time)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func jobValues(id string) []any {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []any{id, "view-1", "veo-2.0-generate-001", "a cat", "16:9", "succeeded", "", "https://x/video.mp4", now, now}
}

func TestCreateDefaultsToSubmitted(t *testing.T) {
	exec := &stubExecutor{}
	r := NewVideoJobRepository(exec)
	err := r.Create(context.Background(), domain.JobRecord{ID: "job-1", ViewID: "v", Model: "m", Prompt: "p", AspectRatio: domain.AspectLandscape})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if len(exec.execs) != 1 || exec.execs[0].query != sqlinline.QInsertVideoJob {
		t.Fatalf("unexpected execs: %+v", exec.execs)
	}
	if got := exec.execs[0].args[5]; got != "submitted" {
		t.Fatalf("state arg = %v", got)
	}
	if got := exec.execs[0].args[4]; got != "16:9" {
		t.Fatalf("aspect arg = %v", got)
	}
}

func TestFinishRequiresTerminalState(t *testing.T) {
	exec := &stubExecutor{}
	r := NewVideoJobRepository(exec)
	if err := r.Finish(context.Background(), domain.JobRecord{ID: "job-1", State: domain.JobStatePolling}); err == nil {
		t.Fatal("expected error for non-terminal state")
	}
	if len(exec.execs) != 0 {
		t.Fatal("non-terminal finish must not hit the database")
	}
	err := r.Finish(context.Background(), domain.JobRecord{ID: "job-1", State: domain.JobStateFailed, Message: "boom"})
	if err != nil {
		t.Fatalf("Finish error: %v", err)
	}
	args := exec.execs[0].args
	if args[0] != "job-1" || args[1] != "failed" || args[2] != "boom" || args[3] != "" {
		t.Fatalf("finish args = %v", args)
	}
}

func TestGet(t *testing.T) {
	r := NewVideoJobRepository(&stubExecutor{row: stubRow{values: jobValues("job-1")}})
	job, err := r.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if job.State != domain.JobStateSucceeded || job.AspectRatio != domain.AspectLandscape {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.ResultURL != "https://x/video.mp4" {
		t.Fatalf("ResultURL = %q", job.ResultURL)
	}
}

func TestGetNotFound(t *testing.T) {
	r := NewVideoJobRepository(&stubExecutor{row: stubRow{err: pgx.ErrNoRows}})
	if _, err := r.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type stubRows struct {
	data [][]any
	idx  int
}

func (s *stubRows) Close()                                       {}
func (s *stubRows) Err() error                                   { return nil }
func (s *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (s *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (s *stubRows) Next() bool {
	if s.idx >= len(s.data) {
		return false
	}
	s.idx++
	return true
}
func (s *stubRows) Scan(dest ...any) error {
	return stubRow{values: s.data[s.idx-1]}.Scan(dest...)
}
func (s *stubRows) Values() ([]any, error) { return s.data[s.idx-1], nil }
func (s *stubRows) RawValues() [][]byte    { return nil }
func (s *stubRows) Conn() *pgx.Conn        { return nil }

func TestListByView(t *testing.T) {
	rows := &stubRows{data: [][]any{jobValues("job-2"), jobValues("job-1")}}
	r := NewVideoJobRepository(&stubExecutor{rows: rows})
	jobs, err := r.ListByView(context.Background(), "view-1", 0)
	if err != nil {
		t.Fatalf("ListByView error: %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "job-2" || jobs[1].ID != "job-1" {
		t.Fatalf("unexpected jobs: %+v", jobs)
	}
}
