package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// VideoJobRepository stores video job history in the video_jobs table.
type VideoJobRepository struct {
	sql infra.SQLExecutor
}

// NewVideoJobRepository creates a repository over a marker-checking SQLRunner
// or any other SQLExecutor.
func NewVideoJobRepository(sql infra.SQLExecutor) *VideoJobRepository {
	return &VideoJobRepository{sql: sql}
}

// Create inserts the job as submitted. Re-inserting an id is a no-op.
func (r *VideoJobRepository) Create(ctx context.Context, job domain.JobRecord) error {
	state := job.State
	if state == "" {
		state = domain.JobStateSubmitted
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertVideoJob,
		job.ID,
		job.ViewID,
		job.Model,
		job.Prompt,
		string(job.AspectRatio),
		string(state),
	)
	return err
}

// Finish records the terminal state of a job.
func (r *VideoJobRepository) Finish(ctx context.Context, job domain.JobRecord) error {
	if !job.State.Terminal() {
		return fmt.Errorf("video job %s: state %q is not terminal", job.ID, job.State)
	}
	_, err := r.sql.Exec(ctx, sqlinline.QFinishVideoJob, job.ID, string(job.State), job.Message, job.ResultURL)
	return err
}

// Get fetches a job by id.
func (r *VideoJobRepository) Get(ctx context.Context, id string) (*domain.JobRecord, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectVideoJob, id)
	job, err := scanJob(row)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByView returns the most recent jobs of a view.
func (r *VideoJobRepository) ListByView(ctx context.Context, viewID string, limit int) ([]domain.JobRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.sql.Query(ctx, sqlinline.QListVideoJobsByView, viewID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.JobRecord
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.JobRecord, error) {
	var (
		job         domain.JobRecord
		aspectRatio string
		state       string
	)
	if err := row.Scan(
		&job.ID,
		&job.ViewID,
		&job.Model,
		&job.Prompt,
		&aspectRatio,
		&state,
		&job.Message,
		&job.ResultURL,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.AspectRatio = domain.AspectRatio(aspectRatio)
	job.State = domain.JobState(state)
	return &job, nil
}
