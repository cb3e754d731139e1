package plan

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository persists planning runs, render jobs, and engine settings.
type Repository interface {
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	LatestRun(ctx context.Context) (*Run, error)

	CreateRenderJob(ctx context.Context, job *RenderJob) error
	GetRenderJob(ctx context.Context, id string) (*RenderJob, error)
	ListRenderJobs(ctx context.Context, limit int) ([]*RenderJob, error)
	// MarkRenderJobProcessing transitions queued -> processing. It fails when
	// the job is absent or not queued.
	MarkRenderJobProcessing(ctx context.Context, id string) error
	// CompleteRenderJob transitions processing -> completed. Terminal states
	// are never overwritten.
	CompleteRenderJob(ctx context.Context, id, outputPath string) error
	// FailRenderJob transitions queued or processing -> failed, retaining
	// the error text verbatim.
	FailRenderJob(ctx context.Context, id, errorMsg string) error

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	planJSON, err := run.Plan.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, under_constrained, plan_json, created_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, boolToInt(run.UnderConstrained), string(planJSON), run.CreatedAt.Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, under_constrained, plan_json, created_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

func (r *SQLiteRepository) LatestRun(ctx context.Context) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, under_constrained, plan_json, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT 1
	`)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var underConstrained int
	var planJSON, createdAt string

	err := row.Scan(&run.ID, &underConstrained, &planJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p, err := DecodePlan([]byte(planJSON))
	if err != nil {
		return nil, err
	}
	run.Plan = *p
	run.UnderConstrained = underConstrained == 1
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &run, nil
}

func (r *SQLiteRepository) CreateRenderJob(ctx context.Context, job *RenderJob) error {
	planJSON, err := job.Plan.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode plan snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, run_id, status, output_path, error, plan_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.RunID, job.Status, nullString(job.OutputPath), nullString(job.Error),
		string(planJSON), job.CreatedAt.Format(time.RFC3339Nano), job.UpdatedAt.Format(time.RFC3339Nano))
	return err
}

func (r *SQLiteRepository) GetRenderJob(ctx context.Context, id string) (*RenderJob, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, status, output_path, error, plan_json, created_at, updated_at
		FROM render_jobs WHERE id = ?
	`, id)

	var j RenderJob
	var outputPath, errorMsg sql.NullString
	var planJSON, createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.RunID, &j.Status, &outputPath, &errorMsg, &planJSON, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p, err := DecodePlan([]byte(planJSON))
	if err != nil {
		return nil, err
	}
	j.Plan = *p
	j.OutputPath = outputPath.String
	j.Error = errorMsg.String
	j.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListRenderJobs(ctx context.Context, limit int) ([]*RenderJob, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, status, output_path, error, plan_json, created_at, updated_at
		FROM render_jobs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*RenderJob
	for rows.Next() {
		var j RenderJob
		var outputPath, errorMsg sql.NullString
		var planJSON, createdAt, updatedAt string

		if err := rows.Scan(&j.ID, &j.RunID, &j.Status, &outputPath, &errorMsg, &planJSON, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p, err := DecodePlan([]byte(planJSON))
		if err != nil {
			return nil, err
		}
		j.Plan = *p
		j.OutputPath = outputPath.String
		j.Error = errorMsg.String
		j.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		j.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) MarkRenderJobProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, JobStatusQueued, `
		UPDATE render_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, JobStatusProcessing)
}

func (r *SQLiteRepository) CompleteRenderJob(ctx context.Context, id, outputPath string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET status = ?, output_path = ?, updated_at = ? WHERE id = ? AND status = ?
	`, JobStatusCompleted, outputPath, now(), id, JobStatusProcessing)
	if err != nil {
		return err
	}
	return requireTransition(res, id, JobStatusCompleted)
}

func (r *SQLiteRepository) FailRenderJob(ctx context.Context, id, errorMsg string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE render_jobs SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status IN (?, ?)
	`, JobStatusFailed, errorMsg, now(), id, JobStatusQueued, JobStatusProcessing)
	if err != nil {
		return err
	}
	return requireTransition(res, id, JobStatusFailed)
}

func (r *SQLiteRepository) transition(ctx context.Context, id, from, query, to string) error {
	res, err := r.db.ExecContext(ctx, query, to, now(), id, from)
	if err != nil {
		return err
	}
	return requireTransition(res, id, to)
}

func requireTransition(res sql.Result, id, to string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("render job %s: illegal transition to %s", id, to)
	}
	return nil
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
