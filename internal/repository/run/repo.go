package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/watermarker/internal/model"
	"github.com/aliskhannn/watermarker/internal/report"
)

// ErrRunNotFound is returned when no run with the given ID is recorded.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is a recorded batch run.
type Run struct {
	ID           uuid.UUID
	StartedAt    time.Time
	Elapsed      time.Duration
	InputDir     string
	OutputDir    string
	Total        int
	Counts       report.Counts
	WrittenBytes int64
	DryRun       bool
	Archive      string
	Version      string
}

// Repository stores batch runs and their per-file outcomes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveRun records a finished run together with all of its outcomes.
func (r *Repository) SaveRun(ctx context.Context, run Run, outcomes []model.JobOutcome) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO runs (id, started_at, elapsed_ms, input_dir, output_dir, total,
			success, skipped, failed, written_bytes, dry_run, archive, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID.String(), run.StartedAt.UTC().Format(timeLayout), run.Elapsed.Milliseconds(),
		run.InputDir, run.OutputDir, run.Total,
		run.Counts.Success, run.Counts.Skipped, run.Counts.Failed,
		run.WrittenBytes, run.DryRun, run.Archive, run.Version,
	)
	if err != nil {
		return fmt.Errorf("save: failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes (job_id, run_id, source_file, status, error, outputs, duration_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("save: failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		outputs, err := json.Marshal(o.Outputs)
		if err != nil {
			return fmt.Errorf("save: failed to marshal outputs: %w", err)
		}

		_, err = stmt.ExecContext(ctx,
			o.JobID.String(), run.ID.String(), o.SourcePath, string(o.Status), o.Reason,
			string(outputs), o.Duration.Milliseconds(), o.FinishedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("save: failed to save outcome for %s: %w", o.SourcePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save: failed to commit run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, started_at, elapsed_ms, input_dir, output_dir, total,
			success, skipped, failed, written_bytes, dry_run, archive, version
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list: failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: failed to read runs: %w", err)
	}

	return runs, nil
}

// GetRun retrieves a run by ID.
func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	query := `
		SELECT id, started_at, elapsed_ms, input_dir, output_dir, total,
			success, skipped, failed, written_bytes, dry_run, archive, version
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, ErrRunNotFound
		}
		return Run{}, fmt.Errorf("get: %w", err)
	}

	return run, nil
}

// ListOutcomes returns the outcomes of a run ordered by source file.
func (r *Repository) ListOutcomes(ctx context.Context, runID uuid.UUID) ([]model.JobOutcome, error) {
	query := `
		SELECT job_id, source_file, status, error, outputs, duration_ms, finished_at
		FROM outcomes
		WHERE run_id = ?
		ORDER BY source_file
	`

	rows, err := r.db.QueryContext(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list: failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []model.JobOutcome
	for rows.Next() {
		var (
			o                 model.JobOutcome
			id, status        string
			outputs, finished string
			durationMs        int64
		)
		if err := rows.Scan(&id, &o.SourcePath, &status, &o.Reason, &outputs, &durationMs, &finished); err != nil {
			return nil, fmt.Errorf("list: failed to scan outcome: %w", err)
		}

		if o.JobID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("list: invalid job id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(outputs), &o.Outputs); err != nil {
			return nil, fmt.Errorf("list: failed to unmarshal outputs: %w", err)
		}
		o.Status = model.Status(status)
		o.Duration = time.Duration(durationMs) * time.Millisecond
		o.FinishedAt, _ = time.Parse(timeLayout, finished)

		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: failed to read outcomes: %w", err)
	}

	return outcomes, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		run         Run
		id, started string
		elapsedMs   int64
	)

	err := s.Scan(&id, &started, &elapsedMs, &run.InputDir, &run.OutputDir, &run.Total,
		&run.Counts.Success, &run.Counts.Skipped, &run.Counts.Failed,
		&run.WrittenBytes, &run.DryRun, &run.Archive, &run.Version)
	if err != nil {
		return Run{}, err
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	run.StartedAt, _ = time.Parse(timeLayout, started)
	run.Elapsed = time.Duration(elapsedMs) * time.Millisecond

	return run, nil
}

// FromSummary builds a Run record from the summary of a finished batch.
func FromSummary(s report.Summary, inputDir, outputDir, version string) Run {
	return Run{
		ID:           s.RunID,
		StartedAt:    s.StartedAt,
		Elapsed:      s.Elapsed,
		InputDir:     inputDir,
		OutputDir:    outputDir,
		Total:        s.Total,
		Counts:       s.Counts,
		WrittenBytes: s.WrittenBytes,
		DryRun:       s.DryRun,
		Archive:      s.Archive,
		Version:      version,
	}
}
