package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRepository stores ingestion job records.
type JobRepository struct {
	db DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, status, total_files, processed_files, failed_files,
	skipped_duplicates, new_products, updated_products, conflicts_found,
	chunks_created, new_specs_discovered, submitted_by, metadata,
	started_at, completed_at, created_at`

// Create inserts a queued job.
func (r *JobRepository) Create(ctx context.Context, j *IngestionJob) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = JobStatusQueued
	}
	j.CreatedAt = time.Now()
	var metadata interface{}
	if len(j.Metadata) > 0 {
		metadata = string(j.Metadata)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingestion_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, j.ID, j.Status, j.TotalFiles, j.ProcessedFiles, j.FailedFiles,
		j.SkippedDuplicates, j.NewProducts, j.UpdatedProducts, j.ConflictsFound,
		j.ChunksCreated, j.NewSpecsDiscovered, j.SubmittedBy, metadata,
		j.StartedAt, j.CompletedAt, j.CreatedAt)
	return err
}

// Update rewrites the job's status and counters.
func (r *JobRepository) Update(ctx context.Context, j *IngestionJob) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE ingestion_jobs SET
			status = $1, processed_files = $2, failed_files = $3,
			skipped_duplicates = $4, new_products = $5, updated_products = $6,
			conflicts_found = $7, chunks_created = $8, new_specs_discovered = $9,
			started_at = $10, completed_at = $11
		WHERE id = $12
	`, j.Status, j.ProcessedFiles, j.FailedFiles,
		j.SkippedDuplicates, j.NewProducts, j.UpdatedProducts,
		j.ConflictsFound, j.ChunksCreated, j.NewSpecsDiscovered,
		j.StartedAt, j.CompletedAt, j.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a job by ID.
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*IngestionJob, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM ingestion_jobs WHERE id = $1`, id)
	j := &IngestionJob{}
	var metadata sql.NullString
	err := row.Scan(
		&j.ID, &j.Status, &j.TotalFiles, &j.ProcessedFiles, &j.FailedFiles,
		&j.SkippedDuplicates, &j.NewProducts, &j.UpdatedProducts, &j.ConflictsFound,
		&j.ChunksCreated, &j.NewSpecsDiscovered, &j.SubmittedBy, &metadata,
		&j.StartedAt, &j.CompletedAt, &j.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if metadata.Valid {
		j.Metadata = []byte(metadata.String)
	}
	return j, nil
}

// List retrieves recent jobs, newest first.
func (r *JobRepository) List(ctx context.Context, limit int) ([]*IngestionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM ingestion_jobs ORDER BY created_at DESC`
	var args []interface{}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*IngestionJob
	for rows.Next() {
		j := &IngestionJob{}
		var metadata sql.NullString
		if err := rows.Scan(
			&j.ID, &j.Status, &j.TotalFiles, &j.ProcessedFiles, &j.FailedFiles,
			&j.SkippedDuplicates, &j.NewProducts, &j.UpdatedProducts, &j.ConflictsFound,
			&j.ChunksCreated, &j.NewSpecsDiscovered, &j.SubmittedBy, &metadata,
			&j.StartedAt, &j.CompletedAt, &j.CreatedAt,
		); err != nil {
			return nil, err
		}
		if metadata.Valid {
			j.Metadata = []byte(metadata.String)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
