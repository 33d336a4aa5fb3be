package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConflictRepository stores spec conflicts and their resolution lifecycle.
type ConflictRepository struct {
	db DB
}

// NewConflictRepository creates a new conflict repository.
func NewConflictRepository(db DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

const conflictColumns = `id, product_id, spec_name, existing_value, new_value,
	source_doc_id, existing_doc_id, severity, resolution, resolved_value,
	resolved_by, resolved_at, created_at`

// Create inserts a pending conflict row.
func (r *ConflictRepository) Create(ctx context.Context, c *SpecConflict) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Severity == "" {
		c.Severity = SeverityMedium
	}
	if c.Resolution == "" {
		c.Resolution = ResolutionPending
	}
	c.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO spec_conflicts (`+conflictColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, c.ID, c.ProductID, c.SpecName, c.ExistingValue, c.NewValue,
		c.SourceDocID, c.ExistingDocID, c.Severity, c.Resolution, c.ResolvedValue,
		c.ResolvedBy, c.ResolvedAt, c.CreatedAt)
	return err
}

// GetByID retrieves a conflict by ID.
func (r *ConflictRepository) GetByID(ctx context.Context, id uuid.UUID) (*SpecConflict, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+conflictColumns+` FROM spec_conflicts WHERE id = $1`, id)
	c := &SpecConflict{}
	err := row.Scan(
		&c.ID, &c.ProductID, &c.SpecName, &c.ExistingValue, &c.NewValue,
		&c.SourceDocID, &c.ExistingDocID, &c.Severity, &c.Resolution, &c.ResolvedValue,
		&c.ResolvedBy, &c.ResolvedAt, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ConflictFilter narrows List results.
type ConflictFilter struct {
	ProductID  uuid.UUID
	Severity   ConflictSeverity
	Resolution ConflictResolution
	Limit      int
}

// List retrieves conflicts matching the filter, newest first.
func (r *ConflictRepository) List(ctx context.Context, f ConflictFilter) ([]*SpecConflict, error) {
	query := `SELECT ` + conflictColumns + ` FROM spec_conflicts WHERE 1=1`
	var args []interface{}
	if f.ProductID != uuid.Nil {
		args = append(args, f.ProductID)
		query += fmt.Sprintf(` AND product_id = $%d`, len(args))
	}
	if f.Severity != "" {
		args = append(args, f.Severity)
		query += fmt.Sprintf(` AND severity = $%d`, len(args))
	}
	if f.Resolution != "" {
		args = append(args, f.Resolution)
		query += fmt.Sprintf(` AND resolution = $%d`, len(args))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conflicts []*SpecConflict
	for rows.Next() {
		c := &SpecConflict{}
		if err := rows.Scan(
			&c.ID, &c.ProductID, &c.SpecName, &c.ExistingValue, &c.NewValue,
			&c.SourceDocID, &c.ExistingDocID, &c.Severity, &c.Resolution, &c.ResolvedValue,
			&c.ResolvedBy, &c.ResolvedAt, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, c)
	}
	return conflicts, rows.Err()
}

// FindPending returns an open conflict for the same product/spec pair, if any.
func (r *ConflictRepository) FindPending(ctx context.Context, productID uuid.UUID, specName string) (*SpecConflict, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+conflictColumns+` FROM spec_conflicts
		WHERE product_id = $1 AND spec_name = $2 AND resolution = $3
		ORDER BY created_at DESC LIMIT 1
	`, productID, specName, ResolutionPending)
	c := &SpecConflict{}
	err := row.Scan(
		&c.ID, &c.ProductID, &c.SpecName, &c.ExistingValue, &c.NewValue,
		&c.SourceDocID, &c.ExistingDocID, &c.Severity, &c.Resolution, &c.ResolvedValue,
		&c.ResolvedBy, &c.ResolvedAt, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Resolve closes a pending conflict. Re-resolving a closed conflict is
// rejected with ErrConflictClosed.
func (r *ConflictRepository) Resolve(ctx context.Context, id uuid.UUID, resolution ConflictResolution, resolvedValue, resolvedBy string) error {
	if !resolution.Terminal() {
		return NewValidationError("resolution", "must be a terminal state")
	}
	now := time.Now()
	result, err := r.db.ExecContext(ctx, `
		UPDATE spec_conflicts SET
			resolution = $1, resolved_value = $2, resolved_by = $3, resolved_at = $4
		WHERE id = $5 AND resolution = $6
	`, resolution, resolvedValue, resolvedBy, now, id, ResolutionPending)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrConflictClosed
	}
	return nil
}

// CountOpen returns the number of pending conflicts.
func (r *ConflictRepository) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM spec_conflicts WHERE resolution = $1`,
		ResolutionPending).Scan(&n)
	return n, err
}
