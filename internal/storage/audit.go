package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditRepository writes the append-only audit log. There is deliberately
// no update or delete path.
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append records an audit entry. The payload may be nil.
func (r *AuditRepository) Append(ctx context.Context, e *AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	var payload interface{}
	if len(e.Payload) > 0 {
		payload = string(e.Payload)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, resource_type, resource_id, action, actor, role, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.ResourceType, e.ResourceID, e.Action, e.Actor, e.Role, payload, e.CreatedAt)
	return err
}

// Record is a convenience wrapper that marshals the payload value.
func (r *AuditRepository) Record(ctx context.Context, resourceType string, resourceID uuid.UUID, action, actor, role string, payload interface{}) error {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode audit payload: %w", err)
		}
		raw = b
	}
	return r.Append(ctx, &AuditEntry{
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Actor:        actor,
		Role:         role,
		Payload:      raw,
	})
}

// ListByResource retrieves the audit trail for one resource, newest first.
func (r *AuditRepository) ListByResource(ctx context.Context, resourceType string, resourceID uuid.UUID, limit int) ([]*AuditEntry, error) {
	query := `
		SELECT id, resource_type, resource_id, action, actor, role, payload, created_at
		FROM audit_log
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at DESC
	`
	args := []interface{}{resourceType, resourceID}
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		e := &AuditEntry{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.ResourceType, &e.ResourceID, &e.Action,
			&e.Actor, &e.Role, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			e.Payload = payload
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
