// Package conflicts applies human rulings to pending spec conflicts:
// closing the row, writing the chosen value back to the product, and
// leaving an audit trail.
package conflicts

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/fieldmap"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Resolver closes conflicts and propagates accepted values.
type Resolver struct {
	store    *storage.Store
	repos    *storage.Repositories
	registry *registry.Registry
	logger   *observability.Logger
}

// New creates a resolver.
func New(store *storage.Store, repos *storage.Repositories, reg *registry.Registry, logger *observability.Logger) *Resolver {
	return &Resolver{store: store, repos: repos, registry: reg, logger: logger}
}

// Resolve closes the conflict with the given ruling. keep_existing and
// dismissed leave the product untouched; accept_new writes the conflicting
// document's value; manual_override writes resolvedValue. The product write
// bumps the version with a snapshot, inside one transaction with the audit
// entry. Resolving an already-closed conflict returns ErrConflictClosed.
func (r *Resolver) Resolve(ctx context.Context, id uuid.UUID, resolution storage.ConflictResolution, resolvedValue, actor string) (*storage.SpecConflict, error) {
	c, err := r.repos.Conflicts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	applied := ""
	switch resolution {
	case storage.ResolutionAcceptNew:
		applied = c.NewValue
	case storage.ResolutionManualOverride:
		if resolvedValue == "" {
			return nil, storage.NewValidationError("resolved_value", "required for manual_override")
		}
		applied = resolvedValue
	}

	err = r.store.InTx(ctx, func(tx storage.DB) error {
		if err := storage.NewConflictRepository(tx).Resolve(ctx, id, resolution, applied, actor); err != nil {
			return err
		}
		if applied == "" {
			return nil
		}
		return r.applyToProduct(ctx, tx, c, applied, actor)
	})
	if err != nil {
		return nil, fmt.Errorf("resolve conflict %s: %w", id, err)
	}

	r.logger.Info().
		Str("conflict_id", id.String()).
		Str("spec_name", c.SpecName).
		Str("resolution", string(resolution)).
		Str("actor", actor).
		Msg("conflict resolved")
	return r.repos.Conflicts.GetByID(ctx, id)
}

// applyToProduct runs inside the caller's transaction so the conflict close
// and the product write-back commit or roll back together.
func (r *Resolver) applyToProduct(ctx context.Context, tx storage.DB, c *storage.SpecConflict, raw, actor string) error {
	products := storage.NewProductRepository(tx)
	p, err := products.GetByID(ctx, c.ProductID)
	if err != nil {
		return err
	}
	value := storage.Text(raw)
	if entry, ok := r.registry.Get(c.SpecName); ok {
		value = fieldmap.ParseScalar(entry, raw)
	}
	p.SetSpecValue(c.SpecName, value)

	if err := products.Update(ctx, p, p.Version); err != nil {
		return err
	}
	versions := storage.NewVersionRepository(tx)
	if err := versions.Snapshot(ctx, p, "conflict resolution on "+c.SpecName, actor); err != nil {
		return err
	}
	audit := storage.NewAuditRepository(tx)
	return audit.Record(ctx, "product", p.ID, "conflict_resolution", actor, "", map[string]any{
		"conflict_id": c.ID.String(),
		"spec_name":   c.SpecName,
		"value":       raw,
	})
}
