package conflicts

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

func testResolver(t *testing.T) (*Resolver, *storage.Repositories) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{
		Driver:       storage.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	repos := storage.NewRepositories(store)
	require.NoError(t, registry.Seed(ctx, repos.Registry))
	reg, err := registry.New(ctx, repos.Registry, observability.NopLogger())
	require.NoError(t, err)
	return New(store, repos, reg, observability.NopLogger()), repos
}

func seedConflict(t *testing.T, repos *storage.Repositories) (*storage.Product, *storage.SpecConflict) {
	t.Helper()
	ctx := context.Background()

	p := &storage.Product{
		ModelNumber: "ABT-HC-23S",
		BrandCode:   "ABS",
		FamilyCode:  "premier_lab_refrigerator",
		Status:      storage.ProductStatusActive,
	}
	p.SetSpecValue("storage_capacity_cuft", storage.Numeric(23, "cuft"))
	require.NoError(t, repos.Products.Create(ctx, p))

	c := &storage.SpecConflict{
		ProductID:     p.ID,
		SpecName:      "storage_capacity_cuft",
		ExistingValue: "23",
		NewValue:      "23.5",
	}
	require.NoError(t, repos.Conflicts.Create(ctx, c))
	return p, c
}

func TestResolver_AcceptNewWritesBackAndSnapshots(t *testing.T) {
	r, repos := testResolver(t)
	ctx := context.Background()
	p, c := seedConflict(t, repos)

	got, err := r.Resolve(ctx, c.ID, storage.ResolutionAcceptNew, "", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, storage.ResolutionAcceptNew, got.Resolution)
	assert.Equal(t, "23.5", got.ResolvedValue)

	updated, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	require.NotNil(t, updated.StorageCapacityCuft)
	assert.Equal(t, 23.5, *updated.StorageCapacityCuft)

	versions, err := repos.Versions.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, versions)

	trail, err := repos.Audit.ListByResource(ctx, "product", p.ID, 0)
	require.NoError(t, err)
	require.NotEmpty(t, trail)
	assert.Equal(t, "conflict_resolution", trail[0].Action)
}

func TestResolver_KeepExistingLeavesProductUntouched(t *testing.T) {
	r, repos := testResolver(t)
	ctx := context.Background()
	p, c := seedConflict(t, repos)

	got, err := r.Resolve(ctx, c.ID, storage.ResolutionKeepExisting, "", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, storage.ResolutionKeepExisting, got.Resolution)

	updated, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)
	assert.Equal(t, 23.0, *updated.StorageCapacityCuft)
}

func TestResolver_ManualOverrideRequiresValue(t *testing.T) {
	r, repos := testResolver(t)
	ctx := context.Background()
	_, c := seedConflict(t, repos)

	_, err := r.Resolve(ctx, c.ID, storage.ResolutionManualOverride, "", "reviewer")
	require.Error(t, err)

	// The conflict stays open after the rejected request.
	still, err := repos.Conflicts.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.ResolutionPending, still.Resolution)
}

func TestResolver_ManualOverrideAppliesTypedValue(t *testing.T) {
	r, repos := testResolver(t)
	ctx := context.Background()
	p, c := seedConflict(t, repos)

	_, err := r.Resolve(ctx, c.ID, storage.ResolutionManualOverride, "24.7 cuft", "reviewer")
	require.NoError(t, err)

	updated, err := repos.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.StorageCapacityCuft)
	assert.Equal(t, 24.7, *updated.StorageCapacityCuft)
}

func TestResolver_ClosedConflictRejected(t *testing.T) {
	r, repos := testResolver(t)
	ctx := context.Background()
	_, c := seedConflict(t, repos)

	_, err := r.Resolve(ctx, c.ID, storage.ResolutionDismissed, "", "reviewer")
	require.NoError(t, err)

	_, err = r.Resolve(ctx, c.ID, storage.ResolutionAcceptNew, "", "reviewer")
	assert.ErrorIs(t, err, storage.ErrConflictClosed)
}

func TestResolver_WriteBackFailureRollsBackConflictClose(t *testing.T) {
	r, repos := testResolver(t)
	ctx := context.Background()

	// The conflict points at a product that no longer exists, so the
	// write-back fails after the conflict row was already updated.
	c := &storage.SpecConflict{
		ProductID:     uuid.New(),
		SpecName:      "storage_capacity_cuft",
		ExistingValue: "23",
		NewValue:      "23.5",
	}
	require.NoError(t, repos.Conflicts.Create(ctx, c))

	_, err := r.Resolve(ctx, c.ID, storage.ResolutionAcceptNew, "", "reviewer")
	require.Error(t, err)

	// Both sides rolled back together: the conflict is still pending.
	still, err := repos.Conflicts.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.ResolutionPending, still.Resolution)
}
