package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingConflict(productID uuid.UUID) *SpecConflict {
	return &SpecConflict{
		ProductID:     productID,
		SpecName:      "storage_capacity_cuft",
		ExistingValue: "23 cuft",
		NewValue:      "24.5 cuft",
		SourceDocID:   uuid.New(),
	}
}

func TestConflictRepository_CreateDefaults(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	ctx := context.Background()

	c := pendingConflict(uuid.New())
	require.NoError(t, repo.Create(ctx, c))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, got.Severity)
	assert.Equal(t, ResolutionPending, got.Resolution)
	assert.Nil(t, got.ResolvedAt)
}

func TestConflictRepository_ResolveLifecycle(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	ctx := context.Background()

	c := pendingConflict(uuid.New())
	require.NoError(t, repo.Create(ctx, c))

	require.NoError(t, repo.Resolve(ctx, c.ID, ResolutionAcceptNew, "24.5 cuft", "pm@example.com"))

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ResolutionAcceptNew, got.Resolution)
	assert.Equal(t, "24.5 cuft", got.ResolvedValue)
	assert.Equal(t, "pm@example.com", got.ResolvedBy)
	assert.NotNil(t, got.ResolvedAt)

	// Closed conflicts stay closed.
	err = repo.Resolve(ctx, c.ID, ResolutionKeepExisting, "", "pm@example.com")
	assert.ErrorIs(t, err, ErrConflictClosed)
}

func TestConflictRepository_ResolveRejectsNonTerminalState(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	ctx := context.Background()

	c := pendingConflict(uuid.New())
	require.NoError(t, repo.Create(ctx, c))

	assert.Error(t, repo.Resolve(ctx, c.ID, ResolutionPending, "", "pm"))
}

func TestConflictRepository_ResolveMissing(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	err := repo.Resolve(context.Background(), uuid.New(), ResolutionAcceptNew, "", "pm")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConflictRepository_ListAndFilters(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	ctx := context.Background()
	productID := uuid.New()

	a := pendingConflict(productID)
	a.Severity = SeverityCritical
	require.NoError(t, repo.Create(ctx, a))

	b := pendingConflict(productID)
	b.SpecName = "voltage_v"
	require.NoError(t, repo.Create(ctx, b))

	other := pendingConflict(uuid.New())
	require.NoError(t, repo.Create(ctx, other))
	require.NoError(t, repo.Resolve(ctx, other.ID, ResolutionKeepExisting, "", "pm"))

	byProduct, err := repo.List(ctx, ConflictFilter{ProductID: productID})
	require.NoError(t, err)
	assert.Len(t, byProduct, 2)

	critical, err := repo.List(ctx, ConflictFilter{Severity: SeverityCritical})
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, a.ID, critical[0].ID)

	pending, err := repo.List(ctx, ConflictFilter{Resolution: ResolutionPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestConflictRepository_FindPending(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	ctx := context.Background()
	productID := uuid.New()

	c := pendingConflict(productID)
	require.NoError(t, repo.Create(ctx, c))

	found, err := repo.FindPending(ctx, productID, "storage_capacity_cuft")
	require.NoError(t, err)
	assert.Equal(t, c.ID, found.ID)

	_, err = repo.FindPending(ctx, productID, "voltage_v")
	assert.ErrorIs(t, err, ErrNotFound)

	// Resolving closes the pending lookup.
	require.NoError(t, repo.Resolve(ctx, c.ID, ResolutionAcceptNew, "", "pm"))
	_, err = repo.FindPending(ctx, productID, "storage_capacity_cuft")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConflictRepository_CountOpen(t *testing.T) {
	repo := NewConflictRepository(testStore(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, pendingConflict(uuid.New())))
	c := pendingConflict(uuid.New())
	require.NoError(t, repo.Create(ctx, c))
	require.NoError(t, repo.Resolve(ctx, c.ID, ResolutionKeepExisting, "", "pm"))

	n, err := repo.CountOpen(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
