package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	store, err := Open(ctx, Options{
		Driver:       DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return store
}

func premierProduct(model string) *Product {
	p := &Product{
		ModelNumber:    model,
		BrandCode:      "ABS",
		FamilyCode:     "premier_lab_refrigerator",
		Status:         ProductStatusActive,
		Certifications: []string{"ETL", "Energy_Star"},
	}
	p.SetSpecValue("storage_capacity_cuft", Numeric(23, "cuft"))
	p.SetSpecValue("temp_range_min_c", Numeric(1, "c"))
	p.SetSpecValue("temp_range_max_c", Numeric(10, "c"))
	p.SetSpecValue("door_type", Enum("solid"))
	p.SetSpecValue("uniformity_c", Numeric(2, "c"))
	return p
}

func TestProductRepository_CreateAndGet(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	p := premierProduct("ABT-HC-23S")
	require.NoError(t, repo.Create(ctx, p))
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, 1, p.Version)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABT-HC-23S", got.ModelNumber)
	assert.Equal(t, []string{"ETL", "Energy_Star"}, got.Certifications)

	// Fixed columns and the dynamic map both survive the round trip.
	require.NotNil(t, got.StorageCapacityCuft)
	assert.Equal(t, 23.0, *got.StorageCapacityCuft)
	v, ok := got.SpecValueOf("uniformity_c")
	require.True(t, ok)
	assert.Equal(t, 2.0, v.Number)

	byModel, err := repo.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byModel.ID)
}

func TestProductRepository_CreateRequiresModelNumber(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	err := repo.Create(context.Background(), &Product{})
	assert.Error(t, err)
}

func TestProductRepository_DuplicateModelNumber(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, premierProduct("ABT-HC-23S")))
	err := repo.Create(ctx, premierProduct("ABT-HC-23S"))
	assert.ErrorIs(t, err, ErrDuplicateModel)
}

func TestProductRepository_GetMissing(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProductRepository_ListFilters(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	a := premierProduct("ABT-HC-23S")
	require.NoError(t, repo.Create(ctx, a))

	b := premierProduct("NSBR241")
	b.BrandCode = "NORLAKE"
	b.FamilyCode = "blood_bank_refrigerator"
	require.NoError(t, repo.Create(ctx, b))

	c := premierProduct("ABT-HC-49S")
	c.Status = ProductStatusDraft
	require.NoError(t, repo.Create(ctx, c))

	all, err := repo.List(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	// Ordered by model number.
	assert.Equal(t, "ABT-HC-23S", all[0].ModelNumber)
	assert.Equal(t, "ABT-HC-49S", all[1].ModelNumber)

	norlake, err := repo.List(ctx, ProductFilter{BrandCode: "NORLAKE"})
	require.NoError(t, err)
	require.Len(t, norlake, 1)
	assert.Equal(t, "NSBR241", norlake[0].ModelNumber)

	active, err := repo.List(ctx, ProductFilter{FamilyCode: "premier_lab_refrigerator", Status: ProductStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "ABT-HC-23S", active[0].ModelNumber)

	prefixed, err := repo.List(ctx, ProductFilter{ModelPrefix: "abt-hc"})
	require.NoError(t, err)
	assert.Len(t, prefixed, 2)

	limited, err := repo.List(ctx, ProductFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "ABT-HC-49S", limited[0].ModelNumber)
}

func TestProductRepository_ListSpecFilters(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()
	fp := func(v float64) *float64 { return &v }

	small := premierProduct("ABT-HC-15S")
	small.SetSpecValue("storage_capacity_cuft", Numeric(14.8, "cuft"))
	small.Certifications = []string{"ETL", "NSF_ANSI_456"}
	require.NoError(t, repo.Create(ctx, small))

	big := premierProduct("ABT-HC-49S")
	big.SetSpecValue("storage_capacity_cuft", Numeric(49, "cuft"))
	big.SetSpecValue("door_type", Enum("glass_sliding"))
	require.NoError(t, repo.Create(ctx, big))

	window, err := repo.List(ctx, ProductFilter{CapacityMin: fp(10), CapacityMax: fp(20)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "ABT-HC-15S", window[0].ModelNumber)

	// Both units hold 1..10°C, so a 2..8°C ask matches and a 0°C floor
	// does not.
	covered, err := repo.List(ctx, ProductFilter{TempMin: fp(2), TempMax: fp(8)})
	require.NoError(t, err)
	assert.Len(t, covered, 2)
	colder, err := repo.List(ctx, ProductFilter{TempMin: fp(0)})
	require.NoError(t, err)
	assert.Empty(t, colder)

	sliding, err := repo.List(ctx, ProductFilter{DoorType: "glass_sliding"})
	require.NoError(t, err)
	require.Len(t, sliding, 1)
	assert.Equal(t, "ABT-HC-49S", sliding[0].ModelNumber)
}

func TestProductRepository_ListCertificationsContainsAll(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	certified := premierProduct("ABT-HC-15S")
	certified.Certifications = []string{"ETL", "NSF_ANSI_456"}
	require.NoError(t, repo.Create(ctx, certified))
	require.NoError(t, repo.Create(ctx, premierProduct("ABT-HC-49S")))

	both, err := repo.List(ctx, ProductFilter{Certifications: []string{"ETL", "NSF_ANSI_456"}})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "ABT-HC-15S", both[0].ModelNumber)

	etl, err := repo.List(ctx, ProductFilter{Certifications: []string{"ETL"}})
	require.NoError(t, err)
	assert.Len(t, etl, 2)
}

func TestProductRepository_ListFreeText(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	pharma := premierProduct("ABT-HC-15S")
	pharma.Description = "Premier pharmacy refrigerator with microprocessor controller"
	require.NoError(t, repo.Create(ctx, pharma))
	require.NoError(t, repo.Create(ctx, premierProduct("ABT-HC-49S")))

	byWord, err := repo.List(ctx, ProductFilter{FreeText: "pharmacy"})
	require.NoError(t, err)
	require.Len(t, byWord, 1)
	assert.Equal(t, "ABT-HC-15S", byWord[0].ModelNumber)

	byModel, err := repo.List(ctx, ProductFilter{FreeText: "49S"})
	require.NoError(t, err)
	require.Len(t, byModel, 1)
	assert.Equal(t, "ABT-HC-49S", byModel[0].ModelNumber)

	none, err := repo.List(ctx, ProductFilter{FreeText: "walk-in cooler"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProductRepository_ListByIDs(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	a := premierProduct("ABT-HC-23S")
	require.NoError(t, repo.Create(ctx, a))
	b := premierProduct("ABT-HC-49S")
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.ListByIDs(ctx, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	none, err := repo.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProductRepository_UpdateOptimisticLocking(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	p := premierProduct("ABT-HC-23S")
	require.NoError(t, repo.Create(ctx, p))

	p.SetSpecValue("storage_capacity_cuft", Numeric(23.5, "cuft"))
	require.NoError(t, repo.Update(ctx, p, 1))
	assert.Equal(t, 2, p.Version)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 23.5, *got.StorageCapacityCuft)

	// A stale version loses the race.
	err = repo.Update(ctx, p, 1)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestProductRepository_UpdateStatus(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	p := premierProduct("ABT-HC-23S")
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.UpdateStatus(ctx, p.ID, ProductStatusDiscontinued))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, ProductStatusDiscontinued, got.Status)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), ProductStatusActive), ErrNotFound)
}

func TestProductRepository_Count(t *testing.T) {
	repo := NewProductRepository(testStore(t))
	ctx := context.Background()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Create(ctx, premierProduct("ABT-HC-23S")))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
