package recommend

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// regMap is a static registry lookup for comparison tests.
type regMap map[string]*storage.RegistryEntry

func (m regMap) Get(name string) (*storage.RegistryEntry, bool) {
	e, ok := m[name]
	return e, ok
}

func testRepos(t *testing.T) *storage.Repositories {
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
	return storage.NewRepositories(store)
}

func seedProduct(t *testing.T, repos *storage.Repositories, model, brand, family string, specs storage.SpecMap, certs ...string) *storage.Product {
	t.Helper()
	p := &storage.Product{
		ModelNumber:    model,
		BrandCode:      brand,
		FamilyCode:     family,
		Status:         storage.ProductStatusActive,
		Certifications: certs,
	}
	for name, v := range specs {
		p.SetSpecValue(name, v)
	}
	require.NoError(t, repos.Products.Create(context.Background(), p))
	return p
}

func compareRegistry() regMap {
	return regMap{
		"storage_capacity_cuft": {CanonicalName: "storage_capacity_cuft", DisplayName: "Storage Capacity", Unit: "cuft", IsComparable: true, SortOrder: 10},
		"voltage_v":             {CanonicalName: "voltage_v", DisplayName: "Voltage", Unit: "v", IsComparable: true, SortOrder: 20},
		"uniformity_c":          {CanonicalName: "uniformity_c", DisplayName: "Uniformity", Unit: "c", IsComparable: true, SortOrder: 30},
	}
}

func TestComparer_Compare_ArityBounds(t *testing.T) {
	repos := testRepos(t)
	c := NewComparer(repos.Products, repos.EquivalenceRules, compareRegistry())

	_, err := c.Compare(context.Background(), []uuid.UUID{uuid.New()}, false)
	assert.ErrorIs(t, err, ErrCompareArity)

	five := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	_, err = c.Compare(context.Background(), five, false)
	assert.ErrorIs(t, err, ErrCompareArity)
}

func TestComparer_Compare_UnknownProduct(t *testing.T) {
	repos := testRepos(t)
	a := seedProduct(t, repos, "ABT-HC-23S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(23, "cuft"),
	})
	c := NewComparer(repos.Products, repos.EquivalenceRules, compareRegistry())

	_, err := c.Compare(context.Background(), []uuid.UUID{a.ID, uuid.New()}, false)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestComparer_Compare_TwoProducts(t *testing.T) {
	repos := testRepos(t)
	ctx := context.Background()

	a := seedProduct(t, repos, "ABT-HC-23S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(23, "cuft"),
		"voltage_v":             storage.Numeric(115, "v"),
		"uniformity_c":          storage.Numeric(2, "c"),
	})
	b := seedProduct(t, repos, "ABT-HC-49S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(49, "cuft"),
		"voltage_v":             storage.Numeric(115, "v"),
	})

	c := NewComparer(repos.Products, repos.EquivalenceRules, compareRegistry())
	cmp, err := c.Compare(ctx, []uuid.UUID{a.ID, b.ID}, false)
	require.NoError(t, err)

	// Caller order is preserved in the product header.
	require.Len(t, cmp.Products, 2)
	assert.Equal(t, "ABT-HC-23S", cmp.Products[0].ModelNumber)
	assert.Equal(t, "ABT-HC-49S", cmp.Products[1].ModelNumber)

	// Rows follow registry sort order.
	require.Len(t, cmp.Rows, 3)
	assert.Equal(t, "storage_capacity_cuft", cmp.Rows[0].Spec)
	assert.Equal(t, "Storage Capacity", cmp.Rows[0].DisplayName)
	assert.Equal(t, []string{"23 cuft", "49 cuft"}, cmp.Rows[0].Values)
	assert.True(t, cmp.Rows[0].Differs)

	assert.Equal(t, "voltage_v", cmp.Rows[1].Spec)
	assert.False(t, cmp.Rows[1].Differs)

	// A spec only one product carries renders as a dash and does not differ.
	assert.Equal(t, "uniformity_c", cmp.Rows[2].Spec)
	assert.Equal(t, []string{"2 c", "—"}, cmp.Rows[2].Values)
	assert.False(t, cmp.Rows[2].Differs)

	assert.Contains(t, cmp.Summary, "differ on 1 of 3")
	assert.Contains(t, cmp.Summary, "Storage Capacity")
}

func TestComparer_Compare_PrioritySpecsLeadTheTable(t *testing.T) {
	repos := testRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.EquivalenceRules.Upsert(ctx, &storage.EquivalenceRule{
		FamilyCode:    "premier_lab_refrigerator",
		PrioritySpecs: []string{"voltage_v"},
	}))

	a := seedProduct(t, repos, "ABT-HC-23S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(23, "cuft"),
		"voltage_v":             storage.Numeric(115, "v"),
	})
	b := seedProduct(t, repos, "ABT-HC-49S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(49, "cuft"),
		"voltage_v":             storage.Numeric(115, "v"),
	})

	c := NewComparer(repos.Products, repos.EquivalenceRules, compareRegistry())
	cmp, err := c.Compare(ctx, []uuid.UUID{a.ID, b.ID}, false)
	require.NoError(t, err)
	require.NotEmpty(t, cmp.Rows)
	assert.Equal(t, "voltage_v", cmp.Rows[0].Spec)
}

func TestComparer_Compare_NonComparableSpecsDropped(t *testing.T) {
	repos := testRepos(t)
	ctx := context.Background()

	reg := compareRegistry()
	reg["internal_sku"] = &storage.RegistryEntry{CanonicalName: "internal_sku", IsComparable: false}

	a := seedProduct(t, repos, "ABT-HC-23S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"voltage_v":    storage.Numeric(115, "v"),
		"internal_sku": storage.Text("X-100"),
	})
	b := seedProduct(t, repos, "ABT-HC-49S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"voltage_v":    storage.Numeric(115, "v"),
		"internal_sku": storage.Text("X-200"),
	})

	c := NewComparer(repos.Products, repos.EquivalenceRules, reg)
	cmp, err := c.Compare(ctx, []uuid.UUID{a.ID, b.ID}, false)
	require.NoError(t, err)
	for _, row := range cmp.Rows {
		assert.NotEqual(t, "internal_sku", row.Spec)
	}
}

func TestComparer_Compare_HighlightDifferencesDropsAgreeingRows(t *testing.T) {
	repos := testRepos(t)
	ctx := context.Background()

	a := seedProduct(t, repos, "ABT-HC-23S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(23, "cuft"),
		"voltage_v":             storage.Numeric(115, "v"),
	})
	b := seedProduct(t, repos, "ABT-HC-49S", "ABS", "premier_lab_refrigerator", storage.SpecMap{
		"storage_capacity_cuft": storage.Numeric(49, "cuft"),
		"voltage_v":             storage.Numeric(115, "v"),
	})

	c := NewComparer(repos.Products, repos.EquivalenceRules, compareRegistry())
	cmp, err := c.Compare(ctx, []uuid.UUID{a.ID, b.ID}, true)
	require.NoError(t, err)

	// The shared voltage row is dropped; only the capacity row remains.
	require.Len(t, cmp.Rows, 1)
	assert.Equal(t, "storage_capacity_cuft", cmp.Rows[0].Spec)
	assert.True(t, cmp.Rows[0].Differs)
	assert.Contains(t, cmp.Summary, "differ on 1 of 1")
}

func TestComparer_Compare_IdenticalProductsSummary(t *testing.T) {
	repos := testRepos(t)
	ctx := context.Background()

	specs := storage.SpecMap{"voltage_v": storage.Numeric(115, "v")}
	a := seedProduct(t, repos, "ABT-HC-23S", "ABS", "premier_lab_refrigerator", specs)
	b := seedProduct(t, repos, "NSBR241", "NORLAKE", "premier_lab_refrigerator", specs)

	c := NewComparer(repos.Products, repos.EquivalenceRules, compareRegistry())
	cmp, err := c.Compare(ctx, []uuid.UUID{a.ID, b.ID}, false)
	require.NoError(t, err)
	assert.Contains(t, cmp.Summary, "identical on every compared specification")
}
