package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// memStore is an in-memory registry store for tests.
type memStore struct {
	entries    map[string]*storage.RegistryEntry
	createErr  error
	createHits int
}

func newMemStore(entries ...*storage.RegistryEntry) *memStore {
	m := &memStore{entries: map[string]*storage.RegistryEntry{}}
	for _, e := range entries {
		m.entries[e.CanonicalName] = e
	}
	return m
}

func (m *memStore) Create(ctx context.Context, e *storage.RegistryEntry) error {
	m.createHits++
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.entries[e.CanonicalName]; ok {
		return errors.New("duplicate canonical name")
	}
	m.entries[e.CanonicalName] = e
	return nil
}

func (m *memStore) GetByCanonicalName(ctx context.Context, name string) (*storage.RegistryEntry, error) {
	if e, ok := m.entries[name]; ok {
		return e, nil
	}
	return nil, storage.ErrNotFound
}

func (m *memStore) ListAll(ctx context.Context) ([]*storage.RegistryEntry, error) {
	out := make([]*storage.RegistryEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) ListPendingApproval(ctx context.Context) ([]*storage.RegistryEntry, error) {
	var out []*storage.RegistryEntry
	for _, e := range m.entries {
		if e.AutoDiscovered && !e.Approved {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, e *storage.RegistryEntry) error {
	m.entries[e.CanonicalName] = e
	return nil
}

func (m *memStore) Approve(ctx context.Context, canonicalName string) error {
	e, ok := m.entries[canonicalName]
	if !ok {
		return storage.ErrNotFound
	}
	e.Approved = true
	return nil
}

func capacityEntry() *storage.RegistryEntry {
	return &storage.RegistryEntry{
		CanonicalName: "storage_capacity_cuft",
		DisplayName:   "Storage Capacity",
		DataType:      storage.SpecKindNumeric,
		Unit:          "cuft",
		Synonyms:      []string{"Capacity", "Interior Volume", "Total Capacity"},
	}
}

func testRegistry(t *testing.T, entries ...*storage.RegistryEntry) (*Registry, *memStore) {
	t.Helper()
	store := newMemStore(entries...)
	reg, err := New(context.Background(), store, observability.NopLogger())
	require.NoError(t, err)
	return reg, store
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"Storage Capacity:":   "storage_capacity",
		"  Interior  Volume ": "interior_volume",
		"Temp. Range (°C)":    "temp_range_c",
		"Temp Range C":        "temp_range_c",
		"door-type":           "door_type",
		"Cap. (cu. ft.)":      "cap_cu_ft",
		"VOLTAGE":             "voltage",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeLabel(in), in)
	}
}

func TestNormalizeLabel_UnifiesPunctuationVariants(t *testing.T) {
	entry := &storage.RegistryEntry{
		CanonicalName: "temp_range_c",
		DisplayName:   "Temp Range C",
		DataType:      storage.SpecKindRange,
		Unit:          "c",
	}
	reg, _ := testRegistry(t, entry)

	for _, label := range []string{"Temp Range C", "Temp. Range (°C)", "temp-range °C:"} {
		e, err := reg.Resolve(label, "")
		require.NoError(t, err, label)
		assert.Equal(t, "temp_range_c", e.CanonicalName, label)
	}
}

func TestRegistry_Resolve_SynonymHit(t *testing.T) {
	reg, _ := testRegistry(t, capacityEntry())

	e, err := reg.Resolve("Interior Volume:", "")
	require.NoError(t, err)
	assert.Equal(t, "storage_capacity_cuft", e.CanonicalName)

	// Display name and canonical name resolve too.
	e, err = reg.Resolve("Storage Capacity", "premier_lab_refrigerator")
	require.NoError(t, err)
	assert.Equal(t, "storage_capacity_cuft", e.CanonicalName)
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	reg, _ := testRegistry(t, capacityEntry())
	_, err := reg.Resolve("Flux Capacitance", "")
	assert.ErrorIs(t, err, ErrUnknownSpec)
	_, err = reg.Resolve("  ", "")
	assert.ErrorIs(t, err, ErrUnknownSpec)
}

func TestRegistry_Resolve_FamilyScope(t *testing.T) {
	scoped := &storage.RegistryEntry{
		CanonicalName: "ln2_capacity_l",
		DisplayName:   "LN2 Capacity",
		DataType:      storage.SpecKindNumeric,
		Unit:          "l",
		FamilyScope:   []string{"cryogenic_freezer"},
	}
	reg, _ := testRegistry(t, scoped)

	_, err := reg.Resolve("LN2 Capacity", "cryogenic_freezer")
	assert.NoError(t, err)

	_, err = reg.Resolve("LN2 Capacity", "pharmacy_refrigerator")
	assert.ErrorIs(t, err, ErrUnknownSpec)
}

func TestRegistry_Discover_CreatesResolvableEntry(t *testing.T) {
	reg, store := testRegistry(t)

	e, err := reg.Discover(context.Background(), "Peak Variance:", "1.2 °C", "")
	require.NoError(t, err)
	assert.Equal(t, "peak_variance", e.CanonicalName)
	assert.Equal(t, storage.SpecKindNumeric, e.DataType)
	assert.True(t, e.AutoDiscovered)
	assert.False(t, e.Approved)
	assert.Contains(t, store.entries, "peak_variance")

	// The new entry resolves without a reload.
	got, err := reg.Resolve("Peak Variance", "")
	require.NoError(t, err)
	assert.Equal(t, e.CanonicalName, got.CanonicalName)
}

func TestRegistry_Discover_Idempotent(t *testing.T) {
	reg, store := testRegistry(t)

	_, err := reg.Discover(context.Background(), "Peak Variance", "1.2", "")
	require.NoError(t, err)
	_, err = reg.Discover(context.Background(), "Peak Variance", "1.5", "")
	require.NoError(t, err)
	assert.Equal(t, 1, store.createHits)
}

func TestRegistry_Discover_RaceFallsBackToExisting(t *testing.T) {
	reg, store := testRegistry(t)
	store.entries["peak_variance"] = &storage.RegistryEntry{CanonicalName: "peak_variance"}
	store.createErr = errors.New("duplicate key")

	e, err := reg.Discover(context.Background(), "Peak Variance", "1.2", "")
	require.NoError(t, err)
	assert.Equal(t, "peak_variance", e.CanonicalName)
}

func TestRegistry_Discover_ResolvesAcrossFamilies(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Discover(context.Background(), "Compressor Hours", "2400", "lab_freezer")
	require.NoError(t, err)
	assert.Empty(t, e.FamilyScope)

	// A label first seen in a freezer document resolves for any family.
	got, err := reg.Resolve("Compressor Hours", "pharmacy_refrigerator")
	require.NoError(t, err)
	assert.Equal(t, "compressor_hours", got.CanonicalName)
}

func TestRegistry_Approve(t *testing.T) {
	reg, store := testRegistry(t)
	_, err := reg.Discover(context.Background(), "Peak Variance", "1.2", "")
	require.NoError(t, err)

	require.NoError(t, reg.Approve(context.Background(), "peak_variance"))
	assert.True(t, store.entries["peak_variance"].Approved)

	pending, err := reg.PendingApproval(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInferKind(t *testing.T) {
	cases := []struct {
		raw  string
		kind storage.SpecKind
		unit string
	}{
		{"23.1 cuft", storage.SpecKindNumeric, "cuft"},
		{"-30", storage.SpecKindNumeric, ""},
		{"1 to 10 c", storage.SpecKindRange, "c"},
		{"yes", storage.SpecKindBoolean, ""},
		{"ETL, Energy Star", storage.SpecKindList, ""},
		{"stainless steel", storage.SpecKindText, ""},
		{"", storage.SpecKindText, ""},
	}
	for _, tc := range cases {
		kind, unit := InferKind(tc.raw)
		assert.Equal(t, tc.kind, kind, tc.raw)
		assert.Equal(t, tc.unit, unit, tc.raw)
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"yes", "Standard", "included", "TRUE", "y"} {
		b, ok := ParseBool(s)
		assert.True(t, ok, s)
		assert.True(t, b, s)
	}
	for _, s := range []string{"no", "None", "not included", "false"} {
		b, ok := ParseBool(s)
		assert.True(t, ok, s)
		assert.False(t, b, s)
	}
	_, ok := ParseBool("maybe")
	assert.False(t, ok)
}

func TestConvert(t *testing.T) {
	got, err := Convert("f_to_c", 32)
	require.NoError(t, err)
	assert.InDelta(t, 0, got, 0.001)

	got, err = Convert("lbs_to_kg", 100)
	require.NoError(t, err)
	assert.InDelta(t, 45.359, got, 0.001)

	_, err = Convert("furlongs_to_parsecs", 1)
	assert.Error(t, err)
}

func TestConvertToEntryUnit(t *testing.T) {
	conversions := map[string]string{"f": "f_to_c"}

	// Same unit passes through.
	v, ok, err := ConvertToEntryUnit(conversions, "c", "°C", 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	// Declared conversion applies.
	v, ok, err = ConvertToEntryUnit(conversions, "c", "°F", 41)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 5.0, v, 0.001)

	// Unknown source unit passes through unconverted.
	v, ok, err = ConvertToEntryUnit(conversions, "c", "K", 278)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 278.0, v)
}

func TestNormalizeUnit(t *testing.T) {
	assert.Equal(t, "c", NormalizeUnit("°C"))
	assert.Equal(t, "in", NormalizeUnit(`"`))
	assert.Equal(t, "cuft", NormalizeUnit("cu. ft."))
	assert.Equal(t, "lbs", NormalizeUnit("Pounds"))
}
