package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

func existing(v storage.SpecValue) *storage.SpecValue { return &v }

func TestEngine_Decide_NoExistingValueWrites(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing: nil,
		Incoming: storage.Numeric(23, "cuft"),
	})
	assert.Equal(t, ActionWrite, d.Action)
}

func TestEngine_Decide_EqualWithinToleranceNoops(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing: existing(storage.Numeric(100, "lbs")),
		Incoming: storage.Numeric(104, "lbs"), // 4% off, under the 5% default
	})
	assert.Equal(t, ActionNoop, d.Action)
}

func TestEngine_Decide_ExactlyAtToleranceNoops(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing: existing(storage.Numeric(100, "lbs")),
		Incoming: storage.Numeric(95, "lbs"), // delta/max = 5/100 = tolerance
	})
	assert.Equal(t, ActionNoop, d.Action)
}

func TestEngine_Decide_NewerRevisionOverwrites(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing:    existing(storage.Numeric(350, "lbs")),
		Incoming:    storage.Numeric(380, "lbs"),
		NewRevision: "Rev_06.15.25",
		OldRevision: "Rev_03.18.25",
	})
	assert.Equal(t, ActionOverwrite, d.Action)
}

func TestEngine_Decide_SameDayRevisionConflicts(t *testing.T) {
	// Overwrite needs strictly newer by at least a day.
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing:    existing(storage.Numeric(350, "lbs")),
		Incoming:    storage.Numeric(380, "lbs"),
		NewRevision: "Rev_03.18.25",
		OldRevision: "Rev_03.18.25",
	})
	assert.Equal(t, ActionConflict, d.Action)
	assert.Equal(t, storage.SeverityMedium, d.Severity)
}

func TestEngine_Decide_OlderRevisionConflicts(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing:    existing(storage.Numeric(350, "lbs")),
		Incoming:    storage.Numeric(380, "lbs"),
		NewRevision: "Rev_01.01.24",
		OldRevision: "Rev_03.18.25",
	})
	assert.Equal(t, ActionConflict, d.Action)
}

func TestEngine_Decide_UndatedIncomingNeverOverwrites(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing:    existing(storage.Numeric(350, "lbs")),
		Incoming:    storage.Numeric(380, "lbs"),
		NewRevision: "",
		OldRevision: "Rev_03.18.25",
	})
	assert.Equal(t, ActionConflict, d.Action)
}

func TestEngine_Decide_DatedBeatsUndatedWhenPreferred(t *testing.T) {
	withPref := New(0.05, true)
	d := withPref.Decide(Input{
		Existing:    existing(storage.Numeric(350, "lbs")),
		Incoming:    storage.Numeric(380, "lbs"),
		NewRevision: "Rev_03.18.25",
		OldRevision: "",
	})
	assert.Equal(t, ActionOverwrite, d.Action)

	withoutPref := New(0.05, false)
	d = withoutPref.Decide(Input{
		Existing:    existing(storage.Numeric(350, "lbs")),
		Incoming:    storage.Numeric(380, "lbs"),
		NewRevision: "Rev_03.18.25",
		OldRevision: "",
	})
	assert.Equal(t, ActionConflict, d.Action)
}

func TestEngine_Decide_CriticalSpecRaisesCriticalConflict(t *testing.T) {
	e := New(0.05, true)
	d := e.Decide(Input{
		Existing: existing(storage.Numeric(2, "c")),
		Incoming: storage.Numeric(8, "c"),
		Entry: &storage.RegistryEntry{
			CanonicalName: "temp_range_min_c",
			IsCritical:    true,
		},
	})
	assert.Equal(t, ActionConflict, d.Action)
	assert.Equal(t, storage.SeverityCritical, d.Severity)
}

func TestEngine_Decide_RuleToleranceOverridesDefault(t *testing.T) {
	e := New(0.05, true)
	rule := &storage.EquivalenceRule{
		FamilyCode:   "premier_lab_refrigerator",
		ToleranceMap: map[string]float64{"storage_capacity_cuft": 0.10},
	}
	in := Input{
		Existing: existing(storage.Numeric(23, "cuft")),
		Incoming: storage.Numeric(24.8, "cuft"), // ~7.3% off
		Entry:    &storage.RegistryEntry{CanonicalName: "storage_capacity_cuft"},
		Rule:     rule,
	}
	assert.Equal(t, ActionNoop, e.Decide(in).Action)

	// Without the rule the default 5% applies and the delta conflicts.
	in.Rule = nil
	assert.Equal(t, ActionConflict, e.Decide(in).Action)
}

func TestEqual_TextCaseAndWhitespaceFolded(t *testing.T) {
	assert.True(t, Equal(storage.Text("Stainless  Steel"), storage.Text("stainless steel"), 0))
	assert.False(t, Equal(storage.Text("glass"), storage.Text("solid"), 0))
}

func TestEqual_BooleanStrict(t *testing.T) {
	assert.True(t, Equal(storage.Boolean(true), storage.Boolean(true), 0))
	assert.False(t, Equal(storage.Boolean(true), storage.Boolean(false), 0))
}

func TestEqual_RangeComparesBothBounds(t *testing.T) {
	a := storage.Range(1, 10, "c")
	assert.True(t, Equal(a, storage.Range(1, 10, "c"), 0.05))
	assert.False(t, Equal(a, storage.Range(1, 12, "c"), 0.05))
}

func TestEqual_ListIsOrderInsensitive(t *testing.T) {
	a := storage.List([]string{"ETL", "Energy_Star"})
	b := storage.List([]string{"energy_star", "etl"})
	assert.True(t, Equal(a, b, 0))
	assert.False(t, Equal(a, storage.List([]string{"ETL"}), 0))
}

func TestEqual_MixedNumericTextComparesNumerically(t *testing.T) {
	assert.True(t, Equal(storage.Numeric(23, "cuft"), storage.Text("23"), 0.05))
	assert.False(t, Equal(storage.Numeric(23, "cuft"), storage.Text("30"), 0.05))
}

func TestEqual_ParseFailedComparesAsText(t *testing.T) {
	a := storage.FailedText("115V / special")
	b := storage.FailedText("115v / SPECIAL")
	assert.True(t, Equal(a, b, 0))

	// A failed value never compares numerically, so the unit suffix in the
	// numeric rendering breaks the match.
	assert.False(t, Equal(storage.FailedText("23"), storage.Numeric(23, "cuft"), 0.05))
}

func TestEqual_ZeroValues(t *testing.T) {
	assert.True(t, Equal(storage.Numeric(0, ""), storage.Numeric(0, ""), 0))
}
