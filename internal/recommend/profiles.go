// Package recommend scores catalog products against use-case profiles,
// compares products spec by spec, and finds cross-brand equivalents under
// the family equivalence rules.
package recommend

import "strings"

// Constraint is a hard requirement: a product failing any constraint is
// excluded before scoring. Exactly one of Cert or Spec is set.
type Constraint struct {
	Cert   string   // required certification code
	Spec   string   // canonical spec name
	Equals string   // enum/text equality, case-insensitive
	Min    *float64 // inclusive lower bound on the numeric value
	Max    *float64 // inclusive upper bound
}

// Band scores a numeric spec: 1.0 inside [Lo,Hi], decaying linearly to 0 at
// twice the band width outside it. A Required band scores 0 when the
// product has no value; otherwise missing values are skipped.
type Band struct {
	Spec     string
	Lo, Hi   float64
	Weight   float64
	Required bool
}

// Pref awards Weight when an enum/text spec equals Value. Never required.
type Pref struct {
	Spec   string
	Value  string
	Weight float64
}

// Profile is one use case: hard constraints, scoring bands, and soft
// preferences.
type Profile struct {
	Name          string
	Description   string
	Keywords      []string
	FamilyCode    string // restrict candidates to one family, empty = all
	Constraints   []Constraint
	Bands         []Band
	Prefs         []Pref
	PrioritySpecs []string // tie-break order
}

func f(v float64) *float64 { return &v }

// Profiles is the built-in use-case table, keyed by name.
var Profiles = map[string]*Profile{
	"vaccine_storage": {
		Name:        "vaccine_storage",
		Description: "CDC-compliant vaccine refrigeration, 2-8°C with tight uniformity",
		Keywords:    []string{"vaccine", "immunization", "cdc", "vfc"},
		Constraints: []Constraint{
			{Cert: "NSF_ANSI_456"},
			{Spec: "temp_range_min_c", Max: f(2)},
			{Spec: "temp_range_max_c", Min: f(8)},
		},
		Bands: []Band{
			{Spec: "uniformity_c", Lo: 0, Hi: 2, Weight: 3, Required: true},
			{Spec: "stability_c", Lo: 0, Hi: 1.5, Weight: 2},
			{Spec: "storage_capacity_cuft", Lo: 5, Hi: 30, Weight: 1},
		},
		Prefs:         []Pref{{Spec: "door_type", Value: "solid", Weight: 1}},
		PrioritySpecs: []string{"uniformity_c", "stability_c", "storage_capacity_cuft"},
	},
	"pharmacy_general": {
		Name:        "pharmacy_general",
		Description: "General pharmacy refrigeration for medications",
		Keywords:    []string{"pharmacy", "pharmaceutical", "medication", "drug storage"},
		Constraints: []Constraint{
			{Spec: "temp_range_min_c", Max: f(2)},
			{Spec: "temp_range_max_c", Min: f(8)},
		},
		Bands: []Band{
			{Spec: "storage_capacity_cuft", Lo: 10, Hi: 50, Weight: 2},
			{Spec: "uniformity_c", Lo: 0, Hi: 3, Weight: 2},
			{Spec: "noise_level_db", Lo: 0, Hi: 45, Weight: 1},
		},
		Prefs:         []Pref{{Spec: "door_type", Value: "glass", Weight: 1}},
		PrioritySpecs: []string{"storage_capacity_cuft", "uniformity_c"},
	},
	"laboratory_general": {
		Name:        "laboratory_general",
		Description: "General purpose laboratory refrigeration",
		Keywords:    []string{"laboratory", "lab", "reagent", "general purpose"},
		Constraints: []Constraint{
			{Spec: "temp_range_min_c", Max: f(4)},
		},
		Bands: []Band{
			{Spec: "storage_capacity_cuft", Lo: 5, Hi: 50, Weight: 2},
			{Spec: "temp_range_max_c", Lo: 6, Hi: 12, Weight: 1},
			{Spec: "energy_kwh_day", Lo: 0, Hi: 5, Weight: 1},
		},
		PrioritySpecs: []string{"storage_capacity_cuft"},
	},
	"chromatography": {
		Name:        "chromatography",
		Description: "Chromatography refrigerators holding a stable 4°C with pass-through access",
		Keywords:    []string{"chromatography", "hplc", "column", "fplc"},
		Constraints: []Constraint{
			{Spec: "temp_range_min_c", Max: f(4)},
			{Spec: "temp_range_max_c", Min: f(4)},
		},
		Bands: []Band{
			{Spec: "stability_c", Lo: 0, Hi: 1, Weight: 3, Required: true},
			{Spec: "uniformity_c", Lo: 0, Hi: 2, Weight: 2},
			{Spec: "storage_capacity_cuft", Lo: 20, Hi: 60, Weight: 2},
		},
		Prefs:         []Pref{{Spec: "door_type", Value: "solid", Weight: 1}},
		PrioritySpecs: []string{"stability_c", "storage_capacity_cuft"},
	},
	"blood_bank": {
		Name:        "blood_bank",
		Description: "Blood bank refrigeration at 4°C ±2 with alarm monitoring",
		Keywords:    []string{"blood bank", "blood storage", "whole blood", "transfusion"},
		FamilyCode:  "blood_bank_refrigerator",
		Constraints: []Constraint{
			{Spec: "temp_range_min_c", Min: f(1), Max: f(3)},
			{Spec: "temp_range_max_c", Min: f(5), Max: f(7)},
		},
		Bands: []Band{
			{Spec: "uniformity_c", Lo: 0, Hi: 1.5, Weight: 3, Required: true},
			{Spec: "storage_capacity_cuft", Lo: 10, Hi: 60, Weight: 1},
		},
		PrioritySpecs: []string{"uniformity_c"},
	},
	"flammable_storage": {
		Name:        "flammable_storage",
		Description: "Flammable material storage with spark-free interiors",
		Keywords:    []string{"flammable", "solvent", "spark-free", "explosion proof", "hazardous"},
		FamilyCode:  "flammable_storage",
		Bands: []Band{
			{Spec: "storage_capacity_cuft", Lo: 4, Hi: 30, Weight: 2},
			{Spec: "temp_range_min_c", Lo: -25, Hi: 2, Weight: 1},
		},
		PrioritySpecs: []string{"storage_capacity_cuft"},
	},
	"sample_freezing": {
		Name:        "sample_freezing",
		Description: "Sample storage at -20°C to -30°C",
		Keywords:    []string{"freezer", "frozen samples", "-20", "enzyme", "minus 20"},
		Constraints: []Constraint{
			{Spec: "temp_range_max_c", Max: f(-15)},
		},
		Bands: []Band{
			{Spec: "temp_range_min_c", Lo: -30, Hi: -20, Weight: 2},
			{Spec: "storage_capacity_cuft", Lo: 5, Hi: 30, Weight: 2},
		},
		Prefs:         []Pref{{Spec: "defrost_type", Value: "manual", Weight: 2}},
		PrioritySpecs: []string{"temp_range_min_c", "storage_capacity_cuft"},
	},
	"plasma_storage": {
		Name:        "plasma_storage",
		Description: "Plasma storage at -30°C or colder",
		Keywords:    []string{"plasma", "ffp", "fresh frozen"},
		Constraints: []Constraint{
			{Spec: "temp_range_max_c", Max: f(-30)},
		},
		Bands: []Band{
			{Spec: "temp_range_min_c", Lo: -40, Hi: -30, Weight: 3, Required: true},
			{Spec: "storage_capacity_cuft", Lo: 10, Hi: 30, Weight: 1},
		},
		PrioritySpecs: []string{"temp_range_min_c"},
	},
	"undercounter": {
		Name:        "undercounter",
		Description: "Undercounter units for space-constrained installs",
		Keywords:    []string{"undercounter", "under counter", "benchtop", "compact", "ada"},
		Constraints: []Constraint{
			{Spec: "ext_height_in", Max: f(36)},
		},
		Bands: []Band{
			{Spec: "storage_capacity_cuft", Lo: 1, Hi: 6, Weight: 2},
			{Spec: "noise_level_db", Lo: 0, Hi: 42, Weight: 1},
		},
		PrioritySpecs: []string{"storage_capacity_cuft"},
	},
	"cryogenic_storage": {
		Name:        "cryogenic_storage",
		Description: "LN2 cryogenic storage below -150°C",
		Keywords:    []string{"cryogenic", "ln2", "liquid nitrogen", "cryo", "-150", "-196"},
		FamilyCode:  "cryogenic_freezer",
		Bands: []Band{
			{Spec: "ln2_capacity_l", Lo: 30, Hi: 200, Weight: 2},
			{Spec: "static_holding_time_days", Lo: 30, Hi: 200, Weight: 3},
		},
		PrioritySpecs: []string{"static_holding_time_days", "ln2_capacity_l"},
	},
	"energy_efficient": {
		Name:        "energy_efficient",
		Description: "Lowest running cost for sustainability programs",
		Keywords:    []string{"energy", "efficient", "sustainability", "green", "power consumption"},
		Constraints: []Constraint{
			{Cert: "Energy_Star"},
		},
		Bands: []Band{
			{Spec: "energy_kwh_day", Lo: 0, Hi: 3, Weight: 3, Required: true},
			{Spec: "storage_capacity_cuft", Lo: 5, Hi: 50, Weight: 1},
		},
		PrioritySpecs: []string{"energy_kwh_day"},
	},
}

// MatchProfile picks the profile whose keywords best cover free text.
// Returns nil when nothing matches.
func MatchProfile(freeText string) *Profile {
	lower := strings.ToLower(freeText)
	var best *Profile
	bestHits := 0
	for _, p := range Profiles {
		hits := 0
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits || (hits == bestHits && hits > 0 && best != nil && p.Name < best.Name) {
			best = p
			bestHits = hits
		}
	}
	if bestHits == 0 {
		return nil
	}
	return best
}
