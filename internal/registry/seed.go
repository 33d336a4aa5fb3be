package registry

import (
	"context"
	"errors"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Seed installs the curated registry entries if they are not present.
// Safe to run at every startup.
func Seed(ctx context.Context, store Store) error {
	for _, e := range seedEntries() {
		_, err := store.GetByCanonicalName(ctx, e.CanonicalName)
		if err == nil {
			continue
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		entry := e
		if err := store.Create(ctx, &entry); err != nil {
			return err
		}
	}
	return nil
}

func seedEntries() []storage.RegistryEntry {
	f := func(v float64) *float64 { return &v }
	return []storage.RegistryEntry{
		{
			CanonicalName: "storage_capacity_cuft", DisplayName: "Storage Capacity",
			DataType: storage.SpecKindNumeric, Unit: "cuft", UnitSystem: storage.UnitImperial,
			Synonyms:        []string{"capacity", "volume", "interior volume", "storage volume", "cu ft", "cubic feet", "capacity (cu ft)"},
			UnitConversions: map[string]string{"l": "l_to_cuft"},
			NumericMin:      f(0.5), NumericMax: f(100),
			IsFilterable: true, IsComparable: true, IsSearchable: true,
			SortOrder: 10, Approved: true,
		},
		{
			CanonicalName: "temp_range_min_c", DisplayName: "Temperature Range Min",
			DataType: storage.SpecKindNumeric, Unit: "c", UnitSystem: storage.UnitMetric,
			Synonyms:        []string{"min temperature", "low temperature", "temperature min", "temp min"},
			UnitConversions: map[string]string{"f": "f_to_c"},
			NumericMin:      f(-200), NumericMax: f(30),
			IsFilterable: true, IsComparable: true, IsSearchable: true, IsCritical: true,
			SortOrder: 20, Approved: true,
		},
		{
			CanonicalName: "temp_range_max_c", DisplayName: "Temperature Range Max",
			DataType: storage.SpecKindNumeric, Unit: "c", UnitSystem: storage.UnitMetric,
			Synonyms:        []string{"max temperature", "high temperature", "temperature max", "temp max"},
			UnitConversions: map[string]string{"f": "f_to_c"},
			NumericMin:      f(-200), NumericMax: f(40),
			IsFilterable: true, IsComparable: true, IsSearchable: true, IsCritical: true,
			SortOrder: 21, Approved: true,
		},
		{
			CanonicalName: "temperature_range", DisplayName: "Temperature Range",
			DataType: storage.SpecKindRange, Unit: "c", UnitSystem: storage.UnitMetric,
			Synonyms:        []string{"temp range", "operating temperature", "temperature", "setpoint range", "operating range"},
			UnitConversions: map[string]string{"f": "f_to_c"},
			IsComparable:    true, IsSearchable: true, IsCritical: true,
			SortOrder: 22, Approved: true,
		},
		{
			CanonicalName: "door_count", DisplayName: "Door Count",
			DataType: storage.SpecKindNumeric, UnitSystem: storage.UnitNone,
			Synonyms:     []string{"doors", "number of doors", "no. of doors"},
			NumericMin:   f(1), NumericMax: f(6),
			IsFilterable: true, IsComparable: true,
			SortOrder: 30, Approved: true,
		},
		{
			CanonicalName: "door_type", DisplayName: "Door Type",
			DataType: storage.SpecKindEnum, UnitSystem: storage.UnitNone,
			Synonyms:      []string{"door", "door style", "door configuration"},
			AllowedValues: []string{"solid", "glass", "glass_sliding", "half", "drawer"},
			IsFilterable:  true, IsComparable: true,
			SortOrder: 31, Approved: true,
		},
		{
			CanonicalName: "shelf_count", DisplayName: "Shelf Count",
			DataType: storage.SpecKindNumeric, UnitSystem: storage.UnitNone,
			Synonyms:   []string{"shelves", "number of shelves", "no. of shelves", "adjustable shelves"},
			NumericMin: f(0), NumericMax: f(30),
			IsComparable: true,
			SortOrder:    32, Approved: true,
		},
		{
			CanonicalName: "refrigerant", DisplayName: "Refrigerant",
			DataType: storage.SpecKindText, UnitSystem: storage.UnitNone,
			Synonyms:     []string{"refrigerant type", "refrigerant gas"},
			IsComparable: true, IsSearchable: true, IsCritical: true,
			SortOrder: 40, Approved: true,
		},
		{
			CanonicalName: "voltage_v", DisplayName: "Voltage",
			DataType: storage.SpecKindNumeric, Unit: "v", UnitSystem: storage.UnitNone,
			Synonyms:   []string{"voltage", "volts", "electrical", "power supply", "line voltage"},
			NumericMin: f(100), NumericMax: f(480),
			IsFilterable: true, IsComparable: true, IsCritical: true,
			SortOrder: 41, Approved: true,
		},
		{
			CanonicalName: "amperage", DisplayName: "Amperage",
			DataType: storage.SpecKindNumeric, Unit: "a", UnitSystem: storage.UnitNone,
			Synonyms:   []string{"amps", "amp draw", "current", "full load amps", "running amps"},
			NumericMin: f(0.1), NumericMax: f(60),
			IsComparable: true,
			SortOrder:    42, Approved: true,
		},
		{
			CanonicalName: "product_weight_lbs", DisplayName: "Product Weight",
			DataType: storage.SpecKindNumeric, Unit: "lbs", UnitSystem: storage.UnitImperial,
			Synonyms:        []string{"weight", "net weight", "unit weight", "shipping weight"},
			UnitConversions: map[string]string{"kg": "kg_to_lbs"},
			NumericMin:      f(10), NumericMax: f(3000),
			IsComparable: true,
			SortOrder:    50, Approved: true,
		},
		{
			CanonicalName: "ext_width_in", DisplayName: "Exterior Width",
			DataType: storage.SpecKindNumeric, Unit: "in", UnitSystem: storage.UnitImperial,
			Synonyms:        []string{"width", "exterior width", "overall width", "w"},
			UnitConversions: map[string]string{"cm": "cm_to_in", "mm": "mm_to_in"},
			IsComparable:    true,
			SortOrder:       60, Approved: true,
		},
		{
			CanonicalName: "ext_depth_in", DisplayName: "Exterior Depth",
			DataType: storage.SpecKindNumeric, Unit: "in", UnitSystem: storage.UnitImperial,
			Synonyms:        []string{"depth", "exterior depth", "overall depth", "d"},
			UnitConversions: map[string]string{"cm": "cm_to_in", "mm": "mm_to_in"},
			IsComparable:    true,
			SortOrder:       61, Approved: true,
		},
		{
			CanonicalName: "ext_height_in", DisplayName: "Exterior Height",
			DataType: storage.SpecKindNumeric, Unit: "in", UnitSystem: storage.UnitImperial,
			Synonyms:        []string{"height", "exterior height", "overall height", "h"},
			UnitConversions: map[string]string{"cm": "cm_to_in", "mm": "mm_to_in"},
			IsComparable:    true,
			SortOrder:       62, Approved: true,
		},
		{
			CanonicalName: "certifications", DisplayName: "Certifications",
			DataType: storage.SpecKindList, UnitSystem: storage.UnitNone,
			Synonyms:     []string{"certification", "listings", "approvals", "compliance"},
			IsComparable: true, IsSearchable: true,
			SortOrder: 70, Approved: true,
		},
		{
			CanonicalName: "uniformity_c", DisplayName: "Temperature Uniformity",
			DataType: storage.SpecKindNumeric, Unit: "c", UnitSystem: storage.UnitMetric,
			Synonyms:     []string{"uniformity", "temperature uniformity", "cabinet uniformity"},
			IsComparable: true,
			SortOrder:    80, Approved: true,
		},
		{
			CanonicalName: "stability_c", DisplayName: "Temperature Stability",
			DataType: storage.SpecKindNumeric, Unit: "c", UnitSystem: storage.UnitMetric,
			Synonyms:     []string{"stability", "temperature stability", "setpoint stability"},
			IsComparable: true,
			SortOrder:    81, Approved: true,
		},
		{
			CanonicalName: "energy_kwh_day", DisplayName: "Energy Consumption",
			DataType: storage.SpecKindNumeric, Unit: "kwh/day", UnitSystem: storage.UnitNone,
			Synonyms:     []string{"energy", "energy consumption", "kwh/day", "kwh/24h", "power consumption"},
			IsComparable: true,
			SortOrder:    82, Approved: true,
		},
		{
			CanonicalName: "noise_level_db", DisplayName: "Noise Level",
			DataType: storage.SpecKindNumeric, Unit: "db", UnitSystem: storage.UnitNone,
			Synonyms:     []string{"noise", "noise level", "sound level", "dba"},
			IsComparable: true,
			SortOrder:    83, Approved: true,
		},
		{
			CanonicalName: "defrost_type", DisplayName: "Defrost Type",
			DataType: storage.SpecKindEnum, UnitSystem: storage.UnitNone,
			Synonyms:      []string{"defrost", "defrost system", "defrost method"},
			AllowedValues: []string{"auto", "manual", "cycle", "frost_free"},
			IsComparable:  true,
			SortOrder:     84, Approved: true,
		},
		{
			CanonicalName: "warranty_years", DisplayName: "Warranty",
			DataType: storage.SpecKindNumeric, Unit: "years", UnitSystem: storage.UnitNone,
			Synonyms:     []string{"warranty", "parts and labor warranty", "general warranty"},
			IsComparable: true,
			SortOrder:    90, Approved: true,
		},
		{
			CanonicalName: "compressor_warranty_years", DisplayName: "Compressor Warranty",
			DataType: storage.SpecKindNumeric, Unit: "years", UnitSystem: storage.UnitNone,
			Synonyms:     []string{"compressor warranty"},
			IsComparable: true,
			SortOrder:    91, Approved: true,
		},
		{
			CanonicalName: "ln2_capacity_l", DisplayName: "LN2 Capacity",
			DataType: storage.SpecKindNumeric, Unit: "l", UnitSystem: storage.UnitMetric,
			Synonyms:    []string{"ln2 capacity", "liquid nitrogen capacity", "ln2 volume"},
			FamilyScope: []string{"cryogenic_freezer"},
			IsComparable: true,
			SortOrder:    100, Approved: true,
		},
		{
			CanonicalName: "static_holding_time_days", DisplayName: "Static Holding Time",
			DataType: storage.SpecKindNumeric, Unit: "days", UnitSystem: storage.UnitNone,
			Synonyms:    []string{"static holding time", "holding time", "static hold"},
			FamilyScope: []string{"cryogenic_freezer"},
			IsComparable: true,
			SortOrder:    101, Approved: true,
		},
		{
			CanonicalName: "interior_material", DisplayName: "Interior Material",
			DataType: storage.SpecKindText, UnitSystem: storage.UnitNone,
			Synonyms:     []string{"interior", "interior finish", "liner material"},
			IsComparable: true,
			SortOrder:    110, Approved: true,
		},
		{
			CanonicalName: "exterior_material", DisplayName: "Exterior Material",
			DataType: storage.SpecKindText, UnitSystem: storage.UnitNone,
			Synonyms:     []string{"exterior", "exterior finish", "cabinet material"},
			IsComparable: true,
			SortOrder:    111, Approved: true,
		},
	}
}
