package resolve

import "regexp"

// DefaultPatterns is the built-in decoding table for the supported brands.
// Higher priority patterns run first so the more specific shapes (pharmacy,
// undercounter) claim their models before the generic family patterns.
func DefaultPatterns() []Pattern {
	doorMap := map[string]string{"S": "solid", "G": "glass", "SG": "glass_sliding"}
	return []Pattern{
		{
			Brand:       "ABS",
			Regex:       regexp.MustCompile(`\bPH-ABT-NSF-UCFS-(\d+)(S|G)?\b`),
			Family:      "undercounter_refrigerator",
			ProductLine: "pharmacy_nsf",
			FieldMap:    map[int]string{1: "storage_capacity_cuft", 2: "door_type"},
			ValueMap:    map[int]map[string]string{2: doorMap},
			Priority:    100,
		},
		{
			Brand:          "ABS",
			Regex:          regexp.MustCompile(`\bPH-ABT-HC-(\d+)(S|G)\b`),
			Family:         "pharmacy_refrigerator",
			ProductLine:    "premier_pharmacy",
			ControllerTier: "premier",
			FieldMap:       map[int]string{1: "storage_capacity_cuft", 2: "door_type"},
			ValueMap:       map[int]map[string]string{2: doorMap},
			Priority:       95,
		},
		{
			Brand:          "ABS",
			Regex:          regexp.MustCompile(`\bABT-HC-(\d+)(S|G)\b`),
			Family:         "premier_lab_refrigerator",
			ProductLine:    "premier",
			ControllerTier: "premier",
			FieldMap:       map[int]string{1: "storage_capacity_cuft", 2: "door_type"},
			ValueMap:       map[int]map[string]string{2: doorMap},
			Priority:       90,
		},
		{
			Brand:       "ABS",
			Regex:       regexp.MustCompile(`\bABT-(\d+)(S|G)\b`),
			Family:      "general_lab_refrigerator",
			ProductLine: "standard",
			FieldMap:    map[int]string{1: "storage_capacity_cuft", 2: "door_type"},
			ValueMap:    map[int]map[string]string{2: doorMap},
			Priority:    60,
		},
		{
			Brand:       "LABREPCO",
			Regex:       regexp.MustCompile(`\bLHT-(\d+)-(FMP|FASS|FM|RFP|RFG)\b`),
			Family:      "lab_freezer",
			ProductLine: "futura",
			FieldMap:    map[int]string{1: "storage_capacity_cuft", 2: "configuration_code"},
			ValueMap: map[int]map[string]string{2: {
				"FMP":  "freezer_manual_premier",
				"FASS": "freezer_auto_stainless",
				"FM":   "freezer_manual",
				"RFP":  "refrigerator_freezer_premier",
				"RFG":  "refrigerator_freezer_glass",
			}},
			Priority: 85,
		},
		{
			Brand:       "LABREPCO",
			Regex:       regexp.MustCompile(`\bLPVT-FA-(\d+)\b`),
			Family:      "plasma_freezer",
			ProductLine: "futura_plasma",
			FieldMap:    map[int]string{1: "storage_capacity_cuft"},
			Priority:    85,
		},
		{
			Brand:       "NORLAKE",
			Regex:       regexp.MustCompile(`\bNSBR(\d+)(W{1,3})?\b`),
			Family:      "blood_bank_refrigerator",
			ProductLine: "scientific",
			FieldMap:    map[int]string{1: "storage_capacity_cuft"},
			Priority:    80,
		},
		{
			Brand:       "COREPOINT",
			Regex:       regexp.MustCompile(`\bCEL-HC-BB-(\d+)\b`),
			Family:      "blood_bank_refrigerator",
			ProductLine: "cellar",
			FieldMap:    map[int]string{1: "storage_capacity_cuft"},
			Priority:    80,
		},
		{
			Brand:       "COREPOINT",
			Regex:       regexp.MustCompile(`\bCP-(\d+)(S|G)?\b`),
			Family:      "general_lab_refrigerator",
			ProductLine: "corepoint",
			FieldMap:    map[int]string{1: "storage_capacity_cuft", 2: "door_type"},
			ValueMap:    map[int]map[string]string{2: doorMap},
			Priority:    70,
		},
		{
			Brand:       "ABS",
			Regex:       regexp.MustCompile(`\bV-(\d+)(?:-AB)?\b`),
			Family:      "cryogenic_freezer",
			ProductLine: "vapor_series",
			FieldMap:    map[int]string{1: "ln2_capacity_l"},
			Priority:    50,
		},
	}
}
