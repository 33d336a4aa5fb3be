package registry

import (
	"fmt"
	"strings"
)

// Converter transforms a numeric value between units.
type Converter func(float64) float64

// converters holds the named conversions a registry entry may reference
// from its unit_conversions map.
var converters = map[string]Converter{
	"f_to_c":       func(f float64) float64 { return (f - 32) * 5 / 9 },
	"c_to_f":       func(c float64) float64 { return c*9/5 + 32 },
	"in_to_cm":     func(in float64) float64 { return in * 2.54 },
	"cm_to_in":     func(cm float64) float64 { return cm / 2.54 },
	"mm_to_in":     func(mm float64) float64 { return mm / 25.4 },
	"lbs_to_kg":    func(lbs float64) float64 { return lbs * 0.45359237 },
	"kg_to_lbs":    func(kg float64) float64 { return kg / 0.45359237 },
	"cuft_to_l":    func(ft float64) float64 { return ft * 28.316846592 },
	"l_to_cuft":    func(l float64) float64 { return l / 28.316846592 },
	"gal_to_l":     func(g float64) float64 { return g * 3.785411784 },
	"kw_to_btu_hr": func(kw float64) float64 { return kw * 3412.142 },
	"identity":     func(v float64) float64 { return v },
}

// Convert applies the named conversion. Unknown names are an error so a
// bad registry row surfaces instead of silently passing values through.
func Convert(name string, value float64) (float64, error) {
	fn, ok := converters[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown unit conversion %q", name)
	}
	return fn(value), nil
}

// NormalizeUnit canonicalizes a unit token for conversion lookup.
func NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	u = strings.TrimPrefix(u, "°")
	switch u {
	case "f", "fahrenheit", "degf":
		return "f"
	case "c", "celsius", "degc":
		return "c"
	case "in", "inch", "inches", `"`:
		return "in"
	case "cm", "centimeters":
		return "cm"
	case "mm", "millimeters":
		return "mm"
	case "lb", "lbs", "pounds":
		return "lbs"
	case "kg", "kilograms":
		return "kg"
	case "cuft", "cu ft", "cu. ft.", "ft3", "ft³", "cubic feet":
		return "cuft"
	case "l", "liter", "liters", "litre", "litres":
		return "l"
	default:
		return u
	}
}

// ConvertToEntryUnit converts a value reported in fromUnit into the unit the
// registry entry stores, using the entry's unit_conversions map keyed by
// normalized source unit. A value already in the entry's unit, or an entry
// with no conversion for the source unit, passes through unchanged with
// ok=false in the latter case.
func ConvertToEntryUnit(conversions map[string]string, entryUnit, fromUnit string, value float64) (float64, bool, error) {
	from := NormalizeUnit(fromUnit)
	if from == "" || from == NormalizeUnit(entryUnit) {
		return value, true, nil
	}
	name, ok := conversions[from]
	if !ok {
		return value, false, nil
	}
	out, err := Convert(name, value)
	if err != nil {
		return 0, false, err
	}
	return out, true, nil
}
