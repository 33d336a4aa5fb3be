// Package fieldmap harvests (label, value) pairs from extracted text and
// maps the labels onto canonical registry names. Unknown labels flow into
// registry auto-discovery instead of being dropped.
package fieldmap

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/specparse"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Triple is one harvested label/value pair with its section context.
type Triple struct {
	Label    string
	RawValue string
	Context  string
}

// Mapped is a resolved spec value ready for the conflict engine.
type Mapped struct {
	CanonicalName string
	Value         storage.SpecValue
	RawValue      string
	Context       string
	AutoDiscover  bool // true when the label was registered this pass
}

// Unknown is a label that could not be resolved or registered.
type Unknown struct {
	Label    string
	RawValue string
}

// Result of a mapping pass over one document.
type Result struct {
	Mapped  []Mapped
	Unknown []Unknown
}

// Mapper resolves harvested labels through the registry.
type Mapper struct {
	registry     *registry.Registry
	autoDiscover bool
}

// New creates a mapper. When autoDiscover is false unknown labels are
// reported instead of registered.
func New(reg *registry.Registry, autoDiscover bool) *Mapper {
	return &Mapper{registry: reg, autoDiscover: autoDiscover}
}

var (
	colonLine = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 ()./°%"'-]{1,60}?)\s*:\s+(.+)$`)
	tabLine   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9 ()./°%"'-]{1,60}?)(?:\t+|\s{3,})(\S.*)$`)
	headingLn = regexp.MustCompile(`^[A-Z][A-Za-z &/-]{2,40}$`)
)

// Harvest pulls label/value pairs from text. Labels come from key:value
// lines, tab or wide-space separated table rows, and section headings
// followed directly by a scalar line.
func Harvest(text string) []Triple {
	var triples []Triple
	section := ""
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := colonLine.FindStringSubmatch(trimmed); m != nil {
			triples = append(triples, Triple{
				Label: m[1], RawValue: strings.TrimSpace(m[2]), Context: section,
			})
			continue
		}
		if m := tabLine.FindStringSubmatch(line); m != nil {
			triples = append(triples, Triple{
				Label: strings.TrimSpace(m[1]), RawValue: strings.TrimSpace(m[2]), Context: section,
			})
			continue
		}
		if headingLn.MatchString(trimmed) {
			section = trimmed
			// A heading directly over a single scalar line is itself a label.
			if i+1 < len(lines) {
				next := strings.TrimSpace(lines[i+1])
				if next != "" && !headingLn.MatchString(next) &&
					!strings.Contains(next, ":") && len(next) < 60 && scalarLine.MatchString(next) {
					triples = append(triples, Triple{Label: trimmed, RawValue: next, Context: section})
				}
			}
		}
	}
	return triples
}

var scalarLine = regexp.MustCompile(`\d`)

// Map resolves each triple to canonical spec values. Compound fields fan
// out to the specparse functions so one harvested line can yield several
// canonical values.
func (m *Mapper) Map(ctx context.Context, triples []Triple, familyCode string) (*Result, error) {
	res := &Result{}
	for _, t := range triples {
		entry, err := m.registry.Resolve(t.Label, familyCode)
		discovered := false
		if err != nil {
			if !errors.Is(err, registry.ErrUnknownSpec) {
				return nil, err
			}
			if !m.autoDiscover {
				res.Unknown = append(res.Unknown, Unknown{Label: t.Label, RawValue: t.RawValue})
				continue
			}
			entry, err = m.registry.Discover(ctx, t.Label, t.RawValue, familyCode)
			if err != nil {
				res.Unknown = append(res.Unknown, Unknown{Label: t.Label, RawValue: t.RawValue})
				continue
			}
			discovered = true
		}
		for _, mapped := range m.parse(entry, t) {
			mapped.AutoDiscover = discovered
			res.Mapped = append(res.Mapped, mapped)
		}
	}
	return res, nil
}

// parse converts the raw value according to the entry's data type,
// dispatching compound canonical names to their dedicated parsers.
func (m *Mapper) parse(entry *storage.RegistryEntry, t Triple) []Mapped {
	switch entry.CanonicalName {
	case "temperature_range", "temp_range_min_c", "temp_range_max_c":
		if looksLikeRange(t.RawValue) || entry.CanonicalName == "temperature_range" {
			specs, _ := specparse.ParseTemperatureRange(t.RawValue)
			return expand(specs, t)
		}
	case "electrical", "voltage_v":
		if strings.ContainsAny(strings.ToUpper(t.RawValue), "VH") && !isPlainNumber(t.RawValue) {
			specs, _ := specparse.ParseElectrical(t.RawValue)
			return expand(specs, t)
		}
	case "door_type", "door_count", "door_config":
		if !isPlainNumber(t.RawValue) && len(strings.Fields(t.RawValue)) > 1 {
			specs, _ := specparse.ParseDoorConfig(t.RawValue)
			return expand(specs, t)
		}
	case "shelf_count", "shelf_config":
		if !isPlainNumber(t.RawValue) && len(strings.Fields(t.RawValue)) > 1 {
			specs, _ := specparse.ParseShelfConfig(t.RawValue)
			return expand(specs, t)
		}
	case "refrigerant":
		specs, _ := specparse.ParseRefrigerant(t.RawValue)
		return expand(specs, t)
	case "certifications":
		specs, _ := specparse.ParseCertifications(t.RawValue)
		return expand(specs, t)
	}
	return []Mapped{{
		CanonicalName: entry.CanonicalName,
		Value:         m.scalar(entry, t.RawValue),
		RawValue:      t.RawValue,
		Context:       t.Context,
	}}
}

// ParseScalar converts a raw value to the typed form the entry declares.
// Used wherever a human-entered value must land as the same shape the
// ingestion pipeline would have produced.
func ParseScalar(entry *storage.RegistryEntry, raw string) storage.SpecValue {
	var m Mapper
	return m.scalar(entry, raw)
}

// scalar parses a simple value per the entry's declared type, applying
// unit conversion for numerics.
func (m *Mapper) scalar(entry *storage.RegistryEntry, raw string) storage.SpecValue {
	raw = strings.TrimSpace(raw)
	switch entry.DataType {
	case storage.SpecKindNumeric:
		v, unit, ok := parseNumber(raw)
		if !ok {
			if f, fok := specparse.ParseFractionalDimension(raw); fok {
				return storage.Numeric(f, entry.Unit)
			}
			return storage.FailedText(raw)
		}
		converted, _, err := registry.ConvertToEntryUnit(entry.UnitConversions, entry.Unit, unit, v)
		if err != nil {
			return storage.FailedText(raw)
		}
		return storage.Numeric(converted, entry.Unit)
	case storage.SpecKindBoolean:
		if b, ok := registry.ParseBool(raw); ok {
			return storage.Boolean(b)
		}
		return storage.FailedText(raw)
	case storage.SpecKindRange:
		specs, ok := specparse.ParseTemperatureRange(raw)
		if ok {
			lo, hasLo := specs["temp_range_min_c"]
			hi, hasHi := specs["temp_range_max_c"]
			if hasLo && hasHi {
				return storage.Range(lo.Number, hi.Number, entry.Unit)
			}
		}
		return storage.FailedText(raw)
	case storage.SpecKindList:
		parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
		var items []string
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		if len(items) == 0 {
			return storage.FailedText(raw)
		}
		return storage.List(items)
	case storage.SpecKindEnum:
		v := strings.ToLower(strings.TrimSpace(raw))
		if len(entry.AllowedValues) > 0 {
			for _, allowed := range entry.AllowedValues {
				if v == allowed {
					return storage.Enum(v)
				}
			}
			return storage.FailedText(raw)
		}
		return storage.Enum(v)
	default:
		return storage.Text(raw)
	}
}

// expand keeps fan-out order stable so one harvested line always yields
// its canonical values in the same sequence.
func expand(specs storage.SpecMap, t Triple) []Mapped {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Mapped, 0, len(names))
	for _, name := range names {
		out = append(out, Mapped{
			CanonicalName: name,
			Value:         specs[name],
			RawValue:      t.RawValue,
			Context:       t.Context,
		})
	}
	return out
}

var numberWithUnit = regexp.MustCompile(`^(-?\d+(?:,\d{3})*(?:\.\d+)?)\s*([a-zA-Z°%/."]*)\s*$`)

func parseNumber(raw string) (float64, string, bool) {
	m := numberWithUnit.FindStringSubmatch(raw)
	if m == nil {
		return 0, "", false
	}
	v := strings.ReplaceAll(m[1], ",", "")
	f, err := strconvParse(v)
	if err != nil {
		return 0, "", false
	}
	return f, strings.Trim(m[2], `."`), true
}

func isPlainNumber(raw string) bool {
	_, _, ok := parseNumber(raw)
	return ok
}

func looksLikeRange(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "to") || strings.Contains(lower, "–") ||
		strings.Count(lower, "°") >= 2
}

func strconvParse(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
