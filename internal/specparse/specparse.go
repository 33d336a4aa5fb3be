// Package specparse contains the compound-value parsers: pure functions
// that split multi-fact strings ("115V, 60 Hz, 3 Amps") into canonical spec
// values. Every parser fails soft; unparseable input comes back as the raw
// string flagged parse_failed so conflict detection treats it as text.
package specparse

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// numberWords covers the count words data sheets actually use, most
// specific first so "single sliding double-pane" reads as one door.
var numberWords = []struct {
	word *regexp.Regexp
	n    int
}{
	{regexp.MustCompile(`\bsingle\b`), 1},
	{regexp.MustCompile(`\bdouble\b`), 2},
	{regexp.MustCompile(`\btriple\b`), 3},
	{regexp.MustCompile(`\bone\b`), 1},
	{regexp.MustCompile(`\btwo\b`), 2},
	{regexp.MustCompile(`\bthree\b`), 3},
	{regexp.MustCompile(`\bfour\b`), 4},
	{regexp.MustCompile(`\bfive\b`), 5},
	{regexp.MustCompile(`\bsix\b`), 6},
}

func countWord(lower string) int {
	for _, nw := range numberWords {
		if nw.word.MatchString(lower) {
			return nw.n
		}
	}
	return 0
}

// fractionRunes maps unicode vulgar fractions to decimals.
var fractionRunes = map[rune]float64{
	'¼': 0.25, '½': 0.5, '¾': 0.75,
	'⅛': 0.125, '⅜': 0.375, '⅝': 0.625, '⅞': 0.875,
	'⅓': 1.0 / 3, '⅔': 2.0 / 3,
}

var digitWord = regexp.MustCompile(`\b(\d+)\b`)

// ParseDoorConfig decodes strings like
// "One swing solid door, self-closing, right hinged".
func ParseDoorConfig(raw string) (storage.SpecMap, bool) {
	lower := strings.ToLower(raw)
	out := storage.SpecMap{}

	count := countWord(lower)
	if count == 0 {
		if m := digitWord.FindStringSubmatch(lower); m != nil {
			count, _ = strconv.Atoi(m[1])
		}
	}
	if count > 0 {
		out["door_count"] = storage.Numeric(float64(count), "")
	}

	switch {
	case strings.Contains(lower, "sliding glass"), strings.Contains(lower, "glass sliding"):
		out["door_type"] = storage.Enum("glass_sliding")
	case strings.Contains(lower, "glass"):
		out["door_type"] = storage.Enum("glass")
	case strings.Contains(lower, "solid"):
		out["door_type"] = storage.Enum("solid")
	case strings.Contains(lower, "drawer"):
		out["door_type"] = storage.Enum("drawer")
	}

	left := strings.Contains(lower, "left")
	right := strings.Contains(lower, "right")
	switch {
	case left && right:
		out["door_hinge"] = storage.Enum("both")
	case left:
		out["door_hinge"] = storage.Enum("left")
	case right:
		out["door_hinge"] = storage.Enum("right")
	}

	var features []string
	for _, f := range []string{"self-closing", "self closing", "locking", "keyed lock", "pass-thru", "heated"} {
		if strings.Contains(lower, f) {
			features = append(features, strings.ReplaceAll(f, " ", "-"))
		}
	}
	if len(features) > 0 {
		out["door_features"] = storage.List(dedupe(features))
	}

	if len(out) == 0 {
		return storage.SpecMap{"door_config": storage.FailedText(raw)}, false
	}
	return out, true
}

// ParseShelfConfig decodes strings like
// `Four adjustable shelves (adjustable in ½" increments)`.
func ParseShelfConfig(raw string) (storage.SpecMap, bool) {
	lower := strings.ToLower(raw)
	out := storage.SpecMap{}

	count := countWord(lower)
	if count == 0 {
		if m := digitWord.FindStringSubmatch(lower); m != nil {
			count, _ = strconv.Atoi(m[1])
		}
	}
	if count > 0 {
		out["shelf_count"] = storage.Numeric(float64(count), "")
	}

	adjustable := strings.Contains(lower, "adjustable")
	fixed := strings.Contains(lower, "fixed")
	switch {
	case adjustable && fixed:
		out["shelf_type"] = storage.Enum("mixed")
	case adjustable:
		out["shelf_type"] = storage.Enum("adjustable")
	case fixed:
		out["shelf_type"] = storage.Enum("fixed")
	}

	if strings.Contains(lower, "increment") {
		if inc, ok := firstFraction(raw); ok {
			out["shelf_adjustment_increment"] = storage.Numeric(inc, "in")
		}
	}

	if len(out) == 0 {
		return storage.SpecMap{"shelf_config": storage.FailedText(raw)}, false
	}
	return out, true
}

var tempRange = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*([CF])\s*(?:to|–|-|—)\s*(-?\d+(?:\.\d+)?)\s*°?\s*([CF])`)
var tempSingle = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*°?\s*([CF])\b`)

// ParseTemperatureRange decodes "1°C to 10°C" or "-22°F to -13°F" into
// Celsius min/max. A single bound leaves the other side unset.
func ParseTemperatureRange(raw string) (storage.SpecMap, bool) {
	if m := tempRange.FindStringSubmatch(raw); m != nil {
		lo := toCelsius(mustFloat(m[1]), m[2])
		hi := toCelsius(mustFloat(m[3]), m[4])
		if lo > hi {
			lo, hi = hi, lo
		}
		return storage.SpecMap{
			"temp_range_min_c": storage.Numeric(round1(lo), "c"),
			"temp_range_max_c": storage.Numeric(round1(hi), "c"),
		}, true
	}
	if m := tempSingle.FindStringSubmatch(raw); m != nil {
		v := round1(toCelsius(mustFloat(m[1]), m[2]))
		return storage.SpecMap{"temp_range_min_c": storage.Numeric(v, "c")}, true
	}
	return storage.SpecMap{"temperature_range": storage.FailedText(raw)}, false
}

var (
	voltRange = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:–|-|—|/|to)\s*(\d+(?:\.\d+)?)\s*V\b`)
	voltOne   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*V\b`)
	freq      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*Hz\b`)
	amps      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:Amps?|A)\b`)
	horse     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?|\d+\s*/\s*\d+)\s*HP\b`)
)

// ParseElectrical decodes "115V, 60 Hz, 3 Amps, 1/5 HP". Voltage ranges
// like "110-120V" store both bounds and the midpoint as voltage_v.
func ParseElectrical(raw string) (storage.SpecMap, bool) {
	out := storage.SpecMap{}

	if m := voltRange.FindStringSubmatch(raw); m != nil {
		lo, hi := mustFloat(m[1]), mustFloat(m[2])
		out["voltage_min"] = storage.Numeric(lo, "v")
		out["voltage_max"] = storage.Numeric(hi, "v")
		out["voltage_v"] = storage.Numeric((lo+hi)/2, "v")
	} else if m := voltOne.FindStringSubmatch(raw); m != nil {
		out["voltage_v"] = storage.Numeric(mustFloat(m[1]), "v")
	}
	if m := freq.FindStringSubmatch(raw); m != nil {
		out["frequency_hz"] = storage.Numeric(mustFloat(m[1]), "hz")
	}
	if m := amps.FindStringSubmatch(raw); m != nil {
		out["amperage"] = storage.Numeric(mustFloat(m[1]), "a")
	}
	if m := horse.FindStringSubmatch(raw); m != nil {
		if hp, ok := parseRatio(m[1]); ok {
			out["horsepower"] = storage.Numeric(hp, "hp")
		}
	}

	if len(out) == 0 {
		return storage.SpecMap{"electrical": storage.FailedText(raw)}, false
	}
	return out, true
}

var refrigerantToken = regexp.MustCompile(`\bR\d{3}[a-z]?\b`)

// ParseRefrigerant extracts the first refrigerant code (R290, R134a) from
// free text.
func ParseRefrigerant(raw string) (storage.SpecMap, bool) {
	if m := refrigerantToken.FindString(raw); m != "" {
		return storage.SpecMap{"refrigerant": storage.Text(m)}, true
	}
	return storage.SpecMap{"refrigerant": storage.FailedText(raw)}, false
}

// knownCertifications maps raw cert spellings to canonical tokens.
var knownCertifications = []struct {
	pattern   *regexp.Regexp
	canonical string
}{
	{regexp.MustCompile(`(?i)\bC[-\s]?ETL\b`), "C-ETL"},
	{regexp.MustCompile(`(?i)\bETL\b`), "ETL"},
	{regexp.MustCompile(`(?i)\bUL[\s_-]?471\b`), "UL471"},
	{regexp.MustCompile(`(?i)\bUL[\s_-]?60335-1\b`), "UL_60335-1"},
	{regexp.MustCompile(`(?i)\bENERGY[\s_-]?STAR\b`), "Energy_Star"},
	{regexp.MustCompile(`(?i)\bNSF[\s/_-]?(?:ANSI)?[\s/_-]?456\b`), "NSF_ANSI_456"},
	{regexp.MustCompile(`(?i)\bEPA[\s_-]?SNAP\b`), "EPA_SNAP"},
	{regexp.MustCompile(`(?i)\bCSA[\s_-]?C22\.2[\s_-]?(?:NO\.?\s*)?120\b`), "CSA_C22.2_No120"},
	{regexp.MustCompile(`(?i)\bDOE\b`), "DOE"},
	{regexp.MustCompile(`(?i)\bCE\b`), "CE"},
}

// ParseCertifications maps recognized certification spellings to canonical
// tokens in document order. Recognized patterns match against the whole
// string first, so multi-part certs like "NSF/ANSI 456" survive the slash
// instead of splitting into fragments. Short unrecognized segments pass
// through verbatim so new certifications are not silently dropped.
func ParseCertifications(raw string) (storage.SpecMap, bool) {
	type token struct {
		pos  int
		text string
	}
	covered := make([]bool, len(raw))
	var tokens []token
	for _, kc := range knownCertifications {
		for _, loc := range kc.pattern.FindAllStringIndex(raw, -1) {
			overlap := false
			for i := loc[0]; i < loc[1]; i++ {
				if covered[i] {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			for i := loc[0]; i < loc[1]; i++ {
				covered[i] = true
			}
			tokens = append(tokens, token{pos: loc[0], text: kc.canonical})
		}
	}

	start := 0
	for i := 0; i <= len(raw); i++ {
		if i < len(raw) && raw[i] != ',' && raw[i] != ';' && raw[i] != '/' {
			continue
		}
		seg, segStart := raw[start:i], start
		start = i + 1
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" || len(trimmed) > 24 {
			continue
		}
		touched := false
		for j := segStart; j < segStart+len(seg); j++ {
			if covered[j] {
				touched = true
				break
			}
		}
		if touched {
			continue // segment belongs to a recognized cert
		}
		tokens = append(tokens, token{pos: segStart, text: strings.ReplaceAll(trimmed, " ", "_")})
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].pos < tokens[j].pos })
	var found []string
	for _, t := range tokens {
		found = append(found, t.text)
	}
	found = dedupe(found)
	if len(found) == 0 {
		return storage.SpecMap{"certifications": storage.FailedText(raw)}, false
	}
	return storage.SpecMap{"certifications": storage.List(found)}, true
}

var asciiFraction = regexp.MustCompile(`(\d+)\s*[/⁄]\s*(\d+)`)

// ParseFractionalDimension converts `23 ¾` or `48 5⁄8` to a decimal.
func ParseFractionalDimension(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSpace(s)

	whole := 0.0
	frac := 0.0
	haveAny := false

	if m := regexp.MustCompile(`^(\d+(?:\.\d+)?)`).FindStringSubmatch(s); m != nil {
		whole = mustFloat(m[1])
		haveAny = true
		s = strings.TrimSpace(s[len(m[1]):])
	}
	if f, ok := firstFraction(s); ok {
		frac = f
		haveAny = true
	}
	if !haveAny {
		return 0, false
	}
	return whole + frac, true
}

// firstFraction finds a unicode vulgar fraction or an ascii a/b fraction.
func firstFraction(s string) (float64, bool) {
	for _, r := range s {
		if f, ok := fractionRunes[r]; ok {
			return f, true
		}
	}
	if m := asciiFraction.FindStringSubmatch(s); m != nil {
		num, den := mustFloat(m[1]), mustFloat(m[2])
		if den != 0 {
			return num / den, true
		}
	}
	return 0, false
}

func parseRatio(s string) (float64, bool) {
	if strings.Contains(s, "/") {
		parts := strings.SplitN(s, "/", 2)
		num, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		den, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil || den == 0 {
			return 0, false
		}
		return num / den, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

func toCelsius(v float64, unit string) float64 {
	if strings.EqualFold(unit, "f") {
		return (v - 32) * 5 / 9
	}
	return v
}

func round1(v float64) float64 {
	if v >= 0 {
		return float64(int(v*10+0.5)) / 10
	}
	return float64(int(v*10-0.5)) / 10
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
