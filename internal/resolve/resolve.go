// Package resolve decodes model numbers out of document text using a
// priority-ordered pattern table. The table is the single source of
// brand-model decoding; nothing else guesses at model semantics.
package resolve

import (
	"regexp"
	"sort"
	"strings"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Pattern decodes one model-number shape for one brand. Capture groups
// feed FieldMap to produce canonical spec values; ValueMap rewrites a
// captured literal per group before it lands (e.g. "S" -> "solid").
type Pattern struct {
	Brand          string
	Regex          *regexp.Regexp
	Family         string
	ProductLine    string
	ControllerTier string
	FieldMap       map[int]string            // capture group -> canonical_name
	ValueMap       map[int]map[string]string // capture group -> literal rewrite
	Priority       int
}

// Candidate is one decoded model occurrence.
type Candidate struct {
	ModelNumber    string
	Brand          string
	Family         string
	ProductLine    string
	ControllerTier string
	DecodedFields  storage.SpecMap
	Position       int // byte offset of the match, for tie-breaking
}

// Resolver matches text against the pattern table.
type Resolver struct {
	patterns []Pattern
}

// New creates a resolver. Patterns are sorted by descending priority once.
func New(patterns []Pattern) *Resolver {
	sorted := make([]Pattern, len(patterns))
	copy(sorted, patterns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Resolver{patterns: sorted}
}

// Default creates a resolver over the built-in pattern table.
func Default() *Resolver {
	return New(DefaultPatterns())
}

// Resolve scans text for model numbers. When brandHint is non-empty only
// that brand's patterns run. The first pattern to claim a distinct model
// number wins; later patterns never overwrite an earlier claim.
func (r *Resolver) Resolve(text, brandHint string) []Candidate {
	upper := strings.ToUpper(text)
	seen := map[string]bool{}
	var out []Candidate
	for _, p := range r.patterns {
		if brandHint != "" && !strings.EqualFold(p.Brand, brandHint) {
			continue
		}
		for _, loc := range p.Regex.FindAllStringSubmatchIndex(upper, -1) {
			model := upper[loc[0]:loc[1]]
			if seen[model] {
				continue
			}
			seen[model] = true
			out = append(out, r.decode(p, upper, model, loc))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (r *Resolver) decode(p Pattern, text, model string, loc []int) Candidate {
	c := Candidate{
		ModelNumber:    model,
		Brand:          p.Brand,
		Family:         p.Family,
		ProductLine:    p.ProductLine,
		ControllerTier: p.ControllerTier,
		DecodedFields:  storage.SpecMap{},
		Position:       loc[0],
	}
	for group, canonical := range p.FieldMap {
		start, end := loc[2*group], loc[2*group+1]
		if start < 0 || end < 0 {
			continue
		}
		captured := text[start:end]
		if rewrites, ok := p.ValueMap[group]; ok {
			if v, ok := rewrites[captured]; ok {
				captured = v
			}
		}
		kind, unit := inferCaptured(captured)
		switch kind {
		case storage.SpecKindNumeric:
			if f, ok := storage.Text(captured).AsFloat(); ok {
				c.DecodedFields[canonical] = storage.Numeric(f, unit)
				continue
			}
		}
		c.DecodedFields[canonical] = storage.Enum(strings.ToLower(captured))
	}
	return c
}

var capturedNumeric = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

func inferCaptured(s string) (storage.SpecKind, string) {
	if capturedNumeric.MatchString(s) {
		return storage.SpecKindNumeric, ""
	}
	return storage.SpecKindEnum, ""
}
