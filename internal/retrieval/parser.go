// Package retrieval answers catalog questions with hybrid search: vector
// similarity and keyword matching fused by reciprocal rank, packed into a
// token-budgeted context for the generator.
package retrieval

import (
	"regexp"
	"strings"

	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/resolve"
	"github.com/coldstore-ai/product-expert/internal/specparse"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Intent is the coarse question category driving retrieval strategy.
type Intent string

const (
	IntentSpecLookup     Intent = "spec_lookup"
	IntentComparison     Intent = "comparison"
	IntentRecommendation Intent = "recommendation"
	IntentCompliance     Intent = "compliance"
	IntentGeneral        Intent = "general"
)

// ParsedQuery is the structured reading of a free-text question.
type ParsedQuery struct {
	Raw            string
	Intent         Intent
	ModelNumbers   []string
	BrandCodes     []string
	SpecNames      []string // canonical registry names mentioned
	Certifications []string
	Expanded       string // raw query plus canonical synonyms, for keyword search
}

// Parser extracts structure from questions using the same tables ingestion
// uses, so a model number means the same thing on both paths.
type Parser struct {
	resolver *resolve.Resolver
	registry *registry.Registry
}

// NewParser creates a query parser.
func NewParser(resolver *resolve.Resolver, reg *registry.Registry) *Parser {
	return &Parser{resolver: resolver, registry: reg}
}

var brandTokens = map[string]string{
	"abs":        "ABS",
	"american biotech": "ABS",
	"corepoint":  "COREPOINT",
	"norlake":    "NORLAKE",
	"nor-lake":   "NORLAKE",
	"labrepco":   "LABREPCO",
	"horizon":    "HORIZON",
}

// Parse classifies the question and pulls out models, brands, specs, and
// certifications.
func (p *Parser) Parse(raw string) ParsedQuery {
	q := ParsedQuery{Raw: raw}
	lower := strings.ToLower(raw)

	for _, c := range p.resolver.Resolve(raw, "") {
		q.ModelNumbers = append(q.ModelNumbers, c.ModelNumber)
	}
	for tok, code := range brandTokens {
		if strings.Contains(lower, tok) && !contains(q.BrandCodes, code) {
			q.BrandCodes = append(q.BrandCodes, code)
		}
	}
	if specs, ok := specparse.ParseCertifications(raw); ok {
		if v, found := specs["certifications"]; found && v.Kind == storage.SpecKindList {
			q.Certifications = v.List
		}
	}
	q.SpecNames = p.specNames(lower)
	q.Intent = p.intent(lower, q)
	q.Expanded = p.expand(raw, q.SpecNames)
	return q
}

// intent applies keyword rules in priority order. Structure trumps
// phrasing: two model numbers is a comparison however the question is worded.
func (p *Parser) intent(lower string, q ParsedQuery) Intent {
	if len(q.ModelNumbers) >= 2 || hasAny(lower, "compare", " vs ", " vs.", "versus", "difference between") {
		return IntentComparison
	}
	if len(q.Certifications) > 0 || hasAny(lower, "certified", "compliance", "compliant", "meets", "rated for") {
		return IntentCompliance
	}
	if hasAny(lower, "recommend", "best ", "which should", "suggest", "looking for", "need a", "need an", "what should i") {
		return IntentRecommendation
	}
	if len(q.SpecNames) > 0 || len(q.ModelNumbers) == 1 ||
		hasAny(lower, "what is the", "how many", "how much", "spec", "capacity", "dimensions") {
		return IntentSpecLookup
	}
	return IntentGeneral
}

// specNames scans the query for registry display names and synonyms.
func (p *Parser) specNames(lower string) []string {
	if p.registry == nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, e := range p.registry.All() {
		if seen[e.CanonicalName] || !e.IsSearchable {
			continue
		}
		terms := append([]string{e.DisplayName}, e.Synonyms...)
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if len(t) >= 4 && strings.Contains(lower, t) {
				seen[e.CanonicalName] = true
				names = append(names, e.CanonicalName)
				break
			}
		}
	}
	return names
}

// expand appends canonical display names for matched specs so the keyword
// index sees both the user's phrasing and the catalog's.
func (p *Parser) expand(raw string, specNames []string) string {
	if p.registry == nil || len(specNames) == 0 {
		return raw
	}
	var extra []string
	for _, name := range specNames {
		if e, ok := p.registry.Get(name); ok && !strings.Contains(strings.ToLower(raw), strings.ToLower(e.DisplayName)) {
			extra = append(extra, e.DisplayName)
		}
	}
	if len(extra) == 0 {
		return raw
	}
	return raw + " " + strings.Join(extra, " ")
}

var numberToken = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
