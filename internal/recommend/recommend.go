package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// ErrUnknownUseCase means neither the use-case name nor the free text
// matched a profile.
var ErrUnknownUseCase = errors.New("unknown use case")

// ErrNoCandidates means every product failed the hard constraints.
var ErrNoCandidates = errors.New("no products satisfy the use case constraints")

const defaultLimit = 5

// Request asks for recommendations. UseCase names a profile directly;
// UseCaseText is matched against profile keywords when UseCase is empty.
// Constraints are hard filters applied on top of the profile's own.
type Request struct {
	UseCase     string      `json:"use_case,omitempty"`
	UseCaseText string      `json:"use_case_text,omitempty"`
	FamilyCode  string      `json:"family_code,omitempty"`
	Constraints Constraints `json:"constraints,omitempty"`
	MaxResults  int         `json:"max_results,omitempty"`
}

// Constraints are caller-supplied hard filters. The named fields cover the
// common asks; the spec-keyed maps reach any other canonical spec.
type Constraints struct {
	CapacityMin            *float64           `json:"capacity_min,omitempty"`
	CapacityMax            *float64           `json:"capacity_max,omitempty"`
	TempMin                *float64           `json:"temp_min,omitempty"`
	TempMax                *float64           `json:"temp_max,omitempty"`
	DoorType               string             `json:"door_type,omitempty"`
	CertificationsRequired []string           `json:"certifications_required,omitempty"`
	SpecEquals             map[string]string  `json:"spec_equals,omitempty"`
	SpecMin                map[string]float64 `json:"spec_min,omitempty"`
	SpecMax                map[string]float64 `json:"spec_max,omitempty"`
}

// hard expands the caller constraints into the same Constraint form the
// profiles use, so both sets flow through one filter. TempMin/TempMax ask
// that the product's operating range cover the requested span.
func (c Constraints) hard() []Constraint {
	var out []Constraint
	if c.CapacityMin != nil || c.CapacityMax != nil {
		out = append(out, Constraint{Spec: "storage_capacity_cuft", Min: c.CapacityMin, Max: c.CapacityMax})
	}
	if c.TempMin != nil {
		out = append(out, Constraint{Spec: "temp_range_min_c", Max: c.TempMin})
	}
	if c.TempMax != nil {
		out = append(out, Constraint{Spec: "temp_range_max_c", Min: c.TempMax})
	}
	if c.DoorType != "" {
		out = append(out, Constraint{Spec: "door_type", Equals: c.DoorType})
	}
	for _, cert := range c.CertificationsRequired {
		out = append(out, Constraint{Cert: cert})
	}
	for _, spec := range sortedKeys(c.SpecEquals) {
		out = append(out, Constraint{Spec: spec, Equals: c.SpecEquals[spec]})
	}
	for _, spec := range sortedKeys(c.SpecMin) {
		v := c.SpecMin[spec]
		out = append(out, Constraint{Spec: spec, Min: &v})
	}
	for _, spec := range sortedKeys(c.SpecMax) {
		v := c.SpecMax[spec]
		out = append(out, Constraint{Spec: spec, Max: &v})
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Recommendation is one scored product with its full scoring trace.
type Recommendation struct {
	Product   *storage.Product   `json:"product"`
	Score     float64            `json:"score"` // 0..1
	Breakdown map[string]float64 `json:"breakdown"`
	Trace     []string           `json:"trace"`
}

// Response carries the ranked recommendations and the applied profile.
type Response struct {
	UseCase  string            `json:"use_case"`
	Profile  string            `json:"profile_description"`
	Results  []*Recommendation `json:"results"`
	Excluded []string          `json:"excluded,omitempty"` // model + reason, for the decision trace
}

// Engine scores products against use-case profiles.
type Engine struct {
	products *storage.ProductRepository
	registry *registry.Registry
	logger   *observability.Logger
}

// NewEngine creates a recommendation engine.
func NewEngine(products *storage.ProductRepository, reg *registry.Registry, logger *observability.Logger) *Engine {
	return &Engine{products: products, registry: reg, logger: logger}
}

// Recommend ranks active products for the request's use case.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	profile, err := e.profile(req)
	if err != nil {
		return nil, err
	}
	limit := req.MaxResults
	if limit <= 0 || limit > 20 {
		limit = defaultLimit
	}
	callerConstraints := req.Constraints.hard()

	family := req.FamilyCode
	if family == "" {
		family = profile.FamilyCode
	}
	candidates, err := e.products.List(ctx, storage.ProductFilter{
		FamilyCode: family,
		Status:     storage.ProductStatusActive,
		Limit:      1000,
	})
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	resp := &Response{UseCase: profile.Name, Profile: profile.Description}
	var scored []*Recommendation
	for _, p := range candidates {
		if reason, ok := e.passes(p, profile, callerConstraints); !ok {
			resp.Excluded = append(resp.Excluded, p.ModelNumber+": "+reason)
			continue
		}
		scored = append(scored, e.score(p, profile))
	}
	if len(scored) == 0 {
		return resp, ErrNoCandidates
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if c := e.tieBreak(scored[i].Product, scored[j].Product, profile.PrioritySpecs); c != 0 {
			return c > 0
		}
		return scored[i].Product.ModelNumber < scored[j].Product.ModelNumber
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	resp.Results = scored

	e.logger.Info().
		Str("use_case", profile.Name).
		Int("candidates", len(candidates)).
		Int("results", len(resp.Results)).
		Msg("recommendation computed")
	return resp, nil
}

// UseCases lists the built-in profiles for discovery endpoints.
func UseCases() []map[string]string {
	names := make([]string, 0, len(Profiles))
	for name := range Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]map[string]string, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]string{
			"name":        name,
			"description": Profiles[name].Description,
		})
	}
	return out
}

func (e *Engine) profile(req Request) (*Profile, error) {
	if req.UseCase != "" {
		p, ok := Profiles[strings.ToLower(strings.TrimSpace(req.UseCase))]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUseCase, req.UseCase)
		}
		return p, nil
	}
	if p := MatchProfile(req.UseCaseText); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("%w: no profile matched the description", ErrUnknownUseCase)
}

// passes checks every hard constraint, the profile's own and then the
// caller's; the first failure names the reason.
func (e *Engine) passes(p *storage.Product, profile *Profile, extra []Constraint) (string, bool) {
	constraints := make([]Constraint, 0, len(profile.Constraints)+len(extra))
	constraints = append(constraints, profile.Constraints...)
	constraints = append(constraints, extra...)
	for _, c := range constraints {
		if c.Cert != "" {
			if !p.HasCertification(c.Cert) {
				return "missing certification " + c.Cert, false
			}
			continue
		}
		v, ok := p.SpecValueOf(c.Spec)
		if !ok {
			return "no value for " + c.Spec, false
		}
		if c.Equals != "" {
			if !strings.EqualFold(strings.TrimSpace(v.String()), c.Equals) {
				return fmt.Sprintf("%s is %s, need %s", c.Spec, v.String(), c.Equals), false
			}
			continue
		}
		f, ok := v.AsFloat()
		if !ok {
			return c.Spec + " is not numeric", false
		}
		if c.Min != nil && f < *c.Min {
			return fmt.Sprintf("%s %.1f below %.1f", c.Spec, f, *c.Min), false
		}
		if c.Max != nil && f > *c.Max {
			return fmt.Sprintf("%s %.1f above %.1f", c.Spec, f, *c.Max), false
		}
	}
	return "", true
}

// score computes the weighted band score, normalized to 0..1 over the
// weights actually considered.
func (e *Engine) score(p *storage.Product, profile *Profile) *Recommendation {
	rec := &Recommendation{Product: p, Breakdown: map[string]float64{}}
	var sum, weight float64

	for _, b := range profile.Bands {
		v, ok := numericSpec(p, b.Spec)
		if !ok {
			if b.Required {
				rec.Breakdown[b.Spec] = 0
				rec.Trace = append(rec.Trace, b.Spec+": missing (required, scored 0)")
				weight += b.Weight
			} else {
				rec.Trace = append(rec.Trace, b.Spec+": missing (skipped)")
			}
			continue
		}
		s := bandScore(v, b)
		rec.Breakdown[b.Spec] = s
		rec.Trace = append(rec.Trace, fmt.Sprintf("%s: %.2f in [%.1f, %.1f] scored %.2f", b.Spec, v, b.Lo, b.Hi, s))
		sum += s * b.Weight
		weight += b.Weight
	}
	for _, pref := range profile.Prefs {
		v, ok := p.SpecValueOf(pref.Spec)
		if !ok {
			continue
		}
		weight += pref.Weight
		if strings.EqualFold(strings.TrimSpace(v.String()), pref.Value) {
			sum += pref.Weight
			rec.Breakdown[pref.Spec] = 1
			rec.Trace = append(rec.Trace, pref.Spec+": matches preferred "+pref.Value)
		} else {
			rec.Breakdown[pref.Spec] = 0
		}
	}

	if weight > 0 {
		rec.Score = sum / weight
	}
	return rec
}

// bandScore is 1 inside the band and decays linearly to 0 at twice the band
// width beyond either edge.
func bandScore(v float64, b Band) float64 {
	if v >= b.Lo && v <= b.Hi {
		return 1
	}
	width := b.Hi - b.Lo
	if width <= 0 {
		width = 1
	}
	var dist float64
	if v < b.Lo {
		dist = b.Lo - v
	} else {
		dist = v - b.Hi
	}
	s := 1 - dist/(2*width)
	if s < 0 {
		return 0
	}
	return s
}

// tieBreak compares two tied products on the priority specs in order.
// Returns >0 when a wins, <0 when b wins, 0 when still tied. Lower is
// better for specs measuring deviation or consumption.
func (e *Engine) tieBreak(a, b *storage.Product, specs []string) int {
	for _, name := range specs {
		av, aok := numericSpec(a, name)
		bv, bok := numericSpec(b, name)
		if !aok || !bok {
			if aok != bok {
				if aok {
					return 1
				}
				return -1
			}
			continue
		}
		if av == bv {
			continue
		}
		if lowerIsBetter(name) {
			if av < bv {
				return 1
			}
			return -1
		}
		if av > bv {
			return 1
		}
		return -1
	}
	return 0
}

func lowerIsBetter(spec string) bool {
	switch spec {
	case "uniformity_c", "stability_c", "energy_kwh_day", "noise_level_db", "temp_range_min_c":
		return true
	}
	return false
}

func numericSpec(p *storage.Product, name string) (float64, bool) {
	v, ok := p.SpecValueOf(name)
	if !ok {
		return 0, false
	}
	return v.AsFloat()
}
