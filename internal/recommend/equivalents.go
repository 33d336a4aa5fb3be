package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/conflict"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// minEquivalence is the similarity floor for reporting an equivalent.
const minEquivalence = 0.5

const defaultSpecTolerance = 0.05

// Equivalent is one cross-brand match with its evidence.
type Equivalent struct {
	Product    *storage.Product `json:"product"`
	Similarity float64          `json:"similarity"` // fraction of compared specs within tolerance
	Matched    []string         `json:"matched_specs"`
	Mismatched []string         `json:"mismatched_specs,omitempty"`
}

// EquivalenceFinder locates products interchangeable under the family
// equivalence rules.
type EquivalenceFinder struct {
	products *storage.ProductRepository
	rules    *storage.EquivalenceRuleRepository
	registry registryLookup
}

// NewEquivalenceFinder creates a finder.
func NewEquivalenceFinder(products *storage.ProductRepository, rules *storage.EquivalenceRuleRepository, reg registryLookup) *EquivalenceFinder {
	return &EquivalenceFinder{products: products, rules: rules, registry: reg}
}

// Find returns same-family products equivalent to the given one. Every
// required-match spec must agree within its tolerance; remaining comparable
// specs determine the similarity score. Products from the same brand are
// excluded: the point is cross-brand substitution.
func (f *EquivalenceFinder) Find(ctx context.Context, productID uuid.UUID) ([]*Equivalent, error) {
	subject, err := f.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	rule, err := f.rules.GetByFamily(ctx, subject.FamilyCode)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load equivalence rule: %w", err)
	}

	candidates, err := f.products.List(ctx, storage.ProductFilter{
		FamilyCode: subject.FamilyCode,
		Status:     storage.ProductStatusActive,
		Limit:      1000,
	})
	if err != nil {
		return nil, err
	}

	var out []*Equivalent
	for _, cand := range candidates {
		if cand.ID == subject.ID || cand.BrandCode == subject.BrandCode {
			continue
		}
		if eq := f.assess(subject, cand, rule); eq != nil {
			out = append(out, eq)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].Product.ModelNumber < out[j].Product.ModelNumber
	})
	return out, nil
}

// assess compares one candidate. A nil result means not equivalent.
func (f *EquivalenceFinder) assess(subject, cand *storage.Product, rule *storage.EquivalenceRule) *Equivalent {
	if rule != nil {
		for _, name := range rule.RequiredMatch {
			sv, sok := subject.SpecValueOf(name)
			cv, cok := cand.SpecValueOf(name)
			if !sok || !cok {
				return nil
			}
			if !conflict.Equal(sv, cv, rule.Tolerance(name, defaultSpecTolerance)) {
				return nil
			}
		}
	}

	eq := &Equivalent{Product: cand}
	compared := 0
	for name, sv := range subject.Specs {
		if e, ok := f.registry.Get(name); ok && !e.IsComparable {
			continue
		}
		cv, ok := cand.SpecValueOf(name)
		if !ok {
			continue
		}
		compared++
		if conflict.Equal(sv, cv, rule.Tolerance(name, defaultSpecTolerance)) {
			eq.Matched = append(eq.Matched, name)
		} else {
			eq.Mismatched = append(eq.Mismatched, name)
		}
	}
	if compared == 0 {
		return nil
	}
	sort.Strings(eq.Matched)
	sort.Strings(eq.Mismatched)
	eq.Similarity = float64(len(eq.Matched)) / float64(compared)
	if eq.Similarity < minEquivalence {
		return nil
	}
	return eq
}
