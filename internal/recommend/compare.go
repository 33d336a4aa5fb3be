package recommend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/conflict"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// ErrCompareArity bounds side-by-side comparison to 2..4 products.
var ErrCompareArity = errors.New("comparison takes between 2 and 4 products")

// CompareRow is one spec across the compared products. Values align with
// the product order of the table.
type CompareRow struct {
	Spec        string   `json:"spec"`
	DisplayName string   `json:"display_name"`
	Unit        string   `json:"unit,omitempty"`
	Values      []string `json:"values"`
	Differs     bool     `json:"differs"`
}

// Comparison is the side-by-side table.
type Comparison struct {
	Products []*storage.Product `json:"products"`
	Rows     []CompareRow       `json:"rows"`
	Summary  string             `json:"summary"`
}

// Comparer builds spec comparison tables.
type Comparer struct {
	products *storage.ProductRepository
	rules    *storage.EquivalenceRuleRepository
	registry registryLookup
}

type registryLookup interface {
	Get(canonicalName string) (*storage.RegistryEntry, bool)
}

// NewComparer creates a comparer.
func NewComparer(products *storage.ProductRepository, rules *storage.EquivalenceRuleRepository, reg registryLookup) *Comparer {
	return &Comparer{products: products, rules: rules, registry: reg}
}

// Compare loads the products and builds the table. Rows are ordered by the
// family's priority specs, then registry sort order, then name; specs no
// product carries are dropped. With highlightDifferences set, rows where
// every product agrees are dropped too.
func (c *Comparer) Compare(ctx context.Context, ids []uuid.UUID, highlightDifferences bool) (*Comparison, error) {
	if len(ids) < 2 || len(ids) > 4 {
		return nil, ErrCompareArity
	}
	products, err := c.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(products) != len(ids) {
		return nil, storage.ErrNotFound
	}
	// Preserve the caller's ordering.
	byID := make(map[uuid.UUID]*storage.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	ordered := make([]*storage.Product, 0, len(ids))
	for _, id := range ids {
		ordered = append(ordered, byID[id])
	}

	cmp := &Comparison{Products: ordered}
	for _, name := range c.rowOrder(ctx, ordered) {
		row := CompareRow{Spec: name, DisplayName: name}
		if e, ok := c.registry.Get(name); ok {
			row.DisplayName = e.DisplayName
			row.Unit = e.Unit
		}
		var first *storage.SpecValue
		present := 0
		for _, p := range ordered {
			v, ok := p.SpecValueOf(name)
			if !ok {
				row.Values = append(row.Values, "—")
				continue
			}
			present++
			row.Values = append(row.Values, v.String())
			if first == nil {
				first = &v
			} else if !conflict.Equal(*first, v, 0) {
				row.Differs = true
			}
		}
		if present == 0 {
			continue
		}
		if highlightDifferences && !row.Differs {
			continue
		}
		cmp.Rows = append(cmp.Rows, row)
	}
	cmp.Summary = c.summary(cmp)
	return cmp, nil
}

// rowOrder is priority specs first, then every other spec any product
// carries ordered by registry sort order and name.
func (c *Comparer) rowOrder(ctx context.Context, products []*storage.Product) []string {
	seen := map[string]bool{}
	var order []string
	push := func(name string) {
		if !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}

	if rule, err := c.rules.GetByFamily(ctx, products[0].FamilyCode); err == nil {
		for _, s := range rule.PrioritySpecs {
			push(s)
		}
	}

	type rest struct {
		name string
		sort int
	}
	var remaining []rest
	for _, p := range products {
		for name := range p.Specs {
			if seen[name] {
				continue
			}
			seen[name] = true
			sortKey := 1 << 20
			if e, ok := c.registry.Get(name); ok {
				if !e.IsComparable {
					continue
				}
				sortKey = e.SortOrder
			}
			remaining = append(remaining, rest{name: name, sort: sortKey})
		}
	}
	sort.Slice(remaining, func(i, j int) bool {
		if remaining[i].sort != remaining[j].sort {
			return remaining[i].sort < remaining[j].sort
		}
		return remaining[i].name < remaining[j].name
	})
	for _, r := range remaining {
		order = append(order, r.name)
	}
	return order
}

func (c *Comparer) summary(cmp *Comparison) string {
	var differing []string
	for _, row := range cmp.Rows {
		if row.Differs {
			differing = append(differing, row.DisplayName)
		}
	}
	models := make([]string, len(cmp.Products))
	for i, p := range cmp.Products {
		models[i] = p.ModelNumber
	}
	if len(differing) == 0 {
		return fmt.Sprintf("%s are identical on every compared specification.", strings.Join(models, ", "))
	}
	return fmt.Sprintf("%s differ on %d of %d specifications: %s.",
		strings.Join(models, ", "), len(differing), len(cmp.Rows), strings.Join(differing, ", "))
}
