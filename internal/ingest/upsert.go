package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/classify"
	"github.com/coldstore-ai/product-expert/internal/conflict"
	"github.com/coldstore-ai/product-expert/internal/fieldmap"
	"github.com/coldstore-ai/product-expert/internal/resolve"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

type upsertResult struct {
	productID uuid.UUID
	created   bool
	changed   bool
	conflicts int
}

// upsertProduct applies one resolved model's values to the catalog. All
// writes for a model number are serialized through the keyed mutex, so the
// load-decide-store sequence never races with another worker.
func (o *Orchestrator) upsertProduct(ctx context.Context, cand resolve.Candidate, mapped *fieldmap.Result, doc *storage.Document) (*upsertResult, error) {
	unlock := o.productLocks.lock(cand.ModelNumber)
	defer unlock()

	incoming := incomingSpecs(cand, mapped)

	product, err := o.repos.Products.GetByModelNumber(ctx, cand.ModelNumber)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if !o.opts.AutoCreateProducts {
			return nil, nil
		}
		return o.createProduct(ctx, cand, incoming, doc)
	case err != nil:
		return nil, fmt.Errorf("load product: %w", err)
	}
	return o.updateProduct(ctx, product, cand, incoming, doc)
}

// specUpdate is one spec write in the order the document produced it.
type specUpdate struct {
	name  string
	value storage.SpecValue
}

// incomingSpecs merges model-decoded fields with harvested document values,
// keeping extraction order: decoded fields first, then harvested values as
// they appeared in the document. Harvested values win when both claim the
// same spec (the document body is more specific than the model number
// encoding), and a label repeated later in the document overrides the
// earlier occurrence without changing its position.
func incomingSpecs(cand resolve.Candidate, mapped *fieldmap.Result) []specUpdate {
	index := map[string]int{}
	var updates []specUpdate
	put := func(name string, v storage.SpecValue) {
		if i, ok := index[name]; ok {
			updates[i].value = v
			return
		}
		index[name] = len(updates)
		updates = append(updates, specUpdate{name: name, value: v})
	}
	for _, name := range sortedNames(cand.DecodedFields) {
		put(name, cand.DecodedFields[name])
	}
	for _, m := range mapped.Mapped {
		put(m.CanonicalName, m.Value)
	}
	return updates
}

func (o *Orchestrator) createProduct(ctx context.Context, cand resolve.Candidate, incoming []specUpdate, doc *storage.Document) (*upsertResult, error) {
	p := &storage.Product{
		ModelNumber:    cand.ModelNumber,
		BrandCode:      cand.Brand,
		FamilyCode:     cand.Family,
		ProductLine:    cand.ProductLine,
		ControllerTier: cand.ControllerTier,
		Status:         storage.ProductStatusActive,
		Specs:          storage.SpecMap{},
		Revision:       doc.Revision,
	}
	for _, u := range incoming {
		p.SetSpecValue(u.name, u.value)
	}

	err := o.store.InTx(ctx, func(tx storage.DB) error {
		products := storage.NewProductRepository(tx)
		if err := products.Create(ctx, p); err != nil {
			return err
		}
		versions := storage.NewVersionRepository(tx)
		if err := versions.Snapshot(ctx, p, "created from "+doc.Filename, "ingestion"); err != nil {
			return err
		}
		audit := storage.NewAuditRepository(tx)
		return audit.Record(ctx, "product", p.ID, "create", "ingestion", "system", map[string]any{
			"model_number": p.ModelNumber,
			"source_doc":   doc.ID.String(),
		})
	})
	if errors.Is(err, storage.ErrDuplicateModel) {
		// Lost a cross-process race; retry as an update.
		existing, gerr := o.repos.Products.GetByModelNumber(ctx, cand.ModelNumber)
		if gerr != nil {
			return nil, gerr
		}
		return o.updateProduct(ctx, existing, cand, incoming, doc)
	}
	if err != nil {
		return nil, err
	}

	o.linkDocument(ctx, doc, p.ID, incoming)
	o.logger.WithProduct(p.ModelNumber).Info().
		Int("specs", len(incoming)).
		Msg("product created")
	return &upsertResult{productID: p.ID, created: true, changed: true}, nil
}

func (o *Orchestrator) updateProduct(ctx context.Context, p *storage.Product, cand resolve.Candidate, incoming []specUpdate, doc *storage.Document) (*upsertResult, error) {
	rule, err := o.repos.EquivalenceRules.GetByFamily(ctx, p.FamilyCode)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("load equivalence rule: %w", err)
	}

	res := &upsertResult{productID: p.ID}
	var overwrites []string
	var pending []*storage.SpecConflict

	// Spec updates apply in the document's extraction order.
	for _, u := range incoming {
		name, value := u.name, u.value
		in := conflict.Input{
			Incoming:    value,
			Rule:        rule,
			NewRevision: doc.Revision,
			OldRevision: p.Revision,
		}
		if entry, ok := o.registry.Get(name); ok {
			in.Entry = entry
		}
		if existing, ok := p.SpecValueOf(name); ok {
			in.Existing = &existing
		}

		// Certification lists grow by union; a data sheet that omits a
		// certification is not evidence the product lost it.
		if name == "certifications" && in.Existing != nil && value.Kind == storage.SpecKindList {
			if merged, grew := unionList(in.Existing.List, value.List); grew {
				p.SetSpecValue(name, storage.List(merged))
				res.changed = true
			}
			continue
		}

		d := o.engine.Decide(in)
		switch d.Action {
		case conflict.ActionWrite:
			p.SetSpecValue(name, value)
			res.changed = true
		case conflict.ActionOverwrite:
			p.SetSpecValue(name, value)
			res.changed = true
			overwrites = append(overwrites, name)
		case conflict.ActionConflict:
			pending = append(pending, &storage.SpecConflict{
				ProductID:     p.ID,
				SpecName:      name,
				ExistingValue: in.Existing.String(),
				NewValue:      value.String(),
				SourceDocID:   doc.ID,
				Severity:      d.Severity,
				Resolution:    storage.ResolutionPending,
			})
		}
	}

	// Fill structural metadata the earlier documents never carried.
	if p.ProductLine == "" && cand.ProductLine != "" {
		p.ProductLine = cand.ProductLine
		res.changed = true
	}
	if p.ControllerTier == "" && cand.ControllerTier != "" {
		p.ControllerTier = cand.ControllerTier
		res.changed = true
	}

	if res.changed {
		if revisionNewer(doc.Revision, p.Revision) || p.Revision == "" {
			p.Revision = doc.Revision
		}
		expected := p.Version
		err = o.store.InTx(ctx, func(tx storage.DB) error {
			products := storage.NewProductRepository(tx)
			if err := products.Update(ctx, p, expected); err != nil {
				return err
			}
			versions := storage.NewVersionRepository(tx)
			if err := versions.Snapshot(ctx, p, "updated from "+doc.Filename, "ingestion"); err != nil {
				return err
			}
			if len(overwrites) == 0 {
				return nil
			}
			audit := storage.NewAuditRepository(tx)
			return audit.Record(ctx, "product", p.ID, "overwrite", "ingestion", "system", map[string]any{
				"specs":        overwrites,
				"source_doc":   doc.ID.String(),
				"new_revision": doc.Revision,
			})
		})
		if err != nil {
			return nil, fmt.Errorf("update product %s: %w", p.ModelNumber, err)
		}
	}

	for _, c := range pending {
		// One open conflict per (product, spec); repeats of the same
		// disagreement do not pile up rows.
		if _, ferr := o.repos.Conflicts.FindPending(ctx, c.ProductID, c.SpecName); ferr == nil {
			continue
		} else if !errors.Is(ferr, storage.ErrNotFound) {
			return nil, ferr
		}
		if cerr := o.repos.Conflicts.Create(ctx, c); cerr != nil {
			return nil, cerr
		}
		res.conflicts++
	}

	o.linkDocument(ctx, doc, p.ID, incoming)
	return res, nil
}

// revisionNewer reports whether a's date is after b's. Undated tokens lose.
func revisionNewer(a, b string) bool {
	at, aok := classify.RevisionTime(a)
	if !aok {
		return false
	}
	bt, bok := classify.RevisionTime(b)
	if !bok {
		return true
	}
	return at.After(bt)
}

func (o *Orchestrator) linkDocument(ctx context.Context, doc *storage.Document, productID uuid.UUID, incoming []specUpdate) {
	link := &storage.DocumentProductLink{
		DocumentID: doc.ID,
		ProductID:  productID,
		Relevance:  storage.RelevancePrimary,
		Confidence: 1.0,
	}
	if len(incoming) > 0 {
		names := make([]string, len(incoming))
		for i, u := range incoming {
			names[i] = u.name
		}
		link.ExtractedSpecs, _ = json.Marshal(names)
	}
	if err := o.repos.Links.Upsert(ctx, link); err != nil {
		o.logger.Error().Err(err).Str("document_id", doc.ID.String()).Msg("link upsert failed")
	}
}

func sortedNames(m storage.SpecMap) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unionList merges b into a, case-insensitively, preserving a's order.
func unionList(a, b []string) ([]string, bool) {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, v := range a {
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	grew := false
	for _, v := range b {
		if !seen[strings.ToLower(v)] {
			seen[strings.ToLower(v)] = true
			out = append(out, v)
			grew = true
		}
	}
	return out, grew
}
