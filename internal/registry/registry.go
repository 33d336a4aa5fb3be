// Package registry manages the spec registry: canonical spec names, synonym
// resolution, unit conversion, and auto-discovery of unknown labels.
package registry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// ErrUnknownSpec is returned when a label resolves to no registry entry.
var ErrUnknownSpec = errors.New("unknown spec label")

// Store is the registry's persistence surface.
type Store interface {
	Create(ctx context.Context, e *storage.RegistryEntry) error
	GetByCanonicalName(ctx context.Context, name string) (*storage.RegistryEntry, error)
	ListAll(ctx context.Context) ([]*storage.RegistryEntry, error)
	ListPendingApproval(ctx context.Context) ([]*storage.RegistryEntry, error)
	Update(ctx context.Context, e *storage.RegistryEntry) error
	Approve(ctx context.Context, canonicalName string) error
}

const resolveCacheSize = 4096

// Registry resolves raw document labels to canonical registry entries.
// Resolution results are cached in an LRU keyed by normalized label; the
// cache is dropped whenever the registry mutates.
type Registry struct {
	store  Store
	logger *observability.Logger

	mu      sync.RWMutex
	entries map[string]*storage.RegistryEntry // canonical_name -> entry
	bySyn   map[string]string                 // normalized synonym -> canonical_name
	cache   *lru.Cache[string, string]
}

// New creates a registry over the store and loads all entries.
func New(ctx context.Context, store Store, logger *observability.Logger) (*Registry, error) {
	cache, err := lru.New[string, string](resolveCacheSize)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		store:  store,
		logger: logger,
		cache:  cache,
	}
	if err := r.Reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload rebuilds the in-memory synonym table from the store.
func (r *Registry) Reload(ctx context.Context) error {
	all, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	entries := make(map[string]*storage.RegistryEntry, len(all))
	bySyn := make(map[string]string)
	for _, e := range all {
		entries[e.CanonicalName] = e
		bySyn[NormalizeLabel(e.CanonicalName)] = e.CanonicalName
		bySyn[NormalizeLabel(e.DisplayName)] = e.CanonicalName
		for _, s := range e.Synonyms {
			bySyn[NormalizeLabel(s)] = e.CanonicalName
		}
	}
	r.mu.Lock()
	r.entries = entries
	r.bySyn = bySyn
	r.mu.Unlock()
	r.cache.Purge()
	return nil
}

// NormalizeLabel canonicalizes a raw label for synonym lookup: lowercase,
// trimmed, punctuation stripped, interior whitespace collapsed to one
// underscore. "Temp. Range (°C)" and "Temp Range C" normalize identically.
func NormalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.TrimRight(s, ":")
	s = labelStrip.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = labelSpaces.ReplaceAllString(s, "_")
	return s
}

var (
	labelStrip  = regexp.MustCompile(`[^a-z0-9\s]+`)
	labelSpaces = regexp.MustCompile(`[\s_]+`)
)

// Resolve maps a raw label to its registry entry, honoring family scope.
// Unknown labels return ErrUnknownSpec.
func (r *Registry) Resolve(label, familyCode string) (*storage.RegistryEntry, error) {
	norm := NormalizeLabel(label)
	if norm == "" {
		return nil, ErrUnknownSpec
	}
	if canonical, ok := r.cache.Get(norm); ok {
		if e := r.entry(canonical); e != nil && e.InScope(familyCode) {
			return e, nil
		}
	}
	r.mu.RLock()
	canonical, ok := r.bySyn[norm]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpec, label)
	}
	e := r.entry(canonical)
	if e == nil || !e.InScope(familyCode) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSpec, label)
	}
	r.cache.Add(norm, canonical)
	return e, nil
}

// Get returns the entry for a canonical name.
func (r *Registry) Get(canonicalName string) (*storage.RegistryEntry, bool) {
	e := r.entry(canonicalName)
	return e, e != nil
}

// All returns every loaded entry.
func (r *Registry) All() []*storage.RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*storage.RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out
}

func (r *Registry) entry(canonical string) *storage.RegistryEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[canonical]
}

// Discover records an unknown label as an unapproved auto-discovered entry
// and makes it resolvable immediately. The data type is inferred from the
// raw value. Discovered entries carry no family scope, so a label first seen
// in one family's document resolves for every family. Repeated discoveries
// of the same label are idempotent.
func (r *Registry) Discover(ctx context.Context, label, rawValue, familyCode string) (*storage.RegistryEntry, error) {
	canonical := NormalizeLabel(label)
	if canonical == "" {
		return nil, fmt.Errorf("%w: empty label", ErrUnknownSpec)
	}
	if e := r.entry(canonical); e != nil {
		return e, nil
	}

	kind, unit := InferKind(rawValue)
	e := &storage.RegistryEntry{
		CanonicalName:  canonical,
		DisplayName:    strings.TrimSpace(strings.TrimRight(label, ":")),
		DataType:       kind,
		Unit:           unit,
		UnitSystem:     storage.UnitNone,
		Synonyms:       []string{strings.TrimSpace(strings.TrimRight(label, ":"))},
		IsComparable:   true,
		IsSearchable:   true,
		AutoDiscovered: true,
		Approved:       false,
	}
	if err := r.store.Create(ctx, e); err != nil {
		// Lost a race with a concurrent discovery; reload and reuse.
		if existing, gerr := r.store.GetByCanonicalName(ctx, canonical); gerr == nil {
			r.index(existing)
			return existing, nil
		}
		return nil, err
	}
	r.index(e)
	r.logger.Info().
		Str("canonical_name", canonical).
		Str("data_type", string(kind)).
		Str("source_family", familyCode).
		Msg("auto-discovered spec")
	return e, nil
}

func (r *Registry) index(e *storage.RegistryEntry) {
	r.mu.Lock()
	r.entries[e.CanonicalName] = e
	r.bySyn[NormalizeLabel(e.CanonicalName)] = e.CanonicalName
	r.bySyn[NormalizeLabel(e.DisplayName)] = e.CanonicalName
	for _, s := range e.Synonyms {
		r.bySyn[NormalizeLabel(s)] = e.CanonicalName
	}
	r.mu.Unlock()
}

// Approve marks an auto-discovered entry as reviewed.
func (r *Registry) Approve(ctx context.Context, canonicalName string) error {
	if err := r.store.Approve(ctx, canonicalName); err != nil {
		return err
	}
	if e := r.entry(canonicalName); e != nil {
		r.mu.Lock()
		e.Approved = true
		r.mu.Unlock()
	}
	return nil
}

// PendingApproval lists auto-discovered entries awaiting review.
func (r *Registry) PendingApproval(ctx context.Context) ([]*storage.RegistryEntry, error) {
	return r.store.ListPendingApproval(ctx)
}

// InferKind guesses the data type and unit of a raw value string.
func InferKind(raw string) (storage.SpecKind, string) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return storage.SpecKindText, ""
	}
	lower := strings.ToLower(s)
	if lower == "yes" || lower == "no" || lower == "true" || lower == "false" {
		return storage.SpecKindBoolean, ""
	}
	if m := rangeValue.FindStringSubmatch(s); m != nil {
		return storage.SpecKindRange, strings.TrimSpace(m[3])
	}
	if m := numericValue.FindStringSubmatch(s); m != nil {
		return storage.SpecKindNumeric, strings.TrimSpace(m[2])
	}
	if strings.Contains(s, ",") {
		return storage.SpecKindList, ""
	}
	return storage.SpecKindText, ""
}

var (
	numericValue = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*([a-zA-Z°%/.]*)$`)
	rangeValue   = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*(?:to|-|–)\s*(-?\d+(?:\.\d+)?)\s*([a-zA-Z°%/.]*)$`)
)

// ParseBool interprets yes/no style values.
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "y", "standard", "included":
		return true, true
	case "no", "false", "n", "none", "not included":
		return false, true
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	return b, err == nil
}
