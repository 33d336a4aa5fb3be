// Package conflict decides what happens when an incoming spec value
// disagrees with the stored one: silent write, revision-precedence
// overwrite, or a pending conflict row for human review.
package conflict

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/coldstore-ai/product-expert/internal/classify"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Action is the engine's ruling for one (product, spec, value) triple.
type Action int

const (
	// ActionWrite stores the value; there was nothing to disagree with.
	ActionWrite Action = iota
	// ActionNoop leaves the stored value; the incoming one is equal under
	// the type rule.
	ActionNoop
	// ActionOverwrite replaces the stored value because the incoming
	// document's revision is strictly newer. An audit entry is required.
	ActionOverwrite
	// ActionConflict records a pending conflict; the stored value stands
	// until a human resolves it.
	ActionConflict
)

func (a Action) String() string {
	switch a {
	case ActionWrite:
		return "write"
	case ActionNoop:
		return "noop"
	case ActionOverwrite:
		return "overwrite"
	default:
		return "conflict"
	}
}

// Decision carries the ruling and the severity when a conflict is raised.
type Decision struct {
	Action   Action
	Severity storage.ConflictSeverity
}

// Engine applies the decision table.
type Engine struct {
	defaultTolerance float64
	preferDated      bool
}

// New creates an engine. defaultTolerance applies when the family's
// equivalence rule declares none; preferDated controls whether a dated
// revision beats a missing one (when false, a missing incoming revision
// can never overwrite).
func New(defaultTolerance float64, preferDated bool) *Engine {
	if defaultTolerance <= 0 {
		defaultTolerance = 0.05
	}
	return &Engine{defaultTolerance: defaultTolerance, preferDated: preferDated}
}

// Input is everything the engine looks at for one ruling.
type Input struct {
	Existing    *storage.SpecValue // nil when the product has no value yet
	Incoming    storage.SpecValue
	Entry       *storage.RegistryEntry // nil for unregistered specs
	Rule        *storage.EquivalenceRule
	NewRevision string // raw revision token of the incoming document
	OldRevision string // raw revision token of the stored value's source
}

// Decide applies the table: no existing value writes; equality no-ops;
// a strictly newer revision overwrites; everything else conflicts.
func (e *Engine) Decide(in Input) Decision {
	if in.Existing == nil {
		return Decision{Action: ActionWrite}
	}
	tol := e.defaultTolerance
	if in.Rule != nil {
		name := ""
		if in.Entry != nil {
			name = in.Entry.CanonicalName
		}
		tol = in.Rule.Tolerance(name, e.defaultTolerance)
	}
	if Equal(*in.Existing, in.Incoming, tol) {
		return Decision{Action: ActionNoop}
	}
	if e.revisionWins(in.NewRevision, in.OldRevision) {
		return Decision{Action: ActionOverwrite}
	}
	return Decision{Action: ActionConflict, Severity: severity(in.Entry)}
}

// revisionWins reports whether the incoming revision is strictly newer
// than the stored one by at least one day. A value with no parseable date
// never wins; when preferDated is set, a dated incoming revision beats an
// undated stored one.
func (e *Engine) revisionWins(newRev, oldRev string) bool {
	newT, newOK := classify.RevisionTime(newRev)
	oldT, oldOK := classify.RevisionTime(oldRev)
	if !newOK {
		return false
	}
	if !oldOK {
		return e.preferDated
	}
	return newT.Sub(oldT) >= 24*time.Hour
}

func severity(entry *storage.RegistryEntry) storage.ConflictSeverity {
	if entry != nil && entry.IsCritical {
		return storage.SeverityCritical
	}
	return storage.SeverityMedium
}

// Equal compares two spec values under the type rule. Values flagged
// parse_failed compare as text regardless of kind. A numeric delta exactly
// at the tolerance threshold counts as equal.
func Equal(a, b storage.SpecValue, tolerance float64) bool {
	if a.ParseFailed || b.ParseFailed {
		return foldEqual(a.String(), b.String())
	}
	switch {
	case a.Kind == storage.SpecKindNumeric && b.Kind == storage.SpecKindNumeric:
		return numericEqual(a.Number, b.Number, tolerance)
	case a.Kind == storage.SpecKindRange && b.Kind == storage.SpecKindRange:
		return numericEqual(a.RangeMin, b.RangeMin, tolerance) &&
			numericEqual(a.RangeMax, b.RangeMax, tolerance)
	case a.Kind == storage.SpecKindBoolean && b.Kind == storage.SpecKindBoolean:
		return a.Bool == b.Bool
	case a.Kind == storage.SpecKindList && b.Kind == storage.SpecKindList:
		return multisetEqual(a.List, b.List)
	}
	// Mixed numeric/text still compares numerically when both sides parse.
	if af, aok := a.AsFloat(); aok {
		if bf, bok := b.AsFloat(); bok {
			return numericEqual(af, bf, tolerance)
		}
	}
	return foldEqual(a.String(), b.String())
}

const epsilon = 1e-9

func numericEqual(a, b, tolerance float64) bool {
	denom := math.Max(math.Max(math.Abs(a), math.Abs(b)), epsilon)
	return math.Abs(a-b)/denom <= tolerance
}

func foldEqual(a, b string) bool {
	return strings.EqualFold(normalizeText(a), normalizeText(b))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.TrimSpace(s)), " ")
}

func multisetEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i, v := range a {
		as[i] = strings.ToLower(v)
	}
	for i, v := range b {
		bs[i] = strings.ToLower(v)
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
