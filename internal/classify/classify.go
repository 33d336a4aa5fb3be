// Package classify derives a document's type, brand, and revision date from
// its extracted text. Classification is rule-based and deterministic.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// Result is a classification outcome.
type Result struct {
	DocType      storage.DocType
	BrandCode    string
	Revision     string // raw matched token, e.g. "Rev_03.18.25"
	RevisionDate string // ISO date, empty when no revision found
}

// Classifier applies the marker rules.
type Classifier struct {
	now func() time.Time
}

// New creates a classifier.
func New() *Classifier {
	return &Classifier{now: time.Now}
}

// Classify inspects text and filename and returns the best ruling.
func (c *Classifier) Classify(text, filename string) Result {
	return Result{
		DocType:      c.docType(text, filename),
		BrandCode:    DetectBrand(text),
		Revision:     firstRevisionToken(text),
		RevisionDate: c.revisionDate(text),
	}
}

// docType applies the marker rules in fixed priority order. Earlier rules
// win outright.
func (c *Classifier) docType(text, filename string) storage.DocType {
	lower := strings.ToLower(text)
	lowerName := strings.ToLower(filename)

	if strings.Contains(lower, "cutsheet") || strings.Contains(lowerName, "cutsheet") ||
		strings.Contains(lowerName, "cut_sheet") || strings.Contains(lowerName, "cut-sheet") {
		return storage.DocTypeCutSheet
	}
	if strings.Contains(lower, "performance") && hasAny(lower, "probe", "uniformity", "stability") {
		return storage.DocTypePerformanceDataSheet
	}
	if strings.Contains(lower, "product data sheet") && structuredSections(lower) >= 2 {
		return storage.DocTypeProductDataSheet
	}
	if bulletLines(text) >= 5 && hasAny(lower, "feature", "features") {
		return storage.DocTypeFeatureList
	}
	if dimensionalOnly(lower) {
		return storage.DocTypeDimensionalDrawing
	}
	if hasAny(lowerName, "install", "manual") || strings.Contains(lower, "installation instructions") {
		return storage.DocTypeInstallManual
	}
	if hasAny(lowerName, "catalog", "selection guide") || strings.Contains(lower, "selection guide") {
		if strings.Contains(lower, "selection guide") || strings.Contains(lowerName, "selection") {
			return storage.DocTypeSelectionGuide
		}
		return storage.DocTypeCatalog
	}
	return storage.DocTypeOther
}

var sectionMarkers = []string{
	"specifications", "dimensions", "electrical", "refrigeration",
	"construction", "performance", "features", "warranty", "certifications",
}

func structuredSections(lower string) int {
	n := 0
	for _, m := range sectionMarkers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	return n
}

func bulletLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "•") || strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") {
			n++
		}
	}
	return n
}

var dimensionCallout = regexp.MustCompile(`\d+(?:\.\d+)?\s*(?:"|in\.?|mm)\b`)

// dimensionalOnly is satisfied by drawings: many dimension callouts and
// none of the prose section markers.
func dimensionalOnly(lower string) bool {
	if structuredSections(lower) > 1 {
		return false
	}
	return len(dimensionCallout.FindAllString(lower, 6)) >= 5
}

func hasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// brandMarkers maps brand codes to the text tokens that identify them.
// Detection scans case-insensitively; the earliest match in the text wins.
var brandMarkers = []struct {
	Code   string
	Tokens []string
}{
	{"ABS", []string{"american biotech supply", "abt-hc-", "ph-abt-", "abs premier"}},
	{"COREPOINT", []string{"corepoint scientific", "corepoint", "cel-hc-"}},
	{"NORLAKE", []string{"nor-lake", "norlake", "nsbr", "nswf"}},
	{"LABREPCO", []string{"labrepco", "lht-", "lpvt-"}},
	{"HORIZON", []string{"horizon scientific", "horizon series"}},
}

// DetectBrand returns the brand code whose marker appears earliest in the
// text, or empty when none match.
func DetectBrand(text string) string {
	lower := strings.ToLower(text)
	best := ""
	bestPos := len(lower) + 1
	for _, b := range brandMarkers {
		for _, tok := range b.Tokens {
			if pos := strings.Index(lower, tok); pos >= 0 && pos < bestPos {
				best = b.Code
				bestPos = pos
			}
		}
	}
	return best
}

// revisionPattern matches tokens like Rev_03.18.25, Rev 3-18-2025, REV03/18/25.
var revisionPattern = regexp.MustCompile(`(?i)\bRev[_\s\-.]*(\d{1,2})[.\-/](\d{1,2})[.\-/](\d{2,4})`)

// compactRevision matches Rev03182025 style MMDDYYYY tokens.
var compactRevision = regexp.MustCompile(`(?i)\bRev[_\s\-.]*(\d{2})(\d{2})(\d{4})\b`)

func firstRevisionToken(text string) string {
	if m := revisionPattern.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return strings.TrimSpace(compactRevision.FindString(text))
}

// revisionDate normalizes the first revision token to an ISO date string.
// Two-digit years resolve to the century closest to today.
func (c *Classifier) revisionDate(text string) string {
	var month, day, year int
	if m := revisionPattern.FindStringSubmatch(text); m != nil {
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else if m := compactRevision.FindStringSubmatch(text); m != nil {
		month, _ = strconv.Atoi(m[1])
		day, _ = strconv.Atoi(m[2])
		year, _ = strconv.Atoi(m[3])
	} else {
		return ""
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return ""
	}
	if year < 100 {
		year = c.expandYear(year)
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// expandYear maps a two-digit year onto the century nearest to today.
func (c *Classifier) expandYear(yy int) int {
	current := c.now().Year()
	century := current - current%100
	candidates := []int{century + yy, century - 100 + yy, century + 100 + yy}
	best := candidates[0]
	for _, y := range candidates[1:] {
		if abs(y-current) < abs(best-current) {
			best = y
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// ParseRevisionDate converts a stored ISO revision date back to a time.
func ParseRevisionDate(iso string) (time.Time, bool) {
	if iso == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", iso)
	return t, err == nil
}

// RevisionTime parses a raw revision token (e.g. "Rev_03.18.25") into a
// date. Returns false when the token carries no recognizable date.
func RevisionTime(token string) (time.Time, bool) {
	iso := New().revisionDate(token)
	return ParseRevisionDate(iso)
}
