package classify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

func fixedClassifier(year int) *Classifier {
	return &Classifier{now: func() time.Time {
		return time.Date(year, 6, 1, 0, 0, 0, 0, time.UTC)
	}}
}

func TestClassifier_DocType_CutSheetWinsOverEverything(t *testing.T) {
	c := New()
	text := "Cutsheet\nSpecifications\nDimensions\nPerformance probe uniformity"
	assert.Equal(t, storage.DocTypeCutSheet, c.Classify(text, "abc.pdf").DocType)

	// Filename alone is enough.
	assert.Equal(t, storage.DocTypeCutSheet, c.Classify("", "ABT-23S_cut_sheet.pdf").DocType)
}

func TestClassifier_DocType_PerformanceDataSheet(t *testing.T) {
	c := New()
	text := "Performance Data\nProbe locations and uniformity results"
	assert.Equal(t, storage.DocTypePerformanceDataSheet, c.Classify(text, "perf.pdf").DocType)
}

func TestClassifier_DocType_ProductDataSheet(t *testing.T) {
	c := New()
	text := "Product Data Sheet\nSpecifications\nDimensions\nElectrical"
	assert.Equal(t, storage.DocTypeProductDataSheet, c.Classify(text, "pds.pdf").DocType)
}

func TestClassifier_DocType_FeatureList(t *testing.T) {
	c := New()
	text := "Key Features\n" + strings.Repeat("• something useful\n", 6)
	assert.Equal(t, storage.DocTypeFeatureList, c.Classify(text, "features.pdf").DocType)
}

func TestClassifier_DocType_DimensionalDrawing(t *testing.T) {
	c := New()
	text := "24 in 36 in 48.5 in 23.75 in 10 mm overall"
	assert.Equal(t, storage.DocTypeDimensionalDrawing, c.Classify(text, "drawing.pdf").DocType)
}

func TestClassifier_DocType_InstallManual(t *testing.T) {
	c := New()
	assert.Equal(t, storage.DocTypeInstallManual,
		c.Classify("read before operating", "install_guide.pdf").DocType)
}

func TestClassifier_DocType_SelectionGuideBeatsCatalog(t *testing.T) {
	c := New()
	assert.Equal(t, storage.DocTypeSelectionGuide,
		c.Classify("2025 selection guide", "doc.pdf").DocType)
	assert.Equal(t, storage.DocTypeCatalog,
		c.Classify("full line of refrigeration", "2025_catalog.pdf").DocType)
}

func TestClassifier_DocType_FallbackOther(t *testing.T) {
	c := New()
	assert.Equal(t, storage.DocTypeOther, c.Classify("hello", "note.txt").DocType)
}

func TestDetectBrand_EarliestMarkerWins(t *testing.T) {
	text := "Nor-Lake Scientific ... distributed by LabRepCo"
	assert.Equal(t, "NORLAKE", DetectBrand(text))

	text = "LabRepCo Futura ... compatible with Nor-Lake shelving"
	assert.Equal(t, "LABREPCO", DetectBrand(text))
}

func TestDetectBrand_ModelPrefixMarker(t *testing.T) {
	assert.Equal(t, "ABS", DetectBrand("Model ABT-HC-23S specifications"))
	assert.Equal(t, "", DetectBrand("no brand here"))
}

func TestClassifier_Revision_DottedToken(t *testing.T) {
	c := fixedClassifier(2025)
	res := c.Classify("Specifications ... Rev_03.18.25", "doc.pdf")
	assert.Equal(t, "Rev_03.18.25", res.Revision)
	assert.Equal(t, "2025-03-18", res.RevisionDate)
}

func TestClassifier_Revision_FourDigitYear(t *testing.T) {
	c := fixedClassifier(2025)
	res := c.Classify("Rev 3-18-2024", "doc.pdf")
	assert.Equal(t, "2024-03-18", res.RevisionDate)
}

func TestClassifier_Revision_TwoDigitYearNearestCentury(t *testing.T) {
	// 99 seen from 2025 resolves to 1999, not 2099.
	c := fixedClassifier(2025)
	res := c.Classify("Rev 01.01.99", "doc.pdf")
	assert.Equal(t, "1999-01-01", res.RevisionDate)
}

func TestClassifier_Revision_InvalidDateRejected(t *testing.T) {
	c := fixedClassifier(2025)
	res := c.Classify("Rev 13.45.25", "doc.pdf")
	assert.Equal(t, "", res.RevisionDate)
}

func TestClassifier_Revision_NoToken(t *testing.T) {
	c := New()
	res := c.Classify("no revision here", "doc.pdf")
	assert.Equal(t, "", res.Revision)
	assert.Equal(t, "", res.RevisionDate)
}

func TestRevisionTime(t *testing.T) {
	ts, ok := RevisionTime("Rev_03.18.25")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC), ts)

	_, ok = RevisionTime("")
	assert.False(t, ok)
}

func TestParseRevisionDate(t *testing.T) {
	ts, ok := ParseRevisionDate("2025-03-18")
	assert.True(t, ok)
	assert.Equal(t, 2025, ts.Year())

	_, ok = ParseRevisionDate("not-a-date")
	assert.False(t, ok)
	_, ok = ParseRevisionDate("")
	assert.False(t, ok)
}
