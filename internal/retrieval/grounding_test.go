package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

func packWith(content string, products ...*storage.Product) *ContextPack {
	return &ContextPack{
		Chunks:   []RetrievedChunk{{Chunk: &storage.Chunk{Content: content}}},
		Products: products,
	}
}

func TestCheckGrounding_SupportedAnswerPasses(t *testing.T) {
	pack := packWith("The ABT-HC-23S holds 23 cu ft and draws 3 amps at 115V.")
	report := CheckGrounding("The ABT-HC-23S offers 23 cubic feet of storage on a 115 volt circuit.", pack)
	assert.True(t, report.Grounded())
}

func TestCheckGrounding_FabricatedNumberFlagged(t *testing.T) {
	pack := packWith("Capacity: 23 cu ft.")
	report := CheckGrounding("It holds 49 cubic feet.", pack)
	assert.Contains(t, report.UnsupportedNumbers, "49")
	assert.False(t, report.Grounded())
}

func TestCheckGrounding_SingleDigitsSkipped(t *testing.T) {
	pack := packWith("Two shelves included.")
	report := CheckGrounding("It ships with 4 shelves across 2 sections.", pack)
	assert.Empty(t, report.UnsupportedNumbers)
}

func TestCheckGrounding_TrailingPointZeroTolerated(t *testing.T) {
	pack := packWith("Weight: 350 lbs")
	report := CheckGrounding("It weighs 350.0 pounds.", pack)
	assert.Empty(t, report.UnsupportedNumbers)

	pack = packWith("Weight: 350.0 lbs")
	report = CheckGrounding("It weighs 350 pounds.", pack)
	assert.Empty(t, report.UnsupportedNumbers)
}

func TestCheckGrounding_ProductModelsCountAsContext(t *testing.T) {
	pack := packWith("spec text without the model number",
		&storage.Product{ModelNumber: "ABT-HC-23S"})
	report := CheckGrounding("See the ABT-HC-23S.", pack)
	assert.Empty(t, report.UnsupportedModels)
}

func TestCheckGrounding_FabricatedModelFlagged(t *testing.T) {
	pack := packWith("The ABT-HC-23S holds 23 cu ft.")
	report := CheckGrounding("The XYZ-500 is a better fit.", pack)
	assert.Contains(t, report.UnsupportedModels, "XYZ-500")
}

func TestCheckGrounding_CaseInsensitiveModelMatch(t *testing.T) {
	pack := packWith("available as abt-hc-23s")
	report := CheckGrounding("Consider the ABT-HC-23S.", pack)
	assert.Empty(t, report.UnsupportedModels)
}
