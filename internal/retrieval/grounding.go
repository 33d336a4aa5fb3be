package retrieval

import (
	"regexp"
	"strings"
)

// modelToken matches model-number-shaped tokens in generated answers.
var modelToken = regexp.MustCompile(`\b[A-Z]{2,}[A-Z0-9]*(?:-[A-Z0-9]+)+\b`)

// GroundingReport lists answer claims the context pack does not support.
type GroundingReport struct {
	UnsupportedNumbers []string `json:"unsupported_numbers,omitempty"`
	UnsupportedModels  []string `json:"unsupported_models,omitempty"`
}

// Grounded reports whether every checked claim was found in the context.
func (r *GroundingReport) Grounded() bool {
	return len(r.UnsupportedNumbers) == 0 && len(r.UnsupportedModels) == 0
}

// CheckGrounding verifies that numeric values and model numbers in the
// answer appear somewhere in the retrieved context. It catches fabricated
// specs, not paraphrase; a supported number restated in other words passes.
func CheckGrounding(answer string, pack *ContextPack) *GroundingReport {
	report := &GroundingReport{}
	context := strings.ToUpper(pack.Text())
	for _, p := range pack.Products {
		context += " " + strings.ToUpper(p.ModelNumber)
	}

	seen := map[string]bool{}
	for _, num := range numberToken.FindAllString(answer, -1) {
		if seen[num] || trivialNumber(num) {
			continue
		}
		seen[num] = true
		if !containsNumber(context, num) {
			report.UnsupportedNumbers = append(report.UnsupportedNumbers, num)
		}
	}
	for _, model := range modelToken.FindAllString(strings.ToUpper(answer), -1) {
		if seen[model] {
			continue
		}
		seen[model] = true
		if !strings.Contains(context, model) {
			report.UnsupportedModels = append(report.UnsupportedModels, model)
		}
	}
	return report
}

// trivialNumber skips values too common to be evidence of fabrication:
// single digits and list ordinals.
func trivialNumber(s string) bool {
	return len(strings.TrimPrefix(s, "-")) <= 1
}

// containsNumber looks for the number in the context, tolerating a trailing
// ".0" on either side.
func containsNumber(context, num string) bool {
	if strings.Contains(context, num) {
		return true
	}
	if alt, ok := strings.CutSuffix(num, ".0"); ok {
		return strings.Contains(context, alt)
	}
	return strings.Contains(context, num+".0")
}
