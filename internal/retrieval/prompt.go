package retrieval

import "strings"

// BuildPrompt renders a context pack and question into a generator prompt.
// The instructions pin the generator to the supplied context; the grounding
// check catches what the pinning misses.
func BuildPrompt(pack *ContextPack, question string) string {
	var sb strings.Builder
	sb.WriteString("You are a laboratory cold-storage equipment expert. Answer using only the product documentation below. ")
	sb.WriteString("If the documentation does not contain the answer, say so; never invent specifications or model numbers.\n\n")
	sb.WriteString("Documentation:\n")
	sb.WriteString(pack.Text())
	if len(pack.Products) > 0 {
		sb.WriteString("\n\nProducts in context:")
		for _, p := range pack.Products {
			sb.WriteString(" " + p.ModelNumber)
		}
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\nAnswer:")
	return sb.String()
}
