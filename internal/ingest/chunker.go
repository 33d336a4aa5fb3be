package ingest

import (
	"strings"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/extract"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// sectionHeaders are the headings data sheets use to open a section; a line
// equal to one of these (case-insensitive) starts a new chunk.
var sectionHeaders = []string{
	"specifications", "general specifications", "dimensions", "dimensional data",
	"electrical", "electrical data", "refrigeration", "refrigeration system",
	"construction", "performance", "performance data", "features",
	"standard features", "optional features", "warranty", "certifications",
	"controller", "temperature", "capacity", "interior", "exterior",
}

// Chunker splits extracted text into retrieval chunks.
type Chunker struct {
	registry     *registry.Registry
	targetTokens int
	hardCap      int
}

// NewChunker creates a chunker with the given soft token target per chunk.
func NewChunker(reg *registry.Registry, targetTokens int) *Chunker {
	if targetTokens <= 0 {
		targetTokens = 500
	}
	return &Chunker{
		registry:     reg,
		targetTokens: targetTokens,
		hardCap:      targetTokens * 2,
	}
}

// EstimateTokens approximates the token count of a text.
func EstimateTokens(s string) int {
	n := len(s) / 4
	if n == 0 && len(s) > 0 {
		n = 1
	}
	return n
}

// Chunk splits a document's pages into typed chunks. Section headers and
// spec tables become their own chunks; prose is packed to the token target
// on paragraph boundaries.
func (c *Chunker) Chunk(doc *storage.Document, pages []extract.Page, productIDs []uuid.UUID) []*storage.Chunk {
	var chunks []*storage.Chunk
	index := 0
	emit := func(content, section string, page int) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		chunk := &storage.Chunk{
			DocumentID:   doc.ID,
			ChunkIndex:   index,
			Content:      content,
			ChunkType:    c.classifyChunk(content, section),
			PageNumber:   page,
			SectionTitle: section,
			ProductIDs:   productIDs,
			SpecNames:    c.specNames(content),
			TokenCount:   EstimateTokens(content),
		}
		chunks = append(chunks, chunk)
		index++
	}

	for _, page := range pages {
		section := ""
		var buf strings.Builder
		flush := func() {
			emit(buf.String(), section, page.Number)
			buf.Reset()
		}
		for _, para := range splitParagraphs(page.Text) {
			if header, ok := matchHeader(para); ok {
				flush()
				section = header
				buf.WriteString(para)
				buf.WriteString("\n")
				continue
			}
			if EstimateTokens(buf.String())+EstimateTokens(para) > c.targetTokens && buf.Len() > 0 {
				flush()
			}
			if EstimateTokens(para) > c.hardCap {
				flush()
				for _, piece := range hardSplit(para, c.hardCap*4) {
					emit(piece, section, page.Number)
				}
				continue
			}
			buf.WriteString(para)
			buf.WriteString("\n\n")
		}
		flush()
	}
	return chunks
}

// classifyChunk types a chunk by its content shape and section.
func (c *Chunker) classifyChunk(content, section string) storage.ChunkType {
	lower := strings.ToLower(content)
	sectionLower := strings.ToLower(section)
	switch {
	case strings.Contains(sectionLower, "dimension") || dimensionHeavy(lower):
		return storage.ChunkTypeDimensional
	case strings.Contains(sectionLower, "performance") ||
		(strings.Contains(lower, "uniformity") && strings.Contains(lower, "stability")):
		return storage.ChunkTypePerformanceData
	case tabular(content) || strings.Contains(sectionLower, "specification") ||
		strings.Contains(sectionLower, "electrical") || strings.Contains(sectionLower, "refrigeration"):
		return storage.ChunkTypeSpecBlock
	case strings.Contains(sectionLower, "feature") || len(content) > 300:
		return storage.ChunkTypeDescription
	default:
		return storage.ChunkTypeText
	}
}

// specNames resolves registry synonyms mentioned in the content.
func (c *Chunker) specNames(content string) []string {
	if c.registry == nil {
		return nil
	}
	lower := strings.ToLower(content)
	seen := map[string]bool{}
	var names []string
	for _, e := range c.registry.All() {
		if seen[e.CanonicalName] || !e.IsSearchable {
			continue
		}
		terms := append([]string{e.DisplayName}, e.Synonyms...)
		for _, t := range terms {
			t = strings.ToLower(strings.TrimSpace(t))
			if len(t) >= 4 && strings.Contains(lower, t) {
				seen[e.CanonicalName] = true
				names = append(names, e.CanonicalName)
				break
			}
		}
	}
	return names
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func matchHeader(para string) (string, bool) {
	firstLine := para
	if i := strings.IndexByte(para, '\n'); i >= 0 {
		firstLine = para[:i]
	}
	t := strings.ToLower(strings.TrimSpace(strings.TrimRight(firstLine, ":")))
	for _, h := range sectionHeaders {
		if t == h {
			return strings.TrimSpace(strings.TrimRight(firstLine, ":")), true
		}
	}
	return "", false
}

// tabular detects label/value tables: most lines split on a colon, tab,
// or wide space run.
func tabular(content string) bool {
	lines := strings.Split(content, "\n")
	if len(lines) < 3 {
		return false
	}
	hits := 0
	for _, l := range lines {
		if strings.Contains(l, ":") || strings.Contains(l, "\t") || strings.Contains(l, "   ") {
			hits++
		}
	}
	return hits*2 >= len(lines)
}

func dimensionHeavy(lower string) bool {
	return strings.Count(lower, `"`)+strings.Count(lower, " in.") >= 4
}

func hardSplit(s string, maxBytes int) []string {
	var out []string
	for len(s) > maxBytes {
		cut := strings.LastIndexByte(s[:maxBytes], ' ')
		if cut <= 0 {
			cut = maxBytes
		}
		out = append(out, strings.TrimSpace(s[:cut]))
		s = strings.TrimSpace(s[cut:])
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}
