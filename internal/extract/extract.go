// Package extract pulls plain text out of ingested files. PDFs go through
// MuPDF; text and markdown decode as UTF-8 with lossy replacement of
// invalid sequences.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Extraction errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtractionFailed  = errors.New("text extraction failed")
	ErrEmptyDocument     = errors.New("document contains no extractable text")
)

// Page is the text of one page.
type Page struct {
	Number int
	Text   string
}

// Result is the outcome of a successful extraction.
type Result struct {
	Text      string
	Pages     []Page
	PageCount int
	MimeType  string
}

// Extractor converts file bytes to text.
type Extractor struct{}

// New creates an extractor.
func New() *Extractor {
	return &Extractor{}
}

// Supported reports whether the filename's extension is handled.
func (e *Extractor) Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".txt", ".md", ".markdown":
		return true
	}
	return false
}

// Extract converts the file to text. The context bounds the PDF walk so a
// pathological file cannot stall an ingestion worker.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) (*Result, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return e.extractPDF(ctx, data)
	case ".txt", ".md", ".markdown":
		return e.extractText(filename, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (*Result, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	pages := make([]Page, 0, pageCount)
	var full strings.Builder
	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, i+1, err)
		}
		text = normalizeText(text)
		pages = append(pages, Page{Number: i + 1, Text: text})
		if full.Len() > 0 {
			full.WriteString("\n\n")
		}
		full.WriteString(text)
	}
	out := &Result{
		Text:      full.String(),
		Pages:     pages,
		PageCount: pageCount,
		MimeType:  "application/pdf",
	}
	if strings.TrimSpace(out.Text) == "" {
		return nil, ErrEmptyDocument
	}
	return out, nil
}

func (e *Extractor) extractText(filename string, data []byte) (*Result, error) {
	text := strings.ToValidUTF8(string(data), "�")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	mime := "text/plain"
	markdown := false
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".md" || ext == ".markdown" {
		mime = "text/markdown"
		markdown = true
	}

	var pages []Page
	var full strings.Builder
	for _, part := range splitPages(text, markdown) {
		part = normalizeText(part)
		if strings.TrimSpace(part) == "" {
			continue
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: part})
		if full.Len() > 0 {
			full.WriteString("\n\n")
		}
		full.WriteString(part)
	}
	if len(pages) == 0 {
		return nil, ErrEmptyDocument
	}
	return &Result{
		Text:      full.String(),
		Pages:     pages,
		PageCount: len(pages),
		MimeType:  mime,
	}, nil
}

// splitPages synthesizes page boundaries for flat text files: an explicit
// form-feed always breaks, and a markdown top-level heading starts a new
// page when no form-feeds are present.
func splitPages(text string, markdown bool) []string {
	if strings.Contains(text, "\f") {
		return strings.Split(text, "\f")
	}
	if !markdown {
		return []string{text}
	}
	var pages []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "# ") && len(current) > 0 {
			pages = append(pages, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	pages = append(pages, strings.Join(current, "\n"))
	return pages
}

// normalizeText standardizes line endings and strips control characters
// that leak out of PDF text layers.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || r >= 0x20 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
