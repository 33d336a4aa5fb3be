package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

// lexicalDoc is the shape indexed per chunk. Model numbers and spec names
// are flattened into searchable text alongside the content.
type lexicalDoc struct {
	Content   string `json:"content"`
	Section   string `json:"section"`
	SpecNames string `json:"spec_names"`
	ChunkType string `json:"chunk_type"`
}

// LexicalIndex is the keyword side of hybrid search, backed by bleve.
// An empty path keeps the index in memory.
type LexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// NewLexicalIndex opens or creates the index at path. Pass "" for an
// in-memory index.
func NewLexicalIndex(path string) (*LexicalIndex, error) {
	mapping := bleve.NewIndexMapping()
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(mapping)
	} else {
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, mapping)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return &LexicalIndex{index: idx}, nil
}

// IndexChunks adds chunks to the index in one batch.
func (l *LexicalIndex) IndexChunks(ctx context.Context, chunks []*storage.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("lexical index closed")
	}
	batch := l.index.NewBatch()
	for _, c := range chunks {
		doc := lexicalDoc{
			Content:   c.Content,
			Section:   c.SectionTitle,
			SpecNames: strings.Join(c.SpecNames, " "),
			ChunkType: string(c.ChunkType),
		}
		if err := batch.Index(c.ID.String(), doc); err != nil {
			return fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}
	return l.index.Batch(batch)
}

// DeleteChunks removes chunk IDs from the index.
func (l *LexicalIndex) DeleteChunks(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return fmt.Errorf("lexical index closed")
	}
	batch := l.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return l.index.Batch(batch)
}

// LexicalMatch is one ranked keyword hit.
type LexicalMatch struct {
	ChunkID string
	Score   float64
}

// Search runs a keyword query and returns up to limit ranked hits.
func (l *LexicalIndex) Search(ctx context.Context, query string, limit int) ([]LexicalMatch, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, fmt.Errorf("lexical index closed")
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	match := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(match)
	req.Size = limit
	res, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	out := make([]LexicalMatch, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, LexicalMatch{ChunkID: hit.ID, Score: hit.Score})
	}
	return out, nil
}

// DocCount reports the number of indexed chunks.
func (l *LexicalIndex) DocCount() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0
	}
	n, _ := l.index.DocCount()
	return n
}

// Close releases the index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}
