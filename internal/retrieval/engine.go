package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/cache"
	"github.com/coldstore-ai/product-expert/internal/embedding"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// ErrRetrievalUnavailable means neither search path could run.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Options tunes the engine.
type Options struct {
	VectorTopK    int
	LexicalTopK   int
	ContextBudget int // tokens
	MaxChunks     int
	CacheTTL      time.Duration
}

// Engine runs hybrid retrieval and packs results into a generator context.
type Engine struct {
	chunks   *storage.ChunkRepository
	products *storage.ProductRepository
	lexical  *LexicalIndex
	embedder embedding.Embedder
	parser   *Parser
	cache    cache.Client
	logger   *observability.Logger
	opts     Options
}

// NewEngine creates a retrieval engine. embedder and cache may be nil;
// retrieval then runs lexical-only and uncached.
func NewEngine(
	chunks *storage.ChunkRepository,
	products *storage.ProductRepository,
	lexical *LexicalIndex,
	embedder embedding.Embedder,
	parser *Parser,
	c cache.Client,
	logger *observability.Logger,
	opts Options,
) *Engine {
	if opts.VectorTopK <= 0 {
		opts.VectorTopK = 40
	}
	if opts.LexicalTopK <= 0 {
		opts.LexicalTopK = 40
	}
	if opts.ContextBudget <= 0 {
		opts.ContextBudget = 3000
	}
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = 12
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Engine{
		chunks:   chunks,
		products: products,
		lexical:  lexical,
		embedder: embedder,
		parser:   parser,
		cache:    c,
		logger:   logger,
		opts:     opts,
	}
}

// RetrievedChunk is one chunk in a context pack with its fused rank data.
type RetrievedChunk struct {
	Chunk       *storage.Chunk `json:"chunk"`
	Score       float64        `json:"score"`
	LexicalRank int            `json:"lexical_rank,omitempty"`
	VectorRank  int            `json:"vector_rank,omitempty"`
}

// ContextPack is the retrieval output: budgeted chunks plus the products
// they mention, ready to prompt a generator.
type ContextPack struct {
	Query      ParsedQuery        `json:"query"`
	Chunks     []RetrievedChunk   `json:"chunks"`
	Products   []*storage.Product `json:"products"`
	TokenCount int                `json:"token_count"`
	Degraded   bool               `json:"degraded"` // lexical-only, embedder was down
}

// Retrieve parses the question, runs both search paths, fuses, and packs.
func (e *Engine) Retrieve(ctx context.Context, question string) (*ContextPack, error) {
	parsed := e.parser.Parse(question)
	log := e.logger.WithContext(ctx)

	if pack, ok := e.cached(ctx, question); ok {
		log.Debug().Str("intent", string(parsed.Intent)).Msg("context pack served from cache")
		return pack, nil
	}

	lexHits, lexErr := e.lexical.Search(ctx, parsed.Expanded, e.opts.LexicalTopK)
	if lexErr != nil {
		log.Warn().Err(lexErr).Msg("lexical search failed")
	}

	vecHits, degraded := e.vectorSearch(ctx, question, log)

	if lexErr != nil && degraded {
		return nil, fmt.Errorf("%w: both search paths failed", ErrRetrievalUnavailable)
	}

	fused := fuse(lexHits, vecHits)
	pack, err := e.pack(ctx, parsed, fused)
	if err != nil {
		return nil, err
	}
	pack.Degraded = degraded
	e.store(ctx, question, pack)
	log.Info().
		Str("intent", string(parsed.Intent)).
		Int("chunks", len(pack.Chunks)).
		Int("tokens", pack.TokenCount).
		Bool("degraded", degraded).
		Msg("context pack built")
	return pack, nil
}

// vectorSearch embeds the question and runs nearest-neighbor search.
// Any failure degrades to lexical-only rather than failing the question.
func (e *Engine) vectorSearch(ctx context.Context, question string, log *observability.Logger) ([]vectorHit, bool) {
	if e.embedder == nil {
		return nil, true
	}
	vectors, err := e.embedder.Embed(ctx, []string{question})
	if err != nil || len(vectors) == 0 {
		log.Warn().Err(err).Msg("query embedding failed, lexical-only retrieval")
		return nil, true
	}
	matches, err := e.chunks.SearchByVector(ctx, vectors[0], e.opts.VectorTopK, nil)
	if err != nil {
		log.Warn().Err(err).Msg("vector search failed, lexical-only retrieval")
		return nil, true
	}
	hits := make([]vectorHit, len(matches))
	for i, m := range matches {
		hits[i] = vectorHit{chunkID: m.Chunk.ID.String(), similarity: m.Similarity}
	}
	return hits, false
}

// pack selects chunks under the token budget. Every distinct product in the
// fused candidates gets at least one chunk before remaining budget fills by
// rank, so a comparison never loses one side to the other's verbosity.
func (e *Engine) pack(ctx context.Context, parsed ParsedQuery, fused []FusedHit) (*ContextPack, error) {
	pack := &ContextPack{Query: parsed}

	type candidate struct {
		hit   FusedHit
		chunk *storage.Chunk
	}
	var candidates []candidate
	for _, h := range fused {
		if len(candidates) >= e.opts.MaxChunks*3 {
			break
		}
		id, err := uuid.Parse(h.ChunkID)
		if err != nil {
			continue
		}
		chunk, err := e.chunks.GetByID(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue // stale index entry
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
		}
		candidates = append(candidates, candidate{hit: h, chunk: chunk})
	}

	selected := make(map[string]bool)
	budget := e.opts.ContextBudget
	used := 0
	add := func(c candidate, force bool) bool {
		id := c.chunk.ID.String()
		if selected[id] || len(pack.Chunks) >= e.opts.MaxChunks {
			return false
		}
		if !force && used+c.chunk.TokenCount > budget && len(pack.Chunks) > 0 {
			return false
		}
		selected[id] = true
		used += c.chunk.TokenCount
		pack.Chunks = append(pack.Chunks, RetrievedChunk{
			Chunk:       c.chunk,
			Score:       c.hit.Score,
			LexicalRank: c.hit.LexicalRank,
			VectorRank:  c.hit.VectorRank,
		})
		return true
	}

	// First pass: one chunk per distinct product, best-ranked first.
	covered := make(map[uuid.UUID]bool)
	for _, c := range candidates {
		novel := false
		for _, pid := range c.chunk.ProductIDs {
			if !covered[pid] {
				novel = true
				break
			}
		}
		if !novel {
			continue
		}
		if add(c, len(pack.Chunks) == 0) {
			for _, pid := range c.chunk.ProductIDs {
				covered[pid] = true
			}
		}
	}
	// Second pass: fill remaining budget by fused rank.
	for _, c := range candidates {
		add(c, false)
	}
	pack.TokenCount = used

	products, err := e.loadProducts(ctx, pack)
	if err != nil {
		return nil, err
	}
	pack.Products = products
	return pack, nil
}

func (e *Engine) loadProducts(ctx context.Context, pack *ContextPack) ([]*storage.Product, error) {
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, rc := range pack.Chunks {
		for _, pid := range rc.Chunk.ProductIDs {
			if !seen[pid] {
				seen[pid] = true
				ids = append(ids, pid)
			}
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	products, err := e.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	return products, nil
}

// Text renders the pack as generator context: one block per chunk with its
// source section.
func (p *ContextPack) Text() string {
	var sb strings.Builder
	for i, rc := range p.Chunks {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		if rc.Chunk.SectionTitle != "" {
			sb.WriteString("[" + rc.Chunk.SectionTitle + "]\n")
		}
		sb.WriteString(rc.Chunk.Content)
	}
	return sb.String()
}

func (e *Engine) cacheKey(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(question))))
	return "ctx:" + hex.EncodeToString(sum[:16])
}

func (e *Engine) cached(ctx context.Context, question string) (*ContextPack, bool) {
	if e.cache == nil {
		return nil, false
	}
	raw, err := e.cache.Get(ctx, e.cacheKey(question))
	if err != nil {
		return nil, false
	}
	var pack ContextPack
	if err := json.Unmarshal(raw, &pack); err != nil {
		return nil, false
	}
	return &pack, true
}

func (e *Engine) store(ctx context.Context, question string, pack *ContextPack) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(pack)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, e.cacheKey(question), raw, e.opts.CacheTTL); err != nil {
		e.logger.Debug().Err(err).Msg("context pack cache write failed")
	}
}
