package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ChunkRepository stores retrieval chunks and serves vector search.
// On Postgres nearest-neighbor search runs in SQL via pgvector; on SQLite
// the repository scans candidates and scores cosine similarity in-process.
type ChunkRepository struct {
	db     DB
	driver string
	dim    int
}

// NewChunkRepository creates a chunk repository bound to the store's
// driver and embedding dimension.
func NewChunkRepository(s *Store) *ChunkRepository {
	return &ChunkRepository{db: s, driver: s.Driver(), dim: s.EmbeddingDim()}
}

const chunkColumns = `id, document_id, chunk_index, content, chunk_type, page_number,
	section_title, product_ids, spec_names, embedding, token_count, created_at`

// CreateBatch inserts chunks for a document. Chunks with embeddings must
// match the configured dimension; unembedded chunks pass NULL and are
// served by lexical search only.
func (r *ChunkRepository) CreateBatch(ctx context.Context, chunks []*Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) > 0 && len(c.Embedding) != r.dim {
			return fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDim, len(c.Embedding), r.dim)
		}
	}
	for _, c := range chunks {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.ChunkType == "" {
			c.ChunkType = ChunkTypeText
		}
		c.CreatedAt = time.Now()

		productIDs, err := jsonArg(orEmptyIDs(c.ProductIDs))
		if err != nil {
			return err
		}
		specNames, err := jsonArg(orEmpty(c.SpecNames))
		if err != nil {
			return err
		}
		var embedding interface{}
		if len(c.Embedding) > 0 {
			embedding = encodeVector(c.Embedding)
		}
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO chunks (`+chunkColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, c.ID, c.DocumentID, c.ChunkIndex, c.Content, c.ChunkType, c.PageNumber,
			c.SectionTitle, productIDs, specNames, embedding, c.TokenCount, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return nil
}

// DeleteByDocument removes all chunks of a document before re-ingestion.
func (r *ChunkRepository) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetByID retrieves a single chunk.
func (r *ChunkRepository) GetByID(ctx context.Context, id uuid.UUID) (*Chunk, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id = $1`, id)
	c, err := scanChunkRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// ListByDocument returns a document's chunks in order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*Chunk, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ListAll streams every chunk, used to rebuild the lexical index.
func (r *ChunkRepository) ListAll(ctx context.Context, fn func(*Chunk) error) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

// VectorMatch is one nearest-neighbor hit.
type VectorMatch struct {
	Chunk      *Chunk
	Similarity float64
}

// SearchByVector returns the topK chunks nearest to the query embedding
// by cosine similarity, optionally restricted to chunk types.
func (r *ChunkRepository) SearchByVector(ctx context.Context, query []float32, topK int, types []ChunkType) ([]VectorMatch, error) {
	if len(query) != r.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrEmbeddingDim, len(query), r.dim)
	}
	if topK <= 0 {
		topK = 40
	}
	if r.driver == DriverPostgres {
		return r.searchPgvector(ctx, query, topK, types)
	}
	return r.searchScan(ctx, query, topK, types)
}

func (r *ChunkRepository) searchPgvector(ctx context.Context, query []float32, topK int, types []ChunkType) ([]VectorMatch, error) {
	sqlQuery := `SELECT ` + chunkColumns + `, 1 - (embedding <=> $1::vector) AS similarity
		FROM chunks WHERE embedding IS NOT NULL`
	args := []interface{}{encodeVector(query)}
	if len(types) > 0 {
		placeholders := ""
		for i, t := range types {
			if i > 0 {
				placeholders += ", "
			}
			args = append(args, t)
			placeholders += fmt.Sprintf("$%d", len(args))
		}
		sqlQuery += ` AND chunk_type IN (` + placeholders + `)`
	}
	args = append(args, topK)
	sqlQuery += fmt.Sprintf(` ORDER BY embedding <=> $1::vector LIMIT $%d`, len(args))

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []VectorMatch
	for rows.Next() {
		c := &Chunk{}
		var productIDs, specNames []byte
		var embedding sql.NullString
		var similarity float64
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.ChunkType, &c.PageNumber,
			&c.SectionTitle, &productIDs, &specNames, &embedding, &c.TokenCount, &c.CreatedAt,
			&similarity,
		); err != nil {
			return nil, err
		}
		if err := finishChunk(c, productIDs, specNames, embedding); err != nil {
			return nil, err
		}
		matches = append(matches, VectorMatch{Chunk: c, Similarity: similarity})
	}
	return matches, rows.Err()
}

func (r *ChunkRepository) searchScan(ctx context.Context, query []float32, topK int, types []ChunkType) ([]VectorMatch, error) {
	typeSet := map[ChunkType]bool{}
	for _, t := range types {
		typeSet[t] = true
	}
	var matches []VectorMatch
	err := r.ListAll(ctx, func(c *Chunk) error {
		if len(c.Embedding) == 0 {
			return nil
		}
		if len(typeSet) > 0 && !typeSet[c.ChunkType] {
			return nil
		}
		matches = append(matches, VectorMatch{Chunk: c, Similarity: cosine(query, c.Embedding)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns total chunks and how many carry an embedding.
func (r *ChunkRepository) Count(ctx context.Context) (total, embedded int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(embedding) FROM chunks`).Scan(&total, &embedded)
	return total, embedded, err
}

func scanChunkRow(row *sql.Row) (*Chunk, error) {
	c := &Chunk{}
	var productIDs, specNames []byte
	var embedding sql.NullString
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.ChunkType, &c.PageNumber,
		&c.SectionTitle, &productIDs, &specNames, &embedding, &c.TokenCount, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := finishChunk(c, productIDs, specNames, embedding); err != nil {
		return nil, err
	}
	return c, nil
}

func scanChunkRows(rows *sql.Rows) (*Chunk, error) {
	c := &Chunk{}
	var productIDs, specNames []byte
	var embedding sql.NullString
	if err := rows.Scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.ChunkType, &c.PageNumber,
		&c.SectionTitle, &productIDs, &specNames, &embedding, &c.TokenCount, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := finishChunk(c, productIDs, specNames, embedding); err != nil {
		return nil, err
	}
	return c, nil
}

func scanChunks(rows *sql.Rows) ([]*Chunk, error) {
	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunkRows(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func finishChunk(c *Chunk, productIDs, specNames []byte, embedding sql.NullString) error {
	if err := jsonScan(productIDs, &c.ProductIDs); err != nil {
		return err
	}
	if err := jsonScan(specNames, &c.SpecNames); err != nil {
		return err
	}
	if embedding.Valid && embedding.String != "" {
		v, err := decodeVector(embedding.String)
		if err != nil {
			return err
		}
		c.Embedding = v
	}
	return nil
}

func orEmptyIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}

func cosine(a []float32, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
