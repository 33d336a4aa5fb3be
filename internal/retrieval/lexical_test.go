package retrieval

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldstore-ai/product-expert/internal/storage"
)

func memIndex(t *testing.T) *LexicalIndex {
	t.Helper()
	idx, err := NewLexicalIndex("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func chunk(content, section string) *storage.Chunk {
	return &storage.Chunk{
		ID:           uuid.New(),
		Content:      content,
		SectionTitle: section,
		ChunkType:    storage.ChunkTypeText,
	}
}

func TestLexicalIndex_IndexAndSearch(t *testing.T) {
	idx := memIndex(t)
	ctx := context.Background()

	hit := chunk("The ABT-HC-23S premier refrigerator holds 23 cu ft.", "Specifications")
	miss := chunk("Cryogenic vapor shippers maintain -190C during transport.", "Overview")
	require.NoError(t, idx.IndexChunks(ctx, []*storage.Chunk{hit, miss}))
	assert.Equal(t, uint64(2), idx.DocCount())

	matches, err := idx.Search(ctx, "premier refrigerator", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, hit.ID.String(), matches[0].ChunkID)
	assert.Positive(t, matches[0].Score)
}

func TestLexicalIndex_EmptyQuery(t *testing.T) {
	idx := memIndex(t)
	matches, err := idx.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLexicalIndex_DeleteChunks(t *testing.T) {
	idx := memIndex(t)
	ctx := context.Background()

	c := chunk("upright freezer with manual defrost", "")
	require.NoError(t, idx.IndexChunks(ctx, []*storage.Chunk{c}))
	require.NoError(t, idx.DeleteChunks([]string{c.ID.String()}))

	matches, err := idx.Search(ctx, "freezer", 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Zero(t, idx.DocCount())
}

func TestLexicalIndex_ClosedIndexRejectsOperations(t *testing.T) {
	idx := memIndex(t)
	require.NoError(t, idx.Close())

	_, err := idx.Search(context.Background(), "anything", 5)
	assert.Error(t, err)
	assert.Zero(t, idx.DocCount())
	assert.Error(t, idx.IndexChunks(context.Background(), []*storage.Chunk{chunk("x", "")}))
}
