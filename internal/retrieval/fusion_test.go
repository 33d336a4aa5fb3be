package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse_BothListsEmpty(t *testing.T) {
	assert.Nil(t, fuse(nil, nil))
}

func TestFuse_ChunkInBothListsRanksFirst(t *testing.T) {
	lexical := []LexicalMatch{{ChunkID: "a", Score: 3.0}, {ChunkID: "b", Score: 2.0}}
	vector := []vectorHit{{chunkID: "a", similarity: 0.9}, {chunkID: "c", similarity: 0.8}}

	fused := fuse(lexical, vector)
	require.Len(t, fused, 3)

	assert.Equal(t, "a", fused[0].ChunkID)
	assert.True(t, fused[0].InBoth)
	assert.Equal(t, 1, fused[0].LexicalRank)
	assert.Equal(t, 1, fused[0].VectorRank)
	assert.Equal(t, 1.0, fused[0].Score)

	// b and c have identical reciprocal-rank sums; the lexical score breaks
	// the tie in b's favor.
	assert.Equal(t, "b", fused[1].ChunkID)
	assert.Equal(t, "c", fused[2].ChunkID)
	assert.InDelta(t, fused[1].Score, fused[2].Score, 1e-12)
}

func TestFuse_ScoresNormalizedToTopHit(t *testing.T) {
	fused := fuse(nil, []vectorHit{{chunkID: "x", similarity: 0.9}, {chunkID: "y", similarity: 0.5}})
	require.Len(t, fused, 2)
	assert.Equal(t, "x", fused[0].ChunkID)
	assert.Equal(t, 1.0, fused[0].Score)
	assert.Less(t, fused[1].Score, 1.0)
}

func TestFuse_SingleListHitPenalizedNotDropped(t *testing.T) {
	lexical := []LexicalMatch{{ChunkID: "a", Score: 5.0}, {ChunkID: "b", Score: 4.0}, {ChunkID: "c", Score: 3.0}}
	vector := []vectorHit{{chunkID: "a", similarity: 0.95}}

	fused := fuse(lexical, vector)
	require.Len(t, fused, 3)
	for _, h := range fused {
		assert.Positive(t, h.Score)
	}
	assert.Equal(t, "a", fused[0].ChunkID)
}

func TestFuse_FullTieBreaksOnChunkID(t *testing.T) {
	// One hit per list at the same rank with a zero lexical score gives two
	// chunks with identical sums; the ID orders them.
	lexical := []LexicalMatch{{ChunkID: "b", Score: 0}}
	vector := []vectorHit{{chunkID: "a", similarity: 0.7}}

	fused := fuse(lexical, vector)
	require.Len(t, fused, 2)
	assert.Equal(t, "a", fused[0].ChunkID)
	assert.Equal(t, "b", fused[1].ChunkID)
}
