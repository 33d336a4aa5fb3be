package retrieval

import "sort"

// rrfK is the reciprocal-rank smoothing constant. 60 is the standard
// cross-domain value.
const rrfK = 60

// FusedHit is one chunk after rank fusion.
type FusedHit struct {
	ChunkID      string
	Score        float64 // normalized to [0,1], best hit = 1
	LexicalRank  int     // 1-indexed, 0 when absent from the lexical list
	VectorRank   int     // 1-indexed, 0 when absent from the vector list
	LexicalScore float64
	VectorScore  float64
	InBoth       bool
}

// fuse combines the two ranked lists with reciprocal rank fusion. A chunk
// missing from one list contributes that list's score at rank
// max(len(lexical), len(vector)) + 1, so single-list hits are penalized but
// not discarded. Ties break toward chunks in both lists, then higher
// lexical score, then chunk ID.
func fuse(lexical []LexicalMatch, vector []vectorHit) []FusedHit {
	if len(lexical) == 0 && len(vector) == 0 {
		return nil
	}
	byID := make(map[string]*FusedHit, len(lexical)+len(vector))
	get := func(id string) *FusedHit {
		if h, ok := byID[id]; ok {
			return h
		}
		h := &FusedHit{ChunkID: id}
		byID[id] = h
		return h
	}

	for i, m := range lexical {
		h := get(m.ChunkID)
		h.LexicalRank = i + 1
		h.LexicalScore = m.Score
		h.Score += 1.0 / float64(rrfK+i+1)
	}
	for i, m := range vector {
		h := get(m.chunkID)
		h.VectorRank = i + 1
		h.VectorScore = m.similarity
		h.Score += 1.0 / float64(rrfK+i+1)
		h.InBoth = h.LexicalRank > 0
	}

	missing := len(lexical) + 1
	if len(vector) >= len(lexical) {
		missing = len(vector) + 1
	}
	for _, h := range byID {
		if h.LexicalRank == 0 {
			h.Score += 1.0 / float64(rrfK+missing)
		}
		if h.VectorRank == 0 {
			h.Score += 1.0 / float64(rrfK+missing)
		}
	}

	out := make([]FusedHit, 0, len(byID))
	for _, h := range byID {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.InBoth != b.InBoth {
			return a.InBoth
		}
		if a.LexicalScore != b.LexicalScore {
			return a.LexicalScore > b.LexicalScore
		}
		return a.ChunkID < b.ChunkID
	})
	if max := out[0].Score; max > 0 {
		for i := range out {
			out[i].Score /= max
		}
	}
	return out
}

type vectorHit struct {
	chunkID    string
	similarity float64
}
