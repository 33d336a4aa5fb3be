package embedding

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Batcher fans texts out to the embedder in fixed-size batches with
// bounded concurrency. Permanent failures on a batch null out that
// batch's vectors and processing continues; transient exhaustion aborts.
type Batcher struct {
	embedder    Embedder
	batchSize   int
	concurrency int
}

// NewBatcher creates a batcher. Defaults: batch 16, 4 in flight.
func NewBatcher(embedder Embedder, batchSize, concurrency int) *Batcher {
	if batchSize <= 0 {
		batchSize = 16
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Batcher{embedder: embedder, batchSize: batchSize, concurrency: concurrency}
}

// Result of one EmbedAll call. Vectors[i] is nil when text i was skipped
// by a permanent provider failure.
type Result struct {
	Vectors   [][]float32
	Permanent int // texts dropped by permanent failures
}

// EmbedAll embeds every text, preserving order.
func (b *Batcher) EmbedAll(ctx context.Context, texts []string) (*Result, error) {
	res := &Result{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return res, nil
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for start := 0; start < len(texts); start += b.batchSize {
		start := start
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			vectors, err := b.embedder.Embed(ctx, texts[start:end])
			if err != nil {
				if errors.Is(err, ErrPermanent) {
					mu.Lock()
					res.Permanent += end - start
					mu.Unlock()
					return nil
				}
				return err
			}
			mu.Lock()
			copy(res.Vectors[start:end], vectors)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
