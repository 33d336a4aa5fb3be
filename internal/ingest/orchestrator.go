// Package ingest runs the document pipeline: dedup, extraction,
// classification, model resolution, field mapping, conflict-aware product
// upsert, chunking, and embedding.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coldstore-ai/product-expert/internal/classify"
	"github.com/coldstore-ai/product-expert/internal/conflict"
	"github.com/coldstore-ai/product-expert/internal/embedding"
	"github.com/coldstore-ai/product-expert/internal/extract"
	"github.com/coldstore-ai/product-expert/internal/fieldmap"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/resolve"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

// ErrShuttingDown rejects submissions during drain.
var ErrShuttingDown = errors.New("ingestion shutting down")

// LexicalIndexer receives persisted chunks for the keyword index.
type LexicalIndexer interface {
	IndexChunks(ctx context.Context, chunks []*storage.Chunk) error
}

// FileInput is one uploaded file.
type FileInput struct {
	Filename string
	Data     []byte
}

// Options tunes the orchestrator.
type Options struct {
	Workers            int
	QueueDepth         int
	ExtractTimeout     time.Duration
	ShutdownTimeout    time.Duration
	ChunkTargetTokens  int
	AutoCreateProducts bool
	DocumentDir        string
}

// Orchestrator owns the worker pool and the per-product serialization.
type Orchestrator struct {
	store     *storage.Store
	repos     *storage.Repositories
	registry  registryAPI
	extractor *extract.Extractor
	classif   *classify.Classifier
	resolver  *resolve.Resolver
	mapper    *fieldmap.Mapper
	engine    *conflict.Engine
	batcher   *embedding.Batcher
	chunker   *Chunker
	lexical   LexicalIndexer
	logger    *observability.Logger
	opts      Options

	productLocks keyedMutex
	queue        chan task
	wg           sync.WaitGroup
	cancel       context.CancelFunc

	mu       sync.Mutex
	draining bool
}

// registryAPI is the slice of the registry the pipeline needs.
type registryAPI interface {
	Get(canonicalName string) (*storage.RegistryEntry, bool)
}

type task struct {
	jobID uuid.UUID
	file  FileInput
}

// New creates an orchestrator. Call Start before submitting.
func New(
	store *storage.Store,
	repos *storage.Repositories,
	reg registryAPI,
	extractor *extract.Extractor,
	resolver *resolve.Resolver,
	mapper *fieldmap.Mapper,
	engine *conflict.Engine,
	batcher *embedding.Batcher,
	chunker *Chunker,
	lexical LexicalIndexer,
	logger *observability.Logger,
	opts Options,
) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 64
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &Orchestrator{
		store:        store,
		repos:        repos,
		registry:     reg,
		extractor:    extractor,
		classif:      classify.New(),
		resolver:     resolver,
		mapper:       mapper,
		engine:       engine,
		batcher:      batcher,
		chunker:      chunker,
		lexical:      lexical,
		logger:       logger,
		opts:         opts,
		productLocks: newKeyedMutex(),
		queue:        make(chan task, opts.QueueDepth),
	}
}

// Start launches the worker pool.
func (o *Orchestrator) Start(ctx context.Context) {
	ctx, o.cancel = context.WithCancel(ctx)
	for i := 0; i < o.opts.Workers; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
	o.logger.Info().Int("workers", o.opts.Workers).Msg("ingestion pool started")
}

// Stop drains the queue: no new work starts, in-flight documents get up to
// the shutdown timeout to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.draining = true
	o.mu.Unlock()
	close(o.queue)

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(o.opts.ShutdownTimeout):
		o.logger.Warn().Msg("shutdown timeout reached, cancelling in-flight work")
		if o.cancel != nil {
			o.cancel()
		}
		<-done
	}
}

// Submit creates a job and enqueues every file. The returned job is in
// status queued; workers update it as files finish.
func (o *Orchestrator) Submit(ctx context.Context, files []FileInput, submittedBy string) (*storage.IngestionJob, error) {
	o.mu.Lock()
	if o.draining {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	o.mu.Unlock()

	job := &storage.IngestionJob{
		TotalFiles:  len(files),
		SubmittedBy: submittedBy,
	}
	if err := o.repos.Jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	for _, f := range files {
		select {
		case o.queue <- task{jobID: job.ID, file: f}:
		case <-ctx.Done():
			return job, ctx.Err()
		}
	}
	return job, nil
}

func (o *Orchestrator) worker(ctx context.Context, id int) {
	defer o.wg.Done()
	for t := range o.queue {
		if ctx.Err() != nil {
			return
		}
		o.processFile(ctx, t)
	}
}

// outcome aggregates one file's effect on the job counters.
type outcome struct {
	failed       bool
	duplicate    bool
	newProducts  int
	updated      int
	conflicts    int
	chunks       int
	newSpecs     int
}

func (o *Orchestrator) processFile(ctx context.Context, t task) {
	log := o.logger.WithJob(t.jobID.String()).WithDocument("", t.file.Filename)
	out := o.runPipeline(ctx, t, log)
	o.applyOutcome(ctx, t.jobID, out)
}

func (o *Orchestrator) runPipeline(ctx context.Context, t task, log *observability.Logger) outcome {
	var out outcome

	sum := sha256.Sum256(t.file.Data)
	checksum := hex.EncodeToString(sum[:])

	// Identical bytes are a no-op returning the existing document.
	if existing, err := o.repos.Documents.GetByChecksum(ctx, checksum); err == nil {
		log.Info().Str("document_id", existing.ID.String()).Msg("duplicate upload skipped")
		out.duplicate = true
		return out
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Error().Err(err).Msg("checksum lookup failed")
		out.failed = true
		return out
	}

	sourceURI, err := o.persistFile(checksum, t.file.Data)
	if err != nil {
		log.Error().Err(err).Msg("persist upload failed")
		out.failed = true
		return out
	}

	doc := &storage.Document{
		Filename:       t.file.Filename,
		ChecksumSHA256: checksum,
		SourceURI:      sourceURI,
		FileSizeBytes:  int64(len(t.file.Data)),
		Status:         storage.DocStatusProcessing,
	}
	if err := o.repos.Documents.Create(ctx, doc); err != nil {
		if errors.Is(err, storage.ErrDuplicateDocument) {
			out.duplicate = true
			return out
		}
		log.Error().Err(err).Msg("create document failed")
		out.failed = true
		return out
	}
	log = o.logger.WithJob(t.jobID.String()).WithDocument(doc.ID.String(), doc.Filename)

	fail := func(stage string, err error) outcome {
		log.Error().Err(err).Str("stage", stage).Msg("ingestion stage failed")
		doc.Status = storage.DocStatusFailed
		o.repos.Documents.AppendLog(ctx, doc, stage, "failed", err.Error())
		o.repos.Documents.Update(ctx, doc)
		out.failed = true
		return out
	}

	// Extraction, bounded so a bad PDF cannot hold a worker.
	extractCtx, cancel := context.WithTimeout(ctx, o.opts.ExtractTimeout)
	res, err := o.extractor.Extract(extractCtx, t.file.Filename, t.file.Data)
	cancel()
	if err != nil {
		return fail("extract", err)
	}
	doc.ExtractedText = res.Text
	doc.PageCount = res.PageCount
	doc.MimeType = res.MimeType
	o.repos.Documents.AppendLog(ctx, doc, "extract", "ok",
		fmt.Sprintf("%d pages", res.PageCount))

	cls := o.classif.Classify(res.Text, t.file.Filename)
	doc.DocType = cls.DocType
	doc.BrandCode = cls.BrandCode
	doc.Revision = cls.Revision
	o.repos.Documents.AppendLog(ctx, doc, "classify", "ok", string(cls.DocType))

	candidates := o.resolver.Resolve(res.Text, cls.BrandCode)
	triples := fieldmap.Harvest(res.Text)
	familyCode := ""
	if len(candidates) > 0 {
		familyCode = candidates[0].Family
	}
	mapped, err := o.mapper.Map(ctx, triples, familyCode)
	if err != nil {
		return fail("fieldmap", err)
	}
	for _, m := range mapped.Mapped {
		if m.AutoDiscover {
			out.newSpecs++
		}
	}

	var productIDs []uuid.UUID
	for _, cand := range candidates {
		result, err := o.upsertProduct(ctx, cand, mapped, doc)
		if err != nil {
			log.Error().Err(err).Str("model_number", cand.ModelNumber).Msg("product upsert failed")
			continue
		}
		productIDs = append(productIDs, result.productID)
		if result.created {
			out.newProducts++
		} else if result.changed {
			out.updated++
		}
		out.conflicts += result.conflicts
	}
	o.repos.Documents.AppendLog(ctx, doc, "upsert", "ok",
		fmt.Sprintf("%d products", len(productIDs)))

	chunks := o.chunker.Chunk(doc, res.Pages, productIDs)
	if err := o.embedChunks(ctx, chunks); err != nil {
		// Retrieval degrades to lexical-only for these chunks.
		log.Warn().Err(err).Msg("embedding unavailable, chunks stored without vectors")
	}
	if err := o.repos.Chunks.CreateBatch(ctx, chunks); err != nil {
		return fail("chunk", err)
	}
	if o.lexical != nil {
		if err := o.lexical.IndexChunks(ctx, chunks); err != nil {
			log.Warn().Err(err).Msg("lexical indexing failed")
		}
	}
	out.chunks = len(chunks)
	o.repos.Documents.AppendLog(ctx, doc, "chunk", "ok", fmt.Sprintf("%d chunks", len(chunks)))

	doc.Status = storage.DocStatusProcessed
	if err := o.repos.Documents.Update(ctx, doc); err != nil {
		return fail("finalize", err)
	}
	log.Info().
		Int("products", len(productIDs)).
		Int("chunks", out.chunks).
		Int("conflicts", out.conflicts).
		Msg("document processed")
	return out
}

// persistFile writes content-addressed bytes under the document dir.
func (o *Orchestrator) persistFile(checksum string, data []byte) (string, error) {
	if o.opts.DocumentDir == "" {
		return "", nil
	}
	dir := filepath.Join(o.opts.DocumentDir, "documents", checksum[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, checksum)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (o *Orchestrator) embedChunks(ctx context.Context, chunks []*storage.Chunk) error {
	if o.batcher == nil || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	res, err := o.batcher.EmbedAll(ctx, texts)
	if err != nil {
		return err
	}
	for i, v := range res.Vectors {
		chunks[i].Embedding = v
	}
	return nil
}

func (o *Orchestrator) applyOutcome(ctx context.Context, jobID uuid.UUID, out outcome) {
	// Counter updates race across workers of the same job; re-read under a
	// coarse lock so increments are not lost.
	o.mu.Lock()
	defer o.mu.Unlock()
	job, err := o.repos.Jobs.GetByID(ctx, jobID)
	if err != nil {
		o.logger.Error().Err(err).Msg("job refresh failed")
		return
	}
	if job.StartedAt == nil {
		now := time.Now()
		job.StartedAt = &now
		job.Status = storage.JobStatusProcessing
	}
	switch {
	case out.duplicate:
		job.SkippedDuplicates++
		job.ProcessedFiles++
	case out.failed:
		job.FailedFiles++
	default:
		job.ProcessedFiles++
	}
	job.NewProducts += out.newProducts
	job.UpdatedProducts += out.updated
	job.ConflictsFound += out.conflicts
	job.ChunksCreated += out.chunks
	job.NewSpecsDiscovered += out.newSpecs

	if job.ProcessedFiles+job.FailedFiles >= job.TotalFiles {
		now := time.Now()
		job.CompletedAt = &now
		if job.FailedFiles == job.TotalFiles && job.TotalFiles > 0 {
			job.Status = storage.JobStatusFailed
		} else {
			job.Status = storage.JobStatusCompleted
		}
	}
	if err := o.repos.Jobs.Update(ctx, job); err != nil {
		o.logger.Error().Err(err).Msg("job update failed")
	}
}

// keyedMutex serializes work per model number.
type keyedMutex struct {
	mu    *sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() keyedMutex {
	return keyedMutex{mu: &sync.Mutex{}, locks: map[string]*sync.Mutex{}}
}

func (k keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()
	m.Lock()
	return m.Unlock
}
