package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coldstore-ai/product-expert/internal/conflict"
	"github.com/coldstore-ai/product-expert/internal/extract"
	"github.com/coldstore-ai/product-expert/internal/fieldmap"
	"github.com/coldstore-ai/product-expert/internal/observability"
	"github.com/coldstore-ai/product-expert/internal/registry"
	"github.com/coldstore-ai/product-expert/internal/resolve"
	"github.com/coldstore-ai/product-expert/internal/storage"
)

func testPipeline(t *testing.T, opts Options) (*Orchestrator, *storage.Repositories) {
	t.Helper()
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{
		Driver:       storage.DriverSQLite,
		DSN:          ":memory:",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))

	repos := storage.NewRepositories(store)
	require.NoError(t, registry.Seed(ctx, repos.Registry))
	reg, err := registry.New(ctx, repos.Registry, observability.NopLogger())
	require.NoError(t, err)

	if opts.Workers == 0 {
		opts.Workers = 1
	}
	o := New(
		store, repos, reg,
		extract.New(), resolve.Default(),
		fieldmap.New(reg, true),
		conflict.New(0, true),
		nil, NewChunker(reg, 400), nil,
		observability.NopLogger(), opts,
	)
	return o, repos
}

func seedDoc(t *testing.T, repos *storage.Repositories, revision string) *storage.Document {
	t.Helper()
	doc := &storage.Document{
		Filename:       "sheet.txt",
		ChecksumSHA256: uuid.NewString(),
		Status:         storage.DocStatusProcessing,
		Revision:       revision,
	}
	require.NoError(t, repos.Documents.Create(context.Background(), doc))
	return doc
}

func premierCandidate(capacity float64) resolve.Candidate {
	return resolve.Candidate{
		ModelNumber:    "ABT-HC-23S",
		Brand:          "ABS",
		Family:         "premier_lab_refrigerator",
		ControllerTier: "premier",
		DecodedFields: storage.SpecMap{
			"storage_capacity_cuft": storage.Numeric(capacity, "cuft"),
			"door_type":             storage.Enum("solid"),
		},
	}
}

func harvested(name string, v storage.SpecValue) fieldmap.Mapped {
	return fieldmap.Mapped{CanonicalName: name, Value: v}
}

func TestIncomingSpecs_PreservesExtractionOrder(t *testing.T) {
	cand := premierCandidate(23)
	mapped := &fieldmap.Result{Mapped: []fieldmap.Mapped{
		harvested("voltage_v", storage.Numeric(115, "v")),
		harvested("uniformity_c", storage.Numeric(3, "c")),
		harvested("door_type", storage.Enum("glass")),
		harvested("uniformity_c", storage.Numeric(2, "c")),
	}}

	updates := incomingSpecs(cand, mapped)
	names := make([]string, len(updates))
	for i, u := range updates {
		names[i] = u.name
	}
	// Decoded fields lead, then harvested values in document order.
	assert.Equal(t, []string{"door_type", "storage_capacity_cuft", "voltage_v", "uniformity_c"}, names)

	// The document body overrides the model-number decode without moving it.
	assert.Equal(t, "glass", updates[0].value.Text)
	// A label repeated later in the document wins, in its first position.
	assert.Equal(t, 2.0, updates[3].value.Number)
}

func TestUpsert_CreatesProductWithSnapshotAndAudit(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()
	doc := seedDoc(t, repos, "Rev 03.18.24")

	res, err := o.upsertProduct(ctx, premierCandidate(23), &fieldmap.Result{}, doc)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.created)
	assert.True(t, res.changed)

	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	assert.Equal(t, "ABS", p.BrandCode)
	assert.Equal(t, "Rev 03.18.24", p.Revision)
	v, ok := p.SpecValueOf("storage_capacity_cuft")
	require.True(t, ok)
	assert.Equal(t, 23.0, v.Number)

	versions, err := repos.Versions.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)

	entries, err := repos.Audit.ListByResource(ctx, "product", p.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "create", entries[0].Action)

	links, err := repos.Links.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestUpsert_AutoCreateDisabledSkipsUnknownModels(t *testing.T) {
	o, repos := testPipeline(t, Options{})
	ctx := context.Background()

	res, err := o.upsertProduct(ctx, premierCandidate(23), &fieldmap.Result{}, seedDoc(t, repos, ""))
	require.NoError(t, err)
	assert.Nil(t, res)

	_, err = repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpsert_IdenticalValuesAreNoop(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()

	_, err := o.upsertProduct(ctx, premierCandidate(23), &fieldmap.Result{}, seedDoc(t, repos, "Rev 03.18.24"))
	require.NoError(t, err)

	res, err := o.upsertProduct(ctx, premierCandidate(23), &fieldmap.Result{}, seedDoc(t, repos, "Rev 03.18.24"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.False(t, res.created)
	assert.False(t, res.changed)
	assert.Zero(t, res.conflicts)

	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)
}

func TestUpsert_NewerRevisionOverwrites(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()

	_, err := o.upsertProduct(ctx, premierCandidate(23), &fieldmap.Result{}, seedDoc(t, repos, "Rev 01.15.24"))
	require.NoError(t, err)

	newer := &fieldmap.Result{Mapped: []fieldmap.Mapped{
		harvested("storage_capacity_cuft", storage.Numeric(30, "cuft")),
	}}
	res, err := o.upsertProduct(ctx, premierCandidate(23), newer, seedDoc(t, repos, "Rev 03.18.25"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.changed)
	assert.Zero(t, res.conflicts)

	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)
	assert.Equal(t, "Rev 03.18.25", p.Revision)
	v, ok := p.SpecValueOf("storage_capacity_cuft")
	require.True(t, ok)
	assert.Equal(t, 30.0, v.Number)

	versions, err := repos.Versions.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	entries, err := repos.Audit.ListByResource(ctx, "product", p.ID, 0)
	require.NoError(t, err)
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.ElementsMatch(t, []string{"create", "overwrite"}, actions)
}

func TestUpsert_TiedRevisionOpensPendingConflict(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()

	_, err := o.upsertProduct(ctx, premierCandidate(23), &fieldmap.Result{}, seedDoc(t, repos, "Rev 03.18.25"))
	require.NoError(t, err)

	disagreeing := &fieldmap.Result{Mapped: []fieldmap.Mapped{
		harvested("storage_capacity_cuft", storage.Numeric(30, "cuft")),
	}}
	res, err := o.upsertProduct(ctx, premierCandidate(23), disagreeing, seedDoc(t, repos, "Rev 03.18.25"))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.conflicts)

	// The stored value stands until a human resolves the conflict.
	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)
	v, _ := p.SpecValueOf("storage_capacity_cuft")
	assert.Equal(t, 23.0, v.Number)

	c, err := repos.Conflicts.FindPending(ctx, p.ID, "storage_capacity_cuft")
	require.NoError(t, err)
	assert.Equal(t, "30 cuft", c.NewValue)

	// The same disagreement from yet another document does not pile up rows.
	res, err = o.upsertProduct(ctx, premierCandidate(23), disagreeing, seedDoc(t, repos, "Rev 03.18.25"))
	require.NoError(t, err)
	assert.Zero(t, res.conflicts)
}

func TestUpsert_CertificationListsGrowByUnion(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()

	first := &fieldmap.Result{Mapped: []fieldmap.Mapped{
		harvested("certifications", storage.List([]string{"ETL"})),
	}}
	_, err := o.upsertProduct(ctx, premierCandidate(23), first, seedDoc(t, repos, "Rev 03.18.24"))
	require.NoError(t, err)

	second := &fieldmap.Result{Mapped: []fieldmap.Mapped{
		harvested("certifications", storage.List([]string{"Energy_Star", "ETL"})),
	}}
	res, err := o.upsertProduct(ctx, premierCandidate(23), second, seedDoc(t, repos, "Rev 03.18.24"))
	require.NoError(t, err)
	assert.True(t, res.changed)

	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	v, ok := p.SpecValueOf("certifications")
	require.True(t, ok)
	assert.Equal(t, []string{"ETL", "Energy_Star"}, v.List)

	// A later sheet listing only a subset is not evidence of loss.
	res, err = o.upsertProduct(ctx, premierCandidate(23), first, seedDoc(t, repos, "Rev 03.18.24"))
	require.NoError(t, err)
	assert.False(t, res.changed)
}

func TestProcessFile_EndToEnd(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()

	job := &storage.IngestionJob{TotalFiles: 1}
	require.NoError(t, repos.Jobs.Create(ctx, job))

	data := []byte("ABT-HC-23S Premier Laboratory Refrigerator\nRev. 03.18.24\n\nCapacity: 23.1 cuft\nVoltage: 115V\n")
	o.processFile(ctx, task{jobID: job.ID, file: FileInput{Filename: "abt-hc-23s.txt", Data: data}})

	// The harvested value wins over the model-number decode.
	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	v, ok := p.SpecValueOf("storage_capacity_cuft")
	require.True(t, ok)
	assert.Equal(t, 23.1, v.Number)

	job, err = repos.Jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.ProcessedFiles)
	assert.Equal(t, 1, job.NewProducts)
	assert.Positive(t, job.ChunksCreated)
	require.NotNil(t, job.CompletedAt)
}

func TestProcessFile_IdenticalBytesAreNoop(t *testing.T) {
	o, repos := testPipeline(t, Options{AutoCreateProducts: true})
	ctx := context.Background()

	job := &storage.IngestionJob{TotalFiles: 2}
	require.NoError(t, repos.Jobs.Create(ctx, job))

	data := []byte("ABT-HC-23S Premier Laboratory Refrigerator\nRev. 03.18.24\n\nCapacity: 23.1 cuft\n")
	o.processFile(ctx, task{jobID: job.ID, file: FileInput{Filename: "first.txt", Data: data}})
	o.processFile(ctx, task{jobID: job.ID, file: FileInput{Filename: "second.txt", Data: data}})

	job, err := repos.Jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, job.SkippedDuplicates)
	assert.Equal(t, 2, job.ProcessedFiles)
	assert.Equal(t, 1, job.NewProducts)
	assert.Equal(t, storage.JobStatusCompleted, job.Status)

	// Nothing was written twice.
	p, err := repos.Products.GetByModelNumber(ctx, "ABT-HC-23S")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Version)
}

func TestSubmit_RejectedWhileDraining(t *testing.T) {
	o, _ := testPipeline(t, Options{ShutdownTimeout: time.Second})
	o.Stop()

	_, err := o.Submit(context.Background(), []FileInput{{Filename: "x.txt", Data: []byte("hi")}}, "tester")
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex()
	unlock := km.lock("ABT-HC-23S")

	acquired := make(chan struct{})
	go func() {
		u := km.lock("ABT-HC-23S")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("same-key lock acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	// A different model number is not serialized behind the first.
	other := km.lock("NSBR241")
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("same-key lock never acquired after release")
	}
}
