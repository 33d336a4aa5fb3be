package storage

// Repositories bundles all repositories over one store.
type Repositories struct {
	Products         *ProductRepository
	Versions         *VersionRepository
	Relationships    *RelationshipRepository
	Documents        *DocumentRepository
	Links            *LinkRepository
	Chunks           *ChunkRepository
	Conflicts        *ConflictRepository
	Registry         *RegistryRepository
	Brands           *BrandRepository
	Families         *FamilyRepository
	EquivalenceRules *EquivalenceRuleRepository
	Jobs             *JobRepository
	Audit            *AuditRepository
}

// NewRepositories creates all repositories over the given store.
func NewRepositories(s *Store) *Repositories {
	return &Repositories{
		Products:         NewProductRepository(s),
		Versions:         NewVersionRepository(s),
		Relationships:    NewRelationshipRepository(s),
		Documents:        NewDocumentRepository(s),
		Links:            NewLinkRepository(s),
		Chunks:           NewChunkRepository(s),
		Conflicts:        NewConflictRepository(s),
		Registry:         NewRegistryRepository(s),
		Brands:           NewBrandRepository(s),
		Families:         NewFamilyRepository(s),
		EquivalenceRules: NewEquivalenceRuleRepository(s),
		Jobs:             NewJobRepository(s),
		Audit:            NewAuditRepository(s),
	}
}
