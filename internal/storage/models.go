// Package storage provides the catalog store: products, documents, chunks,
// conflicts, spec registry, version history, ingestion jobs, and the
// append-only audit log.
package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusDraft         ProductStatus = "draft"
	ProductStatusPendingReview ProductStatus = "pending_review"
	ProductStatusActive        ProductStatus = "active"
	ProductStatusDiscontinued  ProductStatus = "discontinued"
	ProductStatusDeprecated    ProductStatus = "deprecated"
)

// DocType classifies ingested literature.
type DocType string

const (
	DocTypeProductDataSheet     DocType = "product_data_sheet"
	DocTypeCutSheet             DocType = "cut_sheet"
	DocTypeFeatureList          DocType = "feature_list"
	DocTypePerformanceDataSheet DocType = "performance_data_sheet"
	DocTypeDimensionalDrawing   DocType = "dimensional_drawing"
	DocTypeProductImage         DocType = "product_image"
	DocTypeSelectionGuide       DocType = "selection_guide"
	DocTypeInstallManual        DocType = "install_manual"
	DocTypeMarketing            DocType = "marketing"
	DocTypeCatalog              DocType = "catalog"
	DocTypeOther                DocType = "other"
)

// DocStatus is the processing state of a document.
type DocStatus string

const (
	DocStatusPending     DocStatus = "pending"
	DocStatusProcessing  DocStatus = "processing"
	DocStatusProcessed   DocStatus = "processed"
	DocStatusFailed      DocStatus = "failed"
	DocStatusSuperseded  DocStatus = "superseded"
	DocStatusQuarantined DocStatus = "quarantined"
)

// SuperCategory is the top-level product taxonomy.
type SuperCategory string

const (
	SuperCategoryRefrigerator SuperCategory = "refrigerator"
	SuperCategoryFreezer      SuperCategory = "freezer"
	SuperCategoryCryogenic    SuperCategory = "cryogenic"
	SuperCategoryAccessory    SuperCategory = "accessory"
)

// ConflictSeverity grades a spec conflict.
type ConflictSeverity string

const (
	SeverityLow      ConflictSeverity = "low"
	SeverityMedium   ConflictSeverity = "medium"
	SeverityHigh     ConflictSeverity = "high"
	SeverityCritical ConflictSeverity = "critical"
)

// ConflictResolution is the terminal (or pending) state of a conflict row.
type ConflictResolution string

const (
	ResolutionPending        ConflictResolution = "pending"
	ResolutionKeepExisting   ConflictResolution = "keep_existing"
	ResolutionAcceptNew      ConflictResolution = "accept_new"
	ResolutionManualOverride ConflictResolution = "manual_override"
	ResolutionDismissed      ConflictResolution = "dismissed"
)

// Terminal reports whether the resolution closes the conflict.
func (r ConflictResolution) Terminal() bool {
	return r != ResolutionPending && r != ""
}

// RelationKind is the type of a directed product relationship edge.
type RelationKind string

const (
	RelationSupersedes     RelationKind = "supersedes"
	RelationEquivalentTo   RelationKind = "equivalent_to"
	RelationCompatibleWith RelationKind = "compatible_with"
	RelationAccessoryFor   RelationKind = "accessory_for"
	RelationVariantOf      RelationKind = "variant_of"
	RelationRebrandOf      RelationKind = "rebrand_of"
)

// Symmetric reports whether cycles are permitted for this kind.
func (k RelationKind) Symmetric() bool {
	return k == RelationEquivalentTo || k == RelationCompatibleWith
}

// LinkRelevance qualifies a document-product link.
type LinkRelevance string

const (
	RelevancePrimary   LinkRelevance = "primary"
	RelevanceMentioned LinkRelevance = "mentioned"
	RelevanceAccessory LinkRelevance = "accessory"
	RelevanceRelated   LinkRelevance = "related"
)

// ChunkType classifies a retrieval chunk for filtered search.
type ChunkType string

const (
	ChunkTypeText            ChunkType = "text"
	ChunkTypeTable           ChunkType = "table"
	ChunkTypeSpecBlock       ChunkType = "spec_block"
	ChunkTypeHeader          ChunkType = "header"
	ChunkTypePerformanceData ChunkType = "performance_data"
	ChunkTypeDimensional     ChunkType = "dimensional"
	ChunkTypeDescription     ChunkType = "description"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// SpecKind is the data type of a spec value.
type SpecKind string

const (
	SpecKindNumeric SpecKind = "numeric"
	SpecKindText    SpecKind = "text"
	SpecKindBoolean SpecKind = "boolean"
	SpecKindEnum    SpecKind = "enum"
	SpecKindRange   SpecKind = "range"
	SpecKindList    SpecKind = "list"
)

// UnitSystem identifies the measurement system of a registry entry.
type UnitSystem string

const (
	UnitImperial UnitSystem = "imperial"
	UnitMetric   UnitSystem = "metric"
	UnitNone     UnitSystem = "none"
)

// SpecValue is a typed spec value. Exactly one payload field is meaningful,
// selected by Kind. ParseFailed marks raw text kept after a compound parser
// could not interpret the input; such values compare as text.
type SpecValue struct {
	Kind        SpecKind `json:"kind"`
	Number      float64  `json:"number,omitempty"`
	Text        string   `json:"text,omitempty"`
	Bool        bool     `json:"bool,omitempty"`
	RangeMin    float64  `json:"range_min,omitempty"`
	RangeMax    float64  `json:"range_max,omitempty"`
	List        []string `json:"list,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	ParseFailed bool     `json:"parse_failed,omitempty"`
}

// Numeric builds a numeric SpecValue.
func Numeric(v float64, unit string) SpecValue {
	return SpecValue{Kind: SpecKindNumeric, Number: v, Unit: unit}
}

// Text builds a text SpecValue.
func Text(s string) SpecValue {
	return SpecValue{Kind: SpecKindText, Text: s}
}

// Boolean builds a boolean SpecValue.
func Boolean(b bool) SpecValue {
	return SpecValue{Kind: SpecKindBoolean, Bool: b}
}

// Enum builds an enum SpecValue.
func Enum(s string) SpecValue {
	return SpecValue{Kind: SpecKindEnum, Text: s}
}

// Range builds a range SpecValue.
func Range(min, max float64, unit string) SpecValue {
	return SpecValue{Kind: SpecKindRange, RangeMin: min, RangeMax: max, Unit: unit}
}

// List builds a list SpecValue.
func List(items []string) SpecValue {
	return SpecValue{Kind: SpecKindList, List: items}
}

// FailedText builds a text SpecValue flagged as a parse failure.
func FailedText(s string) SpecValue {
	return SpecValue{Kind: SpecKindText, Text: s, ParseFailed: true}
}

// AsFloat returns the numeric payload, coercing numeric-looking text.
func (v SpecValue) AsFloat() (float64, bool) {
	switch v.Kind {
	case SpecKindNumeric:
		return v.Number, true
	case SpecKindText, SpecKindEnum:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Text), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// String renders the value for display and audit payloads.
func (v SpecValue) String() string {
	switch v.Kind {
	case SpecKindNumeric:
		s := strconv.FormatFloat(v.Number, 'f', -1, 64)
		if v.Unit != "" {
			return s + " " + v.Unit
		}
		return s
	case SpecKindBoolean:
		return strconv.FormatBool(v.Bool)
	case SpecKindRange:
		return fmt.Sprintf("%s to %s %s",
			strconv.FormatFloat(v.RangeMin, 'f', -1, 64),
			strconv.FormatFloat(v.RangeMax, 'f', -1, 64), v.Unit)
	case SpecKindList:
		return strings.Join(v.List, ", ")
	default:
		return v.Text
	}
}

// SpecMap is the dynamic spec payload of a product, keyed by canonical name.
type SpecMap map[string]SpecValue

// Brand is a curated manufacturer record.
type Brand struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Name      string    `json:"name" db:"name"`
	ParentOrg string    `json:"parent_org,omitempty" db:"parent_org"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Family is a curated product family record.
type Family struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	Code          string        `json:"code" db:"code"`
	Name          string        `json:"name" db:"name"`
	SuperCategory SuperCategory `json:"super_category" db:"super_category"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
}

// RegistryEntry is the canonical catalog record for one spec.
type RegistryEntry struct {
	ID              uuid.UUID          `json:"id" db:"id"`
	CanonicalName   string             `json:"canonical_name" db:"canonical_name"`
	DisplayName     string             `json:"display_name" db:"display_name"`
	DataType        SpecKind           `json:"data_type" db:"data_type"`
	Unit            string             `json:"unit,omitempty" db:"unit"`
	UnitSystem      UnitSystem         `json:"unit_system" db:"unit_system"`
	FamilyScope     []string           `json:"family_scope,omitempty" db:"family_scope"`
	Synonyms        []string           `json:"synonyms,omitempty" db:"synonyms"`
	UnitConversions map[string]string  `json:"unit_conversions,omitempty" db:"unit_conversions"`
	AllowedValues   []string           `json:"allowed_values,omitempty" db:"allowed_values"`
	NumericMin      *float64           `json:"numeric_min,omitempty" db:"numeric_min"`
	NumericMax      *float64           `json:"numeric_max,omitempty" db:"numeric_max"`
	IsFilterable    bool               `json:"is_filterable" db:"is_filterable"`
	IsComparable    bool               `json:"is_comparable" db:"is_comparable"`
	IsSearchable    bool               `json:"is_searchable" db:"is_searchable"`
	IsCritical      bool               `json:"is_critical" db:"is_critical"`
	SortOrder       int                `json:"sort_order" db:"sort_order"`
	AutoDiscovered  bool               `json:"auto_discovered" db:"auto_discovered"`
	Approved        bool               `json:"approved" db:"approved"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" db:"updated_at"`
}

// InScope reports whether the entry applies to the given family.
// An empty scope matches every family.
func (e *RegistryEntry) InScope(familyCode string) bool {
	if len(e.FamilyScope) == 0 {
		return true
	}
	for _, f := range e.FamilyScope {
		if f == familyCode {
			return true
		}
	}
	return false
}

// Product is a catalog record at its current version. Fixed columns are
// denormalized projections of the same keys in Specs.
type Product struct {
	ID             uuid.UUID     `json:"id" db:"id"`
	ModelNumber    string        `json:"model_number" db:"model_number"`
	Version        int           `json:"version" db:"version"`
	BrandCode      string        `json:"brand_code" db:"brand_code"`
	FamilyCode     string        `json:"family_code" db:"family_code"`
	ProductLine    string        `json:"product_line,omitempty" db:"product_line"`
	ControllerTier string        `json:"controller_tier,omitempty" db:"controller_tier"`
	Status         ProductStatus `json:"status" db:"status"`

	StorageCapacityCuft *float64 `json:"storage_capacity_cuft,omitempty" db:"storage_capacity_cuft"`
	TempRangeMinC       *float64 `json:"temp_range_min_c,omitempty" db:"temp_range_min_c"`
	TempRangeMaxC       *float64 `json:"temp_range_max_c,omitempty" db:"temp_range_max_c"`
	DoorCount           *int     `json:"door_count,omitempty" db:"door_count"`
	DoorType            *string  `json:"door_type,omitempty" db:"door_type"`
	ShelfCount          *int     `json:"shelf_count,omitempty" db:"shelf_count"`
	Refrigerant         *string  `json:"refrigerant,omitempty" db:"refrigerant"`
	VoltageV            *float64 `json:"voltage_v,omitempty" db:"voltage_v"`
	Amperage            *float64 `json:"amperage,omitempty" db:"amperage"`
	ProductWeightLbs    *float64 `json:"product_weight_lbs,omitempty" db:"product_weight_lbs"`
	ExtWidthIn          *float64 `json:"ext_width_in,omitempty" db:"ext_width_in"`
	ExtDepthIn          *float64 `json:"ext_depth_in,omitempty" db:"ext_depth_in"`
	ExtHeightIn         *float64 `json:"ext_height_in,omitempty" db:"ext_height_in"`

	Specs          SpecMap    `json:"specs" db:"specs"`
	Certifications []string   `json:"certifications" db:"certifications"`
	Revision       string     `json:"revision,omitempty" db:"revision"`
	Description    string     `json:"description,omitempty" db:"description"`
	ReleasedAt     *time.Time `json:"released_at,omitempty" db:"released_at"`
	DiscontinuedAt *time.Time `json:"discontinued_at,omitempty" db:"discontinued_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// fixedColumns maps canonical spec names to fixed-column setters/getters.
var fixedColumns = map[string]struct{}{
	"storage_capacity_cuft": {},
	"temp_range_min_c":      {},
	"temp_range_max_c":      {},
	"door_count":            {},
	"door_type":             {},
	"shelf_count":           {},
	"refrigerant":           {},
	"voltage_v":             {},
	"amperage":              {},
	"product_weight_lbs":    {},
	"ext_width_in":          {},
	"ext_depth_in":          {},
	"ext_height_in":         {},
}

// IsFixedColumn reports whether a canonical name projects into a fixed column.
func IsFixedColumn(name string) bool {
	_, ok := fixedColumns[name]
	return ok
}

// SpecValueOf returns the product's value for a canonical name, consulting
// fixed columns first and falling back to the dynamic map.
func (p *Product) SpecValueOf(name string) (SpecValue, bool) {
	switch name {
	case "storage_capacity_cuft":
		if p.StorageCapacityCuft != nil {
			return Numeric(*p.StorageCapacityCuft, "cuft"), true
		}
	case "temp_range_min_c":
		if p.TempRangeMinC != nil {
			return Numeric(*p.TempRangeMinC, "c"), true
		}
	case "temp_range_max_c":
		if p.TempRangeMaxC != nil {
			return Numeric(*p.TempRangeMaxC, "c"), true
		}
	case "door_count":
		if p.DoorCount != nil {
			return Numeric(float64(*p.DoorCount), ""), true
		}
	case "door_type":
		if p.DoorType != nil {
			return Enum(*p.DoorType), true
		}
	case "shelf_count":
		if p.ShelfCount != nil {
			return Numeric(float64(*p.ShelfCount), ""), true
		}
	case "refrigerant":
		if p.Refrigerant != nil {
			return Text(*p.Refrigerant), true
		}
	case "voltage_v":
		if p.VoltageV != nil {
			return Numeric(*p.VoltageV, "v"), true
		}
	case "amperage":
		if p.Amperage != nil {
			return Numeric(*p.Amperage, "a"), true
		}
	case "product_weight_lbs":
		if p.ProductWeightLbs != nil {
			return Numeric(*p.ProductWeightLbs, "lbs"), true
		}
	case "ext_width_in":
		if p.ExtWidthIn != nil {
			return Numeric(*p.ExtWidthIn, "in"), true
		}
	case "ext_depth_in":
		if p.ExtDepthIn != nil {
			return Numeric(*p.ExtDepthIn, "in"), true
		}
	case "ext_height_in":
		if p.ExtHeightIn != nil {
			return Numeric(*p.ExtHeightIn, "in"), true
		}
	default:
		v, ok := p.Specs[name]
		return v, ok
	}
	// Fixed column known but unset; the dynamic map may still carry it.
	v, ok := p.Specs[name]
	return v, ok
}

// SetSpecValue writes a value under a canonical name, keeping the fixed
// column projection and the dynamic map consistent.
func (p *Product) SetSpecValue(name string, v SpecValue) {
	if p.Specs == nil {
		p.Specs = SpecMap{}
	}
	switch name {
	case "storage_capacity_cuft":
		if f, ok := v.AsFloat(); ok {
			p.StorageCapacityCuft = &f
		}
	case "temp_range_min_c":
		if f, ok := v.AsFloat(); ok {
			p.TempRangeMinC = &f
		}
	case "temp_range_max_c":
		if f, ok := v.AsFloat(); ok {
			p.TempRangeMaxC = &f
		}
	case "door_count":
		if f, ok := v.AsFloat(); ok {
			n := int(f)
			p.DoorCount = &n
		}
	case "door_type":
		s := v.String()
		p.DoorType = &s
	case "shelf_count":
		if f, ok := v.AsFloat(); ok {
			n := int(f)
			p.ShelfCount = &n
		}
	case "refrigerant":
		s := v.String()
		p.Refrigerant = &s
	case "voltage_v":
		if f, ok := v.AsFloat(); ok {
			p.VoltageV = &f
		}
	case "amperage":
		if f, ok := v.AsFloat(); ok {
			p.Amperage = &f
		}
	case "product_weight_lbs":
		if f, ok := v.AsFloat(); ok {
			p.ProductWeightLbs = &f
		}
	case "ext_width_in":
		if f, ok := v.AsFloat(); ok {
			p.ExtWidthIn = &f
		}
	case "ext_depth_in":
		if f, ok := v.AsFloat(); ok {
			p.ExtDepthIn = &f
		}
	case "ext_height_in":
		if f, ok := v.AsFloat(); ok {
			p.ExtHeightIn = &f
		}
	}
	p.Specs[name] = v
}

// HasCertification reports whether the product carries the given cert code.
// Spacing, slash, and hyphen variants of the same code ("NSF/ANSI 456" vs
// "NSF_ANSI_456") compare equal.
func (p *Product) HasCertification(code string) bool {
	norm := normalizeCertCode(code)
	for _, c := range p.Certifications {
		if normalizeCertCode(c) == norm {
			return true
		}
	}
	return false
}

func normalizeCertCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '-':
			return '_'
		}
		return r
	}, code)
}

// ProductVersion is an immutable snapshot of a product before a mutation.
type ProductVersion struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ProductID     uuid.UUID       `json:"product_id" db:"product_id"`
	Version       int             `json:"version" db:"version"`
	Snapshot      json.RawMessage `json:"snapshot" db:"snapshot"`
	ChangeSummary string          `json:"change_summary" db:"change_summary"`
	ChangedBy     string          `json:"changed_by" db:"changed_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ProductRelationship is a directed edge between two products.
type ProductRelationship struct {
	ID           uuid.UUID    `json:"id" db:"id"`
	SourceID     uuid.UUID    `json:"source_id" db:"source_id"`
	TargetID     uuid.UUID    `json:"target_id" db:"target_id"`
	Kind         RelationKind `json:"kind" db:"kind"`
	Confidence   float64      `json:"confidence" db:"confidence"`
	AutoDetected bool         `json:"auto_detected" db:"auto_detected"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// ProcessingLogEntry is one stage record in a document's processing log.
type ProcessingLogEntry struct {
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Document is an ingested source file.
type Document struct {
	ID             uuid.UUID            `json:"id" db:"id"`
	Filename       string               `json:"filename" db:"filename"`
	DocType        DocType              `json:"doc_type" db:"doc_type"`
	MimeType       string               `json:"mime_type" db:"mime_type"`
	SourceURI      string               `json:"source_uri" db:"source_uri"`
	ChecksumSHA256 string               `json:"checksum_sha256" db:"checksum_sha256"`
	FileSizeBytes  int64                `json:"file_size_bytes" db:"file_size_bytes"`
	PageCount      int                  `json:"page_count" db:"page_count"`
	ExtractedText  string               `json:"extracted_text,omitempty" db:"extracted_text"`
	BrandCode      string               `json:"brand_code,omitempty" db:"brand_code"`
	Revision       string               `json:"revision,omitempty" db:"revision"`
	Status         DocStatus            `json:"status" db:"status"`
	ProcessingLog  []ProcessingLogEntry `json:"processing_log" db:"processing_log"`
	Version        int                  `json:"version" db:"version"`
	CreatedAt      time.Time            `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at" db:"updated_at"`
}

// DocumentProductLink is the provenance edge between a document and a product.
type DocumentProductLink struct {
	DocumentID     uuid.UUID       `json:"document_id" db:"document_id"`
	ProductID      uuid.UUID       `json:"product_id" db:"product_id"`
	Relevance      LinkRelevance   `json:"relevance" db:"relevance"`
	ExtractedSpecs json.RawMessage `json:"extracted_specs,omitempty" db:"extracted_specs"`
	Confidence     float64         `json:"confidence" db:"confidence"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Chunk is a retrieval unit of document text, optionally embedded.
type Chunk struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	DocumentID   uuid.UUID   `json:"document_id" db:"document_id"`
	ChunkIndex   int         `json:"chunk_index" db:"chunk_index"`
	Content      string      `json:"content" db:"content"`
	ChunkType    ChunkType   `json:"chunk_type" db:"chunk_type"`
	PageNumber   int         `json:"page_number" db:"page_number"`
	SectionTitle string      `json:"section_title,omitempty" db:"section_title"`
	ProductIDs   []uuid.UUID `json:"product_ids,omitempty" db:"product_ids"`
	SpecNames    []string    `json:"spec_names,omitempty" db:"spec_names"`
	Embedding    []float32   `json:"-" db:"embedding"`
	TokenCount   int         `json:"token_count" db:"token_count"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// SpecConflict records a disagreement between a stored value and an
// incoming document that could not be auto-resolved.
type SpecConflict struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	ProductID     uuid.UUID          `json:"product_id" db:"product_id"`
	SpecName      string             `json:"spec_name" db:"spec_name"`
	ExistingValue string             `json:"existing_value" db:"existing_value"`
	NewValue      string             `json:"new_value" db:"new_value"`
	SourceDocID   uuid.UUID          `json:"source_doc_id" db:"source_doc_id"`
	ExistingDocID *uuid.UUID         `json:"existing_doc_id,omitempty" db:"existing_doc_id"`
	Severity      ConflictSeverity   `json:"severity" db:"severity"`
	Resolution    ConflictResolution `json:"resolution" db:"resolution"`
	ResolvedValue string             `json:"resolved_value,omitempty" db:"resolved_value"`
	ResolvedBy    string             `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}

// EquivalenceRule governs cross-product comparison for one family.
type EquivalenceRule struct {
	ID            uuid.UUID          `json:"id" db:"id"`
	FamilyCode    string             `json:"family_code" db:"family_code"`
	RequiredMatch []string           `json:"required_match" db:"required_match"`
	ToleranceMap  map[string]float64 `json:"tolerance_map" db:"tolerance_map"`
	PrioritySpecs []string           `json:"priority_specs" db:"priority_specs"`
	CreatedAt     time.Time          `json:"created_at" db:"created_at"`
}

// Tolerance returns the per-spec tolerance, or the supplied default.
func (r *EquivalenceRule) Tolerance(specName string, def float64) float64 {
	if r == nil {
		return def
	}
	if t, ok := r.ToleranceMap[specName]; ok {
		return t
	}
	return def
}

// IngestionJob aggregates per-file outcomes of one upload batch.
type IngestionJob struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Status             JobStatus       `json:"status" db:"status"`
	TotalFiles         int             `json:"total_files" db:"total_files"`
	ProcessedFiles     int             `json:"processed_files" db:"processed_files"`
	FailedFiles        int             `json:"failed_files" db:"failed_files"`
	SkippedDuplicates  int             `json:"skipped_duplicates" db:"skipped_duplicates"`
	NewProducts        int             `json:"new_products" db:"new_products"`
	UpdatedProducts    int             `json:"updated_products" db:"updated_products"`
	ConflictsFound     int             `json:"conflicts_found" db:"conflicts_found"`
	ChunksCreated      int             `json:"chunks_created" db:"chunks_created"`
	NewSpecsDiscovered int             `json:"new_specs_discovered" db:"new_specs_discovered"`
	SubmittedBy        string          `json:"submitted_by" db:"submitted_by"`
	Metadata           json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	StartedAt          *time.Time      `json:"started_at,omitempty" db:"started_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
}

// AuditEntry is one immutable row in the append-only audit log.
type AuditEntry struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ResourceType string          `json:"resource_type" db:"resource_type"`
	ResourceID   uuid.UUID       `json:"resource_id" db:"resource_id"`
	Action       string          `json:"action" db:"action"`
	Actor        string          `json:"actor" db:"actor"`
	Role         string          `json:"role,omitempty" db:"role"`
	Payload      json.RawMessage `json:"payload,omitempty" db:"payload"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
