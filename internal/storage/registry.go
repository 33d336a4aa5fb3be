package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// RegistryRepository stores spec registry entries.
type RegistryRepository struct {
	db DB
}

// NewRegistryRepository creates a new registry repository.
func NewRegistryRepository(db DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

const registryColumns = `id, canonical_name, display_name, data_type, unit, unit_system,
	family_scope, synonyms, unit_conversions, allowed_values, numeric_min, numeric_max,
	is_filterable, is_comparable, is_searchable, is_critical, sort_order,
	auto_discovered, approved, created_at, updated_at`

// Create inserts a registry entry.
func (r *RegistryRepository) Create(ctx context.Context, e *RegistryEntry) error {
	if e.CanonicalName == "" {
		return NewValidationError("canonical_name", "required")
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.DataType == "" {
		e.DataType = SpecKindText
	}
	if e.UnitSystem == "" {
		e.UnitSystem = UnitNone
	}
	if e.SortOrder == 0 {
		e.SortOrder = 1000
	}
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt

	scope, err := jsonArg(orEmpty(e.FamilyScope))
	if err != nil {
		return err
	}
	synonyms, err := jsonArg(orEmpty(e.Synonyms))
	if err != nil {
		return err
	}
	conversions, err := jsonArg(orEmptyMap(e.UnitConversions))
	if err != nil {
		return err
	}
	allowed, err := jsonArg(orEmpty(e.AllowedValues))
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO spec_registry (`+registryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21)
	`, e.ID, e.CanonicalName, e.DisplayName, e.DataType, e.Unit, e.UnitSystem,
		scope, synonyms, conversions, allowed, e.NumericMin, e.NumericMax,
		e.IsFilterable, e.IsComparable, e.IsSearchable, e.IsCritical, e.SortOrder,
		e.AutoDiscovered, e.Approved, e.CreatedAt, e.UpdatedAt)
	return err
}

// GetByCanonicalName retrieves a registry entry by its canonical key.
func (r *RegistryRepository) GetByCanonicalName(ctx context.Context, name string) (*RegistryEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registryColumns+` FROM spec_registry WHERE canonical_name = $1`, name)
	return scanRegistryRow(row)
}

// ListAll retrieves every registry entry ordered for display.
func (r *RegistryRepository) ListAll(ctx context.Context) ([]*RegistryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registryColumns+` FROM spec_registry ORDER BY sort_order, canonical_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*RegistryEntry
	for rows.Next() {
		e, err := scanRegistryRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListPendingApproval retrieves auto-discovered entries awaiting review.
func (r *RegistryRepository) ListPendingApproval(ctx context.Context) ([]*RegistryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+registryColumns+` FROM spec_registry
		WHERE auto_discovered = $1 AND approved = $2
		ORDER BY created_at
	`, true, false)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*RegistryEntry
	for rows.Next() {
		e, err := scanRegistryRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Update rewrites a registry entry's mutable fields.
func (r *RegistryRepository) Update(ctx context.Context, e *RegistryEntry) error {
	e.UpdatedAt = time.Now()
	scope, err := jsonArg(orEmpty(e.FamilyScope))
	if err != nil {
		return err
	}
	synonyms, err := jsonArg(orEmpty(e.Synonyms))
	if err != nil {
		return err
	}
	conversions, err := jsonArg(orEmptyMap(e.UnitConversions))
	if err != nil {
		return err
	}
	allowed, err := jsonArg(orEmpty(e.AllowedValues))
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE spec_registry SET
			display_name = $1, data_type = $2, unit = $3, unit_system = $4,
			family_scope = $5, synonyms = $6, unit_conversions = $7, allowed_values = $8,
			numeric_min = $9, numeric_max = $10, is_filterable = $11, is_comparable = $12,
			is_searchable = $13, is_critical = $14, sort_order = $15,
			auto_discovered = $16, approved = $17, updated_at = $18
		WHERE canonical_name = $19
	`, e.DisplayName, e.DataType, e.Unit, e.UnitSystem,
		scope, synonyms, conversions, allowed,
		e.NumericMin, e.NumericMax, e.IsFilterable, e.IsComparable,
		e.IsSearchable, e.IsCritical, e.SortOrder,
		e.AutoDiscovered, e.Approved, e.UpdatedAt, e.CanonicalName)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Approve marks an auto-discovered entry as reviewed.
func (r *RegistryRepository) Approve(ctx context.Context, canonicalName string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE spec_registry SET approved = $1, updated_at = $2 WHERE canonical_name = $3
	`, true, time.Now(), canonicalName)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRegistryRow(row *sql.Row) (*RegistryEntry, error) {
	e := &RegistryEntry{}
	var scope, synonyms, conversions, allowed []byte
	err := row.Scan(
		&e.ID, &e.CanonicalName, &e.DisplayName, &e.DataType, &e.Unit, &e.UnitSystem,
		&scope, &synonyms, &conversions, &allowed, &e.NumericMin, &e.NumericMax,
		&e.IsFilterable, &e.IsComparable, &e.IsSearchable, &e.IsCritical, &e.SortOrder,
		&e.AutoDiscovered, &e.Approved, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return finishRegistry(e, scope, synonyms, conversions, allowed)
}

func scanRegistryRows(rows *sql.Rows) (*RegistryEntry, error) {
	e := &RegistryEntry{}
	var scope, synonyms, conversions, allowed []byte
	if err := rows.Scan(
		&e.ID, &e.CanonicalName, &e.DisplayName, &e.DataType, &e.Unit, &e.UnitSystem,
		&scope, &synonyms, &conversions, &allowed, &e.NumericMin, &e.NumericMax,
		&e.IsFilterable, &e.IsComparable, &e.IsSearchable, &e.IsCritical, &e.SortOrder,
		&e.AutoDiscovered, &e.Approved, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return finishRegistry(e, scope, synonyms, conversions, allowed)
}

func finishRegistry(e *RegistryEntry, scope, synonyms, conversions, allowed []byte) (*RegistryEntry, error) {
	if err := jsonScan(scope, &e.FamilyScope); err != nil {
		return nil, err
	}
	if err := jsonScan(synonyms, &e.Synonyms); err != nil {
		return nil, err
	}
	if err := jsonScan(conversions, &e.UnitConversions); err != nil {
		return nil, err
	}
	if err := jsonScan(allowed, &e.AllowedValues); err != nil {
		return nil, err
	}
	return e, nil
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

// BrandRepository stores curated brand records.
type BrandRepository struct {
	db DB
}

// NewBrandRepository creates a new brand repository.
func NewBrandRepository(db DB) *BrandRepository {
	return &BrandRepository{db: db}
}

// Create inserts a brand.
func (r *BrandRepository) Create(ctx context.Context, b *Brand) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO brands (id, code, name, parent_org, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, b.Code, b.Name, b.ParentOrg, b.IsActive, b.CreatedAt)
	return err
}

// ListActive retrieves active brands.
func (r *BrandRepository) ListActive(ctx context.Context) ([]*Brand, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, parent_org, is_active, created_at
		FROM brands WHERE is_active = $1 ORDER BY code
	`, true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var brands []*Brand
	for rows.Next() {
		b := &Brand{}
		if err := rows.Scan(&b.ID, &b.Code, &b.Name, &b.ParentOrg, &b.IsActive, &b.CreatedAt); err != nil {
			return nil, err
		}
		brands = append(brands, b)
	}
	return brands, rows.Err()
}

// FamilyRepository stores curated product family records.
type FamilyRepository struct {
	db DB
}

// NewFamilyRepository creates a new family repository.
func NewFamilyRepository(db DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// Create inserts a family.
func (r *FamilyRepository) Create(ctx context.Context, f *Family) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	f.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO families (id, code, name, super_category, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, f.ID, f.Code, f.Name, f.SuperCategory, f.CreatedAt)
	return err
}

// ListAll retrieves all families.
func (r *FamilyRepository) ListAll(ctx context.Context) ([]*Family, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, code, name, super_category, created_at FROM families ORDER BY code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var families []*Family
	for rows.Next() {
		f := &Family{}
		if err := rows.Scan(&f.ID, &f.Code, &f.Name, &f.SuperCategory, &f.CreatedAt); err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, rows.Err()
}

// EquivalenceRuleRepository stores per-family comparison rules.
type EquivalenceRuleRepository struct {
	db DB
}

// NewEquivalenceRuleRepository creates a new equivalence rule repository.
func NewEquivalenceRuleRepository(db DB) *EquivalenceRuleRepository {
	return &EquivalenceRuleRepository{db: db}
}

// Upsert writes the rule for a family.
func (r *EquivalenceRuleRepository) Upsert(ctx context.Context, rule *EquivalenceRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.CreatedAt = time.Now()
	required, err := jsonArg(orEmpty(rule.RequiredMatch))
	if err != nil {
		return err
	}
	tolerances, err := jsonArg(orEmptyFloatMap(rule.ToleranceMap))
	if err != nil {
		return err
	}
	priority, err := jsonArg(orEmpty(rule.PrioritySpecs))
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO equivalence_rules (id, family_code, required_match, tolerance_map, priority_specs, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (family_code) DO UPDATE SET
			required_match = EXCLUDED.required_match,
			tolerance_map = EXCLUDED.tolerance_map,
			priority_specs = EXCLUDED.priority_specs
	`, rule.ID, rule.FamilyCode, required, tolerances, priority, rule.CreatedAt)
	return err
}

// GetByFamily retrieves the rule for a family, or ErrNotFound.
func (r *EquivalenceRuleRepository) GetByFamily(ctx context.Context, familyCode string) (*EquivalenceRule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, family_code, required_match, tolerance_map, priority_specs, created_at
		FROM equivalence_rules WHERE family_code = $1
	`, familyCode)
	rule := &EquivalenceRule{}
	var required, tolerances, priority []byte
	err := row.Scan(&rule.ID, &rule.FamilyCode, &required, &tolerances, &priority, &rule.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := jsonScan(required, &rule.RequiredMatch); err != nil {
		return nil, err
	}
	if err := jsonScan(tolerances, &rule.ToleranceMap); err != nil {
		return nil, err
	}
	if err := jsonScan(priority, &rule.PrioritySpecs); err != nil {
		return nil, err
	}
	return rule, nil
}

func orEmptyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
