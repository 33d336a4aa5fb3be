package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProductRepository handles product reads and version-checked writes.
type ProductRepository struct {
	db     DB
	driver string
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db, driver: driverOf(db)}
}

// driverOf recovers the driver name from a store or one of its
// transactions. Filter SQL branches on it.
func driverOf(db DB) string {
	switch v := db.(type) {
	case *Store:
		return v.driver
	case *txDB:
		return v.store.driver
	}
	return DriverPostgres
}

const productColumns = `id, model_number, version, brand_code, family_code, product_line,
	controller_tier, status, storage_capacity_cuft, temp_range_min_c, temp_range_max_c,
	door_count, door_type, shelf_count, refrigerant, voltage_v, amperage,
	product_weight_lbs, ext_width_in, ext_depth_in, ext_height_in,
	specs, certifications, revision, description, released_at, discontinued_at,
	created_at, updated_at`

// Create inserts a new product at version 1.
func (r *ProductRepository) Create(ctx context.Context, p *Product) error {
	if p.ModelNumber == "" {
		return NewValidationError("model_number", "required")
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	if p.Status == "" {
		p.Status = ProductStatusDraft
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	specs, err := jsonArg(p.Specs)
	if err != nil {
		return err
	}
	certs, err := jsonArg(orEmpty(p.Certifications))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)
	`
	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.ModelNumber, p.Version, p.BrandCode, p.FamilyCode, p.ProductLine,
		p.ControllerTier, p.Status, p.StorageCapacityCuft, p.TempRangeMinC, p.TempRangeMaxC,
		p.DoorCount, p.DoorType, p.ShelfCount, p.Refrigerant, p.VoltageV, p.Amperage,
		p.ProductWeightLbs, p.ExtWidthIn, p.ExtDepthIn, p.ExtHeightIn,
		specs, certs, p.Revision, p.Description, p.ReleasedAt, p.DiscontinuedAt,
		p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateModel, p.ModelNumber)
	}
	return err
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetByModelNumber retrieves a product by its unique model number.
func (r *ProductRepository) GetByModelNumber(ctx context.Context, modelNumber string) (*Product, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE model_number = $1`, modelNumber)
	return scanProduct(row)
}

// ProductFilter narrows List results. Zero fields are ignored.
// TempMin/TempMax ask that the product's operating range cover the
// requested bound; Certifications is contains-all.
type ProductFilter struct {
	FamilyCode     string
	BrandCode      string
	Status         ProductStatus
	ModelPrefix    string
	CapacityMin    *float64
	CapacityMax    *float64
	TempMin        *float64
	TempMax        *float64
	DoorType       string
	Certifications []string
	FreeText       string
	Limit          int
	Offset         int
}

// List retrieves products matching the filter, ordered by model number.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []interface{}
	n := 0
	add := func(clause string, arg interface{}) {
		n++
		query += fmt.Sprintf(" AND %s $%d", clause, n)
		args = append(args, arg)
	}
	if f.FamilyCode != "" {
		add("family_code =", f.FamilyCode)
	}
	if f.BrandCode != "" {
		add("brand_code =", f.BrandCode)
	}
	if f.Status != "" {
		add("status =", f.Status)
	}
	if f.ModelPrefix != "" {
		add("model_number LIKE", strings.ToUpper(f.ModelPrefix)+"%")
	}
	if f.CapacityMin != nil {
		add("storage_capacity_cuft >=", *f.CapacityMin)
	}
	if f.CapacityMax != nil {
		add("storage_capacity_cuft <=", *f.CapacityMax)
	}
	if f.TempMin != nil {
		add("temp_range_min_c <=", *f.TempMin)
	}
	if f.TempMax != nil {
		add("temp_range_max_c >=", *f.TempMax)
	}
	if f.DoorType != "" {
		add("door_type =", f.DoorType)
	}
	for _, cert := range f.Certifications {
		n++
		if r.driver == DriverPostgres {
			query += fmt.Sprintf(" AND certifications @> $%d::jsonb", n)
			encoded, err := json.Marshal([]string{cert})
			if err != nil {
				return nil, err
			}
			args = append(args, string(encoded))
		} else {
			query += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM json_each(certifications) WHERE json_each.value = $%d)", n)
			args = append(args, cert)
		}
	}
	if f.FreeText != "" {
		if r.driver == DriverPostgres {
			n++
			query += fmt.Sprintf(" AND search_vector @@ plainto_tsquery('english', $%d)", n)
			args = append(args, f.FreeText)
		} else {
			like := "%" + f.FreeText + "%"
			query += fmt.Sprintf(" AND (model_number LIKE $%d OR product_line LIKE $%d OR description LIKE $%d)", n+1, n+2, n+3)
			n += 3
			args = append(args, like, like, like)
		}
	}
	query += " ORDER BY model_number"
	if f.Limit > 0 {
		n++
		query += fmt.Sprintf(" LIMIT $%d", n)
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// ListByIDs retrieves products for the given IDs, preserving no order.
func (r *ProductRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE id IN (` +
		strings.Join(placeholders, ", ") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// Update writes the product with optimistic locking: the row must still be
// at expectedVersion, and the write bumps it by one.
func (r *ProductRepository) Update(ctx context.Context, p *Product, expectedVersion int) error {
	p.UpdatedAt = time.Now()
	p.Version = expectedVersion + 1

	specs, err := jsonArg(p.Specs)
	if err != nil {
		return err
	}
	certs, err := jsonArg(orEmpty(p.Certifications))
	if err != nil {
		return err
	}

	query := `
		UPDATE products SET
			version = $1, brand_code = $2, family_code = $3, product_line = $4,
			controller_tier = $5, status = $6, storage_capacity_cuft = $7,
			temp_range_min_c = $8, temp_range_max_c = $9, door_count = $10,
			door_type = $11, shelf_count = $12, refrigerant = $13, voltage_v = $14,
			amperage = $15, product_weight_lbs = $16, ext_width_in = $17,
			ext_depth_in = $18, ext_height_in = $19, specs = $20,
			certifications = $21, revision = $22, description = $23,
			released_at = $24, discontinued_at = $25, updated_at = $26
		WHERE id = $27 AND version = $28
	`
	result, err := r.db.ExecContext(ctx, query,
		p.Version, p.BrandCode, p.FamilyCode, p.ProductLine,
		p.ControllerTier, p.Status, p.StorageCapacityCuft,
		p.TempRangeMinC, p.TempRangeMaxC, p.DoorCount,
		p.DoorType, p.ShelfCount, p.Refrigerant, p.VoltageV,
		p.Amperage, p.ProductWeightLbs, p.ExtWidthIn,
		p.ExtDepthIn, p.ExtHeightIn, specs,
		certs, p.Revision, p.Description,
		p.ReleasedAt, p.DiscontinuedAt, p.UpdatedAt,
		p.ID, expectedVersion,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	return nil
}

// UpdateStatus transitions a product's lifecycle state.
func (r *ProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status ProductStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now(), id)
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

// Count returns the total number of products.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func scanProduct(row *sql.Row) (*Product, error) {
	p := &Product{}
	var specs, certs []byte
	err := row.Scan(
		&p.ID, &p.ModelNumber, &p.Version, &p.BrandCode, &p.FamilyCode, &p.ProductLine,
		&p.ControllerTier, &p.Status, &p.StorageCapacityCuft, &p.TempRangeMinC, &p.TempRangeMaxC,
		&p.DoorCount, &p.DoorType, &p.ShelfCount, &p.Refrigerant, &p.VoltageV, &p.Amperage,
		&p.ProductWeightLbs, &p.ExtWidthIn, &p.ExtDepthIn, &p.ExtHeightIn,
		&specs, &certs, &p.Revision, &p.Description, &p.ReleasedAt, &p.DiscontinuedAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := jsonScan(specs, &p.Specs); err != nil {
		return nil, err
	}
	if err := jsonScan(certs, &p.Certifications); err != nil {
		return nil, err
	}
	return p, nil
}

func scanProducts(rows *sql.Rows) ([]*Product, error) {
	var products []*Product
	for rows.Next() {
		p := &Product{}
		var specs, certs []byte
		if err := rows.Scan(
			&p.ID, &p.ModelNumber, &p.Version, &p.BrandCode, &p.FamilyCode, &p.ProductLine,
			&p.ControllerTier, &p.Status, &p.StorageCapacityCuft, &p.TempRangeMinC, &p.TempRangeMaxC,
			&p.DoorCount, &p.DoorType, &p.ShelfCount, &p.Refrigerant, &p.VoltageV, &p.Amperage,
			&p.ProductWeightLbs, &p.ExtWidthIn, &p.ExtDepthIn, &p.ExtHeightIn,
			&specs, &certs, &p.Revision, &p.Description, &p.ReleasedAt, &p.DiscontinuedAt,
			&p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := jsonScan(specs, &p.Specs); err != nil {
			return nil, err
		}
		if err := jsonScan(certs, &p.Certifications); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// VersionRepository stores immutable product snapshots.
type VersionRepository struct {
	db DB
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(db DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Snapshot records the product state under its current version number.
func (r *VersionRepository) Snapshot(ctx context.Context, p *Product, summary, changedBy string) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	v := &ProductVersion{
		ID:            uuid.New(),
		ProductID:     p.ID,
		Version:       p.Version,
		Snapshot:      snapshot,
		ChangeSummary: summary,
		ChangedBy:     changedBy,
		CreatedAt:     time.Now(),
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO product_versions (id, product_id, version, snapshot, change_summary, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.ProductID, v.Version, string(v.Snapshot), v.ChangeSummary, v.ChangedBy, v.CreatedAt)
	return err
}

// ListByProduct returns all snapshots for a product, newest first.
func (r *VersionRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*ProductVersion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, version, snapshot, change_summary, changed_by, created_at
		FROM product_versions
		WHERE product_id = $1
		ORDER BY version DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []*ProductVersion
	for rows.Next() {
		v := &ProductVersion{}
		var snapshot []byte
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Version, &snapshot,
			&v.ChangeSummary, &v.ChangedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Snapshot = snapshot
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// RelationshipRepository stores directed product graph edges.
type RelationshipRepository struct {
	db DB
}

// NewRelationshipRepository creates a new relationship repository.
func NewRelationshipRepository(db DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

// Create inserts an edge. Asymmetric kinds reject a reverse edge of the
// same kind between the two products.
func (r *RelationshipRepository) Create(ctx context.Context, rel *ProductRelationship) error {
	if rel.SourceID == rel.TargetID {
		return fmt.Errorf("%w: self edge", ErrRelationCycle)
	}
	if !rel.Kind.Symmetric() {
		var n int
		err := r.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM product_relationships
			WHERE source_id = $1 AND target_id = $2 AND kind = $3
		`, rel.TargetID, rel.SourceID, rel.Kind).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrRelationCycle
		}
	}
	if rel.ID == uuid.Nil {
		rel.ID = uuid.New()
	}
	if rel.Confidence == 0 {
		rel.Confidence = 1
	}
	rel.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO product_relationships (id, source_id, target_id, kind, confidence, auto_detected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rel.ID, rel.SourceID, rel.TargetID, rel.Kind, rel.Confidence, rel.AutoDetected, rel.CreatedAt)
	return err
}

// ListBySource returns outgoing edges for a product.
func (r *RelationshipRepository) ListBySource(ctx context.Context, sourceID uuid.UUID) ([]*ProductRelationship, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, kind, confidence, auto_detected, created_at
		FROM product_relationships
		WHERE source_id = $1
	`, sourceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRelationships(rows)
}

// ListByProduct returns edges touching the product in either direction.
func (r *RelationshipRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*ProductRelationship, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, kind, confidence, auto_detected, created_at
		FROM product_relationships
		WHERE source_id = $1 OR target_id = $1
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRelationships(rows)
}

func scanRelationships(rows *sql.Rows) ([]*ProductRelationship, error) {
	var rels []*ProductRelationship
	for rows.Next() {
		rel := &ProductRelationship{}
		if err := rows.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &rel.Kind,
			&rel.Confidence, &rel.AutoDetected, &rel.CreatedAt); err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, rows.Err()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// isUniqueViolation detects duplicate-key errors from both drivers.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
