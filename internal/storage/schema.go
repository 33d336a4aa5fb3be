package storage

import (
	"context"
	"fmt"
	"strings"
)

// Migrate creates the schema if it does not exist. Statements are idempotent
// so repeated startups are safe.
func (s *Store) Migrate(ctx context.Context) error {
	var stmts []string
	if s.driver == DriverPostgres {
		stmts = postgresSchema(s.embeddingDim)
	} else {
		stmts = sqliteSchema()
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func postgresSchema(dim int) []string {
	return append(coreSchema(dim),
		// Free-text product search runs over a generated tsvector; SQLite
		// falls back to LIKE in the repository.
		`ALTER TABLE products ADD COLUMN IF NOT EXISTS search_vector tsvector
			GENERATED ALWAYS AS (to_tsvector('english', model_number || ' ' || product_line || ' ' || description)) STORED`,
		`CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN (search_vector)`,
		// The audit log is append-only at the store level, not just by
		// repository convention.
		`CREATE OR REPLACE FUNCTION audit_log_block_mutation() RETURNS trigger AS $fn$
			BEGIN
				RAISE EXCEPTION 'audit_log is append-only';
			END
		$fn$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS audit_log_append_only ON audit_log`,
		`CREATE TRIGGER audit_log_append_only
			BEFORE UPDATE OR DELETE ON audit_log
			FOR EACH ROW EXECUTE FUNCTION audit_log_block_mutation()`,
	)
}

func coreSchema(dim int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS brands (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			parent_org TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS families (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			super_category TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS spec_registry (
			id UUID PRIMARY KEY,
			canonical_name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			data_type TEXT NOT NULL,
			unit TEXT NOT NULL DEFAULT '',
			unit_system TEXT NOT NULL DEFAULT 'none',
			family_scope JSONB NOT NULL DEFAULT '[]',
			synonyms JSONB NOT NULL DEFAULT '[]',
			unit_conversions JSONB NOT NULL DEFAULT '{}',
			allowed_values JSONB NOT NULL DEFAULT '[]',
			numeric_min DOUBLE PRECISION,
			numeric_max DOUBLE PRECISION,
			is_filterable BOOLEAN NOT NULL DEFAULT FALSE,
			is_comparable BOOLEAN NOT NULL DEFAULT TRUE,
			is_searchable BOOLEAN NOT NULL DEFAULT TRUE,
			is_critical BOOLEAN NOT NULL DEFAULT FALSE,
			sort_order INTEGER NOT NULL DEFAULT 1000,
			auto_discovered BOOLEAN NOT NULL DEFAULT FALSE,
			approved BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY,
			model_number TEXT NOT NULL UNIQUE,
			version INTEGER NOT NULL DEFAULT 1,
			brand_code TEXT NOT NULL,
			family_code TEXT NOT NULL,
			product_line TEXT NOT NULL DEFAULT '',
			controller_tier TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'draft',
			storage_capacity_cuft DOUBLE PRECISION,
			temp_range_min_c DOUBLE PRECISION,
			temp_range_max_c DOUBLE PRECISION,
			door_count INTEGER,
			door_type TEXT,
			shelf_count INTEGER,
			refrigerant TEXT,
			voltage_v DOUBLE PRECISION,
			amperage DOUBLE PRECISION,
			product_weight_lbs DOUBLE PRECISION,
			ext_width_in DOUBLE PRECISION,
			ext_depth_in DOUBLE PRECISION,
			ext_height_in DOUBLE PRECISION,
			specs JSONB NOT NULL DEFAULT '{}',
			certifications JSONB NOT NULL DEFAULT '[]',
			revision TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			released_at TIMESTAMPTZ,
			discontinued_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_family ON products (family_code)`,
		`CREATE INDEX IF NOT EXISTS idx_products_brand ON products (brand_code)`,
		`CREATE INDEX IF NOT EXISTS idx_products_status ON products (status)`,
		`CREATE INDEX IF NOT EXISTS idx_products_specs ON products USING GIN (specs)`,
		`CREATE TABLE IF NOT EXISTS product_versions (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL REFERENCES products(id),
			version INTEGER NOT NULL,
			snapshot JSONB NOT NULL,
			change_summary TEXT NOT NULL DEFAULT '',
			changed_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (product_id, version)
		)`,
		`CREATE TABLE IF NOT EXISTS product_relationships (
			id UUID PRIMARY KEY,
			source_id UUID NOT NULL REFERENCES products(id),
			target_id UUID NOT NULL REFERENCES products(id),
			kind TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1,
			auto_detected BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (source_id, target_id, kind)
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			filename TEXT NOT NULL,
			doc_type TEXT NOT NULL DEFAULT 'other',
			mime_type TEXT NOT NULL DEFAULT '',
			source_uri TEXT NOT NULL DEFAULT '',
			checksum_sha256 TEXT NOT NULL UNIQUE,
			file_size_bytes BIGINT NOT NULL DEFAULT 0,
			page_count INTEGER NOT NULL DEFAULT 0,
			extracted_text TEXT NOT NULL DEFAULT '',
			brand_code TEXT NOT NULL DEFAULT '',
			revision TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			processing_log JSONB NOT NULL DEFAULT '[]',
			version INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents (status)`,
		`CREATE TABLE IF NOT EXISTS document_product_links (
			document_id UUID NOT NULL REFERENCES documents(id),
			product_id UUID NOT NULL REFERENCES products(id),
			relevance TEXT NOT NULL DEFAULT 'primary',
			extracted_specs JSONB,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (document_id, product_id)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id),
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			chunk_type TEXT NOT NULL DEFAULT 'text',
			page_number INTEGER NOT NULL DEFAULT 0,
			section_title TEXT NOT NULL DEFAULT '',
			product_ids JSONB NOT NULL DEFAULT '[]',
			spec_names JSONB NOT NULL DEFAULT '[]',
			embedding vector(%d),
			token_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (document_id, chunk_index)
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks (document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_type ON chunks (chunk_type)`,
		`CREATE TABLE IF NOT EXISTS spec_conflicts (
			id UUID PRIMARY KEY,
			product_id UUID NOT NULL REFERENCES products(id),
			spec_name TEXT NOT NULL,
			existing_value TEXT NOT NULL,
			new_value TEXT NOT NULL,
			source_doc_id UUID NOT NULL,
			existing_doc_id UUID,
			severity TEXT NOT NULL DEFAULT 'medium',
			resolution TEXT NOT NULL DEFAULT 'pending',
			resolved_value TEXT NOT NULL DEFAULT '',
			resolved_by TEXT NOT NULL DEFAULT '',
			resolved_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_product ON spec_conflicts (product_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conflicts_resolution ON spec_conflicts (resolution)`,
		`CREATE TABLE IF NOT EXISTS equivalence_rules (
			id UUID PRIMARY KEY,
			family_code TEXT NOT NULL UNIQUE,
			required_match JSONB NOT NULL DEFAULT '[]',
			tolerance_map JSONB NOT NULL DEFAULT '{}',
			priority_specs JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingestion_jobs (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'queued',
			total_files INTEGER NOT NULL DEFAULT 0,
			processed_files INTEGER NOT NULL DEFAULT 0,
			failed_files INTEGER NOT NULL DEFAULT 0,
			skipped_duplicates INTEGER NOT NULL DEFAULT 0,
			new_products INTEGER NOT NULL DEFAULT 0,
			updated_products INTEGER NOT NULL DEFAULT 0,
			conflicts_found INTEGER NOT NULL DEFAULT 0,
			chunks_created INTEGER NOT NULL DEFAULT 0,
			new_specs_discovered INTEGER NOT NULL DEFAULT 0,
			submitted_by TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id UUID PRIMARY KEY,
			resource_type TEXT NOT NULL,
			resource_id UUID NOT NULL,
			action TEXT NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT '',
			payload JSONB,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_log (resource_type, resource_id)`,
	}
}

func sqliteSchema() []string {
	stmts := coreSchema(0)
	out := make([]string, 0, len(stmts)+2)
	for _, stmt := range stmts {
		if strings.HasPrefix(stmt, "CREATE EXTENSION") {
			continue
		}
		out = append(out, sqliteRewrite(stmt))
	}
	out = append(out,
		`CREATE TRIGGER IF NOT EXISTS audit_log_no_update
			BEFORE UPDATE ON audit_log
			BEGIN SELECT RAISE(ABORT, 'audit_log is append-only'); END`,
		`CREATE TRIGGER IF NOT EXISTS audit_log_no_delete
			BEFORE DELETE ON audit_log
			BEGIN SELECT RAISE(ABORT, 'audit_log is append-only'); END`,
	)
	return out
}

// sqliteRewrite maps Postgres column types onto SQLite storage classes.
// JSON payloads and vectors live in TEXT columns.
func sqliteRewrite(stmt string) string {
	r := strings.NewReplacer(
		"UUID", "TEXT",
		"TIMESTAMPTZ", "TIMESTAMP",
		"JSONB", "TEXT",
		"DOUBLE PRECISION", "REAL",
		"BIGINT", "INTEGER",
		" USING GIN (specs)", " (family_code)",
	)
	stmt = r.Replace(stmt)
	// vector(N) has no SQLite analogue; the literal text is scanned in-process.
	if i := strings.Index(stmt, "vector("); i >= 0 {
		j := strings.Index(stmt[i:], ")")
		stmt = stmt[:i] + "TEXT" + stmt[i+j+1:]
	}
	return stmt
}
