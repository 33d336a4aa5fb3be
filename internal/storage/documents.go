package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentRepository handles ingested document records.
type DocumentRepository struct {
	db DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, filename, doc_type, mime_type, source_uri, checksum_sha256,
	file_size_bytes, page_count, extracted_text, brand_code, revision, status,
	processing_log, version, created_at, updated_at`

// Create inserts a document. A checksum already on file maps to
// ErrDuplicateDocument so callers can skip reprocessing.
func (r *DocumentRepository) Create(ctx context.Context, d *Document) error {
	if d.ChecksumSHA256 == "" {
		return NewValidationError("checksum_sha256", "required")
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DocStatusPending
	}
	if d.DocType == "" {
		d.DocType = DocTypeOther
	}
	if d.Version == 0 {
		d.Version = 1
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt

	log, err := jsonArg(orEmptyLog(d.ProcessingLog))
	if err != nil {
		return err
	}
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.Filename, d.DocType, d.MimeType, d.SourceURI, d.ChecksumSHA256,
		d.FileSizeBytes, d.PageCount, d.ExtractedText, d.BrandCode, d.Revision, d.Status,
		log, d.Version, d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateDocument, d.ChecksumSHA256)
	}
	return err
}

// GetByID retrieves a document by ID.
func (r *DocumentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	return scanDocument(row)
}

// GetByChecksum retrieves a document by its content hash.
func (r *DocumentRepository) GetByChecksum(ctx context.Context, checksum string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE checksum_sha256 = $1`, checksum)
	return scanDocument(row)
}

// List retrieves documents, optionally filtered by status, newest first.
func (r *DocumentRepository) List(ctx context.Context, status DocStatus, limit int) ([]*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Update rewrites mutable document fields after a processing stage.
func (r *DocumentRepository) Update(ctx context.Context, d *Document) error {
	d.UpdatedAt = time.Now()
	log, err := jsonArg(orEmptyLog(d.ProcessingLog))
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE documents SET
			doc_type = $1, source_uri = $2, page_count = $3, extracted_text = $4,
			brand_code = $5, revision = $6, status = $7, processing_log = $8,
			version = $9, updated_at = $10
		WHERE id = $11
	`, d.DocType, d.SourceURI, d.PageCount, d.ExtractedText,
		d.BrandCode, d.Revision, d.Status, log, d.Version, d.UpdatedAt, d.ID)
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

// AppendLog records a processing stage outcome and persists the log.
func (r *DocumentRepository) AppendLog(ctx context.Context, d *Document, stage, status, message string) error {
	d.ProcessingLog = append(d.ProcessingLog, ProcessingLogEntry{
		Stage:     stage,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	})
	log, err := jsonArg(d.ProcessingLog)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE documents SET processing_log = $1, updated_at = $2 WHERE id = $3`,
		log, time.Now(), d.ID)
	return err
}

// MarkSuperseded flags older processed revisions of the same filename family.
func (r *DocumentRepository) MarkSuperseded(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, updated_at = $2 WHERE id = $3`,
		DocStatusSuperseded, time.Now(), id)
	return err
}

// Count returns total documents, optionally by status.
func (r *DocumentRepository) Count(ctx context.Context, status DocStatus) (int, error) {
	var n int
	var err error
	if status == "" {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents WHERE status = $1`, status).Scan(&n)
	}
	return n, err
}

func scanDocument(row *sql.Row) (*Document, error) {
	d := &Document{}
	var log []byte
	err := row.Scan(
		&d.ID, &d.Filename, &d.DocType, &d.MimeType, &d.SourceURI, &d.ChecksumSHA256,
		&d.FileSizeBytes, &d.PageCount, &d.ExtractedText, &d.BrandCode, &d.Revision, &d.Status,
		&log, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := jsonScan(log, &d.ProcessingLog); err != nil {
		return nil, err
	}
	return d, nil
}

func scanDocumentRows(rows *sql.Rows) (*Document, error) {
	d := &Document{}
	var log []byte
	if err := rows.Scan(
		&d.ID, &d.Filename, &d.DocType, &d.MimeType, &d.SourceURI, &d.ChecksumSHA256,
		&d.FileSizeBytes, &d.PageCount, &d.ExtractedText, &d.BrandCode, &d.Revision, &d.Status,
		&log, &d.Version, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := jsonScan(log, &d.ProcessingLog); err != nil {
		return nil, err
	}
	return d, nil
}

func orEmptyLog(l []ProcessingLogEntry) []ProcessingLogEntry {
	if l == nil {
		return []ProcessingLogEntry{}
	}
	return l
}

// LinkRepository stores document-product provenance edges.
type LinkRepository struct {
	db DB
}

// NewLinkRepository creates a new link repository.
func NewLinkRepository(db DB) *LinkRepository {
	return &LinkRepository{db: db}
}

// Upsert writes a link, replacing relevance and extracted specs on repeat.
func (r *LinkRepository) Upsert(ctx context.Context, l *DocumentProductLink) error {
	if l.Relevance == "" {
		l.Relevance = RelevancePrimary
	}
	if l.Confidence == 0 {
		l.Confidence = 1
	}
	l.CreatedAt = time.Now()
	var extracted interface{}
	if len(l.ExtractedSpecs) > 0 {
		extracted = string(l.ExtractedSpecs)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO document_product_links (document_id, product_id, relevance, extracted_specs, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id, product_id) DO UPDATE SET
			relevance = EXCLUDED.relevance,
			extracted_specs = EXCLUDED.extracted_specs,
			confidence = EXCLUDED.confidence
	`, l.DocumentID, l.ProductID, l.Relevance, extracted, l.Confidence, l.CreatedAt)
	return err
}

// ListByProduct returns links pointing at a product.
func (r *LinkRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*DocumentProductLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document_id, product_id, relevance, extracted_specs, confidence, created_at
		FROM document_product_links
		WHERE product_id = $1
		ORDER BY created_at DESC
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

// ListByDocument returns links originating from a document.
func (r *LinkRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*DocumentProductLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT document_id, product_id, relevance, extracted_specs, confidence, created_at
		FROM document_product_links
		WHERE document_id = $1
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLinks(rows)
}

func scanLinks(rows *sql.Rows) ([]*DocumentProductLink, error) {
	var links []*DocumentProductLink
	for rows.Next() {
		l := &DocumentProductLink{}
		var extracted sql.NullString
		if err := rows.Scan(&l.DocumentID, &l.ProductID, &l.Relevance,
			&extracted, &l.Confidence, &l.CreatedAt); err != nil {
			return nil, err
		}
		if extracted.Valid {
			l.ExtractedSpecs = []byte(extracted.String)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}
