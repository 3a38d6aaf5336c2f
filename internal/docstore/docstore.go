// Package docstore reads and updates document records in Postgres. The
// store is the durable source of truth; the in-memory indexes are rebuilt
// from it at startup.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docusage-ai/search-platform/pkg/postgres"

	apperrors "github.com/docusage-ai/search-platform/pkg/errors"
)

// Document status values as stored.
const (
	StatusPending  = "pending"
	StatusIndexing = "indexing"
	StatusReady    = "ready"
	StatusFailed   = "failed"
)

// Record is one stored document.
type Record struct {
	ID            string
	Title         string
	ExtractedText string
	OCRText       string
	Summary       string
	Status        string
	UpdatedAt     time.Time
}

// FullText flattens the extracted and OCR text into the string the
// indexes consume.
func (r Record) FullText() string {
	return strings.TrimSpace(r.ExtractedText + " " + r.OCRText)
}

// Store wraps document queries over a Postgres client.
type Store struct {
	db *postgres.Client
}

// New creates a Store.
func New(db *postgres.Client) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL DEFAULT '',
    extracted_text TEXT NOT NULL DEFAULT '',
    ocr_text       TEXT NOT NULL DEFAULT '',
    summary        TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'pending',
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (status);`
	if _, err := s.db.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring documents schema: %w", err)
	}
	return nil
}

// Get fetches one document by ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	const q = `
SELECT id, title, extracted_text, ocr_text, summary, status, updated_at
FROM documents WHERE id = $1`
	var rec Record
	err := s.db.DB.QueryRowContext(ctx, q, id).Scan(
		&rec.ID, &rec.Title, &rec.ExtractedText, &rec.OCRText,
		&rec.Summary, &rec.Status, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, id)
	}
	if err != nil {
		return Record{}, fmt.Errorf("fetching document %s: %w", id, err)
	}
	return rec, nil
}

// Upsert inserts or replaces a document record.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO documents (id, title, extracted_text, ocr_text, summary, status, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    extracted_text = EXCLUDED.extracted_text,
    ocr_text = EXCLUDED.ocr_text,
    summary = EXCLUDED.summary,
    status = EXCLUDED.status,
    updated_at = now()`
	if _, err := s.db.DB.ExecContext(ctx, q,
		rec.ID, rec.Title, rec.ExtractedText, rec.OCRText, rec.Summary, rec.Status); err != nil {
		return fmt.Errorf("upserting document %s: %w", rec.ID, err)
	}
	return nil
}

// Delete removes a document record. Deleting an absent document is not
// an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting document %s: %w", id, err)
	}
	return nil
}

// ListReady streams all documents marked ready, for index rebuild.
func (s *Store) ListReady(ctx context.Context) ([]Record, error) {
	return s.listByStatus(ctx, StatusReady)
}

func (s *Store) listByStatus(ctx context.Context, status string) ([]Record, error) {
	const q = `
SELECT id, title, extracted_text, ocr_text, summary, status, updated_at
FROM documents WHERE status = $1 ORDER BY updated_at`
	rows, err := s.db.DB.QueryContext(ctx, q, status)
	if err != nil {
		return nil, fmt.Errorf("listing %s documents: %w", status, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.ExtractedText, &rec.OCRText,
			&rec.Summary, &rec.Status, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return records, nil
}

// UpdateStatus moves a document through its indexing state machine.
func (s *Store) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := s.db.DB.ExecContext(ctx,
		`UPDATE documents SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrDocumentNotFound, id)
	}
	return nil
}
