package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/taskdesk/internal/services/taskdesk/storage"
)

const documentColumns = `id, owner_id, filename, filepath, created_at`

func scanDocument(row rowScanner) (storage.Document, error) {
	var (
		doc       storage.Document
		createdAt int64
	)
	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.Filepath, &createdAt); err != nil {
		return storage.Document{}, err
	}
	doc.CreatedAt = fromMillis(createdAt)
	return doc, nil
}

// CountDocuments returns how many documents ownerID holds.
func (s *Store) CountDocuments(ctx context.Context, ownerID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE owner_id = ?`, ownerID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// PutDocumentWithinQuota inserts doc in a single statement that re-checks the
// owner's document count, so the limit holds under concurrent writers.
func (s *Store) PutDocumentWithinQuota(ctx context.Context, doc storage.Document, limit int) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("document id is required")
	}
	if strings.TrimSpace(doc.OwnerID) == "" {
		return fmt.Errorf("owner id is required")
	}
	if limit <= 0 {
		return storage.ErrQuotaExceeded
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
SELECT ?, ?, ?, ?, ?
WHERE (SELECT COUNT(*) FROM documents WHERE owner_id = ?) < ?`,
		doc.ID,
		doc.OwnerID,
		doc.Filename,
		doc.Filepath,
		toMillis(doc.CreatedAt),
		doc.OwnerID,
		limit,
	)
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("put document: %w", err)
	}
	if affected == 0 {
		return storage.ErrQuotaExceeded
	}
	return nil
}

// GetDocument fetches a document by ID.
func (s *Store) GetDocument(ctx context.Context, documentID string) (storage.Document, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Document{}, err
	}
	if strings.TrimSpace(documentID) == "" {
		return storage.Document{}, storage.ErrNotFound
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, documentID)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Document{}, storage.ErrNotFound
		}
		return storage.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns an owner's documents in upload order.
func (s *Store) ListDocuments(ctx context.Context, ownerID string) ([]storage.Document, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := make([]storage.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// DeleteDocument removes a document record.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
