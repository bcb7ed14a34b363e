package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/ranking"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const chunkColumns = `id, document_id, workspace_id, filename, chunk_index, content, embedding, metadata, created_at`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling document metadata: %w", err)
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, workspace_id, filename, status, metadata, error, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			filename = excluded.filename,
			status = excluded.status,
			metadata = excluded.metadata,
			error = excluded.error
	`, doc.ID, doc.WorkspaceID, doc.Filename, doc.Status.String(), string(metadataJSON),
		doc.Error, doc.UploadedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, filename, status, metadata, error, uploaded_at
		FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns the documents of a workspace, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, workspaceID string) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, workspace_id, filename, status, metadata, error, uploaded_at
		FROM documents WHERE workspace_id = ?
		ORDER BY uploaded_at DESC, id
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// DeleteDocument removes a document and its chunks in one transaction.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM document_chunks WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveChunks upserts chunks by ID. Other chunks of the same document are kept.
// An index already held by another chunk of the document fails the whole
// batch with domain.ErrInvalidInput.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			workspace_id = excluded.workspace_id,
			filename = excluded.filename,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		if err := execChunk(ctx, stmt, &chunks[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListChunks returns chunks ordered by document then chunk index.
func (s *documentStore) ListChunks(
	ctx context.Context, workspaceID, documentID string, limit int,
) ([]domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE workspace_id = ?`
	args := []any{workspaceID}
	if documentID != "" {
		query += ` AND document_id = ?`
		args = append(args, documentID)
	}
	query += ` ORDER BY document_id, chunk_index`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// MatchChunks loads the embedded chunks in scope and ranks them by cosine
// similarity. SQLite has no vector index, so scoring happens in process.
func (s *documentStore) MatchChunks(ctx context.Context, q domain.MatchQuery) ([]domain.ScoredChunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks
		WHERE workspace_id = ? AND embedding IS NOT NULL`
	args := []any{q.WorkspaceID}
	if q.DocumentID != "" {
		query += ` AND document_id = ?`
		args = append(args, q.DocumentID)
	}
	query += ` ORDER BY document_id, chunk_index`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	candidates, err := scanChunks(rows)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(q.Vector, candidates, q.Limit, q.Threshold)
}

// execChunk writes one chunk through a prepared insert.
func execChunk(ctx context.Context, stmt *sql.Stmt, chunk *domain.Chunk) error {
	metadataJSON, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.WorkspaceID, chunk.Filename,
		chunk.Index, chunk.Text, float32SliceToBytes(chunk.Embedding), metadataJSON,
		chunk.CreatedAt.UTC()); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: index %d of document %s is already taken",
				domain.ErrInvalidInput, chunk.Index, chunk.DocumentID)
		}
		return fmt.Errorf("saving chunk: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// scanDocument scans a single document row.
func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status, metadataJSON string

	if err := row.Scan(&doc.ID, &doc.WorkspaceID, &doc.Filename, &status,
		&metadataJSON, &doc.Error, &doc.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanChunks reads every chunk row. Both chunk tables share the column layout;
// live chunks carry an empty document_id.
func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0)
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var metadataJSON string

		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.WorkspaceID, &chunk.Filename,
			&chunk.Index, &chunk.Text, &embeddingBlob, &metadataJSON, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}

		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		metadata, err := unmarshalMetadata(metadataJSON)
		if err != nil {
			return nil, err
		}
		chunk.Metadata = metadata

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}
