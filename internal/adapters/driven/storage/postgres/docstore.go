package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

const chunkColumns = `id, document_id, workspace_id, filename, chunk_index, content, embedding, metadata, created_at`

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling document metadata: %w", err)
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err = s.store.pool.Exec(ctx, `
		INSERT INTO documents (id, workspace_id, filename, status, metadata, error, uploaded_at)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			filename = excluded.filename,
			status = excluded.status,
			metadata = excluded.metadata,
			error = excluded.error
	`, doc.ID, doc.WorkspaceID, doc.Filename, doc.Status.String(), string(metadataJSON), doc.Error, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.pool.QueryRow(ctx, `
		SELECT id, workspace_id, filename, status, metadata, error, uploaded_at
		FROM documents WHERE id = $1
	`, id)

	doc, err := scanDocument(row)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

// ListDocuments returns the documents of a workspace, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, workspaceID string) ([]domain.Document, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT id, workspace_id, filename, status, metadata, error, uploaded_at
		FROM documents WHERE workspace_id = $1
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
	return pgx.BeginFunc(ctx, s.store.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM document_chunks WHERE document_id = $1", id); err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM documents WHERE id = $1", id); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return nil
	})
}

// SaveChunks upserts chunks by ID in one batch. An index already held by
// another chunk of the document fails the batch with domain.ErrInvalidInput.
func (s *documentStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	now := time.Now().UTC()
	for _, chunk := range chunks {
		metadataJSON, err := marshalMetadata(chunk.Metadata)
		if err != nil {
			return err
		}
		createdAt := chunk.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		batch.Queue(`
			INSERT INTO document_chunks (`+chunkColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9)
			ON CONFLICT (id) DO UPDATE SET
				document_id = excluded.document_id,
				workspace_id = excluded.workspace_id,
				filename = excluded.filename,
				chunk_index = excluded.chunk_index,
				content = excluded.content,
				embedding = excluded.embedding,
				metadata = excluded.metadata
		`, chunk.ID, chunk.DocumentID, chunk.WorkspaceID, chunk.Filename, chunk.Index, chunk.Text,
			vectorParam(chunk.Embedding), metadataJSON, createdAt)
	}

	return pgx.BeginFunc(ctx, s.store.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: duplicate chunk index: %s", domain.ErrInvalidInput, pgErr.Detail)
			}
			return fmt.Errorf("saving chunks: %w", err)
		}
		return nil
	})
}

// ListChunks returns chunks ordered by document then chunk index.
func (s *documentStore) ListChunks(
	ctx context.Context, workspaceID, documentID string, limit int,
) ([]domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM document_chunks
		WHERE workspace_id = $1 AND ($2::text = '' OR document_id = $2::text)
		ORDER BY document_id, chunk_index`
	args := []any{workspaceID, documentID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.store.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// MatchChunks runs the server-side match_document_chunks function.
func (s *documentStore) MatchChunks(ctx context.Context, q domain.MatchQuery) ([]domain.ScoredChunk, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}

	rows, err := s.store.pool.Query(ctx, `
		SELECT `+chunkColumns+`, similarity
		FROM match_document_chunks($1, $2, $3, $4, $5)
	`, pgvector.NewVector(q.Vector), q.WorkspaceID, q.DocumentID, q.Threshold, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("matching chunks: %w", err)
	}
	defer rows.Close()

	scored := make([]domain.ScoredChunk, 0)
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := scanChunk(rows, &sc.Chunk, &sc.Score); err != nil {
			return nil, err
		}
		scored = append(scored, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return scored, nil
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var metadataJSON []byte

	if err := row.Scan(&doc.ID, &doc.WorkspaceID, &doc.Filename, &status,
		&metadataJSON, &doc.Error, &doc.UploadedAt); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &doc, nil
}

// scanChunk reads the chunk columns plus any extra destinations.
func scanChunk(row pgx.Row, chunk *domain.Chunk, extra ...any) error {
	var embedding *pgvector.Vector
	var metadataJSON []byte

	dest := []any{&chunk.ID, &chunk.DocumentID, &chunk.WorkspaceID, &chunk.Filename,
		&chunk.Index, &chunk.Text, &embedding, &metadataJSON, &chunk.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = vectorValue(embedding)
	metadata, err := unmarshalMetadata(metadataJSON)
	if err != nil {
		return err
	}
	chunk.Metadata = metadata
	return nil
}

func collectChunks(rows pgx.Rows) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, 0)
	for rows.Next() {
		var chunk domain.Chunk
		if err := scanChunk(rows, &chunk); err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}
