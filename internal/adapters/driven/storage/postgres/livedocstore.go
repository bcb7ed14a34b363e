package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// liveDocStore implements driven.LiveDocStore.
type liveDocStore struct {
	store *Store
}

var _ driven.LiveDocStore = (*liveDocStore)(nil)

const liveColumns = `id, '' AS document_id, workspace_id, filename, chunk_index, content, embedding, metadata, created_at`

// ReplaceChunks deletes and re-inserts a file's chunks in one transaction.
func (s *liveDocStore) ReplaceChunks(ctx context.Context, workspaceID, filename string, chunks []domain.Chunk) error {
	batch := &pgx.Batch{}
	batch.Queue("DELETE FROM live_chunks WHERE workspace_id = $1 AND filename = $2", workspaceID, filename)

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
			INSERT INTO live_chunks (id, workspace_id, filename, chunk_index, content, embedding, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
		`, chunk.ID, workspaceID, filename, chunk.Index, chunk.Text,
			vectorParam(chunk.Embedding), metadataJSON, createdAt)
	}

	return pgx.BeginFunc(ctx, s.store.pool, func(tx pgx.Tx) error {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("replacing live chunks: %w", err)
		}
		return nil
	})
}

// ListChunks returns the chunks of one file, or of the whole workspace.
func (s *liveDocStore) ListChunks(ctx context.Context, workspaceID, filename string) ([]domain.Chunk, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT `+liveColumns+` FROM live_chunks
		WHERE workspace_id = $1 AND ($2::text = '' OR filename = $2::text)
		ORDER BY filename, chunk_index
	`, workspaceID, filename)
	if err != nil {
		return nil, fmt.Errorf("querying live chunks: %w", err)
	}
	defer rows.Close()

	return collectChunks(rows)
}

// DeleteChunks removes every chunk of (workspaceID, filename).
func (s *liveDocStore) DeleteChunks(ctx context.Context, workspaceID, filename string) error {
	_, err := s.store.pool.Exec(ctx,
		"DELETE FROM live_chunks WHERE workspace_id = $1 AND filename = $2", workspaceID, filename)
	if err != nil {
		return fmt.Errorf("deleting live chunks: %w", err)
	}
	return nil
}

// ListFiles returns the sorted filenames with chunks in a workspace.
func (s *liveDocStore) ListFiles(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT DISTINCT filename FROM live_chunks WHERE workspace_id = $1 ORDER BY filename
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying live files: %w", err)
	}

	files, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scanning live files: %w", err)
	}
	if files == nil {
		files = []string{}
	}
	return files, nil
}
