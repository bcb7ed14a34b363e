package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// liveDocStore implements driven.LiveDocStore.
type liveDocStore struct {
	store *Store
}

var _ driven.LiveDocStore = (*liveDocStore)(nil)

// liveColumns matches the layout scanChunks expects.
const liveColumns = `id, '' AS document_id, workspace_id, filename, chunk_index, content, embedding, metadata, created_at`

// ReplaceChunks deletes and re-inserts a file's chunks in one transaction.
func (s *liveDocStore) ReplaceChunks(ctx context.Context, workspaceID, filename string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM live_chunks WHERE workspace_id = ? AND filename = ?", workspaceID, filename); err != nil {
		return fmt.Errorf("deleting live chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO live_chunks (id, workspace_id, filename, chunk_index, content, embedding, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

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

			if _, err := stmt.ExecContext(ctx, chunk.ID, workspaceID, filename, chunk.Index, chunk.Text,
				float32SliceToBytes(chunk.Embedding), metadataJSON, createdAt.UTC()); err != nil {
				return fmt.Errorf("saving live chunk: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListChunks returns the chunks of one file, or of the whole workspace.
func (s *liveDocStore) ListChunks(ctx context.Context, workspaceID, filename string) ([]domain.Chunk, error) {
	query := `SELECT ` + liveColumns + ` FROM live_chunks WHERE workspace_id = ?`
	args := []any{workspaceID}
	if filename != "" {
		query += ` AND filename = ?`
		args = append(args, filename)
	}
	query += ` ORDER BY filename, chunk_index`

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying live chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// DeleteChunks removes every chunk of (workspaceID, filename).
func (s *liveDocStore) DeleteChunks(ctx context.Context, workspaceID, filename string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM live_chunks WHERE workspace_id = ? AND filename = ?", workspaceID, filename)
	if err != nil {
		return fmt.Errorf("deleting live chunks: %w", err)
	}
	return nil
}

// ListFiles returns the sorted filenames with chunks in a workspace.
func (s *liveDocStore) ListFiles(ctx context.Context, workspaceID string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT filename FROM live_chunks WHERE workspace_id = ? ORDER BY filename
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("querying live files: %w", err)
	}
	defer rows.Close()

	files := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning filename: %w", err)
		}
		files = append(files, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating live files: %w", err)
	}
	return files, nil
}
