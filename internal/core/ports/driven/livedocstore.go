package driven

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// LiveDocStore persists chunks of documents being edited live.
// Chunks are keyed by (workspace, filename).
type LiveDocStore interface {
	// ReplaceChunks deletes every chunk of (workspaceID, filename) and inserts
	// chunks in their place. Readers never observe a mix of old and new chunks
	// when the store supports transactions.
	ReplaceChunks(ctx context.Context, workspaceID, filename string, chunks []domain.Chunk) error

	// ListChunks returns the chunks of one file, or of every file in the
	// workspace when filename is empty, ordered by filename then chunk index.
	ListChunks(ctx context.Context, workspaceID, filename string) ([]domain.Chunk, error)

	// DeleteChunks removes every chunk of (workspaceID, filename).
	// Deleting an absent key is not an error.
	DeleteChunks(ctx context.Context, workspaceID, filename string) error

	// ListFiles returns the filenames with chunks in a workspace, sorted.
	ListFiles(ctx context.Context, workspaceID string) ([]string, error)
}
