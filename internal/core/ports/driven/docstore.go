package driven

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// DocumentStore persists parsed source documents and their chunks.
// Chunk insertion is additive: saving chunks for one document never
// touches another document's chunks.
type DocumentStore interface {
	// SaveDocument stores or updates a document record.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns every document of a workspace, newest first.
	ListDocuments(ctx context.Context, workspaceID string) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	// Deleting an absent document is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// SaveChunks stores chunks. Chunks are upserted by ID.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// ListChunks returns chunks of one document, or of the whole workspace when
	// documentID is empty, ordered by document then chunk index.
	// A limit <= 0 returns every chunk.
	ListChunks(ctx context.Context, workspaceID, documentID string, limit int) ([]domain.Chunk, error)

	// MatchChunks is the similarity-search procedure: it returns chunks whose
	// cosine similarity to q.Vector is at least q.Threshold, best first.
	MatchChunks(ctx context.Context, q domain.MatchQuery) ([]domain.ScoredChunk, error)
}
