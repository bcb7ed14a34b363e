package driving

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// LiveDocService maintains the live-editing document cache.
type LiveDocService interface {
	ContextStore

	// UpdateDocument chunks and embeds fullText and replaces the stored
	// chunks of (workspaceID, filename). Returns the number of chunks stored.
	UpdateDocument(ctx context.Context, workspaceID, filename, fullText string) (int, error)

	// ListFiles returns the live filenames of a workspace.
	ListFiles(ctx context.Context, workspaceID string) ([]string, error)
}

// IngestService turns uploaded files into searchable source documents.
type IngestService interface {
	// Ingest parses data with the document parser and indexes the result.
	Ingest(ctx context.Context, workspaceID, filename string, data []byte) (*domain.Document, error)

	// IngestParsed indexes an already-parsed document.
	IngestParsed(ctx context.Context, workspaceID, filename string, parsed *domain.ParsedDocument) (*domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns the documents of a workspace.
	ListDocuments(ctx context.Context, workspaceID string) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
}
