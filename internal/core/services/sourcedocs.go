package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/ranking"
)

// Ensure SourceDocService implements the interface.
var _ driving.ContextStore = (*SourceDocService)(nil)

// SourceDocService is the source-document index. Chunk insertion is
// additive and scoped to one document.
type SourceDocService struct {
	store     driven.DocumentStore
	threshold float64
}

// NewSourceDocService creates a new source document index.
// Vector retrieval returns only chunks at or above threshold.
func NewSourceDocService(store driven.DocumentStore, threshold float64) *SourceDocService {
	return &SourceDocService{store: store, threshold: threshold}
}

// Kind identifies the store.
func (s *SourceDocService) Kind() domain.StoreKind {
	return domain.StoreSourceDocs
}

// Fallback returns document order.
func (s *SourceDocService) Fallback() domain.RankMode {
	return domain.RankPosition
}

// Upsert adds chunks to the key's document. Chunks already tagged with a
// different document are rejected, as are chunk indexes that repeat within
// the batch or are held by another chunk of the document.
func (s *SourceDocService) Upsert(ctx context.Context, key domain.NamespaceKey, chunks []domain.Chunk) error {
	if err := validateDocumentKey(key); err != nil {
		return err
	}

	batch := make(map[int]string, len(chunks))
	ids := make(map[string]bool, len(chunks))
	for i := range chunks {
		if chunks[i].DocumentID != "" && chunks[i].DocumentID != key.DocumentID {
			return fmt.Errorf("%w: chunk %s belongs to document %s, not %s",
				domain.ErrInvalidInput, chunks[i].ID, chunks[i].DocumentID, key.DocumentID)
		}
		if other, ok := batch[chunks[i].Index]; ok {
			return fmt.Errorf("%w: chunks %s and %s share index %d",
				domain.ErrInvalidInput, other, chunks[i].ID, chunks[i].Index)
		}
		batch[chunks[i].Index] = chunks[i].ID
		ids[chunks[i].ID] = true
		chunks[i].DocumentID = key.DocumentID
		chunks[i].WorkspaceID = key.WorkspaceID
	}

	stored, err := s.store.ListChunks(ctx, key.WorkspaceID, key.DocumentID, 0)
	if err != nil {
		return fmt.Errorf("list chunks of %s: %w", key, err)
	}
	for _, existing := range stored {
		if ids[existing.ID] {
			continue
		}
		if id, ok := batch[existing.Index]; ok {
			return fmt.Errorf("%w: index %d of %s is already held by chunk %s, not %s",
				domain.ErrInvalidInput, existing.Index, key, existing.ID, id)
		}
	}

	if err := s.store.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks of %s: %w", key, err)
	}
	return nil
}

// Retrieve searches one document, or the whole workspace when the key has
// no document. With a query vector the store's similarity search runs;
// with text only, keyword ranking; with neither, chunks are listed in order.
func (s *SourceDocService) Retrieve(
	ctx context.Context, key domain.NamespaceKey, q domain.Query, k int,
) (domain.Retrieval, error) {
	if strings.TrimSpace(key.WorkspaceID) == "" {
		return domain.Retrieval{}, fmt.Errorf("%w: workspace is required", domain.ErrInvalidInput)
	}

	if q.HasVector() {
		matches, err := s.store.MatchChunks(ctx, domain.MatchQuery{
			Vector:      q.Vector,
			WorkspaceID: key.WorkspaceID,
			DocumentID:  key.DocumentID,
			Threshold:   s.threshold,
			Limit:       k,
		})
		if err != nil {
			return domain.Retrieval{}, fmt.Errorf("match chunks: %w", err)
		}
		return domain.Retrieval{Mode: domain.RankVector, Chunks: matches}, nil
	}

	limit := k
	if strings.TrimSpace(q.Text) != "" {
		limit = 0
	}
	candidates, err := s.store.ListChunks(ctx, key.WorkspaceID, key.DocumentID, limit)
	if err != nil {
		return domain.Retrieval{}, fmt.Errorf("list chunks: %w", err)
	}

	if strings.TrimSpace(q.Text) != "" {
		return ranking.Fallback(domain.RankKeyword, q.Text, candidates, k)
	}
	return ranking.Fallback(s.Fallback(), "", candidates, k)
}

// Delete removes the key's document and all its chunks.
func (s *SourceDocService) Delete(ctx context.Context, key domain.NamespaceKey) error {
	if err := validateDocumentKey(key); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, key.DocumentID); err != nil {
		return fmt.Errorf("delete document %s: %w", key.DocumentID, err)
	}
	return nil
}

func validateDocumentKey(key domain.NamespaceKey) error {
	if strings.TrimSpace(key.WorkspaceID) == "" || strings.TrimSpace(key.DocumentID) == "" {
		return fmt.Errorf("%w: workspace and document are required", domain.ErrInvalidInput)
	}
	return nil
}
