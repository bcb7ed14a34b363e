package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/ranking"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string]map[string]domain.Chunk // documentID -> chunkID -> chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]map[string]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns the documents of a workspace, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, workspaceID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0)
	for _, doc := range s.documents {
		if doc.WorkspaceID == workspaceID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// SaveChunks upserts chunks by ID. Other chunks of the same document are kept.
// A chunk index may be held by only one chunk per document; a batch that
// breaks this is rejected whole with domain.ErrInvalidInput.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndexes(chunks); err != nil {
		return err
	}
	for _, chunk := range chunks {
		byID, ok := s.chunks[chunk.DocumentID]
		if !ok {
			byID = make(map[string]domain.Chunk)
			s.chunks[chunk.DocumentID] = byID
		}
		byID[chunk.ID] = chunk
	}
	return nil
}

// checkIndexes reports the first (document, index) pair claimed by two
// chunks once chunks are applied. Callers hold the write lock.
func (s *DocumentStore) checkIndexes(chunks []domain.Chunk) error {
	type slot struct {
		documentID string
		index      int
	}

	saving := make(map[string]bool, len(chunks))
	for _, chunk := range chunks {
		saving[chunk.ID] = true
	}

	owners := make(map[slot]string, len(chunks))
	for _, chunk := range chunks {
		at := slot{chunk.DocumentID, chunk.Index}
		if id, ok := owners[at]; ok && id != chunk.ID {
			return fmt.Errorf("%w: chunks %s and %s share index %d of document %s",
				domain.ErrInvalidInput, id, chunk.ID, chunk.Index, chunk.DocumentID)
		}
		owners[at] = chunk.ID

		for id, existing := range s.chunks[chunk.DocumentID] {
			if existing.Index == chunk.Index && !saving[id] {
				return fmt.Errorf("%w: index %d of document %s is held by chunk %s",
					domain.ErrInvalidInput, chunk.Index, chunk.DocumentID, id)
			}
		}
	}
	return nil
}

// ListChunks returns chunks ordered by document then chunk index.
func (s *DocumentStore) ListChunks(
	_ context.Context, workspaceID, documentID string, limit int,
) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Chunk, 0)
	for docID, byID := range s.chunks {
		if documentID != "" && docID != documentID {
			continue
		}
		for _, chunk := range byID {
			if chunk.WorkspaceID == workspaceID {
				out = append(out, chunk)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Index < out[j].Index
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MatchChunks scores every chunk in scope by cosine similarity.
func (s *DocumentStore) MatchChunks(ctx context.Context, q domain.MatchQuery) ([]domain.ScoredChunk, error) {
	candidates, err := s.ListChunks(ctx, q.WorkspaceID, q.DocumentID, 0)
	if err != nil {
		return nil, err
	}
	return ranking.Rank(q.Vector, candidates, q.Limit, q.Threshold)
}
