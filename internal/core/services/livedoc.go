package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
	"github.com/boovines/Granted/internal/ranking"
)

// Ensure LiveDocService implements the interface.
var _ driving.LiveDocService = (*LiveDocService)(nil)

// LiveDocService maintains the live-editing document cache. Every update
// fully replaces the chunks of one (workspace, filename) pair.
type LiveDocService struct {
	store     driven.LiveDocStore
	embedder  *Embedder
	pipeline  driven.PostProcessorPipeline
	threshold float64
	locks     *keyLock
}

// NewLiveDocService creates a new live document service.
// The embedder may be unavailable; chunks are then stored without
// embeddings and retrieval falls back to keyword or position ranking.
func NewLiveDocService(
	store driven.LiveDocStore,
	embedder *Embedder,
	pipeline driven.PostProcessorPipeline,
	threshold float64,
) *LiveDocService {
	return &LiveDocService{
		store:     store,
		embedder:  embedder,
		pipeline:  pipeline,
		threshold: threshold,
		locks:     newKeyLock(),
	}
}

// Kind identifies the store.
func (s *LiveDocService) Kind() domain.StoreKind {
	return domain.StoreLiveDocs
}

// Fallback returns document order.
func (s *LiveDocService) Fallback() domain.RankMode {
	return domain.RankPosition
}

// UpdateDocument chunks and embeds fullText and replaces the stored chunks
// of the file. Blank text clears the file.
func (s *LiveDocService) UpdateDocument(ctx context.Context, workspaceID, filename, fullText string) (int, error) {
	key := domain.LiveDocKey(workspaceID, filename)
	if err := validateLiveKey(key); err != nil {
		return 0, err
	}

	logger.Debug("Updating live document %s (%d chars)", key, len(fullText))

	chunks, err := s.pipeline.Process(ctx, &domain.Segment{
		Text:        fullText,
		WorkspaceID: workspaceID,
		Filename:    filename,
	})
	if err != nil {
		return 0, fmt.Errorf("chunk live document: %w", err)
	}

	if len(chunks) > 0 && s.embedder.Available() {
		if err := s.embedder.EmbedChunks(ctx, chunks); err != nil {
			return 0, fmt.Errorf("embed live document: %w", err)
		}
	}

	if err := s.Upsert(ctx, key, chunks); err != nil {
		return 0, err
	}

	logger.Debug("Stored %d chunks for %s", len(chunks), key)
	return len(chunks), nil
}

// Upsert replaces every chunk under key with chunks.
func (s *LiveDocService) Upsert(ctx context.Context, key domain.NamespaceKey, chunks []domain.Chunk) error {
	if err := validateLiveKey(key); err != nil {
		return err
	}
	for i := range chunks {
		chunks[i].WorkspaceID = key.WorkspaceID
		chunks[i].Filename = key.Filename
		chunks[i].DocumentID = ""
	}

	unlock := s.locks.Lock(key.String())
	defer unlock()

	if err := s.store.ReplaceChunks(ctx, key.WorkspaceID, key.Filename, chunks); err != nil {
		return fmt.Errorf("replace live chunks %s: %w", key, err)
	}
	return nil
}

// Retrieve ranks the chunks of one file, or of the whole workspace when
// the key has no filename.
func (s *LiveDocService) Retrieve(
	ctx context.Context, key domain.NamespaceKey, q domain.Query, k int,
) (domain.Retrieval, error) {
	if strings.TrimSpace(key.WorkspaceID) == "" {
		return domain.Retrieval{}, fmt.Errorf("%w: workspace is required", domain.ErrInvalidInput)
	}

	candidates, err := s.store.ListChunks(ctx, key.WorkspaceID, key.Filename)
	if err != nil {
		return domain.Retrieval{}, fmt.Errorf("list live chunks %s: %w", key, err)
	}

	return rankCandidates(q, candidates, k, s.threshold, s.Fallback())
}

// Delete removes the file's chunks.
func (s *LiveDocService) Delete(ctx context.Context, key domain.NamespaceKey) error {
	if err := validateLiveKey(key); err != nil {
		return err
	}

	unlock := s.locks.Lock(key.String())
	defer unlock()

	if err := s.store.DeleteChunks(ctx, key.WorkspaceID, key.Filename); err != nil {
		return fmt.Errorf("delete live chunks %s: %w", key, err)
	}
	return nil
}

// ListFiles returns the live filenames of a workspace.
func (s *LiveDocService) ListFiles(ctx context.Context, workspaceID string) ([]string, error) {
	files, err := s.store.ListFiles(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list live files: %w", err)
	}
	return files, nil
}

func validateLiveKey(key domain.NamespaceKey) error {
	if strings.TrimSpace(key.WorkspaceID) == "" || strings.TrimSpace(key.Filename) == "" {
		return fmt.Errorf("%w: workspace and filename are required", domain.ErrInvalidInput)
	}
	return nil
}

// rankCandidates picks the rank mode from the query: vector when it has a
// vector, keyword when it has only text, otherwise the store fallback.
func rankCandidates(
	q domain.Query, candidates []domain.Chunk, k int, threshold float64, fallback domain.RankMode,
) (domain.Retrieval, error) {
	switch {
	case q.HasVector():
		scored, err := ranking.Rank(q.Vector, candidates, k, threshold)
		if err != nil {
			return domain.Retrieval{}, err
		}
		return domain.Retrieval{Mode: domain.RankVector, Chunks: scored}, nil
	case strings.TrimSpace(q.Text) != "":
		return ranking.Fallback(domain.RankKeyword, q.Text, candidates, k)
	default:
		return ranking.Fallback(fallback, "", candidates, k)
	}
}
