package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// Ensure LiveDocStore implements the interface.
var _ driven.LiveDocStore = (*LiveDocStore)(nil)

type liveKey struct {
	workspaceID string
	filename    string
}

// LiveDocStore is an in-memory implementation of driven.LiveDocStore.
// ReplaceChunks swaps the whole slice under one lock, so it is atomic.
type LiveDocStore struct {
	mu     sync.RWMutex
	chunks map[liveKey][]domain.Chunk
}

// NewLiveDocStore creates a new in-memory live document store.
func NewLiveDocStore() *LiveDocStore {
	return &LiveDocStore{
		chunks: make(map[liveKey][]domain.Chunk),
	}
}

// ReplaceChunks replaces every chunk of (workspaceID, filename).
func (s *LiveDocStore) ReplaceChunks(_ context.Context, workspaceID, filename string, chunks []domain.Chunk) error {
	key := liveKey{workspaceID: workspaceID, filename: filename}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Index < stored[j].Index
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(stored) == 0 {
		delete(s.chunks, key)
		return nil
	}
	s.chunks[key] = stored
	return nil
}

// ListChunks returns the chunks of one file, or of the whole workspace.
func (s *LiveDocStore) ListChunks(_ context.Context, workspaceID, filename string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filename != "" {
		chunks := s.chunks[liveKey{workspaceID: workspaceID, filename: filename}]
		out := make([]domain.Chunk, len(chunks))
		copy(out, chunks)
		return out, nil
	}

	out := make([]domain.Chunk, 0)
	for _, name := range s.filesLocked(workspaceID) {
		out = append(out, s.chunks[liveKey{workspaceID: workspaceID, filename: name}]...)
	}
	return out, nil
}

// DeleteChunks removes every chunk of (workspaceID, filename).
func (s *LiveDocStore) DeleteChunks(_ context.Context, workspaceID, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chunks, liveKey{workspaceID: workspaceID, filename: filename})
	return nil
}

// ListFiles returns the sorted filenames with chunks in a workspace.
func (s *LiveDocStore) ListFiles(_ context.Context, workspaceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filesLocked(workspaceID), nil
}

func (s *LiveDocStore) filesLocked(workspaceID string) []string {
	files := make([]string, 0)
	for key := range s.chunks {
		if key.workspaceID == workspaceID {
			files = append(files, key.filename)
		}
	}
	sort.Strings(files)
	return files
}
