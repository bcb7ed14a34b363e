package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
)

// Ensure ContextService implements the interface.
var _ driving.ContextService = (*ContextService)(nil)

// ContextService retrieves context from any of the context stores by kind.
type ContextService struct {
	embedder *Embedder
	stores   map[domain.StoreKind]driving.ContextStore
}

// NewContextService creates a context service over the given stores.
func NewContextService(embedder *Embedder, stores ...driving.ContextStore) *ContextService {
	byKind := make(map[domain.StoreKind]driving.ContextStore, len(stores))
	for _, store := range stores {
		byKind[store.Kind()] = store
	}
	return &ContextService{embedder: embedder, stores: byKind}
}

// GetContext embeds query and retrieves the top k chunks of the store.
// With keywordOnly, or without an embedding service, the query is matched
// by keyword. An empty query uses the store's fallback order.
func (s *ContextService) GetContext(
	ctx context.Context,
	kind domain.StoreKind,
	key domain.NamespaceKey,
	query string,
	k int,
	keywordOnly bool,
) (domain.Retrieval, error) {
	store, ok := s.stores[kind]
	if !ok {
		return domain.Retrieval{}, fmt.Errorf("%w: unknown store %q", domain.ErrInvalidInput, kind)
	}

	q := domain.Query{Text: query}
	if !keywordOnly && strings.TrimSpace(query) != "" {
		vec, err := s.embedder.Embed(ctx, query)
		switch {
		case err == nil:
			q.Vector = vec
		case errors.Is(err, domain.ErrEmbeddingUnavailable):
			logger.Debug("No embedding service, matching %q by keyword", query)
		default:
			return domain.Retrieval{}, fmt.Errorf("embed query: %w", err)
		}
	}

	result, err := store.Retrieve(ctx, key, q, k)
	if err != nil {
		return domain.Retrieval{}, fmt.Errorf("%s retrieve: %w", kind, err)
	}
	return result, nil
}
