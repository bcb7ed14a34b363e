package driving

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// ContextStore is the shape shared by the live-document cache, the
// source-document index and chat memory.
type ContextStore interface {
	// Kind identifies the store.
	Kind() domain.StoreKind

	// Fallback is the rank mode used when neither a query vector nor query text is given.
	Fallback() domain.RankMode

	// Upsert stores chunks under key. Live documents are replaced wholesale;
	// source documents are extended; chat memory stores a summary.
	Upsert(ctx context.Context, key domain.NamespaceKey, chunks []domain.Chunk) error

	// Retrieve returns up to k chunks. With a query vector the result is
	// vector-ranked, with only query text it is keyword-ranked, and with
	// neither it uses Fallback.
	Retrieve(ctx context.Context, key domain.NamespaceKey, q domain.Query, k int) (domain.Retrieval, error)

	// Delete removes every chunk under key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key domain.NamespaceKey) error
}

// ContextService retrieves context from any store by name.
type ContextService interface {
	// GetContext embeds query (unless keywordOnly) and retrieves the top k
	// chunks of the given store under key.
	GetContext(ctx context.Context, kind domain.StoreKind, key domain.NamespaceKey,
		query string, k int, keywordOnly bool) (domain.Retrieval, error)
}
