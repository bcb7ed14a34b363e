package driving

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// ChatService manages rolling and summarised chat memory.
type ChatService interface {
	ContextStore

	// AppendMessage records a message. Embedding failures do not prevent
	// the message from being stored; it is marked unembedded instead.
	AppendMessage(ctx context.Context, chatID string, role domain.ChatRole, content string) (*domain.ChatMessage, error)

	// GetRecent returns the last n messages in chronological order.
	GetRecent(ctx context.Context, chatID string, n int) ([]domain.ChatMessage, error)

	// History returns up to limit messages in chronological order.
	History(ctx context.Context, chatID string, limit int) ([]domain.ChatMessage, error)

	// ShouldSummarize reports whether threshold messages accumulated since the last summary.
	ShouldSummarize(ctx context.Context, chatID string, threshold int) (bool, error)

	// State reports the summariser state of a chat.
	State(ctx context.Context, chatID string, threshold int) (domain.SummaryState, error)

	// Summarize replaces the chat's summary with one of its recent messages.
	Summarize(ctx context.Context, chatID string) (*domain.ChatSummary, error)

	// Prune deletes all but the keepRecent most recent messages.
	Prune(ctx context.Context, chatID string, keepRecent int) (int, error)

	// BackfillEmbeddings retries embedding of unembedded messages and
	// returns how many were fixed.
	BackfillEmbeddings(ctx context.Context, chatID string) (int, error)
}
