package driven

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// ChatStore persists chat messages and the rolling summary of each chat.
type ChatStore interface {
	// AppendMessage stores a message and assigns msg.Seq. Messages of one
	// chat are returned in the order they were appended.
	AppendMessage(ctx context.Context, msg *domain.ChatMessage) error

	// RecentMessages returns the last n messages of a chat in chronological order.
	// An n <= 0 returns every message.
	RecentMessages(ctx context.Context, chatID string, n int) ([]domain.ChatMessage, error)

	// CountMessagesAfter counts messages with Seq greater than afterSeq.
	CountMessagesAfter(ctx context.Context, chatID string, afterSeq int64) (int, error)

	// UnembeddedMessages returns messages stored without an embedding, oldest first.
	UnembeddedMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error)

	// SetMessageEmbedding attaches an embedding to a stored message.
	SetMessageEmbedding(ctx context.Context, id string, embedding []float32) error

	// PruneMessages deletes all but the keep most recent messages of a chat
	// and returns how many were deleted. The summary is never touched.
	PruneMessages(ctx context.Context, chatID string, keep int) (int, error)

	// DeleteMessages removes every message of a chat.
	DeleteMessages(ctx context.Context, chatID string) error

	// SaveSummary stores the chat's summary, replacing any previous one.
	SaveSummary(ctx context.Context, summary *domain.ChatSummary) error

	// GetSummary returns the chat's summary or domain.ErrNotFound.
	GetSummary(ctx context.Context, chatID string) (*domain.ChatSummary, error)

	// DeleteSummary removes the chat's summary. Absent summaries are not an error.
	DeleteSummary(ctx context.Context, chatID string) error
}
