package memory

import (
	"context"
	"sync"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
// Messages of a chat are kept in append order.
type ChatStore struct {
	mu        sync.RWMutex
	seq       int64
	messages  map[string][]domain.ChatMessage
	summaries map[string]domain.ChatSummary
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{
		messages:  make(map[string][]domain.ChatMessage),
		summaries: make(map[string]domain.ChatSummary),
	}
}

// AppendMessage stores a message and assigns its sequence number.
func (s *ChatStore) AppendMessage(_ context.Context, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg.Seq = s.seq
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], *msg)
	return nil
}

// RecentMessages returns the last n messages in chronological order.
func (s *ChatStore) RecentMessages(_ context.Context, chatID string, n int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[chatID]
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// CountMessagesAfter counts messages with Seq greater than afterSeq.
func (s *ChatStore) CountMessagesAfter(_ context.Context, chatID string, afterSeq int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, msg := range s.messages[chatID] {
		if msg.Seq > afterSeq {
			count++
		}
	}
	return count, nil
}

// UnembeddedMessages returns messages stored without an embedding.
func (s *ChatStore) UnembeddedMessages(_ context.Context, chatID string) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ChatMessage, 0)
	for _, msg := range s.messages[chatID] {
		if !msg.Embedded {
			out = append(out, msg)
		}
	}
	return out, nil
}

// SetMessageEmbedding attaches an embedding to a stored message.
func (s *ChatStore) SetMessageEmbedding(_ context.Context, id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				s.messages[chatID][i].Embedding = embedding
				s.messages[chatID][i].Embedded = true
				return nil
			}
		}
	}
	return domain.ErrNotFound
}

// PruneMessages keeps only the keep most recent messages.
func (s *ChatStore) PruneMessages(_ context.Context, chatID string, keep int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.messages[chatID]
	if keep < 0 {
		keep = 0
	}
	if len(msgs) <= keep {
		return 0, nil
	}

	deleted := len(msgs) - keep
	kept := make([]domain.ChatMessage, keep)
	copy(kept, msgs[deleted:])
	s.messages[chatID] = kept
	return deleted, nil
}

// DeleteMessages removes every message of a chat.
func (s *ChatStore) DeleteMessages(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, chatID)
	return nil
}

// SaveSummary replaces the chat's summary.
func (s *ChatStore) SaveSummary(_ context.Context, summary *domain.ChatSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.ChatID] = *summary
	return nil
}

// GetSummary returns the chat's summary.
func (s *ChatStore) GetSummary(_ context.Context, chatID string) (*domain.ChatSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[chatID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &summary, nil
}

// DeleteSummary removes the chat's summary.
func (s *ChatStore) DeleteSummary(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.summaries, chatID)
	return nil
}
