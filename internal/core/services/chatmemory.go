package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/ports/driving"
	"github.com/boovines/Granted/internal/logger"
	"github.com/boovines/Granted/internal/ranking"
)

// Ensure ChatMemoryService implements the interface.
var _ driving.ChatService = (*ChatMemoryService)(nil)

// Chat memory defaults.
const (
	DefaultRecentTurns  = 5
	DefaultHistoryLimit = 50
	DefaultKeepRecent   = 10
)

// ChatMemoryService keeps the rolling message log and the summarised
// memory of each chat.
type ChatMemoryService struct {
	store      driven.ChatStore
	embedder   *Embedder
	summarizer *Summarizer
	cfg        domain.ChatSettings
}

// NewChatMemoryService creates a new chat memory service.
func NewChatMemoryService(
	store driven.ChatStore,
	embedder *Embedder,
	summarizer *Summarizer,
	cfg domain.ChatSettings,
) *ChatMemoryService {
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = DefaultSummaryThreshold
	}
	if cfg.KeepRecent <= 0 {
		cfg.KeepRecent = DefaultKeepRecent
	}
	return &ChatMemoryService{
		store:      store,
		embedder:   embedder,
		summarizer: summarizer,
		cfg:        cfg,
	}
}

// Kind identifies the store.
func (s *ChatMemoryService) Kind() domain.StoreKind {
	return domain.StoreChatMemory
}

// Fallback returns newest first.
func (s *ChatMemoryService) Fallback() domain.RankMode {
	return domain.RankRecency
}

// AppendMessage records a message. When the embedding cannot be computed
// the message is stored unembedded; BackfillEmbeddings retries it later.
func (s *ChatMemoryService) AppendMessage(
	ctx context.Context, chatID string, role domain.ChatRole, content string,
) (*domain.ChatMessage, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: chat is required", domain.ErrInvalidInput)
	}
	role, err := domain.ParseChatRole(role.String())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyInput
	}

	msg := &domain.ChatMessage{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	if vec, err := s.embedder.Embed(ctx, content); err == nil {
		msg.Embedding = vec
		msg.Embedded = true
	} else if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		logger.Warn("Storing message of chat %s unembedded: %v", chatID, err)
	}

	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// GetRecent returns the last n messages in chronological order.
// An n <= 0 uses DefaultRecentTurns.
func (s *ChatMemoryService) GetRecent(ctx context.Context, chatID string, n int) ([]domain.ChatMessage, error) {
	if n <= 0 {
		n = DefaultRecentTurns
	}
	msgs, err := s.store.RecentMessages(ctx, chatID, n)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	return msgs, nil
}

// History returns up to limit of the latest messages in chronological
// order. A limit <= 0 uses DefaultHistoryLimit.
func (s *ChatMemoryService) History(ctx context.Context, chatID string, limit int) ([]domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	msgs, err := s.store.RecentMessages(ctx, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return msgs, nil
}

// ShouldSummarize reports whether threshold messages accumulated since the
// last summary. A threshold <= 0 uses the configured threshold.
func (s *ChatMemoryService) ShouldSummarize(ctx context.Context, chatID string, threshold int) (bool, error) {
	if threshold <= 0 {
		threshold = s.cfg.SummaryThreshold
	}
	return s.summarizer.ShouldSummarize(ctx, chatID, threshold)
}

// State reports the summariser state of a chat.
func (s *ChatMemoryService) State(ctx context.Context, chatID string, threshold int) (domain.SummaryState, error) {
	if threshold <= 0 {
		threshold = s.cfg.SummaryThreshold
	}
	return s.summarizer.State(ctx, chatID, threshold)
}

// Summarize backfills missing embeddings, then replaces the chat's summary.
func (s *ChatMemoryService) Summarize(ctx context.Context, chatID string) (*domain.ChatSummary, error) {
	if s.embedder.Available() {
		if _, err := s.BackfillEmbeddings(ctx, chatID); err != nil {
			logger.Warn("Backfill before summarising chat %s: %v", chatID, err)
		}
	}
	return s.summarizer.Summarize(ctx, chatID)
}

// Prune deletes all but the keepRecent most recent messages. The summary
// is kept. A keepRecent <= 0 uses the configured value.
func (s *ChatMemoryService) Prune(ctx context.Context, chatID string, keepRecent int) (int, error) {
	if keepRecent <= 0 {
		keepRecent = s.cfg.KeepRecent
	}
	deleted, err := s.store.PruneMessages(ctx, chatID, keepRecent)
	if err != nil {
		return 0, fmt.Errorf("prune messages: %w", err)
	}
	return deleted, nil
}

// BackfillEmbeddings embeds messages stored without an embedding and
// returns how many were fixed.
func (s *ChatMemoryService) BackfillEmbeddings(ctx context.Context, chatID string) (int, error) {
	if !s.embedder.Available() {
		return 0, domain.ErrEmbeddingUnavailable
	}

	msgs, err := s.store.UnembeddedMessages(ctx, chatID)
	if err != nil {
		return 0, fmt.Errorf("unembedded messages: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	texts := make([]string, len(msgs))
	for i := range msgs {
		texts[i] = msgs[i].Content
	}
	result, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("backfill chat %s: %w", chatID, err)
	}

	for i, idx := range result.Indexes {
		if err := s.store.SetMessageEmbedding(ctx, msgs[idx].ID, result.Vectors[i]); err != nil {
			return i, fmt.Errorf("set embedding of %s: %w", msgs[idx].ID, err)
		}
	}
	return len(result.Indexes), nil
}

// Upsert stores a single chunk as the chat's summary, covering every
// message appended so far.
func (s *ChatMemoryService) Upsert(ctx context.Context, key domain.NamespaceKey, chunks []domain.Chunk) error {
	if strings.TrimSpace(key.ChatID) == "" {
		return fmt.Errorf("%w: chat is required", domain.ErrInvalidInput)
	}
	if len(chunks) != 1 || strings.TrimSpace(chunks[0].Text) == "" {
		return fmt.Errorf("%w: chat memory stores exactly one non-empty summary", domain.ErrInvalidInput)
	}

	latest, err := s.store.RecentMessages(ctx, key.ChatID, 1)
	if err != nil {
		return fmt.Errorf("recent messages: %w", err)
	}

	summary := &domain.ChatSummary{
		ChatID:    key.ChatID,
		Text:      chunks[0].Text,
		Embedding: chunks[0].Embedding,
		UpdatedAt: time.Now().UTC(),
	}
	if len(latest) > 0 {
		summary.LastSeq = latest[0].Seq
	}

	if err := s.store.SaveSummary(ctx, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// Retrieve returns the chat's summaries. They are vector-ranked when the
// query has a vector and the summary is embedded, otherwise newest first.
func (s *ChatMemoryService) Retrieve(
	ctx context.Context, key domain.NamespaceKey, q domain.Query, k int,
) (domain.Retrieval, error) {
	summary, err := s.store.GetSummary(ctx, key.ChatID)
	if errors.Is(err, domain.ErrNotFound) {
		mode := s.Fallback()
		if q.HasVector() {
			mode = domain.RankVector
		}
		return domain.Retrieval{Mode: mode}, nil
	}
	if err != nil {
		return domain.Retrieval{}, fmt.Errorf("get summary: %w", err)
	}

	candidates := []domain.Chunk{{
		ID:        "summary:" + summary.ChatID,
		Text:      summary.Text,
		Embedding: summary.Embedding,
		CreatedAt: summary.UpdatedAt,
	}}

	if q.HasVector() && len(summary.Embedding) > 0 {
		scored, err := ranking.Rank(q.Vector, candidates, k, 0)
		if err != nil {
			return domain.Retrieval{}, err
		}
		return domain.Retrieval{Mode: domain.RankVector, Chunks: scored}, nil
	}
	return ranking.Fallback(s.Fallback(), "", candidates, k)
}

// Delete removes the chat's messages and summary.
func (s *ChatMemoryService) Delete(ctx context.Context, key domain.NamespaceKey) error {
	if err := s.store.DeleteMessages(ctx, key.ChatID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if err := s.store.DeleteSummary(ctx, key.ChatID); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	return nil
}
