package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/logger"
)

// Summariser defaults.
const (
	DefaultSummaryWindow    = 20
	DefaultSummaryThreshold = 10
	summaryMaxTokens        = 200
)

// defaultSummaryInstruction is used when no prompt store is configured.
const defaultSummaryInstruction = "Summarize the following chat conversation in 2-3 sentences, " +
	"focusing on key topics and decisions made."

// Summarizer compresses the recent turns of a chat into its single
// rolling summary.
type Summarizer struct {
	store    driven.ChatStore
	llm      driven.LLMService
	embedder *Embedder
	prompts  driven.PromptStore
	window   int
}

// NewSummarizer creates a new chat summariser. The LLM may be nil, in
// which case Summarize fails with ErrLLMUnavailable. A window <= 0 uses
// DefaultSummaryWindow.
func NewSummarizer(
	store driven.ChatStore,
	llm driven.LLMService,
	embedder *Embedder,
	prompts driven.PromptStore,
	window int,
) *Summarizer {
	if window <= 0 {
		window = DefaultSummaryWindow
	}
	return &Summarizer{
		store:    store,
		llm:      llm,
		embedder: embedder,
		prompts:  prompts,
		window:   window,
	}
}

// pending returns the current summary (or nil) and the number of messages
// appended after it.
func (s *Summarizer) pending(ctx context.Context, chatID string) (*domain.ChatSummary, int, error) {
	summary, err := s.store.GetSummary(ctx, chatID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, 0, fmt.Errorf("get summary: %w", err)
	}

	var after int64
	if summary != nil {
		after = summary.LastSeq
	}

	count, err := s.store.CountMessagesAfter(ctx, chatID, after)
	if err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}
	return summary, count, nil
}

// ShouldSummarize reports whether threshold messages accumulated since
// the last summary. A threshold <= 0 uses DefaultSummaryThreshold.
func (s *Summarizer) ShouldSummarize(ctx context.Context, chatID string, threshold int) (bool, error) {
	state, err := s.State(ctx, chatID, threshold)
	if err != nil {
		return false, err
	}
	return state == domain.SummaryDue, nil
}

// State reports where the chat is in the summarise cycle.
func (s *Summarizer) State(ctx context.Context, chatID string, threshold int) (domain.SummaryState, error) {
	if threshold <= 0 {
		threshold = DefaultSummaryThreshold
	}

	summary, count, err := s.pending(ctx, chatID)
	if err != nil {
		return "", err
	}

	switch {
	case count >= threshold:
		return domain.SummaryDue, nil
	case summary != nil && count == 0:
		return domain.SummarySummarized, nil
	default:
		return domain.SummaryActive, nil
	}
}

// Summarize replaces the chat's summary with one of its recent window.
// The summary is stored unembedded when no embedder is available.
func (s *Summarizer) Summarize(ctx context.Context, chatID string) (*domain.ChatSummary, error) {
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	msgs, err := s.store.RecentMessages(ctx, chatID, s.window)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: chat %s has no messages", domain.ErrNotFound, chatID)
	}

	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		lines[i] = msg.Role.String() + ": " + msg.Content
	}

	logger.Debug("Summarising %d messages of chat %s", len(msgs), chatID)

	text, err := s.llm.Chat(ctx, []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: s.instruction()},
		{Role: driven.RoleUser, Content: strings.Join(lines, "\n")},
	}, driven.ChatOptions{MaxTokens: summaryMaxTokens})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationProvider, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty summary", domain.ErrGenerationProvider)
	}

	summary := &domain.ChatSummary{
		ChatID:    chatID,
		Text:      text,
		UpdatedAt: time.Now().UTC(),
		LastSeq:   msgs[len(msgs)-1].Seq,
	}

	if s.embedder.Available() {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed summary: %w", err)
		}
		summary.Embedding = vec
	}

	if err := s.store.SaveSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	return summary, nil
}

func (s *Summarizer) instruction() string {
	if s.prompts == nil {
		return defaultSummaryInstruction
	}
	text, err := s.prompts.Load(driven.PromptChatSummary)
	if err != nil || strings.TrimSpace(text) == "" {
		logger.Warn("Using built-in summary instruction: %v", err)
		return defaultSummaryInstruction
	}
	return text
}
