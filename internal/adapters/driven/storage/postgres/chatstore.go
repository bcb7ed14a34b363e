package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// chatStore implements driven.ChatStore.
type chatStore struct {
	store *Store
}

var _ driven.ChatStore = (*chatStore)(nil)

const messageColumns = `seq, id, chat_id, role, content, embedding, embedded, created_at`

// AppendMessage stores a message; the serial column becomes its Seq.
func (s *chatStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	err := s.store.pool.QueryRow(ctx, `
		INSERT INTO chat_messages (id, chat_id, role, content, embedding, embedded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING seq
	`, msg.ID, msg.ChatID, msg.Role.String(), msg.Content,
		vectorParam(msg.Embedding), msg.Embedded, msg.CreatedAt).Scan(&msg.Seq)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

// RecentMessages returns the last n messages in chronological order.
func (s *chatStore) RecentMessages(ctx context.Context, chatID string, n int) ([]domain.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE chat_id = $1 ORDER BY seq DESC`
	args := []any{chatID}
	if n > 0 {
		query += ` LIMIT $2`
		args = append(args, n)
	}

	rows, err := s.store.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs, err := collectMessages(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// CountMessagesAfter counts messages with Seq greater than afterSeq.
func (s *chatStore) CountMessagesAfter(ctx context.Context, chatID string, afterSeq int64) (int, error) {
	var count int
	err := s.store.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE chat_id = $1 AND seq > $2
	`, chatID, afterSeq).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// UnembeddedMessages returns messages stored without an embedding, oldest first.
func (s *chatStore) UnembeddedMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	rows, err := s.store.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE chat_id = $1 AND NOT embedded ORDER BY seq
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded messages: %w", err)
	}
	defer rows.Close()

	return collectMessages(rows)
}

// SetMessageEmbedding attaches an embedding to a stored message.
func (s *chatStore) SetMessageEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := s.store.pool.Exec(ctx, `
		UPDATE chat_messages SET embedding = $1, embedded = TRUE WHERE id = $2
	`, vectorParam(embedding), id)
	if err != nil {
		return fmt.Errorf("setting message embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PruneMessages keeps only the keep most recent messages.
func (s *chatStore) PruneMessages(ctx context.Context, chatID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	tag, err := s.store.pool.Exec(ctx, `
		DELETE FROM chat_messages
		WHERE chat_id = $1 AND seq NOT IN (
			SELECT seq FROM chat_messages WHERE chat_id = $1 ORDER BY seq DESC LIMIT $2
		)
	`, chatID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning messages: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteMessages removes every message of a chat.
func (s *chatStore) DeleteMessages(ctx context.Context, chatID string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM chat_messages WHERE chat_id = $1", chatID); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return nil
}

// SaveSummary replaces the chat's summary.
func (s *chatStore) SaveSummary(ctx context.Context, summary *domain.ChatSummary) error {
	if summary.UpdatedAt.IsZero() {
		summary.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.pool.Exec(ctx, `
		INSERT INTO chat_summaries (chat_id, summary_text, embedding, last_seq, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (chat_id) DO UPDATE SET
			summary_text = excluded.summary_text,
			embedding = excluded.embedding,
			last_seq = excluded.last_seq,
			updated_at = excluded.updated_at
	`, summary.ChatID, summary.Text, vectorParam(summary.Embedding), summary.LastSeq, summary.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// GetSummary returns the chat's summary.
func (s *chatStore) GetSummary(ctx context.Context, chatID string) (*domain.ChatSummary, error) {
	var summary domain.ChatSummary
	var embedding *pgvector.Vector

	err := s.store.pool.QueryRow(ctx, `
		SELECT chat_id, summary_text, embedding, last_seq, updated_at
		FROM chat_summaries WHERE chat_id = $1
	`, chatID).Scan(&summary.ChatID, &summary.Text, &embedding, &summary.LastSeq, &summary.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	summary.Embedding = vectorValue(embedding)
	return &summary, nil
}

// DeleteSummary removes the chat's summary.
func (s *chatStore) DeleteSummary(ctx context.Context, chatID string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM chat_summaries WHERE chat_id = $1", chatID); err != nil {
		return fmt.Errorf("deleting summary: %w", err)
	}
	return nil
}

func collectMessages(rows pgx.Rows) ([]domain.ChatMessage, error) {
	msgs := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var msg domain.ChatMessage
		var role string
		var embedding *pgvector.Vector

		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.ChatID, &role, &msg.Content,
			&embedding, &msg.Embedded, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.ChatRole(role)
		msg.Embedding = vectorValue(embedding)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}
