package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// chatStore implements driven.ChatStore.
type chatStore struct {
	store *Store
}

var _ driven.ChatStore = (*chatStore)(nil)

const messageColumns = `seq, id, chat_id, role, content, embedding, embedded, created_at`

// AppendMessage stores a message; the autoincrement rowid becomes its Seq.
func (s *chatStore) AppendMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, chat_id, role, content, embedding, embedded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ChatID, msg.Role.String(), msg.Content,
		float32SliceToBytes(msg.Embedding), msg.Embedded, msg.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading message seq: %w", err)
	}
	msg.Seq = seq
	return nil
}

// RecentMessages returns the last n messages in chronological order.
func (s *chatStore) RecentMessages(ctx context.Context, chatID string, n int) ([]domain.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM chat_messages WHERE chat_id = ? ORDER BY seq DESC`
	args := []any{chatID}
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}
	slices.Reverse(msgs)
	return msgs, nil
}

// CountMessagesAfter counts messages with Seq greater than afterSeq.
func (s *chatStore) CountMessagesAfter(ctx context.Context, chatID string, afterSeq int64) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chat_messages WHERE chat_id = ? AND seq > ?
	`, chatID, afterSeq).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// UnembeddedMessages returns messages stored without an embedding, oldest first.
func (s *chatStore) UnembeddedMessages(ctx context.Context, chatID string) ([]domain.ChatMessage, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+messageColumns+` FROM chat_messages
		WHERE chat_id = ? AND embedded = 0 ORDER BY seq
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying unembedded messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// SetMessageEmbedding attaches an embedding to a stored message.
func (s *chatStore) SetMessageEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE chat_messages SET embedding = ?, embedded = 1 WHERE id = ?
	`, float32SliceToBytes(embedding), id)
	if err != nil {
		return fmt.Errorf("setting message embedding: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// PruneMessages keeps only the keep most recent messages.
func (s *chatStore) PruneMessages(ctx context.Context, chatID string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM chat_messages
		WHERE chat_id = ? AND seq NOT IN (
			SELECT seq FROM chat_messages WHERE chat_id = ? ORDER BY seq DESC LIMIT ?
		)
	`, chatID, chatID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning messages: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return int(deleted), nil
}

// DeleteMessages removes every message of a chat.
func (s *chatStore) DeleteMessages(ctx context.Context, chatID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chat_messages WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("deleting messages: %w", err)
	}
	return nil
}

// SaveSummary replaces the chat's summary.
func (s *chatStore) SaveSummary(ctx context.Context, summary *domain.ChatSummary) error {
	if summary.UpdatedAt.IsZero() {
		summary.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chat_summaries (chat_id, summary_text, embedding, last_seq, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			summary_text = excluded.summary_text,
			embedding = excluded.embedding,
			last_seq = excluded.last_seq,
			updated_at = excluded.updated_at
	`, summary.ChatID, summary.Text, float32SliceToBytes(summary.Embedding),
		summary.LastSeq, summary.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving summary: %w", err)
	}
	return nil
}

// GetSummary returns the chat's summary.
func (s *chatStore) GetSummary(ctx context.Context, chatID string) (*domain.ChatSummary, error) {
	var summary domain.ChatSummary
	var embeddingBlob []byte

	err := s.store.db.QueryRowContext(ctx, `
		SELECT chat_id, summary_text, embedding, last_seq, updated_at
		FROM chat_summaries WHERE chat_id = ?
	`, chatID).Scan(&summary.ChatID, &summary.Text, &embeddingBlob, &summary.LastSeq, &summary.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning summary: %w", err)
	}

	summary.Embedding = bytesToFloat32Slice(embeddingBlob)
	return &summary, nil
}

// DeleteSummary removes the chat's summary.
func (s *chatStore) DeleteSummary(ctx context.Context, chatID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM chat_summaries WHERE chat_id = ?", chatID); err != nil {
		return fmt.Errorf("deleting summary: %w", err)
	}
	return nil
}

func scanMessages(rows *sql.Rows) ([]domain.ChatMessage, error) {
	msgs := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var msg domain.ChatMessage
		var role string
		var embeddingBlob []byte

		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.ChatID, &role, &msg.Content,
			&embeddingBlob, &msg.Embedded, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msg.Role = domain.ChatRole(role)
		msg.Embedding = bytesToFloat32Slice(embeddingBlob)

		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}
