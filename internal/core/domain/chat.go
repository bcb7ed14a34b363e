package domain

import (
	"fmt"
	"time"
)

// ChatRole identifies who authored a chat message.
type ChatRole string

// Available chat roles.
const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ParseChatRole validates a role string.
func ParseChatRole(s string) (ChatRole, error) {
	switch r := ChatRole(s); r {
	case RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown chat role %q", ErrInvalidInput, s)
	}
}

// Label returns the role as rendered in prompts.
func (r ChatRole) Label() string {
	if r == RoleUser {
		return "User"
	}
	return "Assistant"
}

// String returns the string representation.
func (r ChatRole) String() string {
	return string(r)
}

// ChatMessage is one turn of a chat. Messages are append-only except
// for pruning.
type ChatMessage struct {
	ID      string   `json:"id"`
	ChatID  string   `json:"chat_id"`
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`

	// Embedding is nil when Embedded is false.
	Embedding []float32 `json:"-"`

	// Embedded is false when embedding generation failed at append time.
	Embedded bool `json:"embedded"`

	CreatedAt time.Time `json:"created_at"`

	// Seq is assigned by the store and orders messages appended within
	// the same timestamp.
	Seq int64 `json:"seq"`
}

// ChatSummary is the single rolling summary of a chat.
type ChatSummary struct {
	ChatID    string    `json:"chat_id"`
	Text      string    `json:"summary_text"`
	Embedding []float32 `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastSeq is the Seq of the newest message the summary covers.
	LastSeq int64 `json:"last_seq"`
}

// SummaryState is the summariser's view of a chat.
type SummaryState string

// Summariser states.
const (
	// SummaryActive means fewer than threshold messages since the last summary.
	SummaryActive SummaryState = "active"

	// SummaryDue means the threshold was reached and no summary covers them.
	SummaryDue SummaryState = "due"

	// SummarySummarized means the stored summary covers every message.
	SummarySummarized SummaryState = "summarized"
)

// String returns the string representation.
func (s SummaryState) String() string {
	return string(s)
}
