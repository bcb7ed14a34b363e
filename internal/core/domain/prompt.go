package domain

// PromptRequest is the input of prompt assembly.
type PromptRequest struct {
	WorkspaceID string
	ChatID      string
	Message     string

	// MaxLength is the soft character budget. Zero uses the configured default.
	MaxLength int

	// Source overrides the configured system prompt source when set.
	Source SystemPromptSource
}

// PromptSection names one optional context section of a prompt.
type PromptSection string

// Prompt sections in render order.
const (
	SectionRecentConversation PromptSection = "recent_conversation"
	SectionPastTopics         PromptSection = "past_topics"
	SectionDocumentContext    PromptSection = "document_context"
	SectionSourceMaterial     PromptSection = "source_material"
)

// SectionReport describes what one section contributed.
type SectionReport struct {
	Section PromptSection `json:"section"`
	Mode    RankMode      `json:"mode"`
	Items   int           `json:"items"`
}

// PromptResult is the output of prompt assembly. Assembly never fails:
// on any error it degrades to a minimal prompt and says why.
type PromptResult struct {
	Prompt string `json:"prompt"`

	// Degraded is true when the minimal fallback prompt was returned.
	Degraded bool `json:"degraded"`

	// Truncated is true when the context block was cut to fit.
	Truncated bool `json:"truncated"`

	// Warnings explains degradation, one entry per cause.
	Warnings []string `json:"warnings,omitempty"`

	// Sections lists the non-empty sections in render order.
	Sections []SectionReport `json:"sections,omitempty"`
}
