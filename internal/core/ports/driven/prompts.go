package driven

// PromptStore provides access to prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSystemTemplate is the fixed instruction block used instead of
	// workspace rules when the template source is selected.
	// This prompt has no format placeholders.
	PromptSystemTemplate = "system_template"

	// PromptChatSummary is the system instruction for chat summarisation.
	// This prompt has no format placeholders.
	PromptChatSummary = "chat_summary"
)
