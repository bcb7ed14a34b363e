package driving

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// RulesService resolves workspace rules into system prompts.
type RulesService interface {
	// GetRules returns the workspace's rules, or empty rules when none are stored.
	GetRules(ctx context.Context, workspaceID string) (domain.Rules, error)

	// UpdateRules stores the workspace's rules, replacing previous ones.
	UpdateRules(ctx context.Context, workspaceID string, rules domain.Rules) error

	// BuildSystemPrompt renders rules as a system prompt.
	BuildSystemPrompt(rules domain.Rules) string

	// DefaultRules returns a suggested starting rules record.
	DefaultRules() domain.Rules

	// SystemPrompt resolves the system prompt of a workspace from the given source.
	SystemPrompt(ctx context.Context, workspaceID string, source domain.SystemPromptSource) (string, error)
}
