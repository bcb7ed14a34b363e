package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
	"github.com/boovines/Granted/internal/core/ports/driving"
)

// Ensure RulesService implements the interface.
var _ driving.RulesService = (*RulesService)(nil)

// DefaultSystemPrompt is the system prompt of a workspace without rules.
const DefaultSystemPrompt = "You are a helpful assistant."

// RulesService resolves workspace rules into system prompts.
type RulesService struct {
	store   driven.RulesStore
	prompts driven.PromptStore
}

// NewRulesService creates a new rules service.
// The prompt store supplies the fixed template and may be nil when only
// rules-based system prompts are used.
func NewRulesService(store driven.RulesStore, prompts driven.PromptStore) *RulesService {
	return &RulesService{store: store, prompts: prompts}
}

// GetRules returns the workspace's rules, or empty rules when none are stored.
func (s *RulesService) GetRules(ctx context.Context, workspaceID string) (domain.Rules, error) {
	stored, err := s.store.GetRules(ctx, workspaceID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Rules{}, nil
	}
	if err != nil {
		return domain.Rules{}, fmt.Errorf("get rules: %w", err)
	}
	return stored.Rules, nil
}

// UpdateRules replaces the workspace's rules.
func (s *RulesService) UpdateRules(ctx context.Context, workspaceID string, rules domain.Rules) error {
	if strings.TrimSpace(workspaceID) == "" {
		return fmt.Errorf("%w: workspace is required", domain.ErrInvalidInput)
	}

	err := s.store.SaveRules(ctx, &domain.WorkspaceRules{
		WorkspaceID: workspaceID,
		Rules:       rules,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save rules: %w", err)
	}
	return nil
}

// BuildSystemPrompt renders rules as the default sentence followed by one
// line per present field.
func (s *RulesService) BuildSystemPrompt(rules domain.Rules) string {
	if rules.IsEmpty() {
		return DefaultSystemPrompt
	}

	fields := []struct{ label, value string }{
		{"Personality", rules.Personality},
		{"Tone", rules.Tone},
		{"Style", rules.Style},
		{"Domain expertise", rules.Domain},
		{"Constraints", rules.Constraints},
	}

	lines := []string{DefaultSystemPrompt}
	for _, f := range fields {
		if v := strings.TrimSpace(f.value); v != "" {
			lines = append(lines, f.label+": "+v)
		}
	}
	return strings.Join(lines, "\n")
}

// DefaultRules returns a suggested starting rules record.
func (s *RulesService) DefaultRules() domain.Rules {
	return domain.Rules{
		Personality: "friendly and knowledgeable",
		Tone:        "professional",
		Style:       "clear and concise",
		Domain:      "general",
		Constraints: "Be accurate and helpful",
	}
}

// SystemPrompt resolves a workspace's system prompt from source. The
// template and the rules are never combined.
func (s *RulesService) SystemPrompt(
	ctx context.Context, workspaceID string, source domain.SystemPromptSource,
) (string, error) {
	switch source {
	case domain.SystemPromptTemplate:
		if s.prompts == nil {
			return "", fmt.Errorf("%w: no prompt store for the system template", domain.ErrInvalidInput)
		}
		tmpl, err := s.prompts.Load(driven.PromptSystemTemplate)
		if err != nil {
			return "", fmt.Errorf("load system template: %w", err)
		}
		return tmpl, nil
	case domain.SystemPromptRules, "":
		rules, err := s.GetRules(ctx, workspaceID)
		if err != nil {
			return "", err
		}
		return s.BuildSystemPrompt(rules), nil
	default:
		return "", fmt.Errorf("%w: unknown system prompt source %q", domain.ErrInvalidInput, source)
	}
}
