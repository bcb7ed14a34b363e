package driven

import (
	"context"

	"github.com/boovines/Granted/internal/core/domain"
)

// RulesStore persists one rules record per workspace.
type RulesStore interface {
	// GetRules returns the workspace's rules or domain.ErrNotFound.
	GetRules(ctx context.Context, workspaceID string) (*domain.WorkspaceRules, error)

	// SaveRules stores rules, replacing the workspace's previous record.
	SaveRules(ctx context.Context, rules *domain.WorkspaceRules) error

	// DeleteRules removes the workspace's rules. Absent rules are not an error.
	DeleteRules(ctx context.Context, workspaceID string) error
}
