package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// rulesStore implements driven.RulesStore.
type rulesStore struct {
	store *Store
}

var _ driven.RulesStore = (*rulesStore)(nil)

// GetRules returns the workspace's rules.
func (s *rulesStore) GetRules(ctx context.Context, workspaceID string) (*domain.WorkspaceRules, error) {
	var rules domain.WorkspaceRules
	var content []byte

	err := s.store.pool.QueryRow(ctx, `
		SELECT workspace_id, content, updated_at FROM workspace_rules WHERE workspace_id = $1
	`, workspaceID).Scan(&rules.WorkspaceID, &content, &rules.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}

	if err := json.Unmarshal(content, &rules.Rules); err != nil {
		return nil, fmt.Errorf("unmarshaling rules: %w", err)
	}
	return &rules, nil
}

// SaveRules replaces the workspace's rules.
func (s *rulesStore) SaveRules(ctx context.Context, rules *domain.WorkspaceRules) error {
	content, err := json.Marshal(rules.Rules)
	if err != nil {
		return fmt.Errorf("marshalling rules: %w", err)
	}
	if rules.UpdatedAt.IsZero() {
		rules.UpdatedAt = time.Now().UTC()
	}

	_, err = s.store.pool.Exec(ctx, `
		INSERT INTO workspace_rules (workspace_id, content, updated_at)
		VALUES ($1, $2::jsonb, $3)
		ON CONFLICT (workspace_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`, rules.WorkspaceID, string(content), rules.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving rules: %w", err)
	}
	return nil
}

// DeleteRules removes the workspace's rules.
func (s *rulesStore) DeleteRules(ctx context.Context, workspaceID string) error {
	if _, err := s.store.pool.Exec(ctx, "DELETE FROM workspace_rules WHERE workspace_id = $1", workspaceID); err != nil {
		return fmt.Errorf("deleting rules: %w", err)
	}
	return nil
}
