package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
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
	var content string

	err := s.store.db.QueryRowContext(ctx, `
		SELECT workspace_id, content, updated_at FROM workspace_rules WHERE workspace_id = ?
	`, workspaceID).Scan(&rules.WorkspaceID, &content, &rules.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning rules: %w", err)
	}

	if err := json.Unmarshal([]byte(content), &rules.Rules); err != nil {
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

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO workspace_rules (workspace_id, content, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`, rules.WorkspaceID, string(content), rules.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("saving rules: %w", err)
	}
	return nil
}

// DeleteRules removes the workspace's rules.
func (s *rulesStore) DeleteRules(ctx context.Context, workspaceID string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM workspace_rules WHERE workspace_id = ?", workspaceID); err != nil {
		return fmt.Errorf("deleting rules: %w", err)
	}
	return nil
}
