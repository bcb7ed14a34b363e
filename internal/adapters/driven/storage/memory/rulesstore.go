package memory

import (
	"context"
	"sync"

	"github.com/boovines/Granted/internal/core/domain"
	"github.com/boovines/Granted/internal/core/ports/driven"
)

// Ensure RulesStore implements the interface.
var _ driven.RulesStore = (*RulesStore)(nil)

// RulesStore is an in-memory implementation of driven.RulesStore.
type RulesStore struct {
	mu    sync.RWMutex
	rules map[string]domain.WorkspaceRules
}

// NewRulesStore creates a new in-memory rules store.
func NewRulesStore() *RulesStore {
	return &RulesStore{
		rules: make(map[string]domain.WorkspaceRules),
	}
}

// GetRules returns the workspace's rules.
func (s *RulesStore) GetRules(_ context.Context, workspaceID string) (*domain.WorkspaceRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rules, ok := s.rules[workspaceID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rules, nil
}

// SaveRules replaces the workspace's rules.
func (s *RulesStore) SaveRules(_ context.Context, rules *domain.WorkspaceRules) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rules.WorkspaceID] = *rules
	return nil
}

// DeleteRules removes the workspace's rules.
func (s *RulesStore) DeleteRules(_ context.Context, workspaceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, workspaceID)
	return nil
}
