// Package profile manages a principal's saved queries and run history.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"queryd/internal/domain"
	"queryd/internal/session"
)

// Service provides saved-query and history operations over the repository
// ports.
type Service struct {
	saved   domain.SavedQueryRepository
	history domain.QueryHistoryRepository
	logger  *slog.Logger
}

// NewService creates a Service.
func NewService(saved domain.SavedQueryRepository, history domain.QueryHistoryRepository, logger *slog.Logger) *Service {
	return &Service{
		saved:   saved,
		history: history,
		logger:  logger.With("component", "profile"),
	}
}

// SaveAs stores def under the given name for principal.
func (s *Service) SaveAs(ctx context.Context, principal, name string, def *domain.QueryDef) (*domain.SavedQuery, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrValidation("saved query name is required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return s.saved.Save(ctx, &domain.SavedQuery{
		Principal: principal,
		Name:      name,
		Def:       def,
	})
}

// SaveGenerated stores def under a fresh auto-generated name, chosen so it
// collides with none of the principal's existing saved queries. Used by the
// query runner's save-on-success path.
func (s *Service) SaveGenerated(ctx context.Context, principal string, def *domain.QueryDef) (*domain.SavedQuery, error) {
	names, err := s.saved.ListNames(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("list saved query names: %w", err)
	}
	return s.saved.Save(ctx, &domain.SavedQuery{
		Principal: principal,
		Name:      FindUnusedName(names),
		Def:       def,
	})
}

// Get returns the named saved query.
func (s *Service) Get(ctx context.Context, principal, name string) (*domain.SavedQuery, error) {
	return s.saved.GetByName(ctx, principal, name)
}

// List returns a page of the principal's saved queries.
func (s *Service) List(ctx context.Context, principal string, page domain.PageRequest) ([]domain.SavedQuery, int64, error) {
	return s.saved.List(ctx, principal, page)
}

// Rename changes a saved query's name.
func (s *Service) Rename(ctx context.Context, principal, name, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return domain.ErrValidation("new name is required")
	}
	return s.saved.Rename(ctx, principal, name, newName)
}

// Delete removes the named saved query.
func (s *Service) Delete(ctx context.Context, principal, name string) error {
	return s.saved.Delete(ctx, principal, name)
}

// LoadIntoSession makes the named saved query the session's current query
// definition.
func (s *Service) LoadIntoSession(ctx context.Context, sess *session.Session, name string) (*domain.SavedQuery, error) {
	q, err := s.saved.GetByName(ctx, sess.Principal(), name)
	if err != nil {
		return nil, err
	}
	sess.SetCurrentQuery(q.Def)
	sess.RecordMessage(fmt.Sprintf("Loaded query %q.", name))
	return q, nil
}

// History returns a page of run history matching the filter.
func (s *Service) History(ctx context.Context, filter domain.QueryHistoryFilter) ([]domain.QueryHistoryEntry, int64, error) {
	return s.history.List(ctx, filter)
}
