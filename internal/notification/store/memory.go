// Package store persists email templates and delivery records.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bciers/internal/notification/models"
	"bciers/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu        sync.RWMutex
	templates map[string]models.Template
	emails    map[uuid.UUID]models.Email
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		templates: map[string]models.Template{},
		emails:    map[uuid.UUID]models.Email{},
	}
}

func (s *InMemoryStore) FindTemplate(_ context.Context, name string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[name]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *InMemoryStore) SaveTemplate(_ context.Context, t *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.Name] = *t
	return nil
}

func (s *InMemoryStore) CreateEmail(_ context.Context, e *models.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[e.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.emails[e.ID] = clone(*e)
	return nil
}

func (s *InMemoryStore) UpdateEmail(_ context.Context, e *models.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.emails[e.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.emails[e.ID] = clone(*e)
	return nil
}

func (s *InMemoryStore) FindEmail(_ context.Context, emailID uuid.UUID) (*models.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.emails[emailID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(e)
	return &out, nil
}

func (s *InMemoryStore) ListEmailsByStatus(_ context.Context, status models.EmailStatus, limit int) ([]models.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Email
	for _, e := range s.emails {
		if e.Status == status {
			out = append(out, clone(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func clone(e models.Email) models.Email {
	e.Recipients = append([]string(nil), e.Recipients...)
	e.MessageIDs = append([]string(nil), e.MessageIDs...)
	return e
}
