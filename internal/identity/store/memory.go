package store

import (
	"context"
	"slices"
	"sync"

	"bciers/internal/identity/models"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
)

// InMemoryStore keeps users in a map.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserGUID]models.User
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: map[id.UserGUID]models.User{}}
}

func (s *InMemoryStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[u.GUID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.users[u.GUID] = *u
	return nil
}

func (s *InMemoryStore) FindByGUID(_ context.Context, guid id.UserGUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[guid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &u, nil
}

func (s *InMemoryStore) UpdateRole(_ context.Context, guid id.UserGUID, role models.AppRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[guid]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.AppRole = role
	s.users[guid] = u
	return nil
}

func (s *InMemoryStore) ListByRoles(_ context.Context, roles []models.AppRole) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, u := range s.users {
		u := u
		if slices.Contains(roles, u.AppRole) {
			out = append(out, &u)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
