package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	audit "bciers/pkg/platform/audit"
)

// InMemoryStore is an outbox for tests. Failure, when set, is returned from Append.
type InMemoryStore struct {
	mu        sync.RWMutex
	events    []audit.Event
	published map[uuid.UUID]bool
	Failure   error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{published: map[uuid.UUID]bool{}}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Failure != nil {
		return s.Failure
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns every appended event in order.
func (s *InMemoryStore) Events() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}

// Actions returns the actions of every appended event in order.
func (s *InMemoryStore) Actions() []audit.Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Action, len(s.events))
	for i, e := range s.events {
		out[i] = e.Action
	}
	return out
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.published = map[uuid.UUID]bool{}
}

func (s *InMemoryStore) ListUnpublished(_ context.Context, limit int) ([]audit.OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.OutboxEntry
	for _, e := range s.events {
		if s.published[e.ID] {
			continue
		}
		payload, err := json.Marshal(e.ToPayload())
		if err != nil {
			return nil, err
		}
		out = append(out, audit.OutboxEntry{
			ID: e.ID, Action: e.Action, AggregateID: e.AggregateID,
			Payload: payload, CreatedAt: e.Timestamp,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkPublished(_ context.Context, ids []audit.OutboxEntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.published[id] = true
	}
	return nil
}

func (s *InMemoryStore) CountUnpublished(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.events {
		if !s.published[e.ID] {
			n++
		}
	}
	return n, nil
}
