package store

import (
	"context"
	"slices"
	"sync"

	"bciers/internal/registration/models"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
)

// InMemoryStore is a map-backed store for tests and local runs. It enforces
// the same uniqueness rules as the schema but applies no row-level security.
type InMemoryStore struct {
	mu            sync.RWMutex
	operators     map[id.OperatorID]models.Operator
	userOperators map[id.UserOperatorID]models.UserOperator
	operations    map[id.OperationID]models.Operation
	facilities    map[id.FacilityID]models.Facility
	contacts      map[id.ContactID]models.Contact
	counters      map[string]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		operators:     map[id.OperatorID]models.Operator{},
		userOperators: map[id.UserOperatorID]models.UserOperator{},
		operations:    map[id.OperationID]models.Operation{},
		facilities:    map[id.FacilityID]models.Facility{},
		contacts:      map[id.ContactID]models.Contact{},
		counters:      map[string]int{},
	}
}

func (s *InMemoryStore) NextSequence(_ context.Context, scope string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[scope]++
	return s.counters[scope], nil
}

func (s *InMemoryStore) CreateOperator(_ context.Context, o *models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.operators {
		if existing.CRABusinessNumber == o.CRABusinessNumber {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.operators[o.ID] = *o
	return nil
}

func (s *InMemoryStore) FindOperator(_ context.Context, operatorID id.OperatorID) (*models.Operator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.operators[operatorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *InMemoryStore) UpdateOperator(_ context.Context, o *models.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operators[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.operators[o.ID] = *o
	return nil
}

func (s *InMemoryStore) CreateUserOperator(_ context.Context, uo *models.UserOperator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.userOperators {
		if existing.UserGUID == uo.UserGUID && existing.OperatorID == uo.OperatorID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.userOperators[uo.ID] = *uo
	return nil
}

func (s *InMemoryStore) FindUserOperator(_ context.Context, uoID id.UserOperatorID) (*models.UserOperator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uo, ok := s.userOperators[uoID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &uo, nil
}

func (s *InMemoryStore) FindUserOperatorFor(_ context.Context, user id.UserGUID, operatorID id.OperatorID) (*models.UserOperator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, uo := range s.userOperators {
		if uo.UserGUID == user && uo.OperatorID == operatorID {
			return &uo, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateUserOperator(_ context.Context, uo *models.UserOperator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userOperators[uo.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.userOperators[uo.ID] = *uo
	return nil
}

func (s *InMemoryStore) ListUserOperators(_ context.Context, operatorID id.OperatorID) ([]*models.UserOperator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserOperator
	for _, uo := range s.userOperators {
		uo := uo
		if uo.OperatorID == operatorID {
			out = append(out, &uo)
		}
	}
	slices.SortFunc(out, func(a, b *models.UserOperator) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) HasApprovedAdmin(_ context.Context, operatorID id.OperatorID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, uo := range s.userOperators {
		uo := uo
		if uo.OperatorID == operatorID && uo.IsApprovedAdmin() {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) CreateOperation(_ context.Context, o *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operations[o.ID] = *o
	return nil
}

func (s *InMemoryStore) FindOperation(_ context.Context, operationID id.OperationID) (*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.operations[operationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *InMemoryStore) FindOperationForUpdate(ctx context.Context, operationID id.OperationID) (*models.Operation, error) {
	return s.FindOperation(ctx, operationID)
}

func (s *InMemoryStore) UpdateOperation(_ context.Context, o *models.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operations[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.operations {
		if otherID == o.ID {
			continue
		}
		if sameIdentifier(other.BOROID, o.BOROID) || sameIdentifier(other.BCGHGID, o.BCGHGID) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.operations[o.ID] = *o
	return nil
}

func sameIdentifier(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func (s *InMemoryStore) ListOperations(_ context.Context, operatorID id.OperatorID) ([]*models.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Operation
	for _, o := range s.operations {
		o := o
		if o.OperatorID == operatorID {
			out = append(out, &o)
		}
	}
	slices.SortFunc(out, func(a, b *models.Operation) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CreateFacility(_ context.Context, f *models.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facilities[f.ID] = *f
	return nil
}

func (s *InMemoryStore) FindFacility(_ context.Context, facilityID id.FacilityID) (*models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.facilities[facilityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &f, nil
}

func (s *InMemoryStore) UpdateFacilityBCGHG(_ context.Context, facilityID id.FacilityID, bcghg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.facilities[facilityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.facilities {
		if otherID != facilityID && sameIdentifier(other.BCGHGID, &bcghg) {
			return sentinel.ErrAlreadyUsed
		}
	}
	f.BCGHGID = &bcghg
	s.facilities[facilityID] = f
	return nil
}

func (s *InMemoryStore) ListFacilities(_ context.Context, operationID id.OperationID) ([]*models.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Facility
	for _, f := range s.facilities {
		f := f
		if f.OperationID == operationID {
			out = append(out, &f)
		}
	}
	slices.SortFunc(out, func(a, b *models.Facility) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) CreateContact(_ context.Context, c *models.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindContact(_ context.Context, contactID id.ContactID) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[contactID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) ListContacts(_ context.Context, operatorID id.OperatorID) ([]*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Contact
	for _, c := range s.contacts {
		c := c
		if c.OperatorID == operatorID {
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.Contact) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
