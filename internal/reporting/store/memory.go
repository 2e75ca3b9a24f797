package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
)

// InMemoryStore mirrors the schema's uniqueness and immutability rules for
// tests and local runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	reports     map[id.ReportID]models.Report
	versions    map[id.ReportVersionID]models.ReportVersion
	products    map[id.ReportVersionID][]models.ReportProduct
	emissions   map[id.ReportVersionID][]models.ReportEmission
	allocations map[id.ReportVersionID]models.EmissionAllocation
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports:     map[id.ReportID]models.Report{},
		versions:    map[id.ReportVersionID]models.ReportVersion{},
		products:    map[id.ReportVersionID][]models.ReportProduct{},
		emissions:   map[id.ReportVersionID][]models.ReportEmission{},
		allocations: map[id.ReportVersionID]models.EmissionAllocation{},
	}
}

func (s *InMemoryStore) CreateReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reports {
		if existing.OperationID == r.OperationID && existing.ReportingYear == r.ReportingYear {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.reports[r.ID] = *r
	return nil
}

func (s *InMemoryStore) FindReport(_ context.Context, reportID id.ReportID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[reportID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &r, nil
}

func (s *InMemoryStore) ListReports(_ context.Context, operationID id.OperationID) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Report
	for _, r := range s.reports {
		if r.OperationID == operationID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportingYear < out[j].ReportingYear })
	return out, nil
}

func (s *InMemoryStore) CreateVersion(_ context.Context, v *models.ReportVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.versions {
		existing := existing
		if existing.ReportID != v.ReportID {
			continue
		}
		if existing.VersionNumber == v.VersionNumber || (existing.IsDraft() && v.IsDraft()) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.versions[v.ID] = *v
	return nil
}

func (s *InMemoryStore) FindVersion(_ context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

func (s *InMemoryStore) FindVersionForUpdate(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error) {
	return s.FindVersion(ctx, versionID)
}

func (s *InMemoryStore) ListVersions(_ context.Context, reportID id.ReportID) ([]*models.ReportVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ReportVersion
	for _, v := range s.versions {
		if v.ReportID == reportID {
			v := v
			out = append(out, &v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

func (s *InMemoryStore) UpdateVersion(_ context.Context, v *models.ReportVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.versions[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !existing.IsDraft() {
		return sentinel.ErrInvalidState
	}
	s.versions[v.ID] = *v
	return nil
}

// writable must be called with mu held.
func (s *InMemoryStore) writable(versionID id.ReportVersionID) error {
	v, ok := s.versions[versionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !v.IsDraft() {
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *InMemoryStore) ReplaceProducts(_ context.Context, versionID id.ReportVersionID, products []models.ReportProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(versionID); err != nil {
		return err
	}
	sorted := slices.Clone(products)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })
	s.products[versionID] = sorted
	return nil
}

func (s *InMemoryStore) ListProducts(_ context.Context, versionID id.ReportVersionID) ([]models.ReportProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.products[versionID]), nil
}

func (s *InMemoryStore) ReplaceEmissions(_ context.Context, versionID id.ReportVersionID, emissions []models.ReportEmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(versionID); err != nil {
		return err
	}
	s.emissions[versionID] = slices.Clone(emissions)
	return nil
}

func (s *InMemoryStore) ListEmissions(_ context.Context, versionID id.ReportVersionID) ([]models.ReportEmission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.emissions[versionID]), nil
}

func (s *InMemoryStore) SaveAllocation(_ context.Context, versionID id.ReportVersionID, a *models.EmissionAllocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(versionID); err != nil {
		return err
	}
	stored := *a
	stored.Allocations = slices.Clone(a.Allocations)
	s.allocations[versionID] = stored
	return nil
}

func (s *InMemoryStore) FindAllocation(_ context.Context, versionID id.ReportVersionID) (*models.EmissionAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.allocations[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	a.Allocations = slices.Clone(a.Allocations)
	return &a, nil
}

func (s *InMemoryStore) DeleteAllocation(_ context.Context, versionID id.ReportVersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writable(versionID); err != nil {
		return err
	}
	delete(s.allocations, versionID)
	return nil
}
