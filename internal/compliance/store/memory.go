package store

import (
	"context"
	"sort"
	"sync"

	"bciers/internal/compliance/calculator"
	"bciers/internal/compliance/models"
	id "bciers/pkg/domain"
	"bciers/pkg/platform/sentinel"
)

// InMemoryStore mirrors the compliance schema's uniqueness rules for tests
// and local runs.
type InMemoryStore struct {
	mu           sync.RWMutex
	versions     map[id.ComplianceReportVersionID]models.ComplianceReportVersion
	obligations  map[id.ObligationID]models.Obligation
	clients      map[id.OperatorID]models.ClientOperator
	invoices     map[id.InvoiceID]models.Invoice
	payments     map[string]models.Payment
	adjustments  map[string]models.Adjustment
	penalties    map[id.ObligationID]models.Penalty
	credits      map[id.EarnedCreditID]models.EarnedCredit
	applications []models.UnitApplication
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		versions:    map[id.ComplianceReportVersionID]models.ComplianceReportVersion{},
		obligations: map[id.ObligationID]models.Obligation{},
		clients:     map[id.OperatorID]models.ClientOperator{},
		invoices:    map[id.InvoiceID]models.Invoice{},
		payments:    map[string]models.Payment{},
		adjustments: map[string]models.Adjustment{},
		penalties:   map[id.ObligationID]models.Penalty{},
		credits:     map[id.EarnedCreditID]models.EarnedCredit{},
	}
}

func (s *InMemoryStore) CreateVersion(_ context.Context, v *models.ComplianceReportVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.versions {
		if existing.ReportVersionID == v.ReportVersionID ||
			(existing.ReportID == v.ReportID && existing.VersionNumber == v.VersionNumber) {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.versions[v.ID] = *v
	return nil
}

func (s *InMemoryStore) FindVersion(_ context.Context, versionID id.ComplianceReportVersionID) (*models.ComplianceReportVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

func (s *InMemoryStore) FindVersionByReportVersion(_ context.Context, reportVersionID id.ReportVersionID) (*models.ComplianceReportVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.versions {
		if v.ReportVersionID == reportVersionID {
			return &v, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) LatestVersion(_ context.Context, reportID id.ReportID) (*models.ComplianceReportVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.ComplianceReportVersion
	for _, v := range s.versions {
		if v.ReportID != reportID {
			continue
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			c := v
			latest = &c
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return latest, nil
}

func (s *InMemoryStore) ListVersions(_ context.Context, operationID id.OperationID) ([]*models.ComplianceReportVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.ComplianceReportVersion
	for _, v := range s.versions {
		if v.OperationID == operationID {
			c := v
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReportingYear != out[j].ReportingYear {
			return out[i].ReportingYear < out[j].ReportingYear
		}
		return out[i].VersionNumber < out[j].VersionNumber
	})
	return out, nil
}

func (s *InMemoryStore) UpdateVersionStatus(_ context.Context, v *models.ComplianceReportVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.versions[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.Status = v.Status
	s.versions[v.ID] = existing
	return nil
}

func (s *InMemoryStore) CreateObligation(_ context.Context, o *models.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.obligations {
		if existing.ComplianceReportVersionID == o.ComplianceReportVersionID || existing.ObligationID == o.ObligationID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.obligations[o.ID] = *o
	return nil
}

func (s *InMemoryStore) FindObligation(_ context.Context, obligationID id.ObligationID) (*models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.obligations[obligationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &o, nil
}

func (s *InMemoryStore) FindObligationForUpdate(ctx context.Context, obligationID id.ObligationID) (*models.Obligation, error) {
	return s.FindObligation(ctx, obligationID)
}

func (s *InMemoryStore) FindObligationByVersion(_ context.Context, versionID id.ComplianceReportVersionID) (*models.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.obligations {
		if o.ComplianceReportVersionID == versionID {
			return &o, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateObligation(_ context.Context, o *models.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[o.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.obligations[o.ID] = *o
	return nil
}

func (s *InMemoryStore) ListOpenObligations(_ context.Context) ([]id.ObligationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var open []models.Obligation
	for _, o := range s.obligations {
		if o.Status != models.ObligationFullyMet ||
			o.PenaltyStatus == calculator.PenaltyAccruing || o.PenaltyStatus == calculator.PenaltyNotPaid {
			open = append(open, o)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CreatedAt.Before(open[j].CreatedAt) })
	out := make([]id.ObligationID, len(open))
	for i, o := range open {
		out[i] = o.ID
	}
	return out, nil
}

func (s *InMemoryStore) FindClient(_ context.Context, operatorID id.OperatorID) (*models.ClientOperator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[operatorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) SaveClient(_ context.Context, c *models.ClientOperator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.OperatorID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.clients[c.OperatorID] = *c
	return nil
}

func (s *InMemoryStore) CreateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *InMemoryStore) FindInvoice(_ context.Context, invoiceID id.InvoiceID) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &inv, nil
}

func (s *InMemoryStore) UpdateInvoice(_ context.Context, inv *models.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invoices[inv.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.invoices[inv.ID] = *inv
	return nil
}

func (s *InMemoryStore) UpsertPayments(_ context.Context, payments []models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range payments {
		if existing, ok := s.payments[p.PaymentObjectID]; ok {
			p.ID = existing.ID
		}
		s.payments[p.PaymentObjectID] = p
	}
	return nil
}

func (s *InMemoryStore) UpsertAdjustments(_ context.Context, adjustments []models.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range adjustments {
		if existing, ok := s.adjustments[a.AdjustmentObjectID]; ok {
			a.ID = existing.ID
		}
		s.adjustments[a.AdjustmentObjectID] = a
	}
	return nil
}

func (s *InMemoryStore) ListPayments(_ context.Context, invoiceID id.InvoiceID) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Payment
	for _, p := range s.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedDate.Equal(out[j].ReceivedDate) {
			return out[i].ReceivedDate.Before(out[j].ReceivedDate)
		}
		return out[i].PaymentObjectID < out[j].PaymentObjectID
	})
	return out, nil
}

func (s *InMemoryStore) ListAdjustments(_ context.Context, invoiceID id.InvoiceID) ([]models.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Adjustment
	for _, a := range s.adjustments {
		if a.InvoiceID == invoiceID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].AdjustmentObjectID < out[j].AdjustmentObjectID
	})
	return out, nil
}

func (s *InMemoryStore) FindPenalty(_ context.Context, obligationID id.ObligationID) (*models.Penalty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.penalties[obligationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) SavePenalty(_ context.Context, p *models.Penalty) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.penalties[p.ObligationID] = *p
	return nil
}

func (s *InMemoryStore) CreateEarnedCredit(_ context.Context, c *models.EarnedCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.credits {
		if existing.ComplianceReportVersionID == c.ComplianceReportVersionID {
			return sentinel.ErrAlreadyUsed
		}
	}
	s.credits[c.ID] = *c
	return nil
}

func (s *InMemoryStore) FindEarnedCredit(_ context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credits[creditID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) FindEarnedCreditForUpdate(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error) {
	return s.FindEarnedCredit(ctx, creditID)
}

func (s *InMemoryStore) FindEarnedCreditByVersion(_ context.Context, versionID id.ComplianceReportVersionID) (*models.EarnedCredit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credits {
		if c.ComplianceReportVersionID == versionID {
			return &c, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) UpdateEarnedCredit(_ context.Context, c *models.EarnedCredit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credits[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.credits[c.ID] = *c
	return nil
}

func (s *InMemoryStore) CreateUnitApplication(_ context.Context, a *models.UnitApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications = append(s.applications, *a)
	return nil
}

func (s *InMemoryStore) UpdateUnitApplication(_ context.Context, a *models.UnitApplication) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.applications {
		if s.applications[i].ID == a.ID {
			s.applications[i] = *a
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) DeleteUnitApplication(_ context.Context, appID id.UnitApplicationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.applications {
		if s.applications[i].ID == appID {
			s.applications = append(s.applications[:i], s.applications[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) ListUnitApplications(_ context.Context, obligationID id.ObligationID) ([]models.UnitApplication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.UnitApplication
	for _, a := range s.applications {
		if a.ObligationID == obligationID {
			out = append(out, a)
		}
	}
	return out, nil
}
