package service

import (
	"context"

	"bciers/internal/reporting/models"
	id "bciers/pkg/domain"
)

// Source assembles submissions for the compliance calculation. It applies
// the same visibility checks as Service but none of the authoring rules, so
// drafts can be previewed.
type Source struct {
	svc *Service
}

func NewSource(store Store, operations OperationReader) *Source {
	return &Source{svc: New(store, operations)}
}

func (s *Source) Submission(ctx context.Context, versionID id.ReportVersionID) (*models.Submission, error) {
	sc, err := s.svc.load(ctx, versionID, false)
	if err != nil {
		return nil, err
	}
	products, emissions, allocation, err := s.svc.content(ctx, versionID)
	if err != nil {
		return nil, err
	}
	sub := &models.Submission{
		Report:        *sc.report,
		Version:       *sc.version,
		OperationName: sc.operation.Name,
		Regulated:     sc.operation.RegistrationPurpose.IsRegulated(),
		Products:      products,
		Emissions:     allocation.ByProduct(products),
		Totals:        models.Totals(emissions),
	}
	if sc.operation.BOROID != nil {
		sub.BOROID = *sc.operation.BOROID
	}
	return sub, nil
}
