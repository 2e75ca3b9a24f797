// Package service implements annual emission report authoring and submission.
package service

import (
	"context"
	"errors"
	"log/slog"

	identity "bciers/internal/identity/models"
	registration "bciers/internal/registration/models"
	"bciers/internal/reporting/models"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/platform/sentinel"
	"bciers/pkg/platform/tx"
	"bciers/pkg/requestcontext"
)

// Store is the reporting persistence port.
type Store interface {
	CreateReport(ctx context.Context, r *models.Report) error
	FindReport(ctx context.Context, reportID id.ReportID) (*models.Report, error)
	ListReports(ctx context.Context, operationID id.OperationID) ([]*models.Report, error)

	CreateVersion(ctx context.Context, v *models.ReportVersion) error
	FindVersion(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error)
	FindVersionForUpdate(ctx context.Context, versionID id.ReportVersionID) (*models.ReportVersion, error)
	ListVersions(ctx context.Context, reportID id.ReportID) ([]*models.ReportVersion, error)
	UpdateVersion(ctx context.Context, v *models.ReportVersion) error

	ReplaceProducts(ctx context.Context, versionID id.ReportVersionID, products []models.ReportProduct) error
	ListProducts(ctx context.Context, versionID id.ReportVersionID) ([]models.ReportProduct, error)
	ReplaceEmissions(ctx context.Context, versionID id.ReportVersionID, emissions []models.ReportEmission) error
	ListEmissions(ctx context.Context, versionID id.ReportVersionID) ([]models.ReportEmission, error)
	SaveAllocation(ctx context.Context, versionID id.ReportVersionID, a *models.EmissionAllocation) error
	FindAllocation(ctx context.Context, versionID id.ReportVersionID) (*models.EmissionAllocation, error)
	DeleteAllocation(ctx context.Context, versionID id.ReportVersionID) error
}

// OperationReader resolves operations and enforces operator membership.
type OperationReader interface {
	GetOperation(ctx context.Context, operationID id.OperationID) (*registration.Operation, error)
}

// ComplianceRecorder creates the compliance record of a submitted version
// inside the submitting transaction.
type ComplianceRecorder interface {
	RecordSubmission(ctx context.Context, versionID id.ReportVersionID) error
}

// AuditPublisher records regulatory events inside the current transaction.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store      Store
	operations OperationReader
	compliance ComplianceRecorder
	tx         tx.Runner
	audit      AuditPublisher
	logger     *slog.Logger
}

type Option func(*Service)

func WithTx(r tx.Runner) Option { return func(s *Service) { s.tx = r } }
func WithComplianceRecorder(c ComplianceRecorder) Option {
	return func(s *Service) { s.compliance = c }
}
func WithAuditPublisher(p AuditPublisher) Option { return func(s *Service) { s.audit = p } }
func WithLogger(l *slog.Logger) Option           { return func(s *Service) { s.logger = l } }

func New(store Store, operations OperationReader, opts ...Option) *Service {
	s := &Service{store: store, operations: operations, tx: tx.Inline{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// requireAuthor allows industry users and the system to change reports.
func requireAuthor(ctx context.Context) error {
	guid := requestcontext.UserGUID(ctx)
	if guid.IsNil() || identity.AppRole(requestcontext.AppRole(ctx)).IsIndustryUser() {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "only industry users can change reports")
}

// scope is a version with the report and operation it belongs to.
type scope struct {
	report    *models.Report
	version   *models.ReportVersion
	operation *registration.Operation
}

// load resolves a version and checks the caller may see it. With write set
// the version row is locked and must be a draft the caller may author.
func (s *Service) load(ctx context.Context, versionID id.ReportVersionID, write bool) (*scope, error) {
	if write {
		if err := requireAuthor(ctx); err != nil {
			return nil, err
		}
	}
	find := s.store.FindVersion
	if write {
		find = s.store.FindVersionForUpdate
	}
	v, err := find(ctx, versionID)
	if err != nil {
		return nil, translate(err, "report version")
	}
	r, err := s.store.FindReport(ctx, v.ReportID)
	if err != nil {
		return nil, translate(err, "report")
	}
	op, err := s.operations.GetOperation(ctx, r.OperationID)
	if err != nil {
		return nil, err
	}
	if write {
		if err := v.RequireDraft(); err != nil {
			return nil, err
		}
	}
	return &scope{report: r, version: v, operation: op}, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, aggregateID string, details map[string]string) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, audit.Event{Action: action, AggregateID: aggregateID, Details: details}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}

func translate(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeNotFound, "%s not found", entity)
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.Newf(dErrors.CodeConflict, "%s already exists", entity)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "submitted report versions cannot be changed")
	case dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return dErrors.Recode(err, dErrors.CodeInvariantViolation, dErrors.CodeValidation)
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access "+entity)
}
