package service

import (
	"context"
	"strconv"

	"bciers/internal/compliance/models"
	identity "bciers/internal/identity/models"
	"bciers/internal/integrations/bccr"
	"bciers/internal/integrations/provider"
	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
	"bciers/pkg/platform/audit"
	"bciers/pkg/requestcontext"
)

// creditTemplates are the emails sent to the requester after a review.
var creditTemplates = map[models.IssuanceStatus]string{
	models.IssuanceApproved:        "earned_credits_approved",
	models.IssuanceDeclined:        "earned_credits_declined",
	models.IssuanceChangesRequired: "earned_credits_changes_required",
}

// ReviewInput is an analyst suggestion or a director decision.
type ReviewInput struct {
	Suggestion models.AnalystSuggestion
	Decision   models.DirectorDecision
	Comment    string
}

// GetEarnedCredit returns an earned credit the caller may see.
func (s *Service) GetEarnedCredit(ctx context.Context, creditID id.EarnedCreditID) (*models.EarnedCredit, error) {
	c, err := s.store.FindEarnedCredit(ctx, creditID)
	if err != nil {
		return nil, translate(err, "earned credit")
	}
	if _, _, err := s.visible(ctx, c.ComplianceReportVersionID); err != nil {
		return nil, err
	}
	return c, nil
}

// RequestEarnedCredits asks for earned credits to be issued into a BCCR
// holding account. The account must exist in the registry.
func (s *Service) RequestEarnedCredits(ctx context.Context, creditID id.EarnedCreditID, holdingAccountID string) (*models.EarnedCredit, error) {
	c, err := requireIndustry(ctx)
	if err != nil {
		return nil, err
	}
	if !bccr.ValidAccountID(holdingAccountID) {
		return nil, dErrors.New(dErrors.CodeValidation, "BCCR holding account IDs are 15 digits")
	}
	current, err := s.GetEarnedCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}
	account, err := s.registry.GetAccount(ctx, holdingAccountID)
	if err != nil {
		return nil, registryError(err, "BCCR holding account")
	}

	var credit *models.EarnedCredit
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.FindEarnedCreditForUpdate(txCtx, current.ID)
		if err != nil {
			return translate(err, "earned credit")
		}
		if err := locked.Request(account.ID, account.TradingName, c.guid, requestcontext.Now(txCtx)); err != nil {
			return translate(err, "earned credit")
		}
		if err := s.store.UpdateEarnedCredit(txCtx, locked); err != nil {
			return translate(err, "earned credit")
		}
		credit = locked
		return s.emit(txCtx, audit.ActionEarnedCreditsRequested, locked.ID.String(), map[string]string{
			"amount":                  strconv.FormatInt(locked.Amount, 10),
			"bccr_holding_account_id": holdingAccountID,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "earned credits requested",
		"earned_credit_id", credit.ID.String(),
		"amount", credit.Amount,
	)
	return credit, nil
}

// ReviewEarnedCredits records an analyst suggestion or, for directors, the
// final decision. Approval issues the credits in the registry before the
// decision is stored.
func (s *Service) ReviewEarnedCredits(ctx context.Context, creditID id.EarnedCreditID, in ReviewInput) (*models.EarnedCredit, error) {
	c := callerFrom(ctx)
	director := c.role == identity.RoleCasDirector
	switch {
	case c.isSystem():
		return nil, dErrors.New(dErrors.CodeForbidden, "earned credit reviews need a CAS user")
	case director:
		if in.Decision == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "a director decision is required")
		}
	case c.role == identity.RoleCasAnalyst:
		if in.Suggestion == "" {
			return nil, dErrors.New(dErrors.CodeValidation, "an analyst suggestion is required")
		}
	default:
		return nil, dErrors.New(dErrors.CodeForbidden, "only CAS analysts and directors review earned credits")
	}

	current, err := s.store.FindEarnedCredit(ctx, creditID)
	if err != nil {
		return nil, translate(err, "earned credit")
	}
	v, op, err := s.visible(ctx, current.ComplianceReportVersionID)
	if err != nil {
		return nil, err
	}

	var credit *models.EarnedCredit
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		locked, err := s.store.FindEarnedCreditForUpdate(txCtx, creditID)
		if err != nil {
			return translate(err, "earned credit")
		}
		details := map[string]string{"role": string(c.role)}
		if director {
			if err := locked.Decide(in.Decision, in.Comment, c.guid, requestcontext.Now(txCtx)); err != nil {
				return translate(err, "earned credit")
			}
			details["decision"] = string(in.Decision)
			if locked.IssuanceStatus == models.IssuanceApproved {
				if err := s.issue(txCtx, locked, v, op.BOROID); err != nil {
					return err
				}
			}
		} else {
			if err := locked.Suggest(in.Suggestion, in.Comment); err != nil {
				return translate(err, "earned credit")
			}
			details["suggestion"] = string(in.Suggestion)
		}
		if err := s.store.UpdateEarnedCredit(txCtx, locked); err != nil {
			return translate(err, "earned credit")
		}
		credit = locked
		details["issuance_status"] = string(locked.IssuanceStatus)
		return s.emit(txCtx, audit.ActionEarnedCreditsReviewed, locked.ID.String(), details)
	})
	if err != nil {
		return nil, err
	}

	if template, ok := creditTemplates[credit.IssuanceStatus]; ok {
		comment := credit.AnalystComment
		if director {
			comment = credit.DirectorComment
		}
		s.notify(ctx, template, credit.RequestedBy, map[string]any{
			"reporting_year": v.ReportingYear,
			"amount":         credit.Amount,
			"comment":        comment,
		})
	}
	return credit, nil
}

// issue mints approved credits into the requested holding account.
func (s *Service) issue(ctx context.Context, c *models.EarnedCredit, v *models.ComplianceReportVersion, boroID *string) error {
	if c.HoldingAccountID == nil {
		return dErrors.New(dErrors.CodeInvalidState, "earned credits have no holding account")
	}
	if boroID == nil {
		return dErrors.New(dErrors.CodeInvalidState, "the operation has no BORO ID")
	}
	if _, err := s.registry.IssueCredits(ctx, bccr.Issuance{
		HoldingAccountID: *c.HoldingAccountID,
		TradingName:      c.TradingName,
		BOROID:           *boroID,
		Vintage:          v.ReportingYear,
		Quantity:         c.Amount,
	}); err != nil {
		return provider.ToDomain(err, "BCCR issuance")
	}
	c.ProjectID = *boroID
	s.metrics.AddCreditsIssued(c.Amount)
	return nil
}
