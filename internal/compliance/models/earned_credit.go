package models

import (
	"strings"
	"time"

	id "bciers/pkg/domain"
	dErrors "bciers/pkg/domain-errors"
)

type IssuanceStatus string

const (
	IssuanceNotRequested    IssuanceStatus = "CREDITS_NOT_ISSUED"
	IssuanceRequested       IssuanceStatus = "ISSUANCE_REQUESTED"
	IssuanceChangesRequired IssuanceStatus = "CHANGES_REQUIRED"
	IssuanceApproved        IssuanceStatus = "APPROVED"
	IssuanceDeclined        IssuanceStatus = "DECLINED"
)

type AnalystSuggestion string

const (
	SuggestReadyToApprove       AnalystSuggestion = "READY_TO_APPROVE"
	SuggestChangeHoldingAccount AnalystSuggestion = "REQUIRING_CHANGE_OF_BCCR_HOLDING_ACCOUNT_ID"
	SuggestSupplementaryReport  AnalystSuggestion = "REQUIRING_SUPPLEMENTARY_REPORT"
)

func (s AnalystSuggestion) IsValid() bool {
	return s == SuggestReadyToApprove || s == SuggestChangeHoldingAccount || s == SuggestSupplementaryReport
}

type DirectorDecision string

const (
	DecisionApproved DirectorDecision = "APPROVED"
	DecisionDeclined DirectorDecision = "DECLINED"
)

func (d DirectorDecision) IsValid() bool {
	return d == DecisionApproved || d == DecisionDeclined
}

// EarnedCredit is the credit entitlement of a version whose emissions came
// in under the limit.
type EarnedCredit struct {
	ID                        id.EarnedCreditID            `json:"id"`
	ComplianceReportVersionID id.ComplianceReportVersionID `json:"compliance_report_version_id"`
	Amount                    int64                        `json:"earned_credits_amount"`
	IssuanceStatus            IssuanceStatus               `json:"issuance_status"`
	TradingName               string                       `json:"bccr_trading_name"`
	HoldingAccountID          *string                      `json:"bccr_holding_account_id,omitempty"`
	ProjectID                 string                       `json:"bccr_project_id"`
	AnalystSuggestion         AnalystSuggestion            `json:"analyst_suggestion,omitempty"`
	AnalystComment            string                       `json:"analyst_comment"`
	DirectorDecision          DirectorDecision             `json:"director_decision,omitempty"`
	DirectorComment           string                       `json:"director_comment"`
	RequestedBy               *id.UserGUID                 `json:"requested_by,omitempty"`
	RequestedAt               *time.Time                   `json:"requested_at,omitempty"`
	IssuedAt                  *time.Time                   `json:"issued_at,omitempty"`
	IssuedBy                  *id.UserGUID                 `json:"issued_by,omitempty"`
}

func NewEarnedCredit(crvID id.ComplianceReportVersionID, amount int64) (*EarnedCredit, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "earned credit amount must be positive")
	}
	return &EarnedCredit{
		ID:                        id.NewEarnedCreditID(),
		ComplianceReportVersionID: crvID,
		Amount:                    amount,
		IssuanceStatus:            IssuanceNotRequested,
	}, nil
}

// Request asks for the credits to be issued into a holding account.
func (c *EarnedCredit) Request(accountID, tradingName string, by id.UserGUID, now time.Time) error {
	if c.IssuanceStatus != IssuanceNotRequested && c.IssuanceStatus != IssuanceChangesRequired {
		return dErrors.Newf(dErrors.CodeInvalidState, "credits cannot be requested while %s", c.IssuanceStatus)
	}
	c.HoldingAccountID = &accountID
	c.TradingName = strings.TrimSpace(tradingName)
	c.IssuanceStatus = IssuanceRequested
	c.AnalystSuggestion = ""
	c.RequestedBy = &by
	c.RequestedAt = &now
	return nil
}

// Suggest records the analyst's review. Suggestions other than ready to
// approve send the request back to the operator.
func (c *EarnedCredit) Suggest(suggestion AnalystSuggestion, comment string) error {
	if !suggestion.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown analyst suggestion %q", suggestion)
	}
	if c.IssuanceStatus != IssuanceRequested {
		return dErrors.Newf(dErrors.CodeInvalidState, "only requested credits can be reviewed, status is %s", c.IssuanceStatus)
	}
	c.AnalystSuggestion = suggestion
	c.AnalystComment = strings.TrimSpace(comment)
	if suggestion != SuggestReadyToApprove {
		c.IssuanceStatus = IssuanceChangesRequired
	}
	return nil
}

// Decide records the director's decision on a request the analyst marked
// ready to approve.
func (c *EarnedCredit) Decide(decision DirectorDecision, comment string, by id.UserGUID, now time.Time) error {
	if !decision.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown director decision %q", decision)
	}
	if c.IssuanceStatus != IssuanceRequested || c.AnalystSuggestion != SuggestReadyToApprove {
		return dErrors.New(dErrors.CodeInvalidState, "credits must be requested and marked ready to approve before a decision")
	}
	c.DirectorDecision = decision
	c.DirectorComment = strings.TrimSpace(comment)
	if decision == DecisionDeclined {
		c.IssuanceStatus = IssuanceDeclined
		return nil
	}
	c.IssuanceStatus = IssuanceApproved
	c.IssuedAt = &now
	c.IssuedBy = &by
	return nil
}
