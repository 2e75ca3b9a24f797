package handler

import (
	"bciers/internal/compliance/models"
	"bciers/internal/compliance/service"
	"bciers/pkg/platform/validation"
)

type ApplyUnitsRequest struct {
	HoldingAccountID string `json:"bccr_holding_account_id" validate:"required,len=15,numeric"`
	Units            int64  `json:"units" validate:"required,gt=0"`
}

func (r *ApplyUnitsRequest) Validate() error { return validation.Struct(r) }

type RequestCreditsRequest struct {
	HoldingAccountID string `json:"bccr_holding_account_id" validate:"required,len=15,numeric"`
}

func (r *RequestCreditsRequest) Validate() error { return validation.Struct(r) }

// ReviewCreditsRequest carries an analyst suggestion or a director decision;
// the caller's role decides which one the service reads.
type ReviewCreditsRequest struct {
	AnalystSuggestion string `json:"analyst_suggestion" validate:"omitempty,oneof=READY_TO_APPROVE REQUIRING_CHANGE_OF_BCCR_HOLDING_ACCOUNT_ID REQUIRING_SUPPLEMENTARY_REPORT"`
	DirectorDecision  string `json:"director_decision" validate:"omitempty,oneof=APPROVED DECLINED"`
	Comment           string `json:"comment" validate:"max=2000"`
}

func (r *ReviewCreditsRequest) Validate() error { return validation.Struct(r) }

func (r *ReviewCreditsRequest) toInput() service.ReviewInput {
	return service.ReviewInput{
		Suggestion: models.AnalystSuggestion(r.AnalystSuggestion),
		Decision:   models.DirectorDecision(r.DirectorDecision),
		Comment:    r.Comment,
	}
}
