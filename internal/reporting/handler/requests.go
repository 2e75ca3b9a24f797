package handler

import (
	"github.com/shopspring/decimal"

	"bciers/internal/reporting/models"
	"bciers/pkg/platform/validation"
)

type StartReportRequest struct {
	ReportingYear int    `json:"reporting_year" validate:"required,gte=2023"`
	ReportType    string `json:"report_type" validate:"omitempty,oneof='Annual Report' 'Simple Report'"`
}

func (r *StartReportRequest) Validate() error {
	if r.ReportType == "" {
		r.ReportType = string(models.ReportTypeAnnual)
	}
	return validation.Struct(r)
}

type ProductRequest struct {
	ProductID             int              `json:"product_id" validate:"required"`
	AnnualProduction      *decimal.Decimal `json:"annual_production" validate:"required"`
	ProductionAprDec      *decimal.Decimal `json:"production_apr_dec"`
	ProductionMethodology string           `json:"production_methodology" validate:"max=64"`
}

type SaveProductsRequest struct {
	Products []ProductRequest `json:"products" validate:"dive"`
}

func (r *SaveProductsRequest) Validate() error { return validation.Struct(r) }

func (r *SaveProductsRequest) toModels() []models.ReportProduct {
	out := make([]models.ReportProduct, len(r.Products))
	for i, p := range r.Products {
		out[i] = models.ReportProduct{
			ProductID:             p.ProductID,
			AnnualProduction:      *p.AnnualProduction,
			ProductionAprDec:      p.ProductionAprDec,
			ProductionMethodology: p.ProductionMethodology,
		}
	}
	return out
}

type EmissionRequest struct {
	GasType     string           `json:"gas_type" validate:"required,max=16"`
	Quantity    *decimal.Decimal `json:"quantity" validate:"required"`
	CategoryIDs []int            `json:"category_ids" validate:"required,min=1"`
}

type SaveEmissionsRequest struct {
	Emissions []EmissionRequest `json:"emissions" validate:"dive"`
}

func (r *SaveEmissionsRequest) Validate() error { return validation.Struct(r) }

func (r *SaveEmissionsRequest) toModels() []models.ReportEmission {
	out := make([]models.ReportEmission, len(r.Emissions))
	for i, e := range r.Emissions {
		out[i] = models.ReportEmission{GasType: e.GasType, Quantity: *e.Quantity, CategoryIDs: e.CategoryIDs}
	}
	return out
}

type AllocationRowRequest struct {
	ProductID  int              `json:"product_id" validate:"required"`
	CategoryID int              `json:"emission_category_id" validate:"required"`
	Quantity   *decimal.Decimal `json:"allocated_quantity" validate:"required"`
}

type SaveAllocationRequest struct {
	Methodology      string                 `json:"methodology" validate:"required,oneof='OBPS Allocation Calculator' Other 'Not Applicable'"`
	OtherDescription string                 `json:"other_methodology_description" validate:"max=1000"`
	Allocations      []AllocationRowRequest `json:"allocations" validate:"dive"`
}

func (r *SaveAllocationRequest) Validate() error { return validation.Struct(r) }

func (r *SaveAllocationRequest) rows() []models.ProductAllocation {
	out := make([]models.ProductAllocation, len(r.Allocations))
	for i, a := range r.Allocations {
		out[i] = models.ProductAllocation{ProductID: a.ProductID, CategoryID: a.CategoryID, Quantity: *a.Quantity}
	}
	return out
}
