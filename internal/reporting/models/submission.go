package models

import id "bciers/pkg/domain"

// Submission is the version data the compliance calculation consumes.
type Submission struct {
	Report        Report             `json:"report"`
	Version       ReportVersion      `json:"version"`
	OperationName string             `json:"operation_name"`
	BOROID        string             `json:"boro_id,omitempty"`
	Regulated     bool               `json:"regulated"`
	Products      []ReportProduct    `json:"products"`
	Emissions     []ProductEmissions `json:"product_emissions"`
	Totals        EmissionTotals     `json:"totals"`
}

func (s *Submission) VersionID() id.ReportVersionID { return s.Version.ID }

// Product returns the reported production of productID.
func (s *Submission) Product(productID int) (ReportProduct, bool) {
	for _, p := range s.Products {
		if p.ProductID == productID {
			return p, true
		}
	}
	return ReportProduct{}, false
}
