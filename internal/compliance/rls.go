// Package compliance wires the compliance obligation and earned credit module.
package compliance

import (
	"fmt"

	"bciers/internal/rls"
)

// invoiceScope matches invoices billed to one of the user's obligations,
// the obligation's own invoice or its penalty invoice.
func invoiceScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT co.elicensing_invoice_id FROM %s.compliance_obligation co WHERE %s UNION SELECT cp.elicensing_invoice_id FROM %s.compliance_penalty cp WHERE %s)",
		column,
		rls.Schema, rls.ComplianceReportVersionScope("co.compliance_report_version_id"),
		rls.Schema, rls.ObligationScope("cp.obligation_id"))
}

// RLSTables describes access to the compliance and eLicensing tables.
// Industry users create compliance records as their report is submitted and
// move them forward by applying units or requesting credits. CAS staff read
// everything and keep invoices, payments and penalties in step with
// eLicensing.
func RLSTables() []rls.Table {
	versionScope := rls.ComplianceReportVersionScope("compliance_report_version_id")
	staff := []rls.Role{rls.RoleCasDirector, rls.RoleCasAdmin, rls.RoleCasAnalyst}

	version := rls.NewTable("compliance_report_version").
		AllowAll(rls.RoleIndustryUser, rls.ApprovedOperatorScope("operator_id"), rls.Select, rls.Insert, rls.Update).
		CasRead()
	obligation := rls.NewTable("compliance_obligation").
		AllowAll(rls.RoleIndustryUser, versionScope, rls.Select, rls.Insert, rls.Update).
		CasRead()
	credit := rls.NewTable("compliance_earned_credit").
		AllowAll(rls.RoleIndustryUser, versionScope, rls.Select, rls.Insert, rls.Update).
		CasRead()
	penalty := rls.NewTable("compliance_penalty").
		Allow(rls.RoleIndustryUser, rls.Select, rls.ObligationScope("obligation_id")).
		CasRead()
	application := rls.NewTable("compliance_unit_application").
		AllowAll(rls.RoleIndustryUser, rls.ObligationScope("obligation_id"), rls.Select, rls.Insert).
		CasRead()
	client := rls.NewTable("elicensing_client_operator").
		Allow(rls.RoleIndustryUser, rls.Select, rls.ApprovedOperatorScope("operator_id")).
		CasRead()
	invoice := rls.NewTable("elicensing_invoice").
		AllowAll(rls.RoleIndustryUser, invoiceScope("id"), rls.Select, rls.Update).
		CasRead()
	payment := rls.NewTable("elicensing_payment").
		Allow(rls.RoleIndustryUser, rls.Select, invoiceScope("invoice_id")).
		CasRead()
	adjustment := rls.NewTable("elicensing_adjustment").
		AllowAll(rls.RoleIndustryUser, invoiceScope("invoice_id"), rls.Select, rls.Insert, rls.Update).
		CasRead()

	for _, r := range staff {
		version.Allow(r, rls.Update, "true")
		obligation.Allow(r, rls.Update, "true")
		credit.Allow(r, rls.Update, "true")
		penalty.AllowAll(r, "true", rls.Insert, rls.Update)
		client.AllowAll(r, "true", rls.Insert, rls.Update)
		invoice.AllowAll(r, "true", rls.Insert, rls.Update)
		payment.AllowAll(r, "true", rls.Insert, rls.Update)
		adjustment.AllowAll(r, "true", rls.Insert, rls.Update)
	}

	return []rls.Table{
		version.Build(),
		obligation.Build(),
		credit.Build(),
		penalty.Build(),
		application.Build(),
		client.Build(),
		invoice.Build(),
		payment.Build(),
		adjustment.Build(),
	}
}
