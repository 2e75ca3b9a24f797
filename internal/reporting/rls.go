// Package reporting wires the annual emission report module.
package reporting

import (
	"bciers/internal/rls"
)

// RLSTables describes access to the report tables. Industry users edit
// content only while its version is a draft; CAS users read everything.
func RLSTables() []rls.Table {
	visible := rls.ReportVersionScope("report_version_id")
	editable := rls.And(visible, rls.ReportVersionIsDraft("report_version_id"))

	content := func(name string) rls.Table {
		return rls.NewTable(name).
			Allow(rls.RoleIndustryUser, rls.Select, visible).
			AllowAll(rls.RoleIndustryUser, editable, rls.Insert, rls.Update, rls.Delete).
			CasRead().
			Build()
	}

	return []rls.Table{
		rls.NewTable("report").
			AllowAll(rls.RoleIndustryUser, rls.ApprovedOperatorScope("operator_id"), rls.Select, rls.Insert).
			CasRead().
			Build(),
		rls.NewTable("report_version").
			AllowAll(rls.RoleIndustryUser, rls.ReportScope("report_id"), rls.Select, rls.Insert, rls.Update).
			CasRead().
			Build(),
		content("report_product"),
		content("report_emission"),
		content("report_emission_allocation"),
		content("report_product_emission_allocation"),
	}
}
