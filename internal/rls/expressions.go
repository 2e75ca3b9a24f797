package rls

import "fmt"

// Schema is the application schema every policy expression refers to.
const Schema = "erc"

// CurrentUserGUID is the SQL expression for the requesting user's GUID.
func CurrentUserGUID() string {
	return "NULLIF(current_setting('my.guid', true), '')::uuid"
}

// UserIsCurrent matches rows owned by the requesting user.
func UserIsCurrent(column string) string {
	return fmt.Sprintf("%s = %s", column, CurrentUserGUID())
}

// ApprovedOperatorScope matches rows whose operator the user is an approved member of.
func ApprovedOperatorScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT %s.approved_operator_ids())", column, Schema)
}

// ApprovedAdminScope matches rows whose operator the user administers.
func ApprovedAdminScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT %s.approved_admin_operator_ids())", column, Schema)
}

// OperationScope matches rows belonging to an operation of one of the user's operators.
func OperationScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT o.id FROM %s.operation o WHERE %s)",
		column, Schema, ApprovedOperatorScope("o.operator_id"))
}

// FacilityScope matches rows belonging to a facility of one of the user's operations.
func FacilityScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT f.id FROM %s.facility f JOIN %s.operation o ON o.id = f.operation_id WHERE %s)",
		column, Schema, Schema, ApprovedOperatorScope("o.operator_id"))
}

// ReportScope matches rows belonging to a report of one of the user's operators.
func ReportScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT r.id FROM %s.report r WHERE %s)",
		column, Schema, ApprovedOperatorScope("r.operator_id"))
}

// ReportVersionScope matches rows belonging to a report version of one of the user's operators.
func ReportVersionScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT rv.id FROM %s.report_version rv JOIN %s.report r ON r.id = rv.report_id WHERE %s)",
		column, Schema, Schema, ApprovedOperatorScope("r.operator_id"))
}

// ReportVersionIsDraft matches rows attached to a version that can still be edited.
func ReportVersionIsDraft(column string) string {
	return fmt.Sprintf("%s IN (SELECT rv.id FROM %s.report_version rv WHERE rv.status = 'Draft')", column, Schema)
}

// ComplianceReportVersionScope matches rows belonging to a compliance report
// version of one of the user's operators.
func ComplianceReportVersionScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT crv.id FROM %s.compliance_report_version crv WHERE %s)",
		column, Schema, ApprovedOperatorScope("crv.operator_id"))
}

// ObligationScope matches rows belonging to an obligation of one of the user's operators.
func ObligationScope(column string) string {
	return fmt.Sprintf("%s IN (SELECT co.id FROM %s.compliance_obligation co JOIN %s.compliance_report_version crv ON crv.id = co.compliance_report_version_id WHERE %s)",
		column, Schema, Schema, ApprovedOperatorScope("crv.operator_id"))
}

// And joins predicates with AND.
func And(exprs ...string) string {
	out := ""
	for i, e := range exprs {
		if i > 0 {
			out += " AND "
		}
		out += "(" + e + ")"
	}
	return out
}
