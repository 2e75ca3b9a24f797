// Package registration wires the operator and operation registration module.
package registration

import (
	"bciers/internal/rls"
)

// RLSTables describes access to the registration tables.
func RLSTables() []rls.Table {
	member := rls.ApprovedOperatorScope("operator_id")
	decideRoles := []rls.Role{rls.RoleCasDirector, rls.RoleCasAdmin, rls.RoleCasAnalyst}
	issueRoles := []rls.Role{rls.RoleCasDirector, rls.RoleCasAnalyst, rls.RoleCasAdmin}

	operator := rls.NewTable("operator").
		Allow(rls.RoleIndustryUser, rls.Select, "true").
		Allow(rls.RoleIndustryUser, rls.Insert, "true").
		Allow(rls.RoleIndustryUser, rls.Update, rls.ApprovedAdminScope("id")).
		CasRead()

	userOperator := rls.NewTable("user_operator").
		Allow(rls.RoleIndustryUser, rls.Select, rls.UserIsCurrent("user_guid")+" OR "+rls.ApprovedAdminScope("operator_id")).
		Allow(rls.RoleIndustryUser, rls.Insert, rls.UserIsCurrent("user_guid")).
		Allow(rls.RoleIndustryUser, rls.Update, rls.ApprovedAdminScope("operator_id")).
		CasRead()

	operation := rls.NewTable("operation").
		AllowAll(rls.RoleIndustryUser, member, rls.Select, rls.Insert, rls.Update).
		CasRead()

	facility := rls.NewTable("facility").
		AllowAll(rls.RoleIndustryUser, rls.OperationScope("operation_id"), rls.Select, rls.Insert, rls.Update).
		CasRead()

	counter := rls.NewTable("id_counter")

	for _, r := range decideRoles {
		operator.Allow(r, rls.Update, "true")
		userOperator.Allow(r, rls.Update, "true")
	}
	for _, r := range issueRoles {
		operation.Allow(r, rls.Update, "true")
		facility.Allow(r, rls.Update, "true")
		counter.AllowAll(r, "true", rls.Select, rls.Insert, rls.Update)
	}

	return []rls.Table{
		operator.Build(),
		userOperator.Build(),
		rls.NewTable("contact").
			AllowAll(rls.RoleIndustryUser, member, rls.Select, rls.Insert, rls.Update).
			CasRead().
			Build(),
		operation.Build(),
		facility.Build(),
		counter.Build(),
	}
}
