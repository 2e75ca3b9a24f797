// Package identity wires the user module.
package identity

import (
	"fmt"

	"bciers/internal/rls"
)

// RLSTables describes access to erc.app_user.
func RLSTables() []rls.Table {
	own := rls.UserIsCurrent("user_guid")
	// industry admins see the users who asked to join their operators
	colleagues := fmt.Sprintf("user_guid IN (SELECT uo.user_guid FROM %s.user_operator uo WHERE %s)",
		rls.Schema, rls.ApprovedAdminScope("uo.operator_id"))

	return []rls.Table{
		rls.NewTable("app_user").
			Allow(rls.RoleIndustryUser, rls.Select, own+" OR "+colleagues).
			AllowAll(rls.RoleIndustryUser, own, rls.Insert, rls.Update).
			AllowAll(rls.RoleCasPending, own, rls.Select, rls.Insert, rls.Update).
			CasRead().
			Allow(rls.RoleCasAdmin, rls.Update, "true").
			Build(),
	}
}
