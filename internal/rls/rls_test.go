package rls

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	dErrors "bciers/pkg/domain-errors"
)

type RLSSuite struct {
	suite.Suite
}

func TestRLSSuite(t *testing.T) {
	suite.Run(t, new(RLSSuite))
}

func operatorTable() Table {
	return NewTable("operator").
		CasRead().
		Allow(RoleIndustryUser, Select, ApprovedOperatorScope("id")).
		Allow(RoleIndustryUser, Update, ApprovedAdminScope("id")).
		Allow(RoleIndustryUser, Insert, "").
		Build()
}

// =============================================================================
// Validation
// =============================================================================

func (s *RLSSuite) TestValidate() {
	s.Run("valid descriptor", func() {
		s.NoError(operatorTable().Validate())
	})

	s.Run("schema and name required", func() {
		err := Table{Name: "operator"}.Validate()
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		err = Table{Schema: "erc"}.Validate()
		s.ErrorContains(err, "name is required")
	})

	s.Run("policy without grant", func() {
		t := NewTable("operation").
			Grant(RoleIndustryUser, Select).
			Policy(Policy{Role: RoleIndustryUser, Operation: Update, Using: "true"}).
			Build()
		s.ErrorContains(t.Validate(), "no matching grant")
	})

	s.Run("policy granted to a different role", func() {
		t := NewTable("operation").
			Grant(RoleCasAdmin, Select).
			Policy(Policy{Role: RoleIndustryUser, Operation: Select}).
			Build()
		s.ErrorContains(t.Validate(), "no matching grant")
	})

	s.Run("duplicate policy", func() {
		t := NewTable("operation").
			Allow(RoleIndustryUser, Select, "true").
			Allow(RoleIndustryUser, Select, "false").
			Build()
		s.ErrorContains(t.Validate(), "duplicate SELECT policy")
	})

	s.Run("insert cannot carry using", func() {
		t := NewTable("operation").
			Grant(RoleIndustryUser, Insert).
			Policy(Policy{Role: RoleIndustryUser, Operation: Insert, Using: "true"}).
			Build()
		s.ErrorContains(t.Validate(), "cannot have USING")
	})

	s.Run("select and delete cannot carry with check", func() {
		for _, op := range []Operation{Select, Delete} {
			t := NewTable("operation").
				Grant(RoleIndustryUser, op).
				Policy(Policy{Role: RoleIndustryUser, Operation: op, WithCheck: "true"}).
				Build()
			s.ErrorContains(t.Validate(), "cannot have WITH CHECK", op)
		}
	})

	s.Run("unknown role", func() {
		t := NewTable("operation").Grant(Role("superuser"), Select).Build()
		s.ErrorContains(t.Validate(), "unknown role")
	})
}

// =============================================================================
// Statement generation
// =============================================================================

func (s *RLSSuite) TestGrantStatements() {
	t := NewTable("operation").
		Grant(RoleIndustryUser, Delete, Select).
		Grant(RoleIndustryUser, Update, Insert, Select).
		Grant(RoleCasViewOnly, Select).
		Build()

	stmts, err := GrantStatements(t)
	s.Require().NoError(err)
	s.Equal([]string{
		`GRANT SELECT, INSERT, UPDATE, DELETE ON "erc"."operation" TO "industry_user"`,
		`GRANT SELECT ON "erc"."operation" TO "cas_view_only"`,
	}, stmts)
}

func (s *RLSSuite) TestPolicyStatements() {
	t := NewTable("report_emission").
		Allow(RoleIndustryUser, Insert, "").
		Allow(RoleIndustryUser, Update, ReportVersionScope("report_version_id")).
		Allow(RoleCasAnalyst, Select, "").
		Build()

	stmts, err := PolicyStatements(t)
	s.Require().NoError(err)
	s.Require().Len(stmts, 7)
	s.Equal(`ALTER TABLE "erc"."report_emission" ENABLE ROW LEVEL SECURITY`, stmts[0])
	s.Equal(`DROP POLICY IF EXISTS "report_emission_industry_user_insert" ON "erc"."report_emission"`, stmts[1])
	s.Equal(`CREATE POLICY "report_emission_industry_user_insert" ON "erc"."report_emission" AS PERMISSIVE FOR INSERT TO "industry_user" WITH CHECK (true)`, stmts[2])
	s.Contains(stmts[4], "FOR UPDATE TO \"industry_user\" USING (report_version_id IN (SELECT rv.id")
	s.Contains(stmts[4], ") WITH CHECK (report_version_id IN")
	s.Equal(`CREATE POLICY "report_emission_cas_analyst_select" ON "erc"."report_emission" AS PERMISSIVE FOR SELECT TO "cas_analyst" USING (true)`, stmts[6])
}

func (s *RLSSuite) TestPolicyName() {
	s.Equal("operator_industry_user_select", PolicyName("operator", RoleIndustryUser, Select))

	long := "report_product_emission_allocation_with_an_extremely_long_name"
	name := PolicyName(long, RoleCasDirector, Delete)
	s.Len(name, 63)
	s.True(strings.HasPrefix(name, "report_product_emission_allocation"))
	s.Equal(name, PolicyName(long, RoleCasDirector, Delete), "names must be stable")
	s.NotEqual(name, PolicyName(long, RoleCasDirector, Update))
}

func (s *RLSSuite) TestRoleStatements() {
	stmts := RoleStatements("erc", []Role{RoleCasPending})
	s.Require().Len(stmts, 3)
	s.Contains(stmts[0], "rolname = 'cas_pending'")
	s.Contains(stmts[0], `CREATE ROLE "cas_pending" NOLOGIN`)
	s.Equal(`GRANT "cas_pending" TO CURRENT_USER`, stmts[1])
	s.Equal(`GRANT USAGE ON SCHEMA "erc" TO "cas_pending"`, stmts[2])
}

func (s *RLSSuite) TestResetStatements() {
	stmts := ResetStatements(operatorTable())
	s.Contains(stmts, `DROP POLICY IF EXISTS "operator_industry_user_update" ON "erc"."operator"`)
	s.Contains(stmts, `REVOKE ALL ON "erc"."operator" FROM "industry_user"`)
	s.Equal(`ALTER TABLE "erc"."operator" DISABLE ROW LEVEL SECURITY`, stmts[len(stmts)-1])
}

// =============================================================================
// Registry
// =============================================================================

func (s *RLSSuite) TestRegistry() {
	r := NewRegistry()
	s.Require().NoError(r.Register(operatorTable()))
	s.Require().NoError(r.Register(NewTable("contact").CasRead().Build()))

	err := r.Register(operatorTable())
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	tables := r.Tables()
	s.Require().Len(tables, 2)
	s.Equal("erc.contact", tables[0].QualifiedName())
	s.Equal("erc.operator", tables[1].QualifiedName())

	script, err := r.Script()
	s.Require().NoError(err)
	s.True(strings.HasPrefix(script, "DO $$ BEGIN"))
	s.Less(strings.Index(script, `"erc"."contact"`), strings.Index(script, `"erc"."operator"`))
	s.True(strings.HasSuffix(script, ";\n"))
}

func TestExpressions(t *testing.T) {
	require.Equal(t, "NULLIF(current_setting('my.guid', true), '')::uuid", CurrentUserGUID())
	assert.Equal(t, "operator_id IN (SELECT erc.approved_operator_ids())", ApprovedOperatorScope("operator_id"))
	assert.Contains(t, OperationScope("operation_id"), "o.operator_id IN (SELECT erc.approved_operator_ids())")
	assert.Contains(t, FacilityScope("facility_id"), "JOIN erc.operation o ON o.id = f.operation_id")
	assert.Equal(t, "report_id IN (SELECT r.id FROM erc.report r WHERE r.operator_id IN (SELECT erc.approved_operator_ids()))", ReportScope("report_id"))
	assert.Equal(t, "(a) AND (b)", And("a", "b"))
}
