// Package rls compiles declarative per-table grant and policy descriptors
// into PostgreSQL GRANT and CREATE POLICY statements.
//
// Each persisted table registers a Table describing which database roles may
// run which statements and the row predicates that apply. The registry renders
// one idempotent script that can be printed, applied or reset.
package rls

import (
	"fmt"
	"slices"
	"strings"

	dErrors "bciers/pkg/domain-errors"
)

// Role is a PostgreSQL role a request runs as. Application roles map 1:1 onto these.
type Role string

const (
	RoleIndustryUser Role = "industry_user"
	RoleCasDirector  Role = "cas_director"
	RoleCasAdmin     Role = "cas_admin"
	RoleCasAnalyst   Role = "cas_analyst"
	RoleCasViewOnly  Role = "cas_view_only"
	RoleCasPending   Role = "cas_pending"
)

// AllRoles lists every role in declaration order.
func AllRoles() []Role {
	return []Role{RoleIndustryUser, RoleCasDirector, RoleCasAdmin, RoleCasAnalyst, RoleCasViewOnly, RoleCasPending}
}

// CasRoles lists the internal staff roles that hold read access everywhere.
func CasRoles() []Role {
	return []Role{RoleCasDirector, RoleCasAdmin, RoleCasAnalyst, RoleCasViewOnly}
}

// RoleNames returns AllRoles as strings.
func RoleNames() []string {
	out := make([]string, 0, 6)
	for _, r := range AllRoles() {
		out = append(out, string(r))
	}
	return out
}

func (r Role) IsValid() bool {
	return slices.Contains(AllRoles(), r)
}

// Operation is a statement kind a grant or policy applies to.
type Operation string

const (
	Select Operation = "SELECT"
	Insert Operation = "INSERT"
	Update Operation = "UPDATE"
	Delete Operation = "DELETE"
)

var canonicalOps = []Operation{Select, Insert, Update, Delete}

// AllOperations returns the operations in canonical order.
func AllOperations() []Operation {
	return slices.Clone(canonicalOps)
}

func (o Operation) IsValid() bool {
	return slices.Contains(canonicalOps, o)
}

func (o Operation) rank() int {
	return slices.Index(canonicalOps, o)
}

// Grant gives a role table-level privileges.
type Grant struct {
	Role       Role
	Operations []Operation
}

// Policy restricts the rows a role sees (Using) or writes (WithCheck).
type Policy struct {
	Role      Role
	Operation Operation
	Using     string
	WithCheck string
}

// Table is the full access descriptor of one table.
type Table struct {
	Schema   string
	Name     string
	Grants   []Grant
	Policies []Policy
}

// QualifiedName returns schema.name unquoted.
func (t Table) QualifiedName() string {
	return t.Schema + "." + t.Name
}

// Validate checks the descriptor is internally consistent.
func (t Table) Validate() error {
	if strings.TrimSpace(t.Schema) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rls table schema is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rls table name is required")
	}

	granted := map[Role]map[Operation]bool{}
	for _, g := range t.Grants {
		if !g.Role.IsValid() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: unknown role %q", t.QualifiedName(), g.Role)
		}
		if len(g.Operations) == 0 {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: grant to %s has no operations", t.QualifiedName(), g.Role)
		}
		if granted[g.Role] == nil {
			granted[g.Role] = map[Operation]bool{}
		}
		for _, op := range g.Operations {
			if !op.IsValid() {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: unknown operation %q", t.QualifiedName(), op)
			}
			granted[g.Role][op] = true
		}
	}

	seen := map[string]bool{}
	for _, p := range t.Policies {
		if !p.Role.IsValid() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: unknown role %q", t.QualifiedName(), p.Role)
		}
		if !p.Operation.IsValid() {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: unknown operation %q", t.QualifiedName(), p.Operation)
		}
		key := string(p.Role) + "/" + string(p.Operation)
		if seen[key] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: duplicate %s policy for %s", t.QualifiedName(), p.Operation, p.Role)
		}
		seen[key] = true
		if !granted[p.Role][p.Operation] {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: %s policy for %s has no matching grant", t.QualifiedName(), p.Operation, p.Role)
		}
		switch p.Operation {
		case Insert:
			if strings.TrimSpace(p.Using) != "" {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: INSERT policy for %s cannot have USING", t.QualifiedName(), p.Role)
			}
		case Select, Delete:
			if strings.TrimSpace(p.WithCheck) != "" {
				return dErrors.Newf(dErrors.CodeInvariantViolation, "%s: %s policy for %s cannot have WITH CHECK", t.QualifiedName(), p.Operation, p.Role)
			}
		}
	}
	return nil
}

// normalized returns the policy with required clauses defaulted to true.
func (p Policy) normalized() Policy {
	using := strings.TrimSpace(p.Using)
	check := strings.TrimSpace(p.WithCheck)
	switch p.Operation {
	case Insert:
		if check == "" {
			check = "true"
		}
	case Update:
		if using == "" {
			using = "true"
		}
		if check == "" {
			check = "true"
		}
	default:
		if using == "" {
			using = "true"
		}
	}
	return Policy{Role: p.Role, Operation: p.Operation, Using: using, WithCheck: check}
}

func (t Table) String() string {
	return fmt.Sprintf("rls.Table(%s, %d grants, %d policies)", t.QualifiedName(), len(t.Grants), len(t.Policies))
}
