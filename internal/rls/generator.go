package rls

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/lib/pq"
)

const maxIdentifierBytes = 63

// PolicyName returns the generated policy name, <table>_<role>_<op>, kept
// within the PostgreSQL identifier limit.
func PolicyName(table string, role Role, op Operation) string {
	name := strings.ToLower(fmt.Sprintf("%s_%s_%s", table, role, op))
	if len(name) <= maxIdentifierBytes {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	suffix := "_" + hex.EncodeToString(sum[:])[:8]
	return name[:maxIdentifierBytes-len(suffix)] + suffix
}

func quotedTable(t Table) string {
	return pq.QuoteIdentifier(t.Schema) + "." + pq.QuoteIdentifier(t.Name)
}

// GrantStatements renders one GRANT per role, operations in canonical order.
func GrantStatements(t Table) ([]string, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	byRole := map[Role][]Operation{}
	var order []Role
	for _, g := range t.Grants {
		if _, ok := byRole[g.Role]; !ok {
			order = append(order, g.Role)
		}
		for _, op := range g.Operations {
			if !slices.Contains(byRole[g.Role], op) {
				byRole[g.Role] = append(byRole[g.Role], op)
			}
		}
	}

	stmts := make([]string, 0, len(order))
	for _, role := range order {
		ops := byRole[role]
		slices.SortFunc(ops, func(a, b Operation) int { return a.rank() - b.rank() })
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = string(op)
		}
		stmts = append(stmts, fmt.Sprintf("GRANT %s ON %s TO %s",
			strings.Join(names, ", "), quotedTable(t), pq.QuoteIdentifier(string(role))))
	}
	return stmts, nil
}

// PolicyStatements enables RLS on the table and (re)creates every policy.
func PolicyStatements(t Table) ([]string, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	table := quotedTable(t)
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ENABLE ROW LEVEL SECURITY", table)}
	for _, p := range t.Policies {
		p = p.normalized()
		name := pq.QuoteIdentifier(PolicyName(t.Name, p.Role, p.Operation))
		stmts = append(stmts, fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s", name, table))

		var b strings.Builder
		fmt.Fprintf(&b, "CREATE POLICY %s ON %s AS PERMISSIVE FOR %s TO %s",
			name, table, p.Operation, pq.QuoteIdentifier(string(p.Role)))
		if p.Using != "" {
			fmt.Fprintf(&b, " USING (%s)", p.Using)
		}
		if p.WithCheck != "" {
			fmt.Fprintf(&b, " WITH CHECK (%s)", p.WithCheck)
		}
		stmts = append(stmts, b.String())
	}
	return stmts, nil
}

// RoleStatements creates each role when missing, lets the connecting user
// switch into it, and grants schema usage.
func RoleStatements(schema string, roles []Role) []string {
	stmts := make([]string, 0, len(roles)*3)
	for _, r := range roles {
		role := pq.QuoteIdentifier(string(r))
		stmts = append(stmts,
			fmt.Sprintf(`DO $$ BEGIN IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = %s) THEN CREATE ROLE %s NOLOGIN; END IF; END $$`,
				pq.QuoteLiteral(string(r)), role),
			fmt.Sprintf("GRANT %s TO CURRENT_USER", role),
			fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", pq.QuoteIdentifier(schema), role),
		)
	}
	return stmts
}

// ResetStatements drops the generated policies, revokes grants and disables RLS.
func ResetStatements(t Table) []string {
	table := quotedTable(t)
	var stmts []string
	for _, p := range t.Policies {
		stmts = append(stmts, fmt.Sprintf("DROP POLICY IF EXISTS %s ON %s",
			pq.QuoteIdentifier(PolicyName(t.Name, p.Role, p.Operation)), table))
	}
	revoked := map[Role]bool{}
	for _, g := range t.Grants {
		if revoked[g.Role] {
			continue
		}
		revoked[g.Role] = true
		stmts = append(stmts, fmt.Sprintf("REVOKE ALL ON %s FROM %s", table, pq.QuoteIdentifier(string(g.Role))))
	}
	stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s DISABLE ROW LEVEL SECURITY", table))
	return stmts
}
