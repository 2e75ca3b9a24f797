package rls

// Builder assembles a Table descriptor.
type Builder struct {
	t Table
}

// NewTable starts a descriptor for a table in the application schema.
func NewTable(name string) *Builder {
	return &Builder{t: Table{Schema: Schema, Name: name}}
}

// Grant adds table privileges without a row policy.
func (b *Builder) Grant(role Role, ops ...Operation) *Builder {
	for i := range b.t.Grants {
		if b.t.Grants[i].Role == role {
			b.t.Grants[i].Operations = append(b.t.Grants[i].Operations, ops...)
			return b
		}
	}
	b.t.Grants = append(b.t.Grants, Grant{Role: role, Operations: ops})
	return b
}

// Policy adds an explicit policy. The matching grant must be added separately.
func (b *Builder) Policy(p Policy) *Builder {
	b.t.Policies = append(b.t.Policies, p)
	return b
}

// Allow grants op to role and restricts it with expr. For INSERT the
// expression becomes the WITH CHECK clause; for UPDATE it guards both the old
// and the new row.
func (b *Builder) Allow(role Role, op Operation, expr string) *Builder {
	b.Grant(role, op)
	p := Policy{Role: role, Operation: op}
	switch op {
	case Insert:
		p.WithCheck = expr
	case Update:
		p.Using = expr
		p.WithCheck = expr
	default:
		p.Using = expr
	}
	return b.Policy(p)
}

// AllowAll applies Allow for each operation with the same expression.
func (b *Builder) AllowAll(role Role, expr string, ops ...Operation) *Builder {
	for _, op := range ops {
		b.Allow(role, op, expr)
	}
	return b
}

// CasRead gives every CAS role unrestricted SELECT.
func (b *Builder) CasRead() *Builder {
	for _, r := range CasRoles() {
		b.Allow(r, Select, "true")
	}
	return b
}

func (b *Builder) Build() Table {
	return b.t
}
