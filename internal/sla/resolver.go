package sla

import "github.com/spec-kit/sla-engine/internal/domain"

// Resolver picks the SLA target governing a ticket from one company's
// policy rows. Precedence, most specific first:
//
//	1. department + priority + category
//	2. department + priority
//	3. company default for the priority
//
// Rows are matched in the order given, so callers should pass them sorted
// by creation time to keep resolution deterministic when rows collide.
type Resolver struct {
	defs []domain.SLADefinition
}

// NewResolver wraps a company's policy rows. The slice is not copied; it
// must not change while the resolver is in use.
func NewResolver(defs []domain.SLADefinition) *Resolver {
	return &Resolver{defs: defs}
}

// Resolve returns the most specific target for the ticket coordinates, or
// ok=false when no rule matches. A miss means the ticket is outside SLA
// enforcement, not an error.
func (r *Resolver) Resolve(departmentID string, priority domain.TicketPriority, categoryID *string) (domain.SLATarget, bool) {
	if categoryID != nil {
		for i := range r.defs {
			d := &r.defs[i]
			if d.Priority != priority || d.DepartmentID == nil || d.CategoryID == nil {
				continue
			}
			if *d.DepartmentID == departmentID && *d.CategoryID == *categoryID {
				return d.Target(), true
			}
		}
	}
	for i := range r.defs {
		d := &r.defs[i]
		if d.Priority != priority || d.DepartmentID == nil || d.CategoryID != nil {
			continue
		}
		if *d.DepartmentID == departmentID {
			return d.Target(), true
		}
	}
	for i := range r.defs {
		d := &r.defs[i]
		if d.Priority == priority && d.DepartmentID == nil && d.CategoryID == nil {
			return d.Target(), true
		}
	}
	return domain.SLATarget{}, false
}
