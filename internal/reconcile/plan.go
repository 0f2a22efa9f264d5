// Package reconcile decides and applies the record set changes that bring one
// carrier line to its desired state.
package reconcile

import (
	"fmt"
	"strings"

	"ispdns/internal/dns"
)

// Mode selects how a line with existing records of the desired type is
// brought up to date.
type Mode string

const (
	// ModeReplace deletes every matching record set and creates a fresh one.
	// There is a short window in which the line has no record.
	ModeReplace Mode = "replace"
	// ModeUpdate rewrites the first matching record set in place. Extra
	// matching sets are left for a later cleanup.
	ModeUpdate Mode = "update"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeUpdate, "in-place", "inplace":
		return ModeUpdate, nil
	default:
		return "", fmt.Errorf("unknown update mode %q (want replace|update)", s)
	}
}

type OpKind string

const (
	OpDelete OpKind = "delete"
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
)

type Operation struct {
	Kind    OpKind
	Line    dns.Line
	Target  dns.RecordSet    // delete, update
	Desired dns.DesiredState // create, update
	// Conflict marks a delete of a record whose type differs from the
	// desired one. A create on the same line must not run if it failed.
	Conflict bool
}

func (op Operation) String() string {
	switch op.Kind {
	case OpDelete:
		return fmt.Sprintf("delete %s %s %v", op.Target.ID, op.Target.Type, op.Target.Values)
	case OpUpdate:
		return fmt.Sprintf("update %s %s %v ttl=%d", op.Target.ID, op.Desired.Type, op.Desired.Values, op.Desired.TTL)
	default:
		return fmt.Sprintf("create %s %v ttl=%d", op.Desired.Type, op.Desired.Values, op.Desired.TTL)
	}
}

type Plan struct {
	Line    dns.Line
	Desired dns.DesiredState
	Ops     []Operation
}

func (p Plan) Empty() bool { return len(p.Ops) == 0 }

// BuildPlan compares the existing record sets of one line with its desired
// state. Records on other lines and of types other than A and CNAME are
// ignored. Records of the other managed type are always deleted before
// anything is created, since a name and line cannot carry both A and CNAME.
// The result depends only on its inputs and on the provider order of
// existing.
func BuildPlan(mode Mode, line dns.Line, desired dns.DesiredState, existing []dns.RecordSet) Plan {
	plan := Plan{Line: line, Desired: desired}

	var matching []dns.RecordSet
	for _, rs := range existing {
		if rs.Line != line.Code {
			continue
		}
		switch rs.Type {
		case desired.Type:
			matching = append(matching, rs)
		case dns.TypeA, dns.TypeCNAME:
			plan.Ops = append(plan.Ops, Operation{Kind: OpDelete, Line: line, Target: rs, Conflict: true})
		}
	}

	switch mode {
	case ModeUpdate:
		switch {
		case len(matching) == 0:
			plan.Ops = append(plan.Ops, Operation{Kind: OpCreate, Line: line, Desired: desired})
		case desired.Matches(matching[0]):
			// already converged
		default:
			plan.Ops = append(plan.Ops, Operation{Kind: OpUpdate, Line: line, Target: matching[0], Desired: desired})
		}
	default:
		for _, rs := range matching {
			plan.Ops = append(plan.Ops, Operation{Kind: OpDelete, Line: line, Target: rs})
		}
		plan.Ops = append(plan.Ops, Operation{Kind: OpCreate, Line: line, Desired: desired})
	}
	return plan
}
