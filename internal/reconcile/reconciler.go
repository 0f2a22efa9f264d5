package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"ispdns/internal/dns"
	"ispdns/internal/provider"
)

// ErrConflictingRecord is reported for a create that was not attempted
// because a record of the other type could not be removed from the line.
var ErrConflictingRecord = errors.New("conflicting record of another type still present")

type Outcome struct {
	Op       Operation
	RecordID string
	Err      error
	Skipped  bool
}

type Result struct {
	Outcomes []Outcome
	Created  int
	Updated  int
	Deleted  int
	Failed   int
	Skipped  int
}

func (r Result) Changed() bool { return r.Created+r.Updated+r.Deleted > 0 }

func (r Result) Err() error {
	var errs []error
	for _, o := range r.Outcomes {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Op, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Reconciler applies plans for one record name in one zone.
type Reconciler struct {
	client provider.Client
	zoneID string
	name   string
	mode   Mode
	log    *logrus.Entry
}

func New(client provider.Client, zoneID, name string, mode Mode, log *logrus.Entry) *Reconciler {
	return &Reconciler{
		client: client,
		zoneID: zoneID,
		name:   name,
		mode:   mode,
		log:    log.WithField("component", "reconciler"),
	}
}

func (r *Reconciler) Plan(line dns.Line, desired dns.DesiredState, existing []dns.RecordSet) Plan {
	return BuildPlan(r.mode, line, desired, existing)
}

// Apply runs the plan in order. Operations are independent of each other:
// a failed delete does not stop the create that follows it, with one
// exception. If a record of the other type could not be deleted, the
// create is skipped. Nothing is retried.
func (r *Reconciler) Apply(ctx context.Context, plan Plan) Result {
	var (
		res      Result
		conflict bool
		log      = r.log.WithFields(logrus.Fields{"line": plan.Line.Name, "code": plan.Line.Code})
	)

	for _, op := range plan.Ops {
		out := Outcome{Op: op}
		opLog := log.WithField("op", op.Kind)

		switch op.Kind {
		case OpDelete:
			out.RecordID = op.Target.ID
			out.Err = r.client.DeleteRecordSet(ctx, r.zoneID, op.Target)
			if out.Err == nil {
				res.Deleted++
				opLog.Infof("deleted %s record set %s %v", op.Target.Type, op.Target.ID, op.Target.Values)
			} else if op.Conflict {
				conflict = true
			}
		case OpUpdate:
			out.RecordID = op.Target.ID
			out.Err = r.client.UpdateRecordSet(ctx, r.zoneID, op.Target, op.Desired)
			if out.Err == nil {
				res.Updated++
				opLog.Infof("updated record set %s to %d %s value(s) ttl=%d", op.Target.ID, len(op.Desired.Values), op.Desired.Type, op.Desired.TTL)
			}
		case OpCreate:
			if conflict {
				out.Skipped = true
				out.Err = ErrConflictingRecord
				res.Skipped++
				opLog.Warnf("skipped create of %s: %v", op.Desired.Type, ErrConflictingRecord)
				res.Outcomes = append(res.Outcomes, out)
				continue
			}
			out.RecordID, out.Err = r.client.CreateRecordSet(ctx, r.zoneID, r.name, op.Line, op.Desired)
			if out.Err == nil {
				res.Created++
				opLog.Infof("created %s record set %s with %d value(s) ttl=%d", op.Desired.Type, out.RecordID, len(op.Desired.Values), op.Desired.TTL)
			}
		}

		if out.Err != nil {
			res.Failed++
			opLog.WithError(out.Err).Errorf("%s failed", op.Kind)
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res
}
