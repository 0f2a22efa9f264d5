package app

import (
	"fmt"
	"io"
	"strings"

	"ispdns/internal/dns"
	"ispdns/internal/reconcile"
)

type LineStatus string

const (
	StatusUpdated   LineStatus = "updated"
	StatusUnchanged LineStatus = "unchanged"
	StatusSkipped   LineStatus = "skipped"
	StatusFailed    LineStatus = "failed"
	StatusPlanned   LineStatus = "planned"
)

type LineReport struct {
	Line    dns.Line
	Status  LineStatus
	Reason  string
	Desired dns.DesiredState
	Plan    reconcile.Plan
	Result  reconcile.Result
	Err     error
}

type Summary struct {
	Zone   string
	ZoneID string
	Name   string
	Mode   reconcile.Mode
	DryRun bool
	Lines  []LineReport

	Created int
	Updated int
	Deleted int
	Failed  int
	Skipped int
}

func (s *Summary) add(rep LineReport) {
	s.Lines = append(s.Lines, rep)
	s.Created += rep.Result.Created
	s.Updated += rep.Result.Updated
	s.Deleted += rep.Result.Deleted
	s.Failed += rep.Result.Failed
	s.Skipped += rep.Result.Skipped
}

// HasFailures reports whether any line ended in StatusFailed.
func (s Summary) HasFailures() bool {
	for _, l := range s.Lines {
		if l.Status == StatusFailed {
			return true
		}
	}
	return false
}

func (s Summary) Status(code string) (LineStatus, bool) {
	for _, l := range s.Lines {
		if l.Line.Code == code {
			return l.Status, true
		}
	}
	return "", false
}

func PrintPlan(w io.Writer, name string, plan reconcile.Plan) {
	fmt.Fprintf(w, "Name: %s\n", name)
	fmt.Fprintf(w, "Line: %s\n", plan.Line)
	fmt.Fprintf(w, "Desired: %s %v ttl=%d\n", plan.Desired.Type, plan.Desired.Values, plan.Desired.TTL)
	fmt.Fprintln(w, strings.Repeat("-", 72))
	if plan.Empty() {
		fmt.Fprintln(w, "no changes")
	}
	for i, op := range plan.Ops {
		fmt.Fprintf(w, "%d\t%s\n", i+1, op)
	}
	fmt.Fprintln(w)
}

func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "Zone: %s (%s)  Name: %s  Mode: %s\n", s.Zone, s.ZoneID, s.Name, s.Mode)
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, l := range s.Lines {
		detail := l.Reason
		if l.Status == StatusUpdated || (l.Status == StatusFailed && l.Reason == "") {
			detail = fmt.Sprintf("created=%d updated=%d deleted=%d failed=%d skipped=%d",
				l.Result.Created, l.Result.Updated, l.Result.Deleted, l.Result.Failed, l.Result.Skipped)
		}
		if l.Status == StatusPlanned {
			detail = fmt.Sprintf("%d op(s)", len(l.Plan.Ops))
		}
		fmt.Fprintf(w, "%-24s %-10s %s\n", l.Line, l.Status, detail)
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "created=%d updated=%d deleted=%d failed=%d skipped=%d\n", s.Created, s.Updated, s.Deleted, s.Failed, s.Skipped)
}
