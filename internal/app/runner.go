package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"ispdns/internal/config"
	"ispdns/internal/dns"
	"ispdns/internal/feed"
	"ispdns/internal/provider"
	"ispdns/internal/reconcile"
)

// Feeds is the part of feed.Fetcher the runner needs.
type Feeds interface {
	FetchList(ctx context.Context, url string) ([]string, []feed.Issue, error)
	FetchMapping(ctx context.Context, url string) (map[string][]string, []feed.Issue, error)
}

type RunnerOptions struct {
	// DryRun lists and plans every line but mutates nothing. Plans are
	// written to Out.
	DryRun bool
	Out    io.Writer
}

type Runner struct {
	cfg    *config.Config
	client provider.Client
	feeds  Feeds
	opt    RunnerOptions
	log    *logrus.Entry

	// shared feed results, fetched at most once per run
	sharedList    []string
	sharedMapping map[string][]string
	sharedErr     error
	sharedDone    bool
}

func NewRunner(cfg *config.Config, client provider.Client, feeds Feeds, log *logrus.Entry, opt RunnerOptions) *Runner {
	if opt.Out == nil {
		opt.Out = io.Discard
	}
	return &Runner{
		cfg:    cfg,
		client: client,
		feeds:  feeds,
		opt:    opt,
		log:    log.WithField("component", "runner"),
	}
}

// Run reconciles every configured line once. Only a failed zone lookup or
// cancellation is returned as an error; per-line problems are in Summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Zone: r.cfg.Zone, Name: r.cfg.Domain, Mode: r.cfg.Mode, DryRun: r.opt.DryRun}
	r.resetShared()

	zoneID, err := r.client.ResolveZone(ctx, r.cfg.Zone)
	if err != nil {
		return sum, err
	}
	sum.ZoneID = zoneID
	r.log.Infof("zone %s resolved to %s, reconciling %s in %s mode", r.cfg.Zone, zoneID, r.cfg.Domain, r.cfg.Mode)

	rec := reconcile.New(r.client, zoneID, r.cfg.Domain, r.cfg.Mode, r.log)
	lines := r.cfg.OrderedLines()
	for i, lc := range lines {
		if i > 0 {
			if err := sleepWithContext(ctx, r.cfg.LineDelay); err != nil {
				return sum, err
			}
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		rep := r.runLine(ctx, rec, zoneID, lc)
		sum.add(rep)
	}
	return sum, nil
}

func (r *Runner) runLine(ctx context.Context, rec *reconcile.Reconciler, zoneID string, lc config.LineConfig) LineReport {
	line := lc.Line()
	log := r.log.WithFields(logrus.Fields{"line": line.Name, "code": line.Code})
	rep := LineReport{Line: line}

	desired, err := r.desiredFor(ctx, lc)
	if err != nil {
		log.WithError(err).Warn("feed unavailable, line skipped")
		rep.Status, rep.Reason, rep.Err = StatusSkipped, "feed unavailable", err
		return rep
	}
	if desired.Type == dns.TypeA {
		desired.Values = dns.Cap(desired.Values, r.cfg.MaxIPs)
		if len(desired.Values) == 0 {
			log.Warn("feed returned no addresses, line skipped")
			rep.Status, rep.Reason = StatusSkipped, "no addresses"
			return rep
		}
	}
	if err := desired.Validate(); err != nil {
		log.WithError(err).Warn("invalid desired state, line skipped")
		rep.Status, rep.Reason, rep.Err = StatusSkipped, "invalid desired state", err
		return rep
	}
	rep.Desired = desired

	existing, err := provider.ListAll(ctx, r.client, zoneID, provider.Query{Name: r.cfg.Domain, Line: line.Code})
	if err != nil {
		log.WithError(err).Error("list record sets failed, line skipped")
		rep.Status, rep.Reason, rep.Err = StatusFailed, "list failed", err
		return rep
	}

	plan := rec.Plan(line, desired, existing)
	rep.Plan = plan
	if r.opt.DryRun {
		rep.Status = StatusPlanned
		PrintPlan(r.opt.Out, r.cfg.Domain, plan)
		return rep
	}
	if plan.Empty() {
		log.Infof("%d %s value(s) already in place", len(desired.Values), desired.Type)
		rep.Status = StatusUnchanged
		return rep
	}

	res := rec.Apply(ctx, plan)
	rep.Result = res
	if res.Failed > 0 || res.Skipped > 0 {
		rep.Status, rep.Err = StatusFailed, res.Err()
		return rep
	}
	rep.Status = StatusUpdated
	return rep
}

// desiredFor picks the source in order: fixed CNAME, per-line feed, shared
// feed (text list or JSON mapping by carrier key).
func (r *Runner) desiredFor(ctx context.Context, lc config.LineConfig) (dns.DesiredState, error) {
	ttl := r.cfg.TTL
	if lc.CNAME != "" {
		return dns.CNAMETarget(lc.CNAME, ttl), nil
	}
	if lc.FeedURL != "" {
		ips, issues, err := r.feeds.FetchList(ctx, lc.FeedURL)
		r.logIssues(lc, issues)
		if err != nil {
			return dns.DesiredState{}, err
		}
		return dns.ARecords(ips, ttl), nil
	}

	if err := r.loadShared(ctx); err != nil {
		return dns.DesiredState{}, err
	}
	if r.cfg.Feed.Format == config.FormatJSON {
		ips, ok := r.sharedMapping[lc.FeedKey]
		if !ok {
			return dns.DesiredState{}, fmt.Errorf("feed has no entry for key %q", lc.FeedKey)
		}
		return dns.ARecords(ips, ttl), nil
	}
	return dns.ARecords(r.sharedList, ttl), nil
}

func (r *Runner) resetShared() {
	r.sharedList, r.sharedMapping, r.sharedErr, r.sharedDone = nil, nil, nil, false
}

func (r *Runner) loadShared(ctx context.Context) error {
	if r.sharedDone {
		return r.sharedErr
	}
	r.sharedDone = true

	var issues []feed.Issue
	if r.cfg.Feed.Format == config.FormatJSON {
		r.sharedMapping, issues, r.sharedErr = r.feeds.FetchMapping(ctx, r.cfg.Feed.URL)
	} else {
		r.sharedList, issues, r.sharedErr = r.feeds.FetchList(ctx, r.cfg.Feed.URL)
	}
	for _, is := range issues {
		r.log.WithField("feed_line", is.Line).Warn(is.Message)
	}
	if r.sharedErr == nil {
		r.log.Infof("shared feed: %d address(es), %d issue(s)", r.sharedCount(), len(issues))
	}
	return r.sharedErr
}

func (r *Runner) sharedCount() int {
	if r.sharedMapping != nil {
		n := 0
		for _, v := range r.sharedMapping {
			n += len(v)
		}
		return n
	}
	return len(r.sharedList)
}

func (r *Runner) logIssues(lc config.LineConfig, issues []feed.Issue) {
	for _, is := range issues {
		r.log.WithFields(logrus.Fields{"line": lc.Name, "feed_line": is.Line}).Warn(is.Message)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
