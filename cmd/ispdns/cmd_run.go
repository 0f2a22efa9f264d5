package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"ispdns/internal/app"
	"ispdns/internal/config"
	"ispdns/internal/feed"
	"ispdns/internal/provider"
	"ispdns/internal/reconcile"
	"ispdns/internal/resolvecheck"
)

// runFlags are the overrides shared by run and plan. Unset flags leave the
// loaded configuration alone.
type runFlags struct {
	provider    string
	mode        string
	maxIPs      int
	ttl         int
	dryRun      bool
	failOnError bool
	check       bool
	resolver    string
}

func (f *runFlags) register(cmd *cobra.Command, withApply bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.provider, "provider", "", "dns provider (huawei|dnspod) (env DNS_PROVIDER)")
	fl.StringVar(&f.mode, "mode", "", "update mode (replace|update) (env UPDATE_MODE)")
	fl.IntVar(&f.maxIPs, "max-ips", 0, "keep at most this many addresses per line, 0 for all (env MAX_IPS)")
	fl.IntVar(&f.ttl, "ttl", 0, "record TTL in seconds (env TTL)")
	if withApply {
		fl.BoolVar(&f.dryRun, "dry-run", false, "print planned operations without changing records")
		fl.BoolVar(&f.failOnError, "fail-on-error", false, "exit with status 2 when any line failed")
		fl.BoolVar(&f.check, "check", false, "query a resolver for the name after the run")
		fl.StringVar(&f.resolver, "resolver", "", "resolver for --check (default: first nameserver in /etc/resolv.conf)")
	}
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("mode") {
		m, err := reconcile.ParseMode(f.mode)
		if err != nil {
			return &config.Error{Key: "--mode", Reason: err.Error()}
		}
		cfg.Mode = m
	}
	if fl.Changed("max-ips") {
		cfg.MaxIPs = max(f.maxIPs, 0)
	}
	if fl.Changed("ttl") {
		cfg.TTL = config.ClampTTL(int64(f.ttl))
	}
	return cfg.Validate()
}

func newCmdRun(opts *rootOptions) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile every configured line once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, &f)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newCmdPlan(opts *rootOptions) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the operations a run would perform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.dryRun = true
			return execute(cmd, opts, &f)
		},
	}
	f.register(cmd, false)
	return cmd
}

func execute(cmd *cobra.Command, opts *rootOptions, f *runFlags) error {
	ctx := cmd.Context()
	cfg, err := opts.loadConfig(f.provider)
	if err != nil {
		return err
	}
	if err := f.apply(cmd, cfg); err != nil {
		return err
	}

	log := opts.log.WithField("name", cfg.Domain)
	client, err := provider.New(cfg.Provider, log, cfg.ProviderOptions())
	if err != nil {
		return err
	}
	fetcher := feed.NewFetcher(log, cfg.FeedOptions())
	runner := app.NewRunner(cfg, client, fetcher, log, app.RunnerOptions{
		DryRun: f.dryRun,
		Out:    cmd.OutOrStdout(),
	})

	sum, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("interrupted")
		}
		return err
	}
	app.PrintSummary(cmd.OutOrStdout(), sum)

	if f.check && !f.dryRun {
		checkResolution(ctx, opts, f.resolver, sum)
	}
	if f.failOnError && sum.HasFailures() {
		return &exitError{code: 2, err: errors.New("one or more lines failed")}
	}
	return nil
}

// checkResolution logs what a resolver currently returns for the default
// line. It never fails the run.
func checkResolution(ctx context.Context, opts *rootOptions, server string, sum app.Summary) {
	r := resolvecheck.New(server, 3*time.Second)
	log := opts.log.WithField("component", "resolvecheck").WithField("server", r.Server())
	for _, l := range sum.Lines {
		if !l.Line.Default || l.Desired.Type == "" {
			continue
		}
		ans, err := r.Lookup(ctx, sum.Name)
		if err != nil {
			log.WithError(err).Warn("lookup failed")
			return
		}
		if ans.Covers(l.Desired) {
			log.Infof("%s resolves to the desired %s values", sum.Name, l.Desired.Type)
			return
		}
		log.Warnf("%s still resolves to a=%v cname=%q (ttl %ds); resolvers may be caching", sum.Name, ans.A, ans.CNAME, ans.TTL)
	}
}
