package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ispdns/internal/resolvecheck"
)

func newCmdResolve(opts *rootOptions) *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "resolve [name]",
		Short: "Look the managed name up through a resolver",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			} else {
				cfg, err := opts.loadConfig("")
				if err != nil {
					return err
				}
				name = cfg.Domain
			}
			if name == "" {
				return fmt.Errorf("no name given and DOMAIN_NAME is not set")
			}

			r := resolvecheck.New(server, timeout)
			ans, err := r.Lookup(cmd.Context(), name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "server: %s\n", ans.Server)
			if ans.CNAME != "" {
				fmt.Fprintf(out, "cname:  %s\n", ans.CNAME)
			}
			fmt.Fprintf(out, "a:      %s\n", strings.Join(ans.A, " "))
			fmt.Fprintf(out, "ttl:    %d\n", ans.TTL)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "resolver address (default: first nameserver in /etc/resolv.conf)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "query timeout")
	return cmd
}
