package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ispdns/internal/config"
)

func newCmdLines(opts *rootOptions) *cobra.Command {
	var providerName string
	cmd := &cobra.Command{
		Use:   "lines",
		Short: "List the carrier lines a run would reconcile, in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(providerName)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCODE\tDEFAULT\tSOURCE")
			for _, l := range cfg.OrderedLines() {
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", l.Name, l.Code, l.Default, lineSource(cfg, l))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&providerName, "provider", "", "dns provider (huawei|dnspod) (env DNS_PROVIDER)")
	return cmd
}

func lineSource(cfg *config.Config, l config.LineConfig) string {
	switch {
	case l.CNAME != "":
		return "cname " + l.CNAME
	case l.FeedURL != "":
		return "feed " + l.FeedURL
	case cfg.Feed.Format == config.FormatJSON:
		return fmt.Sprintf("shared json %s [%s]", cfg.Feed.URL, l.FeedKey)
	default:
		return "shared " + cfg.Feed.URL
	}
}
