package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ispdns/internal/config"
	"ispdns/internal/logging"
	_ "ispdns/internal/provider/all"
)

type rootOptions struct {
	configPath string
	envFile    string
	logFormat  string
	logLevel   string

	log *logrus.Logger
}

// loadConfig resolves configuration from the env file, the optional YAML
// file and the environment. providerName, when set, wins over all of them.
func (o *rootOptions) loadConfig(providerName string) (*config.Config, error) {
	return config.Load(config.LoadOptions{EnvFile: o.envFile, File: o.configPath, Provider: providerName})
}

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "ispdns",
		Short: "Keep per-carrier DNS lines pointed at the best addresses",
		Long: "ispdns fetches a list of preferred addresses and reconciles the A or CNAME record sets\n" +
			"of one name on every carrier line of a Huawei Cloud DNS or DNSPod zone.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "optional YAML config file")
	pf.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing is fine)")
	pf.StringVar(&opts.logFormat, "log-format", "text", "log format (text|json) (env LOG_FORMAT)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error) (env LOG_LEVEL)")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format, level := opts.logFormat, opts.logLevel
		if env := os.Getenv("LOG_FORMAT"); env != "" && !c.Flags().Changed("log-format") {
			format = env
		}
		if env := os.Getenv("LOG_LEVEL"); env != "" && !c.Flags().Changed("log-level") {
			level = env
		}
		l, err := logging.New(format, level)
		if err != nil {
			return err
		}
		opts.log = l
		return nil
	}

	cmd.AddCommand(newCmdRun(opts))
	cmd.AddCommand(newCmdPlan(opts))
	cmd.AddCommand(newCmdLines(opts))
	cmd.AddCommand(newCmdResolve(opts))
	cmd.AddCommand(newCmdVersion())
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	root.SetContext(ctx)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ispdns: %s\n", err)
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		stop()
		os.Exit(code)
	}
}
