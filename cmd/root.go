// Package cmd implements the linkcheck command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/linkcheck/internal/app"
	"github.com/JakeFAU/linkcheck/internal/config"
	"github.com/JakeFAU/linkcheck/internal/crawler"
	"github.com/JakeFAU/linkcheck/internal/id/uuid"
)

// Runner is the part of *app.App the command uses.
type Runner interface {
	Run(ctx context.Context, inputPath, outputPath string) (crawler.Report, error)
	Close()
}

// newApp is the application factory. Tests replace it.
var newApp = func(ctx context.Context, cfg config.Config, opts ...app.Option) (Runner, error) {
	return app.NewApp(ctx, cfg, opts...)
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exactArgs(n int) cobra.PositionalArgs {
	check := cobra.ExactArgs(n)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile     string
		concurrency int
		runID       string
	)
	cmd := &cobra.Command{
		Use:   "linkcheck [flags] <input> <output>",
		Short: "Fetch every URL in a text file and report its page title",
		Long: `linkcheck extracts http(s) URLs from the input file, fetches them
concurrently and writes one "[<title or status>] (<url>)" line per URL to
the output file. URLs that cannot be fetched are listed on stderr.`,
		Args:          exactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := map[string]any{}
			if cmd.Flags().Changed("concurrency") {
				overrides["crawler.concurrency"] = concurrency
			}
			cfg, err := config.Load(cfgFile, overrides)
			if err != nil {
				return err
			}

			opts := []app.Option{app.WithDiagnostics(cmd.ErrOrStderr())}
			if runID != "" {
				if err := uuid.Validate(runID); err != nil {
					return err
				}
				opts = append(opts, app.WithIDGenerator(uuid.Static(runID)))
			}

			a, err := newApp(cmd.Context(), cfg, opts...)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			defer a.Close()

			_, err = a.Run(cmd.Context(), args[0], args[1])
			return err
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.Flags().IntVar(&concurrency, "concurrency", config.DefaultConcurrency, "maximum simultaneous fetches")
	cmd.Flags().StringVar(&runID, "run-id", "", "pin the run ID (canonical UUID); generated when empty")
	return cmd
}

// run executes the command with args and reports failures on stderr. Usage
// errors also print the usage text.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	var uerr usageError
	if errors.As(err, &uerr) {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return err
}

// Execute runs the root command and exits with status 1 on any failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
