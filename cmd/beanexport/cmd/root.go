// Package cmd provides the beanexport CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"beanexport/internal/config"
	"beanexport/internal/engine"
	"beanexport/internal/logging"
)

// Exit codes of the export command.
const (
	exitOK            = 0
	exitFailure       = 1
	exitInvalidConfig = 2
)

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type rootOptions struct {
	output  string
	envFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "beanexport [-o OUTPUT] CONFIG LEDGER",
		Short: "Apply an export definition to a ledger directive stream",
		Long: `beanexport rewrites a ledger directive stream according to an export
definition: an ordered list of plugins (keep_only_transactions,
rename_account, rename_commodity or a delegated module_name).

The ledger is a YAML stream document. The result is written to OUTPUT
(stdout when "-" or unset) unless settings.sink selects another sink.

Example:
  beanexport export.yml ledger.yml -o exported.yml
  beanexport serve --listen :50051`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("env file %s: %w", opts.envFile, err)
			}
			if opts.debug {
				_ = os.Setenv("BEANEXPORT_LOG_LEVEL", "debug")
				_ = os.Setenv(config.EnvPrefix+"LOG__LEVEL", "debug")
			}
			logging.InitFromEnv()
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.ErrOrStderr(), args[0], args[1], opts.output)
		},
	}

	root.Flags().StringVarP(&opts.output, "output", "o", "", `exported stream document ("-" for stdout)`)
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd())
	return root
}

func runExport(ctx context.Context, stderr io.Writer, exportPath, ledgerPath, output string) error {
	if info, err := os.Stat(exportPath); err != nil || info.IsDir() {
		fmt.Fprintln(stderr, "no such config file")
		return &exitError{code: exitFailure, err: fmt.Errorf("config %s: not found", exportPath)}
	}

	e, err := engine.Bootstrap(ctx, engine.Config{ExportPath: exportPath, LedgerPath: ledgerPath, Output: output})
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			fmt.Fprintln(stderr, "config file is invalid")
			printErrors(stderr, err)
			return &exitError{code: exitInvalidConfig, err: err}
		}
		printErrors(stderr, err)
		return &exitError{code: exitFailure, err: err}
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logging.L().Warn("beanexport: close", zap.Error(cerr))
		}
	}()

	if _, err := e.Run(ctx); err != nil {
		printErrors(stderr, err)
		return &exitError{code: exitFailure, err: err}
	}
	return nil
}

func printErrors(w io.Writer, err error) {
	for _, e := range multierr.Errors(err) {
		fmt.Fprintln(w, e)
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCmd(), os.Args[1:])
}

func execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	_ = logging.L().Sync()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
	return exitFailure
}
