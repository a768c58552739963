/*
Copyright © 2025 3 Leaps <info@3leaps.net>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/otapublish/pkg/api"
	"github.com/fulmenhq/otapublish/pkg/buildinfo"
	"github.com/fulmenhq/otapublish/pkg/bundle"
	"github.com/fulmenhq/otapublish/pkg/exitcode"
	"github.com/fulmenhq/otapublish/pkg/logger"
	"github.com/fulmenhq/otapublish/pkg/publish"
	"github.com/spf13/cobra"
)

// newRootCommand creates a fresh root command instance.
// This factory pattern allows tests to create isolated command trees without shared state.
func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otapublish",
		Short: "Publish exported app bundles to a content-addressed asset store",
		Long: `otapublish uploads the launch bundles and assets of an exported app to an
asset store, skipping anything the store already holds.

Examples:
   otapublish inspect --input-dir dist                 # Hash and summarize an export offline
   otapublish publish --input-dir dist --project-id ID # Upload missing assets
   otapublish version                                  # Show version`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initializeLogger(cmd)
		},
	}

	cmd.PersistentFlags().String("log-level", "info", "Set log level (trace|debug|info|warn|error)")
	cmd.PersistentFlags().Bool("json", false, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	cmd.PersistentFlags().String("config", "", "Config file (default: otapublish.yaml in ., $HOME or the otapublish home)")

	cmd.Version = buildinfo.BinaryVersion
	cmd.SetVersionTemplate("otapublish {{.Version}}\n")

	return cmd
}

// registerSubcommands adds all subcommands to the root command.
// This is called from init() for production and can be called explicitly in tests.
func registerSubcommands(cmd *cobra.Command) {
	cmd.AddCommand(newPublishCommand())
	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newVersionCommand())
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = newRootCommand()

// Execute runs the root command and exits with a code derived from the error.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := exitCodeFor(err)
		fields := []logger.Field{logger.Err(err), logger.String("kind", exitcode.String(code))}
		var nf *bundle.NotFoundError
		if errors.As(err, &nf) && nf.Hint != "" {
			fields = append(fields, logger.String("hint", nf.Hint))
		}
		logger.Error("Command execution failed", fields...)
		stop()
		os.Exit(code)
	}
}

func init() {
	registerSubcommands(rootCmd)
}

// configError marks failures to load or apply configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// exitCodeFor maps pipeline errors onto process exit codes
func exitCodeFor(err error) int {
	var cfgErr *configError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, context.Canceled):
		return exitcode.Interrupted
	case errors.As(err, &cfgErr):
		return exitcode.ConfigError
	case bundle.IsValidationError(err):
		return exitcode.ValidationError
	case bundle.IsNotFoundError(err):
		return exitcode.NotFoundError
	case publish.IsProtocolError(err):
		return exitcode.ProtocolError
	case publish.IsConfirmationTimeout(err):
		return exitcode.ConfirmationTimeout
	case publish.IsTransferError(err):
		return exitcode.TransferError
	case api.IsNetworkError(err):
		return exitcode.NetworkError
	default:
		return exitcode.GeneralError
	}
}

// initializeLogger sets up the logger based on command flags
func initializeLogger(cmd *cobra.Command) {
	logLevelStr, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("json")
	noColor, _ := cmd.Flags().GetBool("no-color")

	config := logger.Config{
		Level:     logger.ParseLevel(logLevelStr),
		UseColor:  !noColor,
		JSON:      jsonLogs,
		Component: "otapublish",
	}

	if err := logger.InitializeWithWriter(config, cmd.ErrOrStderr()); err != nil {
		_, _ = os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(exitcode.ConfigError)
	}
}
