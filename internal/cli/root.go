// Package cli implements the cobra-based CLI commands for imageio-dev.
//
// Each subcommand (test, file, style, root, scratch, postmortem, version)
// is defined in its own file within this package. This file defines the
// root command that serves as the parent for all subcommands and handles
// global flags, logging setup, and exit-code mapping.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, result output uses structured JSON for machine
	// consumption. Child test output always streams as-is.
	jsonOutput bool

	// verbose enables debug-level logging to stderr.
	verbose bool
)

// logger is the process logger, rebuilt by the root command's
// PersistentPreRunE once flags are parsed. It starts as a no-op so
// command functions are safe to call directly in tests.
var logger = zap.NewNop()

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. It provides help
// text, global flags, and logging setup; functionality lives in the
// subcommands.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imageio-dev",
		Short: "Developer tooling for the imageio library",
		Long: `imageio-dev runs the imageio test suite and style checks the way CI does,
from any directory inside the checkout.

It locates the project root, keeps test runs fresh, sandboxes test file
fixtures in a scratch directory, measures coverage, and records a
post-mortem snapshot of the most recent test failure.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: versionString(),

		PersistentPreRunE: setupLogging,
		PersistentPostRun: func(*cobra.Command, []string) { syncLogger() },
	}

	// PersistentFlags are inherited by all subcommands.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// Register subcommands. Each subcommand is defined in its own file
	// (test.go, file.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewTestCommand())
	rootCmd.AddCommand(NewFileCommand())
	rootCmd.AddCommand(NewStyleCommand())
	rootCmd.AddCommand(NewRootDirCommand())
	rootCmd.AddCommand(NewScratchCommand())
	rootCmd.AddCommand(NewPostMortemCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// setupLogging builds the process logger once flags are parsed: quiet by
// default, debug level with --verbose.
func setupLogging(*cobra.Command, []string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	built, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger = built
	return nil
}

// syncLogger flushes buffered log output. Sync errors on closed standard
// streams are expected at process teardown and ignored.
func syncLogger() {
	_ = logger.Sync()
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It installs an interrupt context so child processes and the watch loop
// shut down on Ctrl-C, then inspects errors returned by cobra commands
// and translates them into OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err == nil {
		return
	}
	syncLogger()

	// Check if the error is a CLIError with a specific exit code.
	if cliErr, ok := err.(*model.CLIError); ok {
		printError(cliErr.Message, cliErr.Err)
		os.Exit(int(cliErr.Code))
	}

	// Generic error, exit with code 1.
	printError(err.Error(), nil)
	os.Exit(int(model.ExitGeneralError))
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode, because stdout is
		// reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// versionString renders the build metadata line shown by --version and
// the version subcommand.
func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}

// releaseTestDir releases the shared scratch sandbox if this process
// acquired it. Commands that run tests defer this so the sandbox never
// outlives the run.
func releaseTestDir() {
	if err := project.ReleaseTestDir(); err != nil {
		logger.Warn("failed to release the test dir", zap.Error(err))
	}
}
