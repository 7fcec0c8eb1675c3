// Package cli — test.go implements the "imageio-dev test" command.
//
// The test command runs the suite the way CI does: cached test results
// are cleared, children run rooted at the project root with a scratch
// sandbox and crash traces enabled, coverage is measured, and the chosen
// report is rendered afterwards. With --watch the command stays resident
// and reruns the suite whenever source files settle after a change.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/config"
	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
	"github.com/KatelynNguyen/imageio/internal/runner"
	"github.com/KatelynNguyen/imageio/internal/watch"
)

// testFlags holds the parsed command-line flags for the test command.
type testFlags struct {
	covReport string
	open      bool
	failfast  bool
	run       string
	watch     bool
}

// NewTestCommand creates the "test" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewTestCommand() *cobra.Command {
	flags := &testFlags{}

	cmd := &cobra.Command{
		Use:   "test [packages...]",
		Short: "Run the test suite with coverage",
		Long: `Run the test suite with coverage measurement.

The project root is located from the current directory, cached test
results are cleared so every run is fresh, and test children run rooted
at the project root with a scratch sandbox exported as IMAGEIO_TEST_DIR.
Package patterns default to the configured list (usually ./...).

Examples:
  imageio-dev test
  imageio-dev test --cov-report html --open
  imageio-dev test --failfast --run TestFormat ./internal/...
  imageio-dev test --watch`,

		// Positional arguments are optional package patterns that
		// override the configured list.
		Args: cobra.ArbitraryArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runTest(cmd.Context(), flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.covReport, "cov-report", "", "Coverage report format: term, html, or none")
	cmd.Flags().BoolVar(&flags.open, "open", false, "Open the HTML coverage report in a web browser")
	cmd.Flags().BoolVar(&flags.failfast, "failfast", false, "Stop on the first test failure")
	cmd.Flags().StringVar(&flags.run, "run", "", "Run only tests matching this regular expression")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Rerun the suite when source files change")

	return cmd
}

// runTest is the main logic function for the test command.
// It resolves the root, merges configuration with flags, and runs the
// suite once, or repeatedly in watch mode.
func runTest(ctx context.Context, flags *testFlags, packages []string) error {
	// Step 1: Resolve the project root and load its configuration.
	root, err := project.FindWorkingRoot()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to resolve the project root", err)
	}
	logger.Debug("resolved project root", zap.String("root", root))

	cfg, err := config.LoadFromRoot(root)
	if err != nil {
		return err
	}

	// Step 2: Merge configuration defaults with command-line flags.
	opts, err := suiteOptions(cfg, flags, packages)
	if err != nil {
		return err
	}

	// Step 3: Run, releasing the scratch sandbox when done. The sandbox
	// is acquired lazily by the runner on first use.
	defer releaseTestDir()
	r := runner.NewRunner(root, os.Stdout, logger)

	if flags.watch {
		return watchAndRun(ctx, r, root, cfg.Style.Exclude, opts)
	}

	code, err := r.RunSuite(ctx, opts)
	if err != nil {
		return err
	}
	if code != 0 {
		return model.NewCLIError(model.ExitTestsFailed,
			fmt.Sprintf("tests failed (go test exit code %d)", code))
	}
	return nil
}

// suiteOptions merges the project configuration with command-line flags.
// Flags win where both specify a value; positional package patterns win
// over configured ones.
func suiteOptions(cfg *config.Config, flags *testFlags, packages []string) (runner.SuiteOptions, error) {
	opts := runner.SuiteOptions{
		Packages:   cfg.Test.Packages,
		RunPattern: flags.run,
		FailFast:   flags.failfast,
		CoverMode:  cfg.Test.CoverMode,
		Timeout:    cfg.TimeoutDuration(),
		Report:     cfg.ReportFormat(),
		OpenReport: flags.open,
	}
	if len(packages) > 0 {
		opts.Packages = packages
	}

	if flags.covReport != "" {
		report, err := model.ParseReportFormat(flags.covReport)
		if err != nil {
			return runner.SuiteOptions{}, model.NewCLIError(model.ExitConfigError,
				fmt.Sprintf("invalid --cov-report %q: valid values are term, html, none", flags.covReport))
		}
		opts.Report = report
	}

	// Opening a report implies rendering one.
	if opts.OpenReport && opts.Report != model.ReportHTML {
		opts.Report = model.ReportHTML
	}

	return opts, nil
}

// watchAndRun runs the suite once, then reruns it whenever the watcher
// delivers a settled batch of source changes. Test failures do not end
// the loop; it ends when the context is canceled (Ctrl-C). Directories
// excluded from style checking are not watched either.
func watchAndRun(ctx context.Context, r *runner.Runner, root string, excludes []string, opts runner.SuiteOptions) error {
	w, err := watch.NewWatcher(root, logger)
	if err != nil {
		return err
	}
	w.AddExcludes(excludes)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	runOnce := func() {
		code, err := r.RunSuite(ctx, opts)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		case code != 0:
			fmt.Fprintf(os.Stderr, "Tests failed (go test exit code %d)\n", code)
		}
		fmt.Println("Watching for changes ...")
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return nil
		case files := <-w.Changes():
			for _, file := range files {
				if rel, err := filepath.Rel(root, file); err == nil {
					file = rel
				}
				fmt.Printf("Changed: %s\n", file)
			}
			runOnce()
		}
	}
}
