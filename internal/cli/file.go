// Package cli — file.go implements the "imageio-dev file" command.
//
// The file command runs exactly the test functions declared in one test
// file, verbose and failing fast, with coverage measured and an HTML
// report rendered. It is the command behind editor "run this file"
// bindings: the project root is resolved from the file's own directory,
// so it works no matter where the process was started.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
	"github.com/KatelynNguyen/imageio/internal/runner"
)

// NewFileCommand creates the "file" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewFileCommand() *cobra.Command {
	var open bool

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Run one test file's tests with coverage",
		Long: `Run the test functions declared in a single test file.

The file is parsed to enumerate its top-level Test functions, and only
those are run, verbose and failing fast. Coverage is always measured and
rendered as an HTML report; --open additionally opens the report in a
web browser.

Examples:
  imageio-dev file internal/format/png_test.go
  imageio-dev file --open internal/format/png_test.go`,

		// Exactly one positional argument (the test file path) is required.
		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(cmd.Context(), args[0], open)
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "Open the HTML coverage report in a web browser")

	return cmd
}

// runFile is the main logic function for the file command.
// The root is anchored at the file's directory rather than the working
// directory, so invocations from editors and scripts behave the same.
func runFile(ctx context.Context, path string, open bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to resolve %s", path), err)
	}

	root := project.FindRoot(filepath.Dir(abs))
	logger.Debug("resolved project root", zap.String("root", root))

	defer releaseTestDir()
	r := runner.NewRunner(root, os.Stdout, logger)

	code, err := r.RunFile(ctx, abs, model.EntryMain, runner.FileOptions{OpenReport: open})
	if err != nil {
		return err
	}
	if code != 0 {
		return model.NewCLIError(model.ExitTestsFailed,
			fmt.Sprintf("tests failed (go test exit code %d)", code))
	}
	return nil
}
