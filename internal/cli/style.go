// Package cli — style.go implements the "imageio-dev style" command.
//
// The style command walks the source tree and runs the style tool on
// every eligible file, honoring per-file directives. By default it checks
// the whole project from the detected root; an optional path argument
// restricts the check to that subtree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/config"
	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
	"github.com/KatelynNguyen/imageio/internal/style"
)

// NewStyleCommand creates the "style" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStyleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "style [path]",
		Short: "Style-check the source tree",
		Long: `Run the style tool over every Go file in the tree.

Files can opt out with a "// styletest: skip" directive or suppress
specific diagnostics with "// styletest: ignore CODES" in their first
20 lines. Directories like .git, docs, build, dist and vendor are
always skipped; the project configuration can add more.

Without an argument the whole project is checked from the detected
root. With a directory argument only that subtree is checked.

Examples:
  imageio-dev style
  imageio-dev style internal/format
  imageio-dev style --json`,

		// The optional positional argument restricts the checked tree.
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			return runStyle(cmd.Context(), path)
		},
	}

	return cmd
}

// runStyle is the main logic function for the style command.
// Configuration always comes from the project root, even when a subtree
// argument narrows the checked tree.
func runStyle(ctx context.Context, path string) error {
	// Step 1: Resolve the checked tree and the project root.
	checkRoot, configRoot, err := styleRoots(path)
	if err != nil {
		return err
	}
	logger.Debug("resolved project root",
		zap.String("root", configRoot),
		zap.String("checking", checkRoot))

	cfg, err := config.LoadFromRoot(configRoot)
	if err != nil {
		return err
	}

	// Step 2: Run the checker. Diagnostics stream to stdout as files are
	// checked; the returned error carries the aggregate outcome.
	checker := style.NewChecker(checkRoot, os.Stdout, logger)
	checker.AddIgnores(cfg.Style.Ignore)
	checker.AddExcludes(cfg.Style.Exclude)

	result, checkErr := checker.Check(ctx)

	// Step 3: In JSON mode, print the summary even when the check failed
	// so machine consumers get the counts; the error itself still goes to
	// stderr with the style exit code.
	if IsJSONOutput() && result != nil {
		if err := printStyleResultJSON(result); err != nil {
			return err
		}
	}

	return checkErr
}

// styleRoots resolves the tree to check and the project root to load
// configuration from. An explicit path must be an existing directory and
// anchors both; otherwise the working directory does.
func styleRoots(path string) (checkRoot, configRoot string, err error) {
	if path == "" {
		root, err := project.FindWorkingRoot()
		if err != nil {
			return "", "", model.WrapCLIError(model.ExitGeneralError, "failed to resolve the project root", err)
		}
		return root, root, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to resolve %s", path), err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", "", model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("not a directory: %s", path))
	}

	return abs, project.FindRoot(abs), nil
}

// printStyleResultJSON outputs the check summary in JSON format.
func printStyleResultJSON(result *style.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
