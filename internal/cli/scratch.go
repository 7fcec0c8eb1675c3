// Package cli — scratch.go implements the "imageio-dev scratch" command.
//
// The scratch command hands out the shared test sandbox directory. The
// first acquisition in a process wipes the directory, so printing the
// path also guarantees it is empty and usable. Unlike the test commands,
// this command does not release the directory on exit: the caller asked
// for a directory to use. --release removes it instead.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
)

// NewScratchCommand creates the "scratch" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewScratchCommand() *cobra.Command {
	var release bool

	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "Print the scratch test directory",
		Long: `Print the path of the shared scratch directory for test files.

The directory lives under the per-user application data dir and is
wiped on first acquisition, so the printed path is always empty and
ready for fixtures. Test runs export the same path to children as
IMAGEIO_TEST_DIR.

Examples:
  imageio-dev scratch
  imageio-dev scratch --release`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runScratch(release)
		},
	}

	cmd.Flags().BoolVar(&release, "release", false, "Remove the scratch directory instead of printing it")

	return cmd
}

// runScratch is the main logic function for the scratch command.
func runScratch(release bool) error {
	dir, err := project.TestDir()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to prepare the test dir", err)
	}

	if release {
		if err := project.ReleaseTestDir(); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to remove the test dir", err)
		}
		if IsJSONOutput() {
			return printScratchJSON(map[string]interface{}{"path": dir, "removed": true})
		}
		fmt.Printf("Removed test dir %s\n", dir)
		return nil
	}

	if IsJSONOutput() {
		return printScratchJSON(map[string]interface{}{"path": dir})
	}
	fmt.Println(dir)
	return nil
}

// printScratchJSON outputs the scratch result in JSON format.
func printScratchJSON(result map[string]interface{}) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
