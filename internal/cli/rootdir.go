// Package cli — rootdir.go implements the "imageio-dev root" command.
//
// The root command prints the detected project root, which other tools
// and shell scripts can capture (for example `cd "$(imageio-dev root)"`).
// Detection walks upward from the working directory looking for the
// root marker file.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
)

// NewRootDirCommand creates the "root" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRootDirCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "root",
		Short: "Print the detected project root",
		Long: `Print the absolute path of the project root.

The root is the nearest directory at or above the current one that
contains a .gitignore file, checking at most nine parent levels.

Examples:
  imageio-dev root
  cd "$(imageio-dev root)"`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runRootDir()
		},
	}

	return cmd
}

// runRootDir is the main logic function for the root command.
func runRootDir() error {
	root, err := project.FindWorkingRoot()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to resolve the project root", err)
	}

	if IsJSONOutput() {
		data, err := json.MarshalIndent(map[string]string{"root": root}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(root)
	return nil
}
