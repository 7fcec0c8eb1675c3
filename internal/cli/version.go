// Package cli — version.go implements the "imageio-dev version" command.
//
// The version command prints the build metadata injected at link time:
// semantic version, Git commit and build date. The same line is available
// through the root command's --version flag.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the "version" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit hash and build date of this binary.

Examples:
  imageio-dev version
  imageio-dev version --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	}

	return cmd
}

// runVersion is the main logic function for the version command.
func runVersion() error {
	if IsJSONOutput() {
		data, err := json.MarshalIndent(map[string]string{
			"version": Version,
			"commit":  Commit,
			"date":    Date,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("imageio-dev %s\n", versionString())
	return nil
}
