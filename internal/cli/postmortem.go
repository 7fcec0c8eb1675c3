// Package cli — postmortem.go implements the "imageio-dev postmortem" command.
//
// The postmortem command displays the most recent recorded test failure:
// the failed command, when it failed, the tail of its output and the
// call stack at the point of capture. Failure records are written by the
// test commands and persist across processes, so the command works in a
// fresh shell after a run went wrong.
package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/runner"
)

// NewPostMortemCommand creates the "postmortem" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewPostMortemCommand() *cobra.Command {
	var clear bool

	cmd := &cobra.Command{
		Use:   "postmortem",
		Short: "Show the most recent recorded test failure",
		Long: `Show the most recent test failure recorded by a test run.

Failed test invocations are captured with their command line, output
tail, call stack and time. The record persists across processes, so a
failure from an earlier run is still available here.

Examples:
  imageio-dev postmortem
  imageio-dev postmortem --json
  imageio-dev postmortem --clear`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPostMortem(clear)
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Discard the recorded test failure")

	return cmd
}

// runPostMortem is the main logic function for the postmortem command.
// The in-process slot wins when set; otherwise the persisted record from
// an earlier process is read.
func runPostMortem(clear bool) error {
	if clear {
		runner.ClearLastFailure()
		if IsJSONOutput() {
			return printPostMortemJSON(map[string]interface{}{"cleared": true})
		}
		fmt.Println("Cleared the recorded test failure")
		return nil
	}

	failure := runner.LastFailure()
	if failure == nil {
		persisted, err := runner.ReadPersistedFailure()
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read the recorded test failure", err)
		}
		failure = persisted
	}

	if IsJSONOutput() {
		return printPostMortemJSON(failure)
	}

	if failure == nil {
		fmt.Println("No test failure recorded")
		return nil
	}
	fmt.Print(formatFailure(failure))
	return nil
}

// formatFailure renders a failure record as human-readable text.
func formatFailure(failure *model.TestFailure) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Command: %s\n", failure.Command)
	fmt.Fprintf(&b, "Time:    %s\n", failure.Time.Format(time.RFC3339))
	fmt.Fprintf(&b, "Error:   %s\n", failure.Message)

	if failure.Output != "" {
		fmt.Fprintf(&b, "\nOutput tail:\n%s", failure.Output)
		if !strings.HasSuffix(failure.Output, "\n") {
			b.WriteString("\n")
		}
	}

	if failure.Stack != "" {
		fmt.Fprintf(&b, "\nStack:\n%s", failure.Stack)
		if !strings.HasSuffix(failure.Stack, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// printPostMortemJSON outputs a postmortem result in JSON format.
// A nil failure marshals as null, which keeps "no record" distinguishable
// from an empty record.
func printPostMortemJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
