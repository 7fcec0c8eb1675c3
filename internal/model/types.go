// Package model defines the domain types for the imageio-dev CLI.
//
// All values in this package are transient: they describe one invocation of
// the tool (which entry point called the runner, which report format was
// requested, what the last test failure looked like). Nothing here touches
// the filesystem or spawns processes.
package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// EntryPoint declares how the single-file runner was reached. The runner
// only does work when the caller is the program entry point; when the
// calling code was merely imported (for example a test helper pulled in by
// another package's tests), the run request is a no-op.
//
// The caller states this explicitly. There is no reliable way to detect
// "was I run directly" from inside a library, so the decision belongs to
// the code that knows: the main function or the test harness.
type EntryPoint string

const (
	// EntryMain indicates the caller is the program entry point.
	// The runner proceeds with the full run.
	EntryMain EntryPoint = "main"

	// EntryImported indicates the calling code was imported by something
	// else. The runner returns immediately without side effects.
	EntryImported EntryPoint = "imported"
)

// String returns the string representation of EntryPoint.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (e EntryPoint) String() string {
	return string(e)
}

// IsValid checks whether the EntryPoint value is one of the
// predefined valid kinds.
func (e EntryPoint) IsValid() bool {
	switch e {
	case EntryMain, EntryImported:
		return true
	default:
		return false
	}
}

// ParseEntryPoint converts a string to an EntryPoint.
// Returns an error if the string does not match any valid kind.
func ParseEntryPoint(s string) (EntryPoint, error) {
	entry := EntryPoint(strings.ToLower(s))
	if !entry.IsValid() {
		return "", fmt.Errorf("invalid entry point %q (valid: main, imported)", s)
	}
	return entry, nil
}

// ReportFormat selects how coverage results are reported after a test run.
type ReportFormat string

const (
	// ReportTerm prints a per-function coverage summary to the terminal.
	// This is the default for suite runs.
	ReportTerm ReportFormat = "term"

	// ReportHTML renders an annotated-source HTML report into the project's
	// coverage directory. The single-file runner uses this format so the
	// report can be opened in a browser.
	ReportHTML ReportFormat = "html"

	// ReportNone skips coverage reporting entirely. The profile is still
	// collected so a report can be generated later by hand.
	ReportNone ReportFormat = "none"
)

// String returns the string representation of ReportFormat.
func (r ReportFormat) String() string {
	return string(r)
}

// IsValid checks whether the ReportFormat value is one of the
// predefined valid formats.
func (r ReportFormat) IsValid() bool {
	switch r {
	case ReportTerm, ReportHTML, ReportNone:
		return true
	default:
		return false
	}
}

// ParseReportFormat converts a string to a ReportFormat.
// Returns an error if the string does not match any valid format.
func ParseReportFormat(s string) (ReportFormat, error) {
	format := ReportFormat(strings.ToLower(s))
	if !format.IsValid() {
		return "", fmt.Errorf("invalid coverage report format %q (valid: term, html, none)", s)
	}
	return format, nil
}

// checkCodeRegex validates style diagnostic codes: an uppercase class
// prefix from the checker's fixed set followed by one or more digits.
// Examples: SA4006, ST1005, S1000, QF1001, U1000.
var checkCodeRegex = regexp.MustCompile(`^(S|SA|ST|QF|U)[0-9]+$`)

// ValidateCheckCode checks if the given token is a well-formed style
// diagnostic code. Directive parsing and config validation both use this
// to reject stray words in ignore lists before they reach the style tool.
func ValidateCheckCode(code string) error {
	if code == "" {
		return fmt.Errorf("diagnostic code must not be empty")
	}
	if !checkCodeRegex.MatchString(code) {
		return fmt.Errorf("invalid diagnostic code %q: must be a class prefix (S, SA, ST, QF, U) followed by digits", code)
	}
	return nil
}

// TestFailure records the most recent uncaught failure from a wrapped test
// invocation. It is stored in the runner's post-mortem slots and, best
// effort, persisted as JSON under the application data dir so the failure
// can be inspected after the process that produced it has exited.
type TestFailure struct {
	// Command is the full command line of the failed invocation.
	Command string `json:"command"`

	// Message is the failure's error text.
	Message string `json:"message"`

	// Output holds the tail of the invocation's combined output, when the
	// invocation captured any. May be empty.
	Output string `json:"output,omitempty"`

	// Stack is the formatted call stack at the point of capture, with the
	// capturing wrapper's own frame skipped.
	Stack string `json:"stack"`

	// Time is when the failure was recorded.
	Time time.Time `json:"time"`

	// Err is the original error value, available to in-process callers for
	// errors.Is/errors.As inspection. Not serialized; Message carries the
	// text across process boundaries.
	Err error `json:"-"`
}

// ExitCode defines the CLI exit codes. These codes allow scripts and CI
// systems to programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates a configuration or usage problem: a
	// malformed config file, a style run that matched zero files, or a
	// test file that declares no test functions.
	ExitConfigError ExitCode = 2

	// ExitTestsFailed indicates the test runner reported failing tests.
	ExitTestsFailed ExitCode = 3

	// ExitStyleFailed indicates one or more files failed the style check.
	ExitStyleFailed ExitCode = 4
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
