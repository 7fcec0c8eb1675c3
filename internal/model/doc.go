// Package model defines the domain types and value objects for the
// imageio-dev CLI.
//
// This package contains pure data structures with no external dependencies:
// the entry-point kind used by the single-file runner, the coverage report
// format selector, diagnostic-code validation for style directives, and the
// post-mortem failure record.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
