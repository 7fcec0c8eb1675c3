// Package runner executes Go test child processes for the imageio
// development tool.
//
// This package handles:
//   - Single-file runs: RunFile enumerates the Test functions a _test.go
//     file declares and runs exactly those, verbose and fail-fast
//   - Suite runs: RunSuite runs the configured package patterns with
//     coverage measurement and a selectable report format
//   - Post-mortem capture: WrapPostMortem wraps the test-invocation hook
//     so a failing run records the command, an output tail, the call
//     stack, and the time, readable via LastFailure and persisted to the
//     application directory for cross-process inspection
//
// Children run rooted at the project root with a scratch sandbox exported
// in IMAGEIO_TEST_DIR and crash traces enabled. The parent process is
// never mutated: working directory, environment, and output are scoped to
// the child's command object.
package runner
