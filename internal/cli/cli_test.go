// Package cli — cli_test.go contains unit tests for the pure option
// merging, path resolution and formatting functions used by the CLI
// commands.
//
// These tests verify flag/config merge logic and output rendering without
// spawning child processes or requiring a real checkout.
package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KatelynNguyen/imageio/internal/config"
	"github.com/KatelynNguyen/imageio/internal/model"
)

// TestSuiteOptions_Defaults verifies that a default configuration with no
// flags produces the standard suite options.
func TestSuiteOptions_Defaults(t *testing.T) {
	opts, err := suiteOptions(config.Default(), &testFlags{}, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"./..."}, opts.Packages)
	assert.Empty(t, opts.RunPattern)
	assert.False(t, opts.FailFast)
	assert.Equal(t, "atomic", opts.CoverMode)
	assert.Equal(t, 10*time.Minute, opts.Timeout)
	assert.Equal(t, model.ReportTerm, opts.Report)
	assert.False(t, opts.OpenReport)
}

// TestSuiteOptions_Precedence verifies that command-line flags and
// positional package patterns win over configured values.
func TestSuiteOptions_Precedence(t *testing.T) {
	cfg := config.Default()
	cfg.Test.Packages = []string{"./internal/format"}
	cfg.Test.Report = "html"

	t.Run("positional packages override config", func(t *testing.T) {
		opts, err := suiteOptions(cfg, &testFlags{}, []string{"./cmd/...", "./internal/..."})
		require.NoError(t, err)
		assert.Equal(t, []string{"./cmd/...", "./internal/..."}, opts.Packages)
	})

	t.Run("config packages used when no positionals", func(t *testing.T) {
		opts, err := suiteOptions(cfg, &testFlags{}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"./internal/format"}, opts.Packages)
	})

	t.Run("cov-report flag overrides config report", func(t *testing.T) {
		opts, err := suiteOptions(cfg, &testFlags{covReport: "none"}, nil)
		require.NoError(t, err)
		assert.Equal(t, model.ReportNone, opts.Report)
	})

	t.Run("run and failfast pass through", func(t *testing.T) {
		opts, err := suiteOptions(cfg, &testFlags{run: "TestFormat", failfast: true}, nil)
		require.NoError(t, err)
		assert.Equal(t, "TestFormat", opts.RunPattern)
		assert.True(t, opts.FailFast)
	})
}

// TestSuiteOptions_OpenImpliesHTML verifies that --open upgrades the
// report format to HTML, since there is nothing to open otherwise.
func TestSuiteOptions_OpenImpliesHTML(t *testing.T) {
	opts, err := suiteOptions(config.Default(), &testFlags{open: true}, nil)

	require.NoError(t, err)
	assert.Equal(t, model.ReportHTML, opts.Report)
	assert.True(t, opts.OpenReport)
}

// TestSuiteOptions_InvalidCovReport verifies that an unknown report format
// is a configuration error naming the valid values.
func TestSuiteOptions_InvalidCovReport(t *testing.T) {
	_, err := suiteOptions(config.Default(), &testFlags{covReport: "pdf"}, nil)

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitConfigError, cliErr.Code)
	assert.Contains(t, cliErr.Message, `invalid --cov-report "pdf"`)
	assert.Contains(t, cliErr.Message, "term, html, none")
}

// TestStyleRoots_ExplicitDirectory verifies that an explicit path argument
// anchors both the checked tree and the project root resolution.
func TestStyleRoots_ExplicitDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("coverage/\n"), 0o644))
	sub := filepath.Join(root, "internal", "format")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	checkRoot, configRoot, err := styleRoots(sub)

	require.NoError(t, err)
	assert.Equal(t, sub, checkRoot)
	assert.Equal(t, root, configRoot)
}

// TestStyleRoots_RejectsNonDirectories verifies that files and missing
// paths are configuration errors.
func TestStyleRoots_RejectsNonDirectories(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "main.go")
	require.NoError(t, os.WriteFile(file, []byte("package main\n"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{name: "regular file", path: file},
		{name: "missing path", path: filepath.Join(dir, "nope")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := styleRoots(tt.path)

			var cliErr *model.CLIError
			require.ErrorAs(t, err, &cliErr)
			assert.Equal(t, model.ExitConfigError, cliErr.Code)
			assert.Contains(t, cliErr.Message, "not a directory")
		})
	}
}

// TestFormatFailure verifies the human-readable failure rendering,
// including that empty output and stack sections are omitted.
func TestFormatFailure(t *testing.T) {
	recorded := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)

	full := &model.TestFailure{
		Command: "go test ./...",
		Message: "exit status 1",
		Output:  "--- FAIL: TestAlpha\n",
		Stack:   "runner.runTests\n\trunner.go:120\n",
		Time:    recorded,
	}

	text := formatFailure(full)
	assert.Contains(t, text, "Command: go test ./...\n")
	assert.Contains(t, text, "Time:    2026-08-21T09:30:00Z\n")
	assert.Contains(t, text, "Error:   exit status 1\n")
	assert.Contains(t, text, "Output tail:\n--- FAIL: TestAlpha\n")
	assert.Contains(t, text, "Stack:\nrunner.runTests\n")

	bare := formatFailure(&model.TestFailure{
		Command: "go test ./pkg",
		Message: "exit status 2",
		Time:    recorded,
	})
	assert.NotContains(t, bare, "Output tail:")
	assert.NotContains(t, bare, "Stack:")
}

// TestVersionString verifies the build metadata line rendered by the
// version command and the --version flag.
func TestVersionString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	t.Cleanup(func() { Version, Commit, Date = origVersion, origCommit, origDate })

	Version, Commit, Date = "1.2.3", "abc1234", "2026-08-21"

	assert.Equal(t, "1.2.3 (commit: abc1234, built: 2026-08-21)", versionString())
}
