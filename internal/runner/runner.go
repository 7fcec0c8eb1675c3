package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
)

const (
	// goTool is the Go toolchain binary, resolved from PATH.
	goTool = "go"

	// testDirEnvVar carries the scratch sandbox path to test children.
	testDirEnvVar = "IMAGEIO_TEST_DIR"

	// tracebackEnvVar is the runtime traceback level. Children get "crash"
	// so a hung or crashing test dumps all goroutine stacks, unless the
	// user already chose a level.
	tracebackEnvVar = "GOTRACEBACK"
)

// FreshFunc resets whatever caching would let the toolchain reuse a
// previous run's results, so every invocation exercises the code as it is
// on disk now. The default runs `go clean -testcache` scoped to the
// module; callers can inject a different strategy.
type FreshFunc func(ctx context.Context, root string) error

// FileOptions configures a single-file run.
type FileOptions struct {
	// OpenReport opens the rendered HTML coverage report in a web browser
	// after the run.
	OpenReport bool
}

// SuiteOptions configures a suite run.
type SuiteOptions struct {
	// Packages are the package patterns handed to `go test`.
	// Empty means all packages under the root ("./...").
	Packages []string

	// RunPattern restricts the run to tests matching the regular
	// expression, as `go test -run` interprets it. Empty runs everything.
	RunPattern string

	// FailFast stops the run on the first test failure.
	FailFast bool

	// CoverMode is the coverage instrumentation mode (set, count, atomic).
	// Empty means atomic.
	CoverMode string

	// Timeout bounds the child test run. Zero means the `go test` default.
	Timeout time.Duration

	// Report selects how the coverage profile is presented afterwards.
	// The zero value means a terminal summary.
	Report model.ReportFormat

	// OpenReport opens the HTML report in a web browser. Only meaningful
	// together with the HTML report format.
	OpenReport bool
}

// Runner orchestrates test child processes rooted at a project directory.
//
// The zero field defaults spawn real processes; tests replace the hooks
// with recorders. The invoke hook carries the post-mortem wrapper, so a
// failing test run leaves a record behind (see WrapPostMortem).
type Runner struct {
	root string
	out  io.Writer
	log  *zap.Logger

	// invoke runs test commands. It is pre-wrapped with WrapPostMortem.
	invoke InvokeFunc

	// runTool runs auxiliary toolchain commands (cache cleaning, coverage
	// rendering) without post-mortem capture, so a reporting hiccup never
	// overwrites the record of the test failure that preceded it.
	runTool InvokeFunc

	fresh      FreshFunc
	scratchDir func() (string, error)
	openURL    func(url string) error
	environ    func() []string
}

// NewRunner creates a Runner rooted at the given project directory that
// writes child output and reports to out. A nil logger disables
// diagnostics.
func NewRunner(root string, out io.Writer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		root:       root,
		out:        out,
		log:        log,
		runTool:    runCommand,
		scratchDir: project.TestDir,
		openURL:    openBrowser,
		environ:    os.Environ,
	}
	r.invoke = WrapPostMortem(runCommand)
	r.fresh = r.cleanTestCache
	return r
}

// runCommand is the default invocation hook: run the prepared command and
// report its outcome.
func runCommand(cmd *exec.Cmd) error {
	return cmd.Run()
}

// prepare readies a test run: it applies the fresh-run strategy and
// acquires the scratch sandbox, returning the child environment.
func (r *Runner) prepare(ctx context.Context) ([]string, error) {
	if err := r.fresh(ctx, r.root); err != nil {
		return nil, fmt.Errorf("failed to reset cached test results: %w", err)
	}

	scratch, err := r.scratchDir()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare the test dir: %w", err)
	}

	return r.childEnv(scratch), nil
}

// childEnv builds the environment for test children: the parent
// environment plus the scratch sandbox export, with crash traces enabled
// unless the caller already set a traceback level.
func (r *Runner) childEnv(scratchDir string) []string {
	env := append([]string(nil), r.environ()...)
	env = append(env, testDirEnvVar+"="+scratchDir)
	if !envHas(env, tracebackEnvVar) {
		env = append(env, tracebackEnvVar+"=crash")
	}
	return env
}

// envHas reports whether the environment list sets the given variable.
func envHas(env []string, key string) bool {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}
	return false
}

// runTests spawns `go test` with the given arguments and environment and
// returns the child's exit code.
//
// A nonzero exit from the child is a result, not an error: it comes back
// as the code with a nil error so callers can distinguish failing tests
// from a run that could not happen at all.
func (r *Runner) runTests(ctx context.Context, args, env []string) (int, error) {
	cmd := exec.CommandContext(ctx, goTool, args...)
	cmd.Dir = r.root
	cmd.Env = env
	cmd.Stdout = r.out
	cmd.Stderr = r.out

	r.log.Debug("running tests", zap.Strings("args", cmd.Args))

	err := r.invoke(cmd)
	if err == nil {
		return 0, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("failed to run go test: %w", err)
}

// cleanTestCache is the default fresh-run strategy. It clears the
// toolchain's cached test results for the module so the next `go test`
// actually runs.
func (r *Runner) cleanTestCache(ctx context.Context, root string) error {
	cmd := exec.CommandContext(ctx, goTool, "clean", "-testcache")
	cmd.Dir = root

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := r.runTool(cmd); err != nil {
		return fmt.Errorf("go clean -testcache failed: %s: %w",
			strings.TrimSpace(output.String()), err)
	}
	return nil
}
