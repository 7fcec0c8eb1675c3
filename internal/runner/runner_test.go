package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KatelynNguyen/imageio/internal/project"
)

// recorder captures the commands and calls each runner hook receives and
// plays back configured results.
type recorder struct {
	testCmds []*exec.Cmd
	testErr  error

	toolCmds []*exec.Cmd
	toolErr  error

	freshRoots []string
	freshErr   error

	opened  []string
	openErr error
}

func (rec *recorder) invoke(cmd *exec.Cmd) error {
	rec.testCmds = append(rec.testCmds, cmd)
	return rec.testErr
}

func (rec *recorder) tool(cmd *exec.Cmd) error {
	rec.toolCmds = append(rec.toolCmds, cmd)
	return rec.toolErr
}

func (rec *recorder) fresh(_ context.Context, root string) error {
	rec.freshRoots = append(rec.freshRoots, root)
	return rec.freshErr
}

func (rec *recorder) open(url string) error {
	rec.opened = append(rec.opened, url)
	return rec.openErr
}

// setupRunner creates a Runner over a temporary project root with every
// hook replaced by the returned recorder. The scratch sandbox lives under
// <root>/cache/testdir and the child environment is deterministic.
func setupRunner(t *testing.T) (*Runner, *recorder, *bytes.Buffer) {
	t.Helper()

	root := t.TempDir()
	var buf bytes.Buffer
	r := NewRunner(root, &buf, zaptest.NewLogger(t))

	rec := &recorder{}
	r.invoke = rec.invoke
	r.runTool = rec.tool
	r.fresh = rec.fresh
	r.openURL = rec.open
	r.environ = func() []string { return []string{"PATH=/usr/bin"} }

	scratch := project.NewScratch(filepath.Join(root, "cache"))
	r.scratchDir = scratch.Dir
	t.Cleanup(func() { _ = scratch.Release() })

	return r, rec, &buf
}

// scratchPath returns where setupRunner's sandbox lands.
func scratchPath(r *Runner) string {
	return filepath.Join(r.root, "cache", "testdir")
}

// exitError produces a real *exec.ExitError carrying the given code.
func exitError(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	require.Error(t, err)
	return err
}

// TestChildEnv_ExportsScratchAndCrashTraces verifies that children get
// the sandbox path and crash traces on top of the parent environment.
func TestChildEnv_ExportsScratchAndCrashTraces(t *testing.T) {
	r, _, _ := setupRunner(t)

	env := r.childEnv("/tmp/sandbox")

	assert.Contains(t, env, "PATH=/usr/bin")
	assert.Contains(t, env, "IMAGEIO_TEST_DIR=/tmp/sandbox")
	assert.Contains(t, env, "GOTRACEBACK=crash")
}

// TestChildEnv_RespectsUserTraceback verifies that an existing traceback
// level is never overridden.
func TestChildEnv_RespectsUserTraceback(t *testing.T) {
	r, _, _ := setupRunner(t)
	r.environ = func() []string { return []string{"GOTRACEBACK=all"} }

	env := r.childEnv("/tmp/sandbox")

	assert.Contains(t, env, "GOTRACEBACK=all")
	assert.NotContains(t, env, "GOTRACEBACK=crash")
}

// TestPrepare_AppliesFreshStrategy verifies that every run invokes the
// configured fresh-run strategy against the project root.
func TestPrepare_AppliesFreshStrategy(t *testing.T) {
	r, rec, _ := setupRunner(t)

	_, err := r.prepare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{r.root}, rec.freshRoots)
	assert.DirExists(t, scratchPath(r))
}

// TestPrepare_FreshStrategyFailure verifies that a failing strategy stops
// the run before anything is spawned.
func TestPrepare_FreshStrategyFailure(t *testing.T) {
	r, rec, _ := setupRunner(t)
	rec.freshErr = errors.New("cache locked")

	_, err := r.prepare(context.Background())
	require.Error(t, err)

	assert.Contains(t, err.Error(), "failed to reset cached test results")
	assert.NoDirExists(t, scratchPath(r))
}

// TestRunTests_ExitCodes verifies the exit-code contract: zero on
// success, the child's code on test failure, an error only when the run
// could not happen.
func TestRunTests_ExitCodes(t *testing.T) {
	tests := []struct {
		name      string
		invokeErr func(t *testing.T) error
		wantCode  int
		wantErr   bool
	}{
		{
			name:     "all tests passed",
			wantCode: 0,
		},
		{
			name:      "tests failed",
			invokeErr: func(t *testing.T) error { return exitError(t, 1) },
			wantCode:  1,
		},
		{
			name:      "tests failed with higher code",
			invokeErr: func(t *testing.T) error { return exitError(t, 2) },
			wantCode:  2,
		},
		{
			name:      "spawn failure",
			invokeErr: func(t *testing.T) error { return errors.New("executable not found") },
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, rec, _ := setupRunner(t)
			if tt.invokeErr != nil {
				rec.testErr = tt.invokeErr(t)
			}

			code, err := r.runTests(context.Background(), []string{"test", "./..."}, nil)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "failed to run go test")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

// TestRunTests_CommandShape verifies that children run rooted at the
// project directory with the provided environment, never the parent's
// working directory.
func TestRunTests_CommandShape(t *testing.T) {
	r, rec, _ := setupRunner(t)

	_, err := r.runTests(context.Background(), []string{"test", "-v", "./..."}, []string{"A=1"})
	require.NoError(t, err)

	require.Len(t, rec.testCmds, 1)
	cmd := rec.testCmds[0]
	assert.Equal(t, []string{"go", "test", "-v", "./..."}, cmd.Args)
	assert.Equal(t, r.root, cmd.Dir)
	assert.Equal(t, []string{"A=1"}, cmd.Env)
}

// TestRunTests_ContextCancellation verifies that cancellation surfaces as
// the context error rather than a child exit code.
func TestRunTests_ContextCancellation(t *testing.T) {
	r, rec, _ := setupRunner(t)
	rec.testErr = errors.New("signal: killed")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.runTests(ctx, []string{"test"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestPackageArg_PrefersRelativePaths verifies package argument
// rendering for directories inside and outside the root.
func TestPackageArg_PrefersRelativePaths(t *testing.T) {
	r, _, _ := setupRunner(t)

	assert.Equal(t, "./internal/alpha", r.packageArg(filepath.Join(r.root, "internal", "alpha")))
	assert.Equal(t, "./.", r.packageArg(r.root))

	outside := t.TempDir()
	assert.Equal(t, outside, r.packageArg(outside))
}
