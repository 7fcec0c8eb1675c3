package runner

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostMortem points the persisted record at a temporary directory
// and clears the slots before and after the test.
func setupPostMortem(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	prev := failureDir
	failureDir = func() (string, error) { return dir, nil }
	ClearLastFailure()

	t.Cleanup(func() {
		ClearLastFailure()
		failureDir = prev
	})
	return dir
}

// TestWrapPostMortem_RecordsFailure verifies the capture path: command,
// message, output tail, caller stack, and time land in the slots and in
// the persisted record, while the original error passes through.
func TestWrapPostMortem_RecordsFailure(t *testing.T) {
	dir := setupPostMortem(t)

	boom := errors.New("exit status 1")
	hook := WrapPostMortem(func(cmd *exec.Cmd) error {
		_, _ = cmd.Stdout.Write([]byte("--- FAIL: TestAlpha\n"))
		return boom
	})

	cmd := exec.Command("go", "test", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := hook(cmd)
	require.ErrorIs(t, err, boom)

	failure := LastFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "go test ./...", failure.Command)
	assert.Equal(t, "exit status 1", failure.Message)
	assert.Contains(t, failure.Output, "--- FAIL: TestAlpha")
	assert.Contains(t, failure.Stack, "TestWrapPostMortem_RecordsFailure")
	assert.WithinDuration(t, time.Now(), failure.Time, time.Minute)

	// The caller's writer still received everything.
	assert.Contains(t, out.String(), "--- FAIL: TestAlpha")

	data, err := os.ReadFile(filepath.Join(dir, failureFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "go test ./...")
}

// TestWrapPostMortem_SuccessRecordsNothing verifies that a passing run
// leaves no trace.
func TestWrapPostMortem_SuccessRecordsNothing(t *testing.T) {
	dir := setupPostMortem(t)

	hook := WrapPostMortem(func(*exec.Cmd) error { return nil })
	require.NoError(t, hook(exec.Command("go", "test")))

	assert.Nil(t, LastFailure())
	assert.NoFileExists(t, filepath.Join(dir, failureFileName))
}

// TestWrapPostMortem_Idempotent verifies that wrapping a wrapper returns
// it unchanged, so capture never stacks.
func TestWrapPostMortem_Idempotent(t *testing.T) {
	setupPostMortem(t)

	hook := WrapPostMortem(runCommand)
	again := WrapPostMortem(hook)

	assert.Equal(t,
		reflect.ValueOf(hook).Pointer(),
		reflect.ValueOf(again).Pointer())

	assert.Nil(t, WrapPostMortem(nil))
}

// TestWrapPostMortem_BoundsOutputTail verifies that only the tail of a
// large output is kept, ending with the most recent bytes.
func TestWrapPostMortem_BoundsOutputTail(t *testing.T) {
	setupPostMortem(t)

	payload := strings.Repeat("x", postMortemTailBytes*2) + "END-MARKER"
	hook := WrapPostMortem(func(cmd *exec.Cmd) error {
		_, _ = cmd.Stdout.Write([]byte(payload))
		return errors.New("boom")
	})

	require.Error(t, hook(exec.Command("go", "test")))

	failure := LastFailure()
	require.NotNil(t, failure)
	assert.Len(t, failure.Output, postMortemTailBytes)
	assert.True(t, strings.HasSuffix(failure.Output, "END-MARKER"))
}

// TestWrapPostMortem_SharedWriterStaysShared verifies that a command
// whose streams point at one writer keeps identical stream values after
// teeing, so os/exec continues to serialize their writes.
func TestWrapPostMortem_SharedWriterStaysShared(t *testing.T) {
	setupPostMortem(t)

	hook := WrapPostMortem(func(cmd *exec.Cmd) error {
		assert.True(t, cmd.Stdout == cmd.Stderr)
		return nil
	})

	cmd := exec.Command("go", "test")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	require.NoError(t, hook(cmd))
}

// TestLastFailure_ReturnsCopy verifies that callers cannot mutate the
// recorded failure through the returned value.
func TestLastFailure_ReturnsCopy(t *testing.T) {
	setupPostMortem(t)

	hook := WrapPostMortem(func(*exec.Cmd) error { return errors.New("boom") })
	require.Error(t, hook(exec.Command("go", "test")))

	first := LastFailure()
	require.NotNil(t, first)
	first.Message = "mutated"

	second := LastFailure()
	require.NotNil(t, second)
	assert.Equal(t, "boom", second.Message)
}

// TestClearLastFailure verifies that clearing drops both the slots and
// the persisted record.
func TestClearLastFailure(t *testing.T) {
	dir := setupPostMortem(t)

	hook := WrapPostMortem(func(*exec.Cmd) error { return errors.New("boom") })
	require.Error(t, hook(exec.Command("go", "test")))
	require.NotNil(t, LastFailure())

	ClearLastFailure()

	assert.Nil(t, LastFailure())
	assert.NoFileExists(t, filepath.Join(dir, failureFileName))
}

// TestReadPersistedFailure verifies cross-process reads: the record
// survives with the slots gone, and a missing record is nil without
// error.
func TestReadPersistedFailure(t *testing.T) {
	setupPostMortem(t)

	hook := WrapPostMortem(func(cmd *exec.Cmd) error {
		_, _ = cmd.Stdout.Write([]byte("--- FAIL: TestBeta\n"))
		return errors.New("exit status 1")
	})
	require.Error(t, hook(exec.Command("go", "test", "./internal/beta")))

	// Another process would start with empty slots.
	failureMu.Lock()
	lastFailure = nil
	failureMu.Unlock()

	failure, err := ReadPersistedFailure()
	require.NoError(t, err)
	require.NotNil(t, failure)
	assert.Equal(t, "go test ./internal/beta", failure.Command)
	assert.Contains(t, failure.Output, "--- FAIL: TestBeta")
	assert.Nil(t, failure.Err, "the underlying error does not survive serialization")
}

// TestReadPersistedFailure_NoRecord verifies the empty case.
func TestReadPersistedFailure_NoRecord(t *testing.T) {
	setupPostMortem(t)

	failure, err := ReadPersistedFailure()
	require.NoError(t, err)
	assert.Nil(t, failure)
}
