package runner

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/KatelynNguyen/imageio/internal/model"
	"github.com/KatelynNguyen/imageio/internal/project"
)

const (
	// postMortemTailBytes bounds how much child output a failure record
	// keeps. The tail is where Go test failures and panics land.
	postMortemTailBytes = 4096

	// failureFileName is the persisted record in the application
	// directory, read by later processes.
	failureFileName = "last-failure.json"

	// stackDepth caps the frames a failure record captures.
	stackDepth = 32
)

// InvokeFunc runs a prepared command and reports its outcome. It is the
// test-invocation hook: runners call their configured InvokeFunc instead
// of the command directly, so callers can wrap or replace the invocation.
type InvokeFunc func(cmd *exec.Cmd) error

var (
	failureMu   sync.Mutex
	lastFailure *model.TestFailure

	// postMortemWrappers records the code pointers of functions returned
	// by WrapPostMortem, so wrapping an already-wrapped hook is a no-op.
	postMortemWrappers sync.Map

	// failureDir resolves the directory holding the persisted record.
	failureDir = project.AppDir
)

// WrapPostMortem wraps an invocation hook with failure capture.
//
// The wrapper calls fn and passes its result through unchanged. When fn
// reports an error, the wrapper first records a post-mortem snapshot: the
// command line, the error, the tail of the child's output, the call stack
// above the wrapper, and the time. The snapshot is kept in process slots
// (LastFailure) and persisted to the application directory so a later
// `postmortem` invocation can display it.
//
// Wrapping is idempotent: a hook that is already a wrapper is returned
// as-is, so runs never stack capture on capture.
func WrapPostMortem(fn InvokeFunc) InvokeFunc {
	if fn == nil {
		return nil
	}
	if _, ok := postMortemWrappers.Load(reflect.ValueOf(fn).Pointer()); ok {
		return fn
	}

	wrapped := func(cmd *exec.Cmd) error {
		tail := newTailBuffer(postMortemTailBytes)
		teeOutput(cmd, tail)

		err := fn(cmd)
		if err == nil {
			return nil
		}

		recordFailure(&model.TestFailure{
			Command: strings.Join(cmd.Args, " "),
			Message: err.Error(),
			Output:  tail.String(),
			Stack:   captureStack(1),
			Time:    time.Now(),
			Err:     err,
		})
		return err
	}

	postMortemWrappers.Store(reflect.ValueOf(InvokeFunc(wrapped)).Pointer(), struct{}{})
	return wrapped
}

// teeOutput routes the command's output through the tail buffer on top of
// whatever writers the caller installed. When both streams share one
// writer they keep sharing one, so os/exec still serializes their writes.
func teeOutput(cmd *exec.Cmd, tail io.Writer) {
	tee := func(w io.Writer) io.Writer {
		if w == nil {
			return tail
		}
		return io.MultiWriter(w, tail)
	}

	if cmd.Stdout != nil && cmd.Stdout == cmd.Stderr {
		combined := tee(cmd.Stdout)
		cmd.Stdout = combined
		cmd.Stderr = combined
		return
	}
	cmd.Stdout = tee(cmd.Stdout)
	cmd.Stderr = tee(cmd.Stderr)
}

// LastFailure returns a copy of the most recent failure recorded in this
// process, or nil when none was recorded since the last clear.
func LastFailure() *model.TestFailure {
	failureMu.Lock()
	defer failureMu.Unlock()

	if lastFailure == nil {
		return nil
	}
	snapshot := *lastFailure
	return &snapshot
}

// ClearLastFailure drops the in-process record and removes the persisted
// one, best effort.
func ClearLastFailure() {
	failureMu.Lock()
	lastFailure = nil
	failureMu.Unlock()

	if path, err := failurePath(); err == nil {
		_ = os.Remove(path)
	}
}

// ReadPersistedFailure loads the failure record persisted by this or an
// earlier process. A missing record returns nil without error.
func ReadPersistedFailure() (*model.TestFailure, error) {
	path, err := failurePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read failure record %s: %w", path, err)
	}

	var failure model.TestFailure
	if err := json.Unmarshal(data, &failure); err != nil {
		return nil, fmt.Errorf("failed to decode failure record %s: %w", path, err)
	}
	return &failure, nil
}

// recordFailure stores the failure in the process slots and persists it.
// Persistence is best effort: a read-only disk must not turn a test
// failure into an orchestration failure.
func recordFailure(failure *model.TestFailure) {
	failureMu.Lock()
	lastFailure = failure
	failureMu.Unlock()

	path, err := failurePath()
	if err != nil {
		return
	}
	data, err := json.MarshalIndent(failure, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}

// failurePath resolves the persisted record location.
func failurePath() (string, error) {
	dir, err := failureDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, failureFileName), nil
}

// captureStack renders the current goroutine's stack starting skip+1
// frames above captureStack itself, so wrapper internals stay out of the
// record.
func captureStack(skip int) string {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return b.String()
}

// tailBuffer keeps the last n bytes written to it. Writes are
// mutex-guarded because a command's stdout and stderr copiers can run
// concurrently.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if overflow := len(t.buf) - t.limit; overflow > 0 {
		t.buf = t.buf[overflow:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
