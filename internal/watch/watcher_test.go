package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

// setupWatcher creates a started Watcher over a temporary tree and stops
// it when the test finishes. The returned root has symlinks resolved so
// it compares equal to fsnotify event paths.
func setupWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	w, err := NewWatcher(root, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)

	return w, root
}

// awaitBatch waits for one settled change batch.
func awaitBatch(t *testing.T, w *Watcher) []string {
	t.Helper()
	select {
	case batch := <-w.Changes():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change batch")
		return nil
	}
}

// TestWatcher_DeliversSettledChanges verifies that a saved source file
// arrives as one batch entry while non-source noise never does, however
// many raw events the save produced.
func TestWatcher_DeliversSettledChanges(t *testing.T) {
	w, root := setupWatcher(t)

	target := filepath.Join(root, "alpha.go")
	require.NoError(t, os.WriteFile(target, []byte("package a\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "noise.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(target, []byte("package a // edited\n"), 0o644))

	batch := awaitBatch(t, w)
	assert.Equal(t, []string{target}, batch)
}

// TestWatcher_ExcludedDirectories verifies that excluded subtrees stay
// silent even when created after the watcher started.
func TestWatcher_ExcludedDirectories(t *testing.T) {
	w, root := setupWatcher(t)

	vendorDir := filepath.Join(root, "vendor")
	require.NoError(t, os.MkdirAll(vendorDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(vendorDir, "dep.go"), []byte("package dep\n"), 0o644))

	target := filepath.Join(root, "alpha.go")
	require.NoError(t, os.WriteFile(target, []byte("package a\n"), 0o644))

	batch := awaitBatch(t, w)
	assert.Equal(t, []string{target}, batch)
}

// TestWatcher_WatchesNewDirectories verifies that directories created
// while watching are picked up, so their files report changes too.
func TestWatcher_WatchesNewDirectories(t *testing.T) {
	w, root := setupWatcher(t)

	subDir := filepath.Join(root, "internal")
	require.NoError(t, os.MkdirAll(subDir, 0o755))

	// Give the event loop a moment to register the new directory before
	// writing into it.
	time.Sleep(300 * time.Millisecond)

	target := filepath.Join(subDir, "beta.go")
	require.NoError(t, os.WriteFile(target, []byte("package internal\n"), 0o644))

	batch := awaitBatch(t, w)
	assert.Contains(t, batch, target)
}

// TestWatcher_Lifecycle verifies the start/stop contract: repeated starts
// and stops are no-ops, cancellation ends the loop, and no goroutine
// outlives Stop.
func TestWatcher_Lifecycle(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	w, err := NewWatcher(root, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	require.NoError(t, w.Start(ctx), "second start is a no-op")

	w.Stop()
	w.Stop() // second stop is a no-op
}

// TestWatcher_ContextCancellation verifies that canceling the context
// ends the event loop and Stop still returns promptly afterwards.
func TestWatcher_ContextCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)

	root := t.TempDir()
	w, err := NewWatcher(root, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))

	cancel()

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after context cancellation")
	}
}

// TestWatcher_StartFailsOnMissingRoot verifies that a nonexistent root is
// reported instead of silently watching nothing.
func TestWatcher_StartFailsOnMissingRoot(t *testing.T) {
	defer goleak.VerifyNone(t)

	w, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	assert.Error(t, w.Start(context.Background()))
}

// TestWatcher_NoRestartAfterStop verifies the single-use contract.
func TestWatcher_NoRestartAfterStop(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()

	assert.Error(t, w.Start(context.Background()))
}
