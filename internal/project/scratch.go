package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// appDirName is the directory under the user cache directory that holds
	// everything this tool writes outside the checkout: the scratch sandbox
	// and the persisted post-mortem record.
	appDirName = "imageio"

	// scratchDirName is the scratch sandbox directory created under the
	// application directory.
	scratchDirName = "testdir"
)

// Scratch manages a disposable sandbox directory with a guard lifecycle:
// the directory is created empty on the first Dir call and removed by
// Release. Any directory left at the target path by an earlier process is
// cleared before recreation, so tests never see stale files.
//
// A Scratch is safe for concurrent use. The zero base value places the
// sandbox under the per-user application directory; tests construct guards
// over temporary directories instead.
type Scratch struct {
	// appDir is the application directory the sandbox lives under.
	// Empty means "resolve the per-user application directory on first use".
	appDir string

	mu       sync.Mutex
	path     string
	acquired bool
}

// NewScratch creates a guard whose sandbox lives under the given
// application directory. An empty appDir defers to the per-user
// application directory (os.UserCacheDir()/imageio).
func NewScratch(appDir string) *Scratch {
	return &Scratch{appDir: appDir}
}

// Dir returns the sandbox path, creating it on first call.
//
// The first call per acquisition clears any pre-existing directory at the
// target path and creates it fresh, so the returned directory is
// guaranteed to exist and be empty. Subsequent calls return the same path
// without touching the filesystem. Creation and deletion errors propagate
// to the caller; there is no retry.
func (s *Scratch) Dir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.acquired {
		return s.path, nil
	}

	appDir := s.appDir
	if appDir == "" {
		resolved, err := defaultAppDir()
		if err != nil {
			return "", err
		}
		appDir = resolved
	}

	target := filepath.Join(appDir, scratchDirName)

	// Clear a leftover sandbox from a previous process before recreating.
	if _, err := os.Stat(target); err == nil {
		if err := os.RemoveAll(target); err != nil {
			return "", fmt.Errorf("failed to clear pre-existing scratch directory %s: %w", target, err)
		}
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory %s: %w", target, err)
	}

	s.path = target
	s.acquired = true
	return target, nil
}

// Release removes the sandbox directory. It removes exactly once per
// acquisition: releasing a guard that was never acquired, or releasing a
// second time, is a no-op. After Release the guard can acquire again,
// which yields a fresh empty sandbox.
func (s *Scratch) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.acquired {
		return nil
	}

	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("failed to remove scratch directory %s: %w", s.path, err)
	}

	s.path = ""
	s.acquired = false
	return nil
}

// defaultScratch is the process-wide guard used by callers that want the
// shared sandbox rather than a private one.
var defaultScratch = NewScratch("")

// TestDir returns the shared sandbox path, creating it on first call
// within the process. Test code points file fixtures here; runners export
// the path to child processes in IMAGEIO_TEST_DIR.
func TestDir() (string, error) {
	return defaultScratch.Dir()
}

// ReleaseTestDir removes the shared sandbox. Callers that acquired the
// shared sandbox call this when their run completes.
func ReleaseTestDir() error {
	return defaultScratch.Release()
}

// AppDir returns the per-user application directory, creating it if
// needed. The post-mortem record is persisted here so it survives the
// scratch sandbox's release.
func AppDir() (string, error) {
	dir, err := defaultAppDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create application directory %s: %w", dir, err)
	}
	return dir, nil
}

// defaultAppDir resolves the per-user application directory without
// creating it.
func defaultAppDir() (string, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(cache, appDirName), nil
}
