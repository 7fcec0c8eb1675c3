package project

import (
	"os"
	"path/filepath"
)

const (
	// rootMarker is the file whose presence in a directory identifies the
	// project root. Every checkout carries a .gitignore at its top level,
	// which makes it a reliable anchor without requiring a dedicated
	// sentinel file.
	rootMarker = ".gitignore"

	// maxRootAscents is the maximum number of parent directories examined
	// after the starting directory. Nine hops is far deeper than any sane
	// invocation site sits below the root; the cap keeps the walk from
	// crawling to the filesystem root on a stray invocation.
	maxRootAscents = 9
)

// FindRoot returns the nearest ancestor of start (including start itself)
// that contains the root marker file.
//
// The walk examines the starting directory and then at most nine parents.
// If no marker is found the last directory examined is returned; no error
// is raised. Callers that need certainty can check for the marker
// themselves, but in practice the tool is always run from somewhere inside
// a checkout and the best-effort result is correct.
//
// The walk also stops early at the filesystem root, where a directory is
// its own parent.
func FindRoot(start string) string {
	dir := start
	if abs, err := filepath.Abs(start); err == nil {
		dir = abs
	}

	for i := 0; ; i++ {
		if hasRootMarker(dir) {
			return dir
		}
		if i == maxRootAscents {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root.
			return dir
		}
		dir = parent
	}
}

// FindWorkingRoot resolves the project root from the current working
// directory. This is the entry point the CLI uses; library callers that
// already know their anchor should call FindRoot directly.
func FindWorkingRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return FindRoot(wd), nil
}

// hasRootMarker reports whether dir contains the root marker as a regular
// file. A directory named like the marker does not count.
func hasRootMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, rootMarker))
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
