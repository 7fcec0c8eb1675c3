package style

import (
	"io"
	"path/filepath"
	"strings"
)

// Relativizer wraps an output writer and rewrites messages that begin with
// the project root path to root-relative form. The style tool reports
// absolute paths when given absolute file arguments; relative paths keep
// the report readable and stable across checkouts.
//
// The relativizer is installed into a writer slot so that everything the
// checker emits during a run flows through it, and Revert restores the
// original writer into the same slot afterward.
type Relativizer struct {
	slot     *io.Writer
	original io.Writer
	root     string
}

// InstallRelativizer replaces the writer in slot with a Relativizer over
// the slot's current value and returns the relativizer so the caller can
// Revert it.
func InstallRelativizer(slot *io.Writer, root string) *Relativizer {
	r := &Relativizer{
		slot:     slot,
		original: *slot,
		root:     root,
	}
	*slot = r
	return r
}

// Write forwards the message to the original writer, rewriting it to a
// root-relative path when it begins with the root path string. The guard
// is an exact string-prefix test, not a path-aware one; the rewrite uses
// filepath.Rel, which preserves the non-path tail of a diagnostic line
// (everything after the file name rides along in the last component).
//
// The original writer is flushed after every write when it supports
// flushing, so diagnostics appear promptly even through buffered sinks.
func (r *Relativizer) Write(p []byte) (int, error) {
	msg := string(p)
	if strings.HasPrefix(msg, r.root) {
		if rel, err := filepath.Rel(r.root, msg); err == nil {
			msg = rel
		}
	}

	if _, err := io.WriteString(r.original, msg); err != nil {
		return 0, err
	}
	r.flushOriginal()
	return len(p), nil
}

// Flush flushes the original writer when it supports flushing.
func (r *Relativizer) Flush() {
	r.flushOriginal()
}

// Revert restores the original writer into the slot the relativizer was
// installed in. Reverting twice is harmless. The relativizer itself keeps
// working after Revert; it is simply no longer in the output path.
func (r *Relativizer) Revert() {
	*r.slot = r.original
}

// flushOriginal flushes or syncs the wrapped writer if it exposes either
// convention. Plain writers (bytes.Buffer, pipes) need nothing.
func (r *Relativizer) flushOriginal() {
	switch w := r.original.(type) {
	case interface{ Flush() error }:
		_ = w.Flush()
	case interface{ Flush() }:
		w.Flush()
	case interface{ Sync() error }:
		_ = w.Sync()
	}
}
