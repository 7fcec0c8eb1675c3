// Package project locates the imageio project root and manages the
// per-user scratch directory used as a sandbox during test runs.
//
// Root discovery walks upward from a starting directory until it finds the
// marker file (.gitignore), capped at nine parent hops. The walk is best
// effort: when no marker is found the last directory examined is returned
// silently, because every caller treats the root as advisory context rather
// than a hard requirement.
//
// The scratch directory follows a guard pattern: it is created empty on
// first use (clearing any copy left behind by an earlier process) and
// removed by an explicit Release call. There is no process-exit hook;
// whoever acquires the directory owns its lifecycle.
package project
