// Package style implements the source-tree style checker for the
// imageio-dev CLI.
//
// The checker walks the project tree (skipping version-control, doc, and
// build subtrees), honors inline styletest directives found in the first
// lines of each source file, invokes the external style tool once per file
// with a combined ignore set, and aggregates the results into a single
// pass/fail outcome. The tool is a soft dependency: when it is not
// installed the check prints a notice and succeeds.
//
// Directives are plain comment lines near the top of a file:
//
//	// styletest: skip
//	// styletest: ignore SA4006,ST1005
//
// A skip directive excludes the file entirely and dominates any ignore
// directives the file also carries.
//
// Output produced while checking is routed through a Relativizer that
// rewrites root-absolute paths to root-relative form, keeping diagnostics
// readable regardless of where the checkout lives.
package style
