package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
)

// RunSuite runs the test suite over the configured package patterns with
// coverage measurement.
//
// The run resets cached test results first, spawns `go test` rooted at
// the project directory, and presents the coverage profile in the
// requested format afterwards: a terminal summary by default, an HTML
// report under <root>/coverage, or nothing.
//
// Returns the child's exit code (0 when every test passed, nonzero as
// `go test` defines it) and an error only when the run itself could not
// be carried out.
func (r *Runner) RunSuite(ctx context.Context, opts SuiteOptions) (int, error) {
	packages := opts.Packages
	if len(packages) == 0 {
		packages = []string{"./..."}
	}
	mode := opts.CoverMode
	if mode == "" {
		mode = defaultCoverMode
	}
	report := opts.Report
	if report == "" {
		report = model.ReportTerm
	}

	env, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}

	profile, err := r.coverProfilePath()
	if err != nil {
		return 0, err
	}

	args := []string{"test", "-v"}
	if opts.FailFast {
		args = append(args, "-failfast")
	}
	if opts.RunPattern != "" {
		args = append(args, "-run", opts.RunPattern)
	}
	if opts.Timeout > 0 {
		args = append(args, "-timeout", opts.Timeout.String())
	}
	args = append(args, "-covermode", mode, "-coverprofile", profile)
	args = append(args, packages...)

	r.log.Debug("running test suite",
		zap.Strings("packages", packages),
		zap.String("report", report.String()))

	code, err := r.runTests(ctx, args, env)
	if err != nil {
		return code, err
	}

	// Coverage is reported even after failures; the profile covers the
	// packages that did run.
	if err := r.reportCoverage(ctx, profile, report, opts.OpenReport); err != nil {
		return code, err
	}
	return code, nil
}
