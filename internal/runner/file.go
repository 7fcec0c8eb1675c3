package runner

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
)

// RunFile runs the tests declared in a single _test.go file.
//
// The entry-point kind gates the whole operation: EntryMain runs the
// tests, anything else is an immediate no-op with no side effects, so
// library callers can invoke this unconditionally from code paths that
// are sometimes imported and sometimes the program entry point.
//
// A run resolves the declared Test functions by parsing the file, resets
// cached test results, and spawns `go test` on the file's package
// restricted to exactly those tests, verbose and fail-fast, with a
// coverage profile written under <root>/coverage. The HTML coverage
// report is rendered afterwards; opts.OpenReport opens it in a web
// browser.
//
// Returns the child's exit code. A file that declares no test functions
// is a configuration error.
func (r *Runner) RunFile(ctx context.Context, path string, entry model.EntryPoint, opts FileOptions) (int, error) {
	if entry != model.EntryMain {
		r.log.Debug("skipping test run for imported entry point",
			zap.String("file", path))
		return 0, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	names, err := testFunctionsInFile(abs)
	if err != nil {
		return 0, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to parse %s", path), err)
	}
	if len(names) == 0 {
		return 0, model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("no test functions found in %s", path))
	}

	env, err := r.prepare(ctx)
	if err != nil {
		return 0, err
	}

	profile, err := r.coverProfilePath()
	if err != nil {
		return 0, err
	}

	args := []string{"test", "-v", "-failfast",
		"-run", testRunPattern(names),
		"-covermode", defaultCoverMode,
		"-coverprofile", profile,
		r.packageArg(filepath.Dir(abs)),
	}

	r.log.Debug("running file tests",
		zap.String("file", abs),
		zap.Strings("tests", names))

	code, err := r.runTests(ctx, args, env)
	if err != nil {
		return code, err
	}

	if err := r.reportCoverage(ctx, profile, model.ReportHTML, opts.OpenReport); err != nil {
		return code, err
	}
	return code, nil
}

// testFunctionsInFile parses a Go source file and returns the names of
// the test functions it declares: top-level functions named Test*, except
// TestMain, which the toolchain treats as the harness rather than a test.
func testFunctionsInFile(path string) ([]string, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, path, nil, 0)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, decl := range f.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		// Methods are never test entry points, whatever their name.
		if funcDecl.Recv != nil {
			continue
		}
		name := funcDecl.Name.Name
		if !strings.HasPrefix(name, "Test") || name == "TestMain" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// testRunPattern anchors the given test names into a `go test -run`
// pattern that selects exactly those tests.
func testRunPattern(names []string) string {
	return "^(" + strings.Join(names, "|") + ")$"
}

// packageArg renders a package directory as a go tool package argument,
// preferring a root-relative ./ path. Directories outside the root stay
// absolute and the toolchain reports whether it can test them.
func (r *Runner) packageArg(dir string) string {
	rel, err := filepath.Rel(r.root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return dir
	}
	return "./" + filepath.ToSlash(rel)
}
