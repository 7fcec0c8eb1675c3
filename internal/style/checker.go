package style

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
)

const (
	// toolName is the style tool binary resolved from PATH. It is a soft
	// dependency: a missing binary downgrades the check to a notice.
	toolName = "staticcheck"

	// sourceSuffix selects the files the checker examines.
	sourceSuffix = ".go"

	// failureSeparator is printed after a failing file's diagnostics so
	// consecutive failures stay visually separated.
	failureSeparator = "----"
)

// defaultExcludes are directory names whose subtrees are never walked.
// Matching any path component excludes the whole subtree.
var defaultExcludes = []string{".git", "docs", "build", "dist", "vendor"}

// defaultIgnores are diagnostic codes suppressed for every file. These are
// the stylistic naming and doc-comment nits that a tree full of plugin
// bindings cannot realistically keep clean; real correctness classes stay
// enabled.
var defaultIgnores = []string{"ST1000", "ST1003", "ST1020", "ST1021", "ST1022"}

// Result summarizes one style-check run for reporting.
type Result struct {
	// Root is the tree that was checked.
	Root string `json:"root"`

	// FilesChecked counts files the tool was invoked on.
	FilesChecked int `json:"filesChecked"`

	// FilesFailed counts checked files with at least one diagnostic.
	FilesFailed int `json:"filesFailed"`

	// FilesSkipped counts files excluded by a skip directive.
	FilesSkipped int `json:"filesSkipped"`

	// ToolMissing is true when the style tool is not installed and the
	// check was skipped entirely.
	ToolMissing bool `json:"toolMissing"`
}

// runToolFunc invokes the style tool on one file with the combined ignore
// set and reports whether the file passed, along with the tool's combined
// output. Injected so tests can observe per-file argument sets without
// the real tool installed.
type runToolFunc func(ctx context.Context, root, file string, ignores []string) (passed bool, output []byte, err error)

// Checker walks a source tree and runs the style tool on each file that
// is not excluded by directory filters or a skip directive.
type Checker struct {
	root string
	out  io.Writer
	log  *zap.Logger

	excludes []string
	ignores  []string

	runTool  runToolFunc
	lookPath func(name string) (string, error)
}

// NewChecker creates a Checker rooted at the given directory that writes
// its report to out. A nil logger disables diagnostics.
func NewChecker(root string, out io.Writer, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Checker{
		root:     root,
		out:      out,
		log:      log,
		excludes: append([]string(nil), defaultExcludes...),
		ignores:  append([]string(nil), defaultIgnores...),
		lookPath: exec.LookPath,
	}
	c.runTool = c.staticcheckFile
	return c
}

// AddIgnores extends the global ignore set for this checker. Per-file
// ignore directives stack on top of these.
func (c *Checker) AddIgnores(codes []string) {
	c.ignores = append(c.ignores, codes...)
}

// AddExcludes extends the set of directory names whose subtrees are
// skipped during the walk.
func (c *Checker) AddExcludes(names []string) {
	c.excludes = append(c.excludes, names...)
}

// Check walks the tree and style-checks every eligible file.
//
// The returned Result is always valid. The error is nil when every file
// passed; a configuration error when zero files were checked (wrong root,
// over-broad excludes); and an aggregate style failure naming the checked
// count when at least one file failed. A missing tool is not an error.
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	result := &Result{Root: c.root}

	if _, err := c.lookPath(toolName); err != nil {
		fmt.Fprintf(c.out, "Skipping style check, %s not installed\n", toolName)
		result.ToolMissing = true
		return result, nil
	}

	fmt.Fprintf(c.out, "Running %s on %s\n", toolName, c.root)

	// Everything written during the walk goes through the relativizer so
	// absolute tool paths come out root-relative. The deferred Revert
	// covers early returns; the explicit Revert below restores the writer
	// before the outcome is reported.
	reli := InstallRelativizer(&c.out, c.root)
	defer reli.Revert()

	walkErr := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking source tree at %s: %w", path, err)
		}

		if d.IsDir() {
			if path != c.root && c.isExcluded(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), sourceSuffix) {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		opts, err := parseDirectives(path)
		if err != nil {
			return err
		}
		if opts.skip {
			result.FilesSkipped++
			return nil
		}

		result.FilesChecked++

		// The file's own ignore directives stack on the global set for
		// this invocation only.
		ignores := append(append([]string(nil), c.ignores...), opts.ignores...)

		passed, output, err := c.runTool(ctx, c.root, path, ignores)
		if err != nil {
			return fmt.Errorf("failed to run %s on %s: %w", toolName, path, err)
		}
		c.writeToolOutput(output)
		if !passed {
			result.FilesFailed++
			fmt.Fprintln(c.out, failureSeparator)
		}
		return nil
	})

	reli.Revert()

	if walkErr != nil {
		return result, walkErr
	}
	if result.FilesChecked == 0 {
		return result, model.NewCLIError(model.ExitConfigError, "style check did not check any files")
	}
	if result.FilesFailed > 0 {
		return result, model.NewCLIError(model.ExitStyleFailed,
			fmt.Sprintf("style check failed (checked %d files)", result.FilesChecked))
	}

	fmt.Fprintf(c.out, "Style check passed (checked %d files)\n", result.FilesChecked)
	return result, nil
}

// isExcluded reports whether a directory name is in the exclusion set.
// The walk consults this for every directory it descends into, which
// matches excluding any subtree whose relative path contains the name as
// a component.
func (c *Checker) isExcluded(name string) bool {
	for _, excl := range c.excludes {
		if name == excl {
			return true
		}
	}
	return false
}

// staticcheckFile is the default runTool implementation. It invokes
// staticcheck on a single file with all checks enabled minus the ignore
// set, rooted at the project directory.
//
// A zero exit means the file passed. A nonzero exit with diagnostics is a
// style failure, not an orchestration error; only a failure to spawn or a
// killed process surfaces as an error.
func (c *Checker) staticcheckFile(ctx context.Context, root, file string, ignores []string) (bool, []byte, error) {
	checks := make([]string, 0, len(ignores)+1)
	checks = append(checks, "all")
	for _, code := range ignores {
		checks = append(checks, "-"+code)
	}

	cmd := exec.CommandContext(ctx, toolName, "-checks", strings.Join(checks, ","), file)
	cmd.Dir = root

	c.log.Debug("running style tool",
		zap.String("file", file),
		zap.Strings("args", cmd.Args))

	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, output, nil
		}
		return false, output, err
	}
	return true, output, nil
}

// writeToolOutput forwards the tool's output line by line so each line
// passes through the relativizer as one message, the way the tool itself
// would print it.
func (c *Checker) writeToolOutput(output []byte) {
	if len(output) == 0 {
		return
	}
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	for _, line := range lines {
		_, _ = io.WriteString(c.out, line)
		_, _ = io.WriteString(c.out, "\n")
	}
}
