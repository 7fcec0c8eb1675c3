package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/KatelynNguyen/imageio/internal/model"
)

const (
	// coverageDirName is the artifact directory under the project root.
	// It persists across runs so the HTML report outlives the process
	// that rendered it.
	coverageDirName = "coverage"

	coverProfileName = "coverage.out"
	coverReportName  = "coverage.html"

	// defaultCoverMode instruments counters atomically so profiles from
	// parallel tests stay accurate.
	defaultCoverMode = "atomic"
)

// coverProfilePath ensures the coverage artifact directory exists and
// returns the profile path inside it.
func (r *Runner) coverProfilePath() (string, error) {
	dir := filepath.Join(r.root, coverageDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create coverage directory %s: %w", dir, err)
	}
	return filepath.Join(dir, coverProfileName), nil
}

// reportCoverage presents the coverage profile in the requested format.
//
// Rendering is skipped quietly when the profile does not exist, which
// happens when the run failed before any package completed.
func (r *Runner) reportCoverage(ctx context.Context, profile string, format model.ReportFormat, open bool) error {
	if format == model.ReportNone {
		return nil
	}
	if _, err := os.Stat(profile); err != nil {
		r.log.Debug("no coverage profile to report", zap.String("profile", profile))
		return nil
	}

	switch format {
	case model.ReportTerm:
		cmd := exec.CommandContext(ctx, goTool, "tool", "cover", "-func="+profile)
		cmd.Dir = r.root
		cmd.Stdout = r.out
		cmd.Stderr = r.out
		if err := r.runTool(cmd); err != nil {
			return fmt.Errorf("failed to summarize coverage: %w", err)
		}

	case model.ReportHTML:
		htmlPath := filepath.Join(filepath.Dir(profile), coverReportName)
		cmd := exec.CommandContext(ctx, goTool, "tool", "cover", "-html="+profile, "-o", htmlPath)
		cmd.Dir = r.root

		var output bytes.Buffer
		cmd.Stdout = &output
		cmd.Stderr = &output
		if err := r.runTool(cmd); err != nil {
			return fmt.Errorf("failed to render coverage report: %s: %w",
				strings.TrimSpace(output.String()), err)
		}

		fmt.Fprintf(r.out, "Coverage report written to %s\n", htmlPath)
		if open {
			fmt.Fprintf(r.out, "Opening %s in web browser ...\n", htmlPath)
			if err := r.openURL("file://" + filepath.ToSlash(htmlPath)); err != nil {
				// Browser launch is best effort. The report path was
				// already printed.
				r.log.Warn("failed to open web browser", zap.Error(err))
			}
		}
	}
	return nil
}

// openBrowser opens a URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
