package style

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/KatelynNguyen/imageio/internal/model"
)

const (
	// directiveMarker prefixes inline style directives. The marker must
	// start the line; indented or mid-line occurrences are prose, not
	// directives.
	directiveMarker = "// styletest:"

	// directiveScanLines is how deep into a file directives are honored.
	// Directives belong in the header comment block; anything further down
	// is ignored.
	directiveScanLines = 20
)

// directives holds the per-file style options derived from the leading
// lines of a source file.
type directives struct {
	// skip excludes the file from checking entirely. Skip dominates:
	// ignore directives in the same file have no effect once set.
	skip bool

	// ignores lists diagnostic codes suppressed for this file on top of
	// the global ignore set.
	ignores []string
}

// parseDirectives scans the first directiveScanLines lines of the file at
// path for styletest directives.
//
// A line containing "skip" after the marker marks the file skipped. A line
// containing "ignore" contributes its code-shaped tokens to the file's
// ignore list; tokens that do not look like diagnostic codes (including
// the word "ignore" itself) are dropped silently, so prose following the
// directive cannot inject checker flags. Both directive kinds are
// collected independently across lines; the caller lets skip dominate.
func parseDirectives(path string) (directives, error) {
	f, err := os.Open(path)
	if err != nil {
		return directives{}, fmt.Errorf("failed to read style directives from %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var d directives

	scanner := bufio.NewScanner(f)
	// Generated files can carry very long lines; give the scanner room
	// beyond its 64 KiB default before it reports ErrTooLong.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for line := 0; line < directiveScanLines && scanner.Scan(); line++ {
		text := scanner.Text()
		if !strings.HasPrefix(text, directiveMarker) {
			continue
		}

		rest := text[len(directiveMarker):]
		switch {
		case strings.Contains(rest, "skip"):
			d.skip = true
		case strings.Contains(rest, "ignore"):
			d.ignores = append(d.ignores, codeTokens(rest)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return directives{}, fmt.Errorf("failed to scan %s for style directives: %w", path, err)
	}

	return d, nil
}

// codeTokens splits a directive payload on spaces and commas and keeps
// only tokens shaped like diagnostic codes.
func codeTokens(s string) []string {
	var codes []string
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	for _, token := range fields {
		if model.ValidateCheckCode(token) == nil {
			codes = append(codes, token)
		}
	}
	return codes
}
