package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/KatelynNguyen/imageio/internal/model"
)

// Config is the parsed per-project configuration. Zero values mean "use
// the default"; ApplyDefaults fills them in after parsing.
type Config struct {
	// Style configures the style checker.
	Style StyleConfig `yaml:"style" json:"style"`

	// Test configures suite and single-file test runs.
	Test TestConfig `yaml:"test" json:"test"`
}

// StyleConfig holds style-checker settings.
type StyleConfig struct {
	// Ignore lists diagnostic codes suppressed for every file, in addition
	// to the built-in global ignore set. Per-file directives extend this
	// further for individual files.
	Ignore []string `yaml:"ignore" json:"ignore"`

	// Exclude lists directory names skipped during the tree walk, in
	// addition to the built-in excludes (.git, docs, build, dist, vendor).
	// Matching skips the entire subtree.
	Exclude []string `yaml:"exclude" json:"exclude"`
}

// TestConfig holds test-run settings.
type TestConfig struct {
	// Packages are the package patterns the suite runner tests.
	// Defaults to ["./..."]. CLI arguments override this list.
	Packages []string `yaml:"packages" json:"packages"`

	// CoverMode is the coverage mode passed to the test runner:
	// set, count, or atomic. Defaults to atomic.
	CoverMode string `yaml:"covermode" json:"covermode"`

	// Timeout bounds a single test-run invocation, in Go duration syntax
	// (for example "10m"). Defaults to 10m.
	Timeout string `yaml:"timeout" json:"timeout"`

	// Report selects the default coverage report format for suite runs:
	// term, html, or none. Defaults to term. The --cov-report flag
	// overrides this.
	Report string `yaml:"report" json:"report"`
}

const (
	// defaultCoverMode is used when the config does not set one. Atomic is
	// the only mode that is also correct under -race, so it is the safe
	// default for a tool that does not know how it will be combined.
	defaultCoverMode = "atomic"

	// defaultTimeout bounds a test-run invocation when the config does not
	// set one.
	defaultTimeout = "10m"
)

// fileCandidates are the config file names searched at the project root,
// in priority order.
var fileCandidates = []string{
	".imageio-dev.yml",
	".imageio-dev.yaml",
	".imageio-dev.json",
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults. Ignore and
// Exclude stay as given (they extend built-in sets rather than replacing
// them, so empty is meaningful).
func (c *Config) ApplyDefaults() {
	if len(c.Test.Packages) == 0 {
		c.Test.Packages = []string{"./..."}
	}
	if c.Test.CoverMode == "" {
		c.Test.CoverMode = defaultCoverMode
	}
	if c.Test.Timeout == "" {
		c.Test.Timeout = defaultTimeout
	}
	if c.Test.Report == "" {
		c.Test.Report = model.ReportTerm.String()
	}
}

// Validate checks field values after defaults have been applied.
// Violations are configuration errors carrying ExitConfigError.
func (c *Config) Validate() error {
	for _, code := range c.Style.Ignore {
		if err := model.ValidateCheckCode(code); err != nil {
			return model.WrapCLIError(model.ExitConfigError, "invalid style.ignore entry", err)
		}
	}

	switch c.Test.CoverMode {
	case "set", "count", "atomic":
	default:
		return model.NewCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid test.covermode %q (valid: set, count, atomic)", c.Test.CoverMode))
	}

	if _, err := time.ParseDuration(c.Test.Timeout); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("invalid test.timeout %q", c.Test.Timeout), err)
	}

	if _, err := model.ParseReportFormat(c.Test.Report); err != nil {
		return model.WrapCLIError(model.ExitConfigError, "invalid test.report", err)
	}

	return nil
}

// TimeoutDuration returns the parsed test timeout. Validate has already
// checked the syntax, so a parse failure here falls back to the default
// rather than failing the run.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Test.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(defaultTimeout)
	}
	return d
}

// ReportFormat returns the validated default report format.
func (c *Config) ReportFormat() model.ReportFormat {
	format, err := model.ParseReportFormat(c.Test.Report)
	if err != nil {
		return model.ReportTerm
	}
	return format
}

// Find searches the project root for a config file and returns its path.
// An empty path with a nil error means no config file exists, which is
// the common case.
func Find(root string) (string, error) {
	for _, name := range fileCandidates {
		path := filepath.Join(root, name)
		// os.Stat checks existence without reading contents.
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", nil
}

// Load reads and parses the config file at path, applies defaults, and
// validates the result. The format is chosen by extension: .json is
// parsed as JSONC, anything else as YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("failed to read config file %s", path), err)
	}

	var cfg Config
	if filepath.Ext(path) == ".json" {
		// Strip JSONC comments and trailing commas before parsing with the
		// standard library. Unknown fields are silently ignored, matching
		// the YAML path below.
		cleanJSON := jsonc.ToJSON(data)
		if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to parse config file %s", path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, model.WrapCLIError(model.ExitConfigError,
				fmt.Sprintf("failed to parse config file %s", path), err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromRoot loads the project's config file if one exists, or returns
// the defaults when none does.
func LoadFromRoot(root string) (*Config, error) {
	path, err := Find(root)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
