// Package config loads the optional per-project configuration file for
// the imageio-dev CLI.
//
// Configuration lives at the project root as .imageio-dev.yml (YAML) or
// .imageio-dev.json (JSON with comments). Both carry the same schema:
// style-check ignores and directory excludes, and test-run defaults
// (package patterns, coverage mode, timeout, report format).
//
// A missing file is not an error; every setting has a default matching
// the tool's built-in behavior. A file that exists but cannot be parsed
// or fails validation is a configuration error.
//
// JSONC (JSON with Comments) is supported via github.com/tidwall/jsonc,
// so the JSON form can be annotated the way editor config files such as
// tsconfig.json commonly are.
package config
