package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultManifest = "ext/list.json"
	DefaultOutput   = "cmake/version.cmake"
	DefaultEnvFile  = ".env"
)

type Config struct {
	// MAINTAINER NOTE: fields here are bound to flags in internal/cli/update.go.
	// Keep flag names in internal/flags in sync when adding fields.
	Input   Input
	Output  Output
	Runtime Runtime
}

type Input struct {
	// Manifest is the module list to pin (see --manifest).
	// JSON by default; .yaml/.yml files are read as YAML.
	Manifest string

	// EnvFile is loaded into the environment before the token is resolved
	// (see --env-file). A missing default file is not an error.
	EnvFile string

	// RequireEnvFile makes a missing EnvFile fatal. The CLI sets it when
	// --env-file is passed explicitly.
	RequireEnvFile bool
}

type Output struct {
	// Path is the generated CMake file (see --out). It is truncated at the
	// start of every run.
	Path string

	// Upper uppercases module names in the generated variable names (see --upper).
	Upper bool

	// Summary prints the resolved modules as a JSON array to stdout once all
	// modules are pinned. On by default; --no-summary turns it off.
	Summary bool

	// SummaryFile also writes the JSON array to this path (see --summary-file).
	SummaryFile string

	// Trace prints per-module progress lines to stderr (see --trace).
	Trace bool
}

type Runtime struct {
	// Timeout bounds each GitHub request (see --timeout). Must be > 0.
	Timeout time.Duration

	// Retries is how many times a failed lookup is retried (see --retries).
	// Malformed responses are never retried.
	Retries int

	// RetryWait is the wait before the first retry; it doubles after each one
	// (see --retry-wait).
	RetryWait time.Duration

	// Token is an explicit GitHub token (see --token). When empty the token is
	// resolved from the environment or gh.
	Token string

	// BaseURL is the GitHub API base URL (see --api-url). Empty means api.github.com.
	BaseURL string

	// Verbose enables debug logging, including every GitHub API call.
	Verbose bool

	// LogFormat selects the log encoder: console or json.
	LogFormat string
}

func New() *Config {
	return &Config{
		Input: Input{
			Manifest: DefaultManifest,
			EnvFile:  DefaultEnvFile,
		},
		Output: Output{
			Path:    DefaultOutput,
			Summary: true,
		},
		Runtime: Runtime{
			Timeout:   30 * time.Second,
			RetryWait: time.Second,
			LogFormat: "console",
		},
	}
}

func (c *Config) Validate() error {
	c.Input.Manifest = strings.TrimSpace(c.Input.Manifest)
	if c.Input.Manifest == "" {
		return errors.New("--manifest must not be empty")
	}
	c.Input.EnvFile = strings.TrimSpace(c.Input.EnvFile)

	c.Output.Path = strings.TrimSpace(c.Output.Path)
	if c.Output.Path == "" {
		return errors.New("--out must not be empty")
	}
	if filepath.Clean(c.Output.Path) == filepath.Clean(c.Input.Manifest) {
		return errors.New("--out must not point at the manifest")
	}

	c.Output.SummaryFile = strings.TrimSpace(c.Output.SummaryFile)
	if c.Output.SummaryFile != "" {
		if ext := strings.ToLower(filepath.Ext(c.Output.SummaryFile)); ext != ".json" {
			return fmt.Errorf("--summary-file must end in .json (got %q)", ext)
		}
		if filepath.Clean(c.Output.SummaryFile) == filepath.Clean(c.Output.Path) {
			return errors.New("--summary-file and --out must differ")
		}
	}

	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Runtime.Retries < 0 {
		return errors.New("--retries must be >= 0")
	}
	if c.Runtime.Retries > 0 && c.Runtime.RetryWait <= 0 {
		return errors.New("--retry-wait must be > 0 when --retries is set")
	}

	c.Runtime.Token = strings.TrimSpace(c.Runtime.Token)

	c.Runtime.BaseURL = strings.TrimSpace(c.Runtime.BaseURL)
	if c.Runtime.BaseURL != "" {
		u, err := url.Parse(c.Runtime.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid --api-url value: %q", c.Runtime.BaseURL)
		}
	}

	c.Runtime.LogFormat = normalizeEnumValue(c.Runtime.LogFormat)
	if c.Runtime.LogFormat == "" {
		c.Runtime.LogFormat = "console"
	}
	if c.Runtime.LogFormat != "console" && c.Runtime.LogFormat != "json" {
		return fmt.Errorf("unsupported --log-format: %s (must be one of: console, json)", c.Runtime.LogFormat)
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
