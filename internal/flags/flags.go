package flags

// Package flags defines canonical CLI flag names shared by the cobra wiring
// and the code that reacts to whether a flag was set explicitly.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Input.Manifest, flags.FlagManifest, "", "...")
//	if cmd.Flags().Changed(flags.FlagEnvFile) { ... }
const (
	// Input
	FlagManifest = "manifest"
	FlagEnvFile  = "env-file"

	// Output
	FlagOut         = "out"
	FlagUpper       = "upper"
	FlagSummary     = "summary"
	FlagSummaryFile = "summary-file"
	FlagTrace       = "trace"

	// Runtime
	FlagTimeout   = "timeout"
	FlagRetries   = "retries"
	FlagRetryWait = "retry-wait"
	FlagToken     = "token"
	FlagAPIURL    = "api-url"
	FlagVerbose   = "verbose"
	FlagLogFormat = "log-format"

	// modules list
	FlagQuiet = "quiet"
)
