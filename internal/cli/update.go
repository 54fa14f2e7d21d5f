package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"extpin/internal/config"
	"extpin/internal/flags"
	gh "extpin/internal/github"
	"extpin/internal/logging"
	"extpin/internal/manifest"
	"extpin/internal/output"
	"extpin/internal/pin"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	exitOK      = 0
	exitAborted = 1
	exitFatal   = 3
)

var cfg = config.New()

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"pin"},
	Short:   "Resolve branch heads and regenerate the CMake pin file",
	Long: `Resolve the head commit of each module's branch and regenerate the CMake pin file.

The manifest lists modules either as an array or as an object keyed by module name:

	[{"name": "fmt", "github": "fmtlib/fmt", "branch": "master"}]
	{"fmt": {"github": "fmtlib/fmt", "branch": "master"}}

YAML manifests (.yaml/.yml) use the same two shapes.

Modules are resolved one at a time, in manifest order, with one GitHub request
each. The output file is truncated before the first request. If a lookup fails
the run stops; entries for the modules before it stay in the file.

Authentication:
	A token is optional; without one, requests are unauthenticated and share
	GitHub's lower anonymous rate limit. Sources (in order):
	1) --token
	2) GITHUB_TOKEN or GH_TOKEN (also read from --env-file)
	3) GitHub CLI (gh auth token)

Exit codes:
	0 = every module pinned
	1 = run aborted (lookup failed, malformed response, or write failed)
	3 = fatal error before any lookup (bad flags, unreadable manifest, auth)

Examples:
	extpin update
	extpin update --manifest ext.json --out cmake/version.cmake --no-summary --trace
	extpin update --retries 3 --timeout 10s --summary-file build/pins.json
`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		applyImplicitDefaults(cmd, cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		code := runUpdate(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		stop()
		os.Exit(code)
	},
}

var noSummary bool

func applyImplicitDefaults(cmd *cobra.Command, cfg *config.Config) {
	if cmd == nil {
		return
	}
	// An --env-file the user asked for must exist; the default .env is optional.
	if cmd.Flags().Changed(flags.FlagEnvFile) {
		cfg.Input.RequireEnvFile = true
	}
	if noSummary {
		cfg.Output.Summary = false
	}
}

// runUpdate performs a full run and returns the process exit code.
func runUpdate(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) int {
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	logger, err := logging.New(stderr, cfg.Runtime.LogFormat, cfg.Runtime.Verbose)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	defer func() { _ = logger.Sync() }()

	if err := config.LoadEnvFile(cfg.Input.EnvFile, cfg.Input.RequireEnvFile); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}

	modules, err := manifest.Load(cfg.Input.Manifest)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFatal
	}
	logger.Debug("manifest loaded", zap.String("path", cfg.Input.Manifest), zap.Int("modules", len(modules)))

	token, source, err := gh.ResolveAuthToken(ctx, cfg.Runtime.Token, gh.HostForBaseURL(cfg.Runtime.BaseURL))
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to resolve GitHub auth token: %v\n", err)
		return exitFatal
	}
	if token == "" {
		logger.Debug("no GitHub token found, using unauthenticated requests")
	} else {
		logger.Debug("using GitHub token", zap.String("source", string(source)))
	}

	client, err := gh.NewClient(ctx, token,
		gh.WithVerbose(cfg.Runtime.Verbose, logger),
		gh.WithTimeout(cfg.Runtime.Timeout),
		gh.WithBaseURL(cfg.Runtime.BaseURL),
	)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create GitHub client: %v\n", err)
		return exitFatal
	}

	results, err := pinModules(ctx, cfg, client, modules, stderr, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitAborted
	}
	logger.Info("modules pinned", zap.Int("modules", len(results)), zap.String("out", cfg.Output.Path))

	if cfg.Output.Summary {
		if err := output.WriteSummary(stdout, results); err != nil {
			fmt.Fprintf(stderr, "Error: write summary: %v\n", err)
			return exitAborted
		}
	}
	return exitOK
}

// pinModules owns the output files for the duration of one run: they are
// created before the first lookup and closed on every return path.
func pinModules(ctx context.Context, cfg *config.Config, resolver pin.Resolver, modules []manifest.Module, stderr io.Writer, logger *zap.Logger) (results []pin.Resolved, retErr error) {
	sinks := output.NewManager()
	defer func() {
		retErr = multierr.Append(retErr, sinks.Close())
	}()

	cmake, err := output.NewCMakeSink(cfg.Output.Path, cfg.Output.Upper)
	if err != nil {
		return nil, err
	}
	if err := sinks.AddSink(cmake); err != nil {
		return nil, multierr.Append(err, cmake.Close())
	}

	if cfg.Output.SummaryFile != "" {
		summary, err := output.NewJSONFileSink(cfg.Output.SummaryFile)
		if err != nil {
			return nil, err
		}
		if err := sinks.AddSink(summary); err != nil {
			return nil, multierr.Append(err, summary.Close())
		}
	}

	opts := []pin.Option{pin.WithLogger(logger)}
	if cfg.Output.Trace {
		opts = append(opts, pin.WithObserver(output.NewTrace(stderr, cfg.Runtime.BaseURL)))
	}
	if cfg.Runtime.Retries > 0 {
		opts = append(opts, pin.WithRetries(cfg.Runtime.Retries, cfg.Runtime.RetryWait))
	}
	updater, err := pin.NewUpdater(resolver, sinks, opts...)
	if err != nil {
		return nil, err
	}
	return updater.Run(ctx, modules)
}

func init() {
	rootCmd.AddCommand(updateCmd)

	// Input
	updateCmd.Flags().StringVar(&cfg.Input.Manifest, flags.FlagManifest, cfg.Input.Manifest, "Module manifest (JSON, or YAML by .yaml/.yml extension)")
	updateCmd.Flags().StringVar(&cfg.Input.EnvFile, flags.FlagEnvFile, cfg.Input.EnvFile, "Load environment variables (e.g. GITHUB_TOKEN) from this file; optional unless set explicitly")

	// Output
	updateCmd.Flags().StringVar(&cfg.Output.Path, flags.FlagOut, cfg.Output.Path, "Generated CMake file (truncated on every run)")
	updateCmd.Flags().BoolVar(&cfg.Output.Upper, flags.FlagUpper, false, "Uppercase module names in variable names (default: keep names as given)")
	updateCmd.Flags().BoolVar(&noSummary, "no-"+flags.FlagSummary, false, "Do not print the JSON summary of pinned modules to stdout")
	updateCmd.Flags().StringVar(&cfg.Output.SummaryFile, flags.FlagSummaryFile, "", "Also write the JSON summary to this .json file")
	updateCmd.Flags().BoolVar(&cfg.Output.Trace, flags.FlagTrace, false, "Print per-module progress to stderr")

	// Runtime
	updateCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Timeout for each GitHub request")
	updateCmd.Flags().IntVar(&cfg.Runtime.Retries, flags.FlagRetries, 0, "Retries for failed lookups (network errors, 5xx, rate limits)")
	updateCmd.Flags().DurationVar(&cfg.Runtime.RetryWait, flags.FlagRetryWait, cfg.Runtime.RetryWait, "Wait before the first retry; doubles after each retry")
	updateCmd.Flags().StringVar(&cfg.Runtime.Token, flags.FlagToken, "", "GitHub token (default: GITHUB_TOKEN, GH_TOKEN, or gh auth token)")
	updateCmd.Flags().StringVar(&cfg.Runtime.BaseURL, flags.FlagAPIURL, "", "GitHub API base URL, e.g. https://ghe.example.com/api/v3/ (default: https://api.github.com/)")
}
