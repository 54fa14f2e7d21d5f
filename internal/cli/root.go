package cli

import (
	"fmt"
	"os"

	"extpin/internal/flags"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "extpin",
	Short: "Pin external modules to the current head of their GitHub branches",
	Long: `extpin resolves the head commit of a branch for every external module listed
in a manifest and writes a CMake include file that pins each module:

	set(<name>_GITHUB <owner/repo>)
	set(<name>_TAG <commit sha>)

Examples:
	# Show available commands and global flags
	extpin --help

	# Pin every module in ext/list.json into cmake/version.cmake
	extpin update

	# Show the modules a manifest declares, without contacting GitHub
	extpin modules list --manifest ext/list.json

	# Print build info
	extpin version`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable debug logging (logs every GitHub API call)")
	rootCmd.PersistentFlags().StringVar(&cfg.Runtime.LogFormat, flags.FlagLogFormat, cfg.Runtime.LogFormat, "Log format: console|json (default: console)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitFatal)
	}
}
