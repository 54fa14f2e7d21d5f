package cli

import (
	"fmt"
	"io"

	"extpin/internal/flags"
	"extpin/internal/manifest"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	modulesListQuiet    bool
	modulesListManifest = cfg.Input.Manifest
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "Inspect the module manifest",
	Long: `Inspect the module manifest without contacting GitHub.

Examples:
  # List the modules extpin would pin
  extpin modules list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var modulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the modules declared in the manifest",
	Long: `List the modules declared in the manifest, in the order they are pinned.

Examples:
  extpin modules list
  extpin modules list --manifest ext.yaml -q

Output:
  One block per module:
    fmt
      github: fmtlib/fmt
      branch: master
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		modules, err := manifest.Load(modulesListManifest)
		if err != nil {
			return err
		}
		printModules(cmd.OutOrStdout(), modules, modulesListQuiet)
		return nil
	},
}

func printModules(w io.Writer, modules []manifest.Module, quiet bool) {
	bold := color.New(color.Bold)
	for _, m := range modules {
		if quiet {
			fmt.Fprintln(w, m.Name)
			continue
		}
		bold.Fprintln(w, m.Name)
		fmt.Fprintf(w, "  github: %s\n", m.GitHub)
		fmt.Fprintf(w, "  branch: %s\n", m.Branch)
	}
}

func init() {
	rootCmd.AddCommand(modulesCmd)
	modulesCmd.AddCommand(modulesListCmd)
	modulesListCmd.Flags().BoolVarP(&modulesListQuiet, flags.FlagQuiet, "q", false, "Only print module names")
	modulesListCmd.Flags().StringVar(&modulesListManifest, flags.FlagManifest, modulesListManifest, "Module manifest (JSON, or YAML by .yaml/.yml extension)")
}
