package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionString = "dev"

// NewRootCommand builds the command tree. Each call returns a fresh tree, so
// flag state never leaks between invocations.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "literaryfinder",
		Short: "Literary Finder - multi-agent author research",
		Long: `Literary Finder researches an author with three specialised workers and
merges their findings into one markdown report:

  historian     biography and historical context
  cartographer  bibliography as a reading map
  connector     critical legacy and similar authors

Workers run in parallel by default, or one after another with --mode
sequential, where later workers build on the findings of earlier ones.`,
		Version: versionString,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ./literaryfinder.yaml or ~/.config/literaryfinder/literaryfinder.yaml)")

	root.AddCommand(newAnalyzeCommand(&configPath))
	root.AddCommand(newShowCommand(&configPath))
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

// SetVersionInfo sets the version reported by --version.
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
